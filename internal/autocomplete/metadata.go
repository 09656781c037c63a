package autocomplete

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/store"
)

// Record is what the metadata store holds for one identifier: the term as
// the caller supplied it and the caller's payload.
type Record struct {
	ID   string          `json:"id"`
	Term string          `json:"term"`
	Data json.RawMessage `json:"data"`
}

// MetadataIndex stores one Record per identifier in a single shared hash.
type MetadataIndex struct {
	store     store.Store
	namespace string
	logger    *slog.Logger
}

func NewMetadataIndex(s store.Store, namespace string) *MetadataIndex {
	return &MetadataIndex{
		store:     s,
		namespace: namespace,
		logger:    slog.Default().With("component", "metadata-index"),
	}
}

// Put queues storing rec under its ID, replacing any earlier record.
func (m *MetadataIndex) Put(b *store.Batch, rec Record) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", rec.ID, err)
	}
	b.Put(metadataKey(m.namespace), rec.ID, value)
	return nil
}

// GetMany fetches the records for ids. Unknown ids, and records that no
// longer decode, are absent from the result.
func (m *MetadataIndex) GetMany(ctx context.Context, ids []string) (map[string]Record, error) {
	raw, err := m.store.GetMany(ctx, metadataKey(m.namespace), ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Record, len(raw))
	for id, value := range raw {
		var rec Record
		if err := json.Unmarshal(value, &rec); err != nil {
			m.logger.Warn("skipping undecodable metadata record", "id", id, "error", err)
			continue
		}
		out[id] = rec
	}
	return out, nil
}
