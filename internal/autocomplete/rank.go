package autocomplete

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/store"
)

// RankIndex maintains one ranked set per prefix, mapping identifiers to
// their priority.
type RankIndex struct {
	store     store.Store
	namespace string
}

func NewRankIndex(s store.Store, namespace string) *RankIndex {
	return &RankIndex{store: s, namespace: namespace}
}

// Upsert queues setting id's score under prefix. Repeating it with the same
// arguments is a no-op; a different score replaces the old one.
func (r *RankIndex) Upsert(b *store.Batch, prefix, id string, score float64) {
	b.Upsert(rankKey(r.namespace, prefix), id, score)
}

// TopN returns at most n identifiers indexed under prefix, highest score
// first. Tie order is whatever the store produces.
func (r *RankIndex) TopN(ctx context.Context, prefix string, n int) ([]string, error) {
	return r.store.TopN(ctx, rankKey(r.namespace, prefix), n)
}
