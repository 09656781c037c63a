// Package ingestion defines the request/response types and Kafka event schema
// used to feed terms into the autocomplete index.
package ingestion

import (
	"encoding/json"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/autocomplete"
)

// IndexRequest is the JSON body accepted by the term endpoints.
type IndexRequest struct {
	ID       string          `json:"id"`
	Term     string          `json:"term"`
	Data     json.RawMessage `json:"data,omitempty"`
	Priority float64         `json:"priority"`
}

// Item converts the request into an engine item. An absent payload is
// stored as JSON null.
func (r *IndexRequest) Item() autocomplete.Item {
	item := autocomplete.Item{ID: r.ID, Term: r.Term, Priority: r.Priority}
	if len(r.Data) > 0 {
		item.Data = r.Data
	}
	return item
}

// IndexResponse is returned after a term is indexed or queued.
type IndexResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

const (
	StatusIndexed = "INDEXED"
	StatusQueued  = "QUEUED"
)

// IndexEvent is the Kafka message payload consumed by the indexer service.
type IndexEvent struct {
	ID          string          `json:"id"`
	Term        string          `json:"term"`
	Data        json.RawMessage `json:"data,omitempty"`
	Priority    float64         `json:"priority"`
	PublishedAt time.Time       `json:"published_at"`
}

// Request returns the event as an IndexRequest for validation and indexing.
func (e *IndexEvent) Request() *IndexRequest {
	return &IndexRequest{ID: e.ID, Term: e.Term, Data: e.Data, Priority: e.Priority}
}
