// Package publisher queues index requests on the Kafka term feed for the
// indexer service to apply asynchronously.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/kafka"
)

// EventWriter is the subset of *kafka.Producer the publisher needs.
type EventWriter interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Publisher turns validated requests into IndexEvents.
type Publisher struct {
	writer EventWriter
	now    func() time.Time
	logger *slog.Logger
}

func New(writer EventWriter) *Publisher {
	return &Publisher{
		writer: writer,
		now:    time.Now,
		logger: slog.Default().With("component", "publisher"),
	}
}

// Enqueue publishes req keyed by its id, so every event for one id lands on
// the same partition and is applied in order.
func (p *Publisher) Enqueue(ctx context.Context, req *ingestion.IndexRequest) (*ingestion.IndexResponse, error) {
	event := kafka.Event{
		Key: req.ID,
		Value: ingestion.IndexEvent{
			ID:          req.ID,
			Term:        req.Term,
			Data:        req.Data,
			Priority:    req.Priority,
			PublishedAt: p.now().UTC(),
		},
	}
	if err := p.writer.Publish(ctx, event); err != nil {
		return nil, fmt.Errorf("enqueueing term %s: %w", req.ID, err)
	}
	p.logger.Debug("term queued", "id", req.ID)
	return &ingestion.IndexResponse{ID: req.ID, Status: ingestion.StatusQueued}, nil
}
