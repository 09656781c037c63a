// Package consumer reads index events from the Kafka term feed and applies
// them to the autocomplete engine. Store failures are retried with backoff
// behind a circuit breaker; malformed events are logged and skipped.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/autocomplete"
	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/rtrie/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/resilience"
)

// Indexer is the subset of *autocomplete.Engine the consumer drives.
type Indexer interface {
	Index(ctx context.Context, item autocomplete.Item) error
}

// Options tunes how each event is applied.
type Options struct {
	Retry        resilience.RetryConfig
	Breaker      *resilience.CircuitBreaker
	IndexTimeout time.Duration
}

// IndexConsumer wraps a Kafka consumer to drive the indexing pipeline.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates an IndexConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler that indexes every event.
// Returning nil commits the message, so undecodable and invalid events are
// acknowledged and cannot block the partition. Any other error makes the
// consumer redeliver the event.
func HandleMessage(indexer Indexer, opts Options) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	retry := opts.Retry
	if retry.Retryable == nil {
		retry.Retryable = apperrors.IsRetryable
	}
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.IndexEvent](value)
		if err != nil {
			logger.Error("failed to decode index event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		req := event.Request()
		if err := validator.ValidateIndexRequest(req); err != nil {
			logger.Warn("skipping invalid index event", "key", string(key), "error", err)
			return nil
		}

		err = resilience.Retry(ctx, "index "+req.ID, retry, func() error {
			return apply(ctx, indexer, req.Item(), opts)
		})
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrInvalidInput):
			logger.Warn("skipping unindexable term", "id", req.ID, "error", err)
			return nil
		default:
			return fmt.Errorf("indexing term %s: %w", req.ID, err)
		}

		logger.Info("term indexed",
			"id", req.ID,
			"priority", req.Priority,
			"lag_ms", time.Since(event.PublishedAt).Milliseconds(),
		)
		return nil
	}
}

func apply(ctx context.Context, indexer Indexer, item autocomplete.Item, opts Options) error {
	call := func() error {
		return resilience.WithTimeout(ctx, opts.IndexTimeout, "index", func(ctx context.Context) error {
			return indexer.Index(ctx, item)
		})
	}
	if opts.Breaker == nil {
		return call()
	}
	return opts.Breaker.Execute(call)
}
