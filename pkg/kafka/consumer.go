// Package kafka carries index events between the write API and the indexer
// over segmentio/kafka-go. Events are JSON; the message key is the term ID
// so every update for one ID lands on one partition in order.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/config"
)

// MessageHandler processes one message. A nil return commits it.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer feeds one topic to a MessageHandler with at-least-once delivery.
// A message whose handler fails is redelivered, after RedeliveryDelay,
// until it succeeds or the context ends; later messages on the same
// partition wait behind it.
type Consumer struct {
	reader          messageReader
	handler         MessageHandler
	redeliveryDelay time.Duration
	logger          *slog.Logger
}

func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.FirstOffset,
	})
	return newConsumer(r, topic, handler, cfg.RedeliveryDelay)
}

func newConsumer(r messageReader, topic string, handler MessageHandler, redelivery time.Duration) *Consumer {
	if redelivery <= 0 {
		redelivery = time.Second
	}
	return &Consumer{
		reader:          r,
		handler:         handler,
		redeliveryDelay: redelivery,
		logger:          slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
}

// Start consumes until ctx is cancelled, then closes the reader. It returns
// nil on a clean shutdown.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			c.logger.Error("fetch failed", "error", err)
			if !c.pause(ctx) {
				return nil
			}
			continue
		}
		if !c.deliver(ctx, msg) {
			c.logger.Info("consumer stopping with message uncommitted",
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			return nil
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("commit failed", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		}
	}
}

// deliver runs the handler until it succeeds. It reports false if ctx ended
// first.
func (c *Consumer) deliver(ctx context.Context, msg kafka.Message) bool {
	for attempt := 1; ; attempt++ {
		err := c.handler(ctx, msg.Key, msg.Value)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		c.logger.Error("handler failed, redelivering",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"attempt", attempt,
			"error", err,
		)
		if !c.pause(ctx) {
			return false
		}
	}
}

func (c *Consumer) pause(ctx context.Context) bool {
	t := time.NewTimer(c.redeliveryDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
