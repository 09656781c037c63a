package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/autocomplete"
	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/store/memstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/rtrie/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/resilience"
)

type flakyIndexer struct {
	failures int
	err      error
	calls    int
	items    []autocomplete.Item
}

func (f *flakyIndexer) Index(_ context.Context, item autocomplete.Item) error {
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	f.items = append(f.items, item)
	return nil
}

func encode(t *testing.T, e ingestion.IndexEvent) []byte {
	t.Helper()
	b, err := json.Marshal(e)
	require.NoError(t, err)
	return b
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func TestHandleMessage_IndexesIntoEngine(t *testing.T) {
	engine := autocomplete.New(memstore.New(), autocomplete.Config{})
	h := HandleMessage(engine, Options{Retry: fastRetry()})

	value := encode(t, ingestion.IndexEvent{
		ID: "42", Term: "Café Music", Data: json.RawMessage(`{"genre":"jazz"}`), Priority: 5,
		PublishedAt: time.Now(),
	})
	require.NoError(t, h(context.Background(), []byte("42"), value))

	results, err := engine.Search(context.Background(), "caf", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Café Music", results[0].Term)
}

func TestHandleMessage_RetriesUnavailableStore(t *testing.T) {
	idx := &flakyIndexer{failures: 2, err: fmt.Errorf("exec: %w", apperrors.ErrStoreUnavailable)}
	h := HandleMessage(idx, Options{Retry: fastRetry()})

	require.NoError(t, h(context.Background(), nil, encode(t, ingestion.IndexEvent{ID: "1", Term: "jazz"})))
	assert.Equal(t, 3, idx.calls)
	assert.Len(t, idx.items, 1)
}

func TestHandleMessage_ExhaustedRetriesLeaveMessageUncommitted(t *testing.T) {
	idx := &flakyIndexer{failures: 10, err: apperrors.ErrStoreUnavailable}
	h := HandleMessage(idx, Options{Retry: fastRetry()})

	err := h(context.Background(), nil, encode(t, ingestion.IndexEvent{ID: "1", Term: "jazz"}))
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	assert.Equal(t, 3, idx.calls)
}

func TestHandleMessage_ProtocolErrorsAreNotRetried(t *testing.T) {
	idx := &flakyIndexer{failures: 10, err: apperrors.ErrStoreProtocol}
	h := HandleMessage(idx, Options{Retry: fastRetry()})

	err := h(context.Background(), nil, encode(t, ingestion.IndexEvent{ID: "1", Term: "jazz"}))
	assert.ErrorIs(t, err, apperrors.ErrStoreProtocol)
	assert.Equal(t, 1, idx.calls)
}

func TestHandleMessage_SkipsPoisonMessages(t *testing.T) {
	idx := &flakyIndexer{}
	h := HandleMessage(idx, Options{Retry: fastRetry()})
	ctx := context.Background()

	assert.NoError(t, h(ctx, []byte("k"), []byte("{not json")))
	assert.NoError(t, h(ctx, []byte("k"), encode(t, ingestion.IndexEvent{ID: "", Term: "jazz"})))
	assert.Equal(t, 0, idx.calls)

	engine := autocomplete.New(memstore.New(), autocomplete.Config{})
	h = HandleMessage(engine, Options{Retry: fastRetry()})
	assert.NoError(t, h(ctx, nil, encode(t, ingestion.IndexEvent{ID: "1", Term: "日本"})), "unindexable terms are acknowledged")
}

func TestHandleMessage_BreakerOpens(t *testing.T) {
	breaker := resilience.NewCircuitBreaker("redis", resilience.CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Hour,
	})
	idx := &flakyIndexer{failures: 100, err: apperrors.ErrStoreUnavailable}
	retry := fastRetry()
	retry.MaxAttempts = 1
	h := HandleMessage(idx, Options{Retry: retry, Breaker: breaker})
	ctx := context.Background()
	value := encode(t, ingestion.IndexEvent{ID: "1", Term: "jazz"})

	assert.Error(t, h(ctx, nil, value))
	err := h(ctx, nil, value)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 1, idx.calls, "open breaker short-circuits the store")
}
