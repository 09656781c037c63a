package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/kafka"
)

type fakeWriter struct {
	events []kafka.Event
	err    error
}

func (f *fakeWriter) Publish(_ context.Context, e kafka.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

func TestEnqueue(t *testing.T) {
	w := &fakeWriter{}
	p := New(w)
	fixed := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	resp, err := p.Enqueue(context.Background(), &ingestion.IndexRequest{
		ID: "42", Term: "Café Music", Data: json.RawMessage(`{"genre":"jazz"}`), Priority: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, &ingestion.IndexResponse{ID: "42", Status: ingestion.StatusQueued}, resp)

	require.Len(t, w.events, 1)
	assert.Equal(t, "42", w.events[0].Key)
	event := w.events[0].Value.(ingestion.IndexEvent)
	assert.Equal(t, "Café Music", event.Term)
	assert.Equal(t, 5.0, event.Priority)
	assert.Equal(t, fixed, event.PublishedAt)
}

func TestEnqueue_WriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := New(&fakeWriter{err: boom})
	_, err := p.Enqueue(context.Background(), &ingestion.IndexRequest{ID: "1", Term: "x"})
	assert.ErrorIs(t, err, boom)
}
