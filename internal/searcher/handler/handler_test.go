package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/autocomplete"
	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/store/memstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/rtrie/pkg/errors"
)

type stubSearcher struct {
	gotLimit int
	err      error
}

func (s *stubSearcher) Search(_ context.Context, _ string, limit int) ([]autocomplete.Result, error) {
	s.gotLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return []autocomplete.Result{}, nil
}

func get(h *Handler, query url.Values) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/v1/autocomplete?"+query.Encode(), nil))
	return rec
}

func TestSearch_EndToEndWithEngine(t *testing.T) {
	engine := autocomplete.New(memstore.New(), autocomplete.Config{})
	ctx := context.Background()
	require.NoError(t, engine.Index(ctx, autocomplete.Item{ID: "A", Term: "jazz", Priority: 10}))
	require.NoError(t, engine.Index(ctx, autocomplete.Item{ID: "B", Term: "java", Priority: 3}))

	h := New(engine, 20, 100, false)
	rec := get(h, url.Values{"q": {"JA"}, "limit": {"1"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "JA", resp.Query)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "A", resp.Results[0].ID)
}

func TestSearch_EmptyResultIsArray(t *testing.T) {
	h := New(autocomplete.New(memstore.New(), autocomplete.Config{}), 20, 100, true)
	rec := get(h, url.Values{"q": {"nothing"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"query":"nothing","limit":20,"results":[]}`, rec.Body.String())
}

func TestSearch_Limits(t *testing.T) {
	tests := []struct {
		name      string
		limit     string
		wantCode  int
		wantLimit int
	}{
		{"default", "", http.StatusOK, 20},
		{"explicit", "5", http.StatusOK, 5},
		{"clamped", "500", http.StatusOK, 100},
		{"zero", "0", http.StatusBadRequest, 0},
		{"negative", "-3", http.StatusBadRequest, 0},
		{"garbage", "ten", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &stubSearcher{}
			h := New(s, 20, 100, false)
			q := url.Values{"q": {"a"}}
			if tt.limit != "" {
				q.Set("limit", tt.limit)
			}
			rec := get(h, q)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLimit, s.gotLimit)
		})
	}
}

func TestSearch_MissingQuery(t *testing.T) {
	h := New(&stubSearcher{}, 20, 100, false)
	assert.Equal(t, http.StatusBadRequest, get(h, url.Values{}).Code)
}

func TestSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{apperrors.Invalidf("query is empty"), http.StatusBadRequest},
		{apperrors.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{apperrors.ErrStoreProtocol, http.StatusBadGateway},
	}
	for _, tt := range tests {
		h := New(&stubSearcher{err: tt.err}, 20, 100, false)
		assert.Equal(t, tt.code, get(h, url.Values{"q": {"  "}}).Code, "err %v", tt.err)
	}
}

// blockingSearcher holds every search until release is closed, honouring
// the context it was given.
type blockingSearcher struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
	ctx     context.Context
}

func (b *blockingSearcher) Search(ctx context.Context, q string, _ int) ([]autocomplete.Result, error) {
	if b.calls.Add(1) == 1 {
		b.ctx = ctx
		close(b.started)
	}
	select {
	case <-b.release:
		return []autocomplete.Result{{ID: "A", Term: q}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestSearch_CancelledCallerDoesNotFailSharedSearch(t *testing.T) {
	s := &blockingSearcher{started: make(chan struct{}), release: make(chan struct{})}
	h := New(s, 20, 100, false)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstRec := httptest.NewRecorder()
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/autocomplete?q=ja", nil)
		h.Search(firstRec, req.WithContext(firstCtx))
	}()
	<-s.started

	cancelFirst()
	<-firstDone
	assert.Equal(t, 0, firstRec.Body.Len(), "nothing is written for a departed client")
	assert.NoError(t, s.ctx.Err(), "shared search outlives the caller that started it")

	secondRec := httptest.NewRecorder()
	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		h.Search(secondRec, httptest.NewRequest(http.MethodGet, "/api/v1/autocomplete?q=ja", nil))
	}()
	close(s.release)
	<-secondDone

	require.Equal(t, http.StatusOK, secondRec.Code, secondRec.Body.String())
	var resp SearchResponse
	require.NoError(t, json.NewDecoder(secondRec.Body).Decode(&resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "A", resp.Results[0].ID)
}

func TestSearch_SharedSearchTimeout(t *testing.T) {
	s := &blockingSearcher{started: make(chan struct{}), release: make(chan struct{})}
	defer close(s.release)
	h := New(s, 20, 100, false)
	h.sharedTimeout = 10 * time.Millisecond

	rec := get(h, url.Values{"q": {"ja"}})
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}
