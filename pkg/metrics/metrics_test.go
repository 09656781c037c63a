package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/rtrie/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/resilience"
)

func TestObserveIndex(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveIndex(9, nil)
	m.ObserveIndex(0, apperrors.Invalidf("id is empty"))
	m.ObserveIndex(4, fmt.Errorf("exec: %w", apperrors.ErrStoreUnavailable))
	m.ObserveIndex(4, fmt.Errorf("%w: WRONGTYPE", apperrors.ErrStoreProtocol))
	m.ObserveIndex(4, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexTotal.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexTotal.WithLabelValues("unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexTotal.WithLabelValues("protocol")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexTotal.WithLabelValues("error")))
}

func TestObserveSearch(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveSearch(3, time.Millisecond, nil)
	m.ObserveSearch(0, time.Millisecond, nil)
	m.ObserveSearch(0, 0, apperrors.Invalidf("query is empty"))
	m.ObserveSearch(0, 0, apperrors.ErrStoreUnavailable)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchTotal.WithLabelValues("zero_result")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchTotal.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchTotal.WithLabelValues("error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.SearchLatency))
}

func TestObserveBreakerAndRetry(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveBreaker("redis", resilience.StateClosed, resilience.StateOpen)
	m.ObserveRetry(1, apperrors.ErrStoreUnavailable)
	m.ObserveRetry(2, apperrors.ErrStoreUnavailable)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("redis")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.IndexRetries))
}

func TestScrapeHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)
	m.ObserveRetry(1, nil)

	srv := httptest.NewServer(ScrapeHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "autocomplete_index_retries_total 1")

	resp, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartServer(t *testing.T) {
	shutdown, err := StartServer(0, prometheus.NewRegistry())
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewWithRegistry_Isolated(t *testing.T) {
	assert.NotPanics(t, func() {
		NewWithRegistry(prometheus.NewRegistry())
		NewWithRegistry(prometheus.NewRegistry())
	})
}
