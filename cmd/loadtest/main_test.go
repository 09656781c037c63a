package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeystrokes(t *testing.T) {
	assert.Equal(t, []string{"j", "ja", "jaz", "jazz", "jazz b", "jazz bl"}, keystrokes("jazz bl"))
	assert.Equal(t, []string{"c", "ca", "caf", "café"}, keystrokes("café"))
	assert.Empty(t, keystrokes("  "))
}

func TestPercentile(t *testing.T) {
	l := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(l, 50))
	assert.Equal(t, time.Duration(10), percentile(l, 99))
	assert.Equal(t, time.Duration(1), percentile(l, 0))
	assert.Zero(t, percentile(nil, 50))
}

func TestRun_AgainstStub(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "z" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"results":[{"id":"1"}]}`))
	}))
	defer srv.Close()

	stats := run(Config{
		BaseURL:     srv.URL,
		Concurrency: 2,
		Duration:    100 * time.Millisecond,
		Limit:       5,
		Terms:       []string{"zoo", "abc"},
	})
	assert.Positive(t, stats.requests.Load())
	assert.Positive(t, stats.throttled.Load())
	assert.Zero(t, stats.errors.Load())
	assert.NotEmpty(t, stats.latencies["1-2"])
}
