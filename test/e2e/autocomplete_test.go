//go:build e2e

// Package e2e exercises a running autocomplete deployment end to end:
// HTTP index -> Redis -> HTTP search, and optionally the Kafka feed through
// the indexer service.
//
// Prerequisites:
//   - Redis running
//   - cmd/autocomplete listening on E2E_AUTOCOMPLETE_URL
//   - for TestAsyncIndex: Kafka plus cmd/indexer, with kafka.enabled
//
// Run with:
//
//	go test -v -tags=e2e -timeout=120s ./test/e2e/...
package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	ID   string          `json:"id"`
	Term string          `json:"term"`
	Data json.RawMessage `json:"data"`
}

type searchResponse struct {
	Query   string   `json:"query"`
	Limit   int      `json:"limit"`
	Results []result `json:"results"`
}

func baseURL() string {
	if v := os.Getenv("E2E_AUTOCOMPLETE_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func client(t *testing.T) *http.Client {
	t.Helper()
	c := &http.Client{Timeout: 5 * time.Second}
	resp, err := c.Get(baseURL() + "/health/live")
	if err != nil {
		t.Skipf("autocomplete service unavailable: %v", err)
	}
	resp.Body.Close()
	return c
}

func postTerm(t *testing.T, c *http.Client, path, body string) *http.Response {
	t.Helper()
	resp, err := c.Post(baseURL()+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func search(t *testing.T, c *http.Client, q string, limit int) searchResponse {
	t.Helper()
	resp, err := c.Get(fmt.Sprintf("%s/api/v1/autocomplete?q=%s&limit=%d", baseURL(), url.QueryEscape(q), limit))
	require.NoError(t, err)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var out searchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	c := client(t)
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp, err := c.Get(baseURL() + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestIndexAndSearch(t *testing.T) {
	c := client(t)
	word := fmt.Sprintf("e2e%d", time.Now().UnixNano())

	for i, priority := range []int{3, 10} {
		body := fmt.Sprintf(`{"id":"%s-%d","term":"%s Café","data":{"n":%d},"priority":%d}`, word, i, word, i, priority)
		resp := postTerm(t, c, "/api/v1/terms", body)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	got := search(t, c, word[:len(word)-2], 10)
	require.Len(t, got.Results, 2)
	assert.Equal(t, word+"-1", got.Results[0].ID, "higher priority first")
	assert.JSONEq(t, `{"n":1}`, string(got.Results[0].Data))

	got = search(t, c, "  "+strings.ToUpper(word)+" ", 10)
	assert.Len(t, got.Results, 2, "queries are normalized like terms")

	got = search(t, c, word, 1)
	assert.Len(t, got.Results, 1)
}

func TestValidation(t *testing.T) {
	c := client(t)

	resp, err := c.Get(baseURL() + "/api/v1/autocomplete?q=")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postTerm(t, c, "/api/v1/terms", `{"id":"","term":"x"}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAsyncIndex(t *testing.T) {
	c := client(t)
	word := fmt.Sprintf("async%d", time.Now().UnixNano())

	resp := postTerm(t, c, "/api/v1/terms/async", fmt.Sprintf(`{"id":"%s","term":"%s"}`, word, word))
	resp.Body.Close()
	if resp.StatusCode == http.StatusServiceUnavailable {
		t.Skip("kafka not enabled on the autocomplete service")
	}
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		return len(search(t, c, word, 1).Results) == 1
	}, 30*time.Second, time.Second, "indexer service did not apply the event")
}
