// Command loadtest replays typing sessions against the autocomplete
// endpoint: each simulated user types a term one character at a time and
// issues a completion request per keystroke.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL     string
	APIKey      string
	Concurrency int
	Duration    time.Duration
	Limit       int
	ThinkTime   time.Duration
	Terms       []string
}

// Stats aggregates results across workers. Latencies are grouped by the
// length of the typed prefix, since short prefixes hit the largest sets.
type Stats struct {
	requests  atomic.Int64
	errors    atomic.Int64
	empty     atomic.Int64
	throttled atomic.Int64

	mu        sync.Mutex
	latencies map[string][]time.Duration
	codes     map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies: make(map[string][]time.Duration),
		codes:     make(map[int]int64),
	}
}

func (s *Stats) Record(prefixLen int, d time.Duration, status, results int, err error) {
	s.requests.Add(1)
	if err != nil {
		s.errors.Add(1)
		return
	}
	switch {
	case status == http.StatusTooManyRequests:
		s.throttled.Add(1)
	case status != http.StatusOK:
		s.errors.Add(1)
	case results == 0:
		s.empty.Add(1)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[status]++
	if status == http.StatusOK {
		b := bucket(prefixLen)
		s.latencies[b] = append(s.latencies[b], d)
	}
}

func bucket(n int) string {
	switch {
	case n <= 2:
		return "1-2"
	case n <= 5:
		return "3-5"
	default:
		return "6+"
	}
}

// keystrokes returns the queries a user produces while typing term:
// "c", "ca", "caf", ... Whitespace-only prefixes are skipped.
func keystrokes(term string) []string {
	runes := []rune(term)
	out := make([]string, 0, len(runes))
	for i := 1; i <= len(runes); i++ {
		q := string(runes[:i])
		if strings.TrimSpace(q) == "" || runes[i-1] == ' ' {
			continue
		}
		out = append(out, q)
	}
	return out
}

func main() {
	cfg := Config{}
	flag.StringVar(&cfg.BaseURL, "url", "http://localhost:8080", "base URL of the autocomplete service")
	flag.StringVar(&cfg.APIKey, "api-key", "", "API key sent as X-API-Key")
	flag.IntVar(&cfg.Concurrency, "concurrency", 10, "number of simulated users")
	flag.DurationVar(&cfg.Duration, "duration", 30*time.Second, "test duration")
	flag.IntVar(&cfg.Limit, "limit", 10, "results requested per keystroke")
	flag.DurationVar(&cfg.ThinkTime, "think", 0, "pause between keystrokes")
	terms := flag.String("terms", "", "comma-separated terms to type (default built-in list)")
	flag.Parse()

	cfg.Terms = []string{
		"cafe music", "jazz standards", "blues guitar", "classical piano",
		"electronic dance", "hip hop", "rock and roll", "soul classics",
		"country roads", "latin jazz", "ambient sleep", "movie soundtracks",
	}
	if *terms != "" {
		cfg.Terms = strings.Split(*terms, ",")
	}

	fmt.Println("=== Autocomplete Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Users:       %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Terms:       %d\n", len(cfg.Terms))
	fmt.Println()

	stats := run(cfg)
	if !printReport(stats, cfg.Duration) {
		os.Exit(1)
	}
}

func run(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(user int) {
			defer wg.Done()
			for session := user; ctx.Err() == nil; session++ {
				term := cfg.Terms[session%len(cfg.Terms)]
				for _, q := range keystrokes(term) {
					if ctx.Err() != nil {
						return
					}
					start := time.Now()
					status, n, err := complete(ctx, client, cfg, q)
					if ctx.Err() != nil {
						return
					}
					stats.Record(len([]rune(q)), time.Since(start), status, n, err)
					if cfg.ThinkTime > 0 {
						time.Sleep(cfg.ThinkTime)
					}
				}
			}
		}(w)
	}
	wg.Wait()
	return stats
}

func complete(ctx context.Context, client *http.Client, cfg Config, q string) (status, results int, err error) {
	u := fmt.Sprintf("%s/api/v1/autocomplete?q=%s&limit=%d", cfg.BaseURL, url.QueryEscape(q), cfg.Limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, 0, err
	}
	if cfg.APIKey != "" {
		req.Header.Set("X-API-Key", cfg.APIKey)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	var body struct {
		Results []json.RawMessage `json:"results"`
	}
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return resp.StatusCode, 0, err
		}
	}
	return resp.StatusCode, len(body.Results), nil
}

func printReport(stats *Stats, duration time.Duration) bool {
	total := stats.requests.Load()
	fmt.Println("=== Results ===")
	fmt.Printf("Requests:      %d\n", total)
	fmt.Printf("Errors:        %d\n", stats.errors.Load())
	fmt.Printf("Throttled:     %d\n", stats.throttled.Load())
	fmt.Printf("Empty results: %d\n", stats.empty.Load())
	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		return false
	}
	fmt.Printf("Requests/sec:  %.2f\n", float64(total)/duration.Seconds())

	stats.mu.Lock()
	defer stats.mu.Unlock()

	fmt.Println()
	fmt.Println("=== Latency by prefix length ===")
	fmt.Printf("%-6s %8s %10s %10s %10s %10s\n", "len", "count", "p50", "p90", "p99", "max")
	for _, b := range []string{"1-2", "3-5", "6+"} {
		l := stats.latencies[b]
		if len(l) == 0 {
			continue
		}
		slices.Sort(l)
		fmt.Printf("%-6s %8d %10s %10s %10s %10s\n", b, len(l),
			percentile(l, 50), percentile(l, 90), percentile(l, 99), l[len(l)-1])
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	codes := make([]int, 0, len(stats.codes))
	for code := range stats.codes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, stats.codes[code])
	}
	return true
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
