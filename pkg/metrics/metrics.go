// Package metrics defines the Prometheus metric collectors used by the
// autocomplete services and serves them for scraping.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apperrors "github.com/Adithya-Monish-Kumar-K/rtrie/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/resilience"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	IndexTotal           *prometheus.CounterVec
	IndexPrefixes        prometheus.Histogram
	SearchTotal          *prometheus.CounterVec
	SearchLatency        prometheus.Histogram
	SearchResults        prometheus.Histogram
	IndexRetries         prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all metrics and registers them with the default registerer.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all metrics and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		IndexTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autocomplete_index_total",
				Help: "Index operations by status (ok, invalid, unavailable, protocol, error).",
			},
			[]string{"status"},
		),
		IndexPrefixes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "autocomplete_index_prefixes",
				Help:    "Number of prefix keys written per indexed term.",
				Buckets: []float64{1, 5, 10, 20, 40, 80, 160},
			},
		),
		SearchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autocomplete_search_total",
				Help: "Search queries by result type (hit, zero_result, invalid, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "autocomplete_search_latency_seconds",
				Help:    "Search latency in seconds, store round trips included.",
				Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
		),
		SearchResults: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "autocomplete_search_results",
				Help:    "Number of results returned per search.",
				Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
			},
		),
		IndexRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "autocomplete_index_retries_total",
				Help: "Index attempts that failed with a retryable error and were retried.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.IndexTotal,
		m.IndexPrefixes,
		m.SearchTotal,
		m.SearchLatency,
		m.SearchResults,
		m.IndexRetries,
		m.CircuitBreakerState,
	)

	return m
}

// ObserveIndex records one Index call.
func (m *Metrics) ObserveIndex(prefixes int, err error) {
	m.IndexTotal.WithLabelValues(statusLabel(err)).Inc()
	if err == nil {
		m.IndexPrefixes.Observe(float64(prefixes))
	}
}

// ObserveSearch records one Search call.
func (m *Metrics) ObserveSearch(results int, elapsed time.Duration, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		m.SearchTotal.WithLabelValues("invalid").Inc()
		return
	case err != nil:
		m.SearchTotal.WithLabelValues("error").Inc()
		return
	case results == 0:
		m.SearchTotal.WithLabelValues("zero_result").Inc()
	default:
		m.SearchTotal.WithLabelValues("hit").Inc()
	}
	m.SearchLatency.Observe(elapsed.Seconds())
	m.SearchResults.Observe(float64(results))
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperrors.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, apperrors.ErrStoreUnavailable):
		return "unavailable"
	case errors.Is(err, apperrors.ErrStoreProtocol):
		return "protocol"
	default:
		return "error"
	}
}

// ObserveBreaker exports a circuit breaker's state. Its signature matches
// resilience.CircuitBreakerConfig.OnStateChange.
func (m *Metrics) ObserveBreaker(name string, _, to resilience.State) {
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
}

// ObserveRetry counts one retried index attempt. Its signature matches
// resilience.RetryConfig.OnRetry.
func (m *Metrics) ObserveRetry(int, error) {
	m.IndexRetries.Inc()
}
