// Package middleware holds the HTTP middleware shared by the autocomplete
// API: request IDs, CORS, API-key auth, rate limiting, Prometheus metrics
// and per-request timeouts.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/metrics"
)

// knownRoutes are labelled by path; anything else is "other" so scanners
// cannot blow up label cardinality.
var knownRoutes = map[string]bool{
	"/api/v1/autocomplete": true,
	"/api/v1/terms":        true,
	"/api/v1/terms/async":  true,
	"/health/live":         true,
	"/health/ready":        true,
}

func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)

			route := "other"
			if knownRoutes[r.URL.Path] {
				route = r.URL.Path
			}
			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.code())).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	if sw.status == 0 {
		sw.status = code
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	return sw.ResponseWriter.Write(b)
}

// code is the status sent, or 200 if the handler wrote nothing.
func (sw *statusWriter) code() int {
	if sw.status == 0 {
		return http.StatusOK
	}
	return sw.status
}
