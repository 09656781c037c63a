// Package router wires the autocomplete HTTP routes and their middleware.
package router

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/auth/ratelimit"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/rtrie/internal/ingestion/handler"
	searchhandler "github.com/Adithya-Monish-Kumar-K/rtrie/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/middleware"
)

// Deps are the handlers and optional policies behind the routes. A nil
// Validator disables API keys, a nil Limiter disables rate limiting and a
// nil Metrics skips HTTP instrumentation.
type Deps struct {
	Search  *searchhandler.Handler
	Ingest  *ingesthandler.Handler
	Health  *health.Checker
	Metrics *metrics.Metrics

	Validator        apikey.KeyValidator
	Limiter          *ratelimit.Limiter
	DefaultRateLimit int
	CORSOrigins      []string
	Timeout          time.Duration
}

// New builds the service handler.
//
// Route table:
//
//	GET  /api/v1/autocomplete  completions   (key optional, rate limited)
//	POST /api/v1/terms         index now     (write key)
//	POST /api/v1/terms/async   queue index   (write key)
//	GET  /health/live          liveness
//	GET  /health/ready         readiness
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → Metrics → Timeout → mux
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /api/v1/autocomplete", guard(d, middleware.AuthOptional, true, http.HandlerFunc(d.Search.Search)))
	mux.Handle("POST /api/v1/terms", guard(d, middleware.AuthWrite, false, http.HandlerFunc(d.Ingest.Index)))
	mux.Handle("POST /api/v1/terms/async", guard(d, middleware.AuthWrite, false, http.HandlerFunc(d.Ingest.Enqueue)))

	mux.HandleFunc("GET /health/live", d.Health.LiveHandler())
	mux.HandleFunc("GET /health/ready", d.Health.ReadyHandler())

	var chain http.Handler = mux
	if d.Timeout > 0 {
		chain = middleware.Timeout(d.Timeout)(chain)
	}
	if d.Metrics != nil {
		chain = middleware.Metrics(d.Metrics)(chain)
	}
	if len(d.CORSOrigins) > 0 {
		chain = middleware.CORS(middleware.DefaultCORSConfig(d.CORSOrigins))(chain)
	}
	chain = middleware.RequestID(chain)
	return chain
}

// guard applies the per-route policies: auth, then rate limiting, so keyed
// callers are limited by key rather than by address.
func guard(d Deps, mode middleware.AuthMode, limited bool, h http.Handler) http.Handler {
	if limited && d.Limiter != nil {
		h = middleware.RateLimit(d.Limiter, d.DefaultRateLimit)(h)
	}
	if d.Validator != nil {
		h = middleware.Auth(d.Validator, mode)(h)
	}
	return h
}
