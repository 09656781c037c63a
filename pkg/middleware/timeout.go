package middleware

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/logger"
)

// Timeout bounds each request to d. If the handler has not started its
// response by then, the client gets a 504 and anything the handler writes
// afterwards is dropped with http.ErrHandlerTimeout.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			tw := &timeoutWriter{w: w, header: make(http.Header)}
			done := make(chan struct{})
			panicked := make(chan any, 1)
			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
				}()
				next.ServeHTTP(tw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
			case p := <-panicked:
				panic(p)
			case <-ctx.Done():
				if !tw.expire() {
					<-done
					return
				}
				logger.FromContext(r.Context()).Warn("request timed out",
					"method", r.Method,
					"path", r.URL.Path,
					"timeout", d,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusGatewayTimeout)
				json.NewEncoder(w).Encode(map[string]string{
					"error":      "request timeout",
					"request_id": logger.RequestID(r.Context()),
				})
			}
		})
	}
}

// timeoutWriter passes writes through until the deadline fires. Headers are
// staged in a private map and copied on the first write so the handler
// goroutine never touches the real header map after expiry.
type timeoutWriter struct {
	w      http.ResponseWriter
	header http.Header

	mu      sync.Mutex
	started bool
	expired bool
}

func (tw *timeoutWriter) Header() http.Header { return tw.header }

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.expired || tw.started {
		return
	}
	tw.start(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.expired {
		return 0, http.ErrHandlerTimeout
	}
	if !tw.started {
		tw.start(http.StatusOK)
	}
	return tw.w.Write(b)
}

func (tw *timeoutWriter) start(code int) {
	tw.started = true
	maps.Copy(tw.w.Header(), tw.header)
	tw.w.WriteHeader(code)
}

// expire marks the writer timed out. It reports false if the handler had
// already started the response, in which case the handler is left to
// finish it.
func (tw *timeoutWriter) expire() bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.started {
		return false
	}
	tw.expired = true
	return true
}
