package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/auth/ratelimit"
)

// RateLimit enforces per-client budgets. Callers identified by Auth use
// their key's limit when it is set; everyone else is bucketed by remote IP
// with defaultLimit.
func RateLimit(limiter *ratelimit.Limiter, defaultLimit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, limit := "ip:"+clientIP(r), defaultLimit
			if info := GetKeyInfo(r.Context()); info != nil {
				key = "key:" + info.ID
				if info.RateLimit > 0 {
					limit = info.RateLimit
				}
			}
			if !limiter.Allow(key, limit) {
				secs := math.Ceil(limiter.RetryAfter(limit).Seconds())
				w.Header().Set("Retry-After", strconv.Itoa(int(secs)))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
