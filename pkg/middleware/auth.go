package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/rtrie/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/logger"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "X-API-Key"

type keyInfoKey struct{}

// AuthMode selects what Auth demands of a request.
type AuthMode int

const (
	// AuthOptional identifies callers that present a key and lets
	// anonymous requests through.
	AuthOptional AuthMode = iota
	// AuthRead requires any valid key.
	AuthRead
	// AuthWrite requires a valid key with write permission.
	AuthWrite
)

// Auth validates the presented API key. A key that is presented but
// invalid is always rejected, whatever the mode.
func Auth(validator apikey.KeyValidator, mode AuthMode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractAPIKey(r)
			if raw == "" {
				if mode == AuthOptional {
					next.ServeHTTP(w, r)
					return
				}
				writeError(w, http.StatusUnauthorized, "missing api key")
				return
			}

			info, err := validator.Validate(r.Context(), raw)
			switch {
			case err == nil:
			case errors.Is(err, apikey.ErrInvalidKey):
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			case errors.Is(err, apikey.ErrExpiredKey):
				writeError(w, http.StatusUnauthorized, "expired api key")
				return
			default:
				logger.FromContext(r.Context()).Error("api key validation failed", "error", err)
				writeError(w, http.StatusServiceUnavailable, "authentication unavailable")
				return
			}
			if mode == AuthWrite && !info.CanWrite {
				writeError(w, http.StatusForbidden, "api key is read-only")
				return
			}
			ctx := context.WithValue(r.Context(), keyInfoKey{}, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetKeyInfo returns the KeyInfo set by Auth, or nil for anonymous callers.
func GetKeyInfo(ctx context.Context) *apikey.KeyInfo {
	info, _ := ctx.Value(keyInfoKey{}).(*apikey.KeyInfo)
	return info
}

// extractAPIKey reads the key from Authorization: Bearer, then X-API-Key,
// then the api_key query parameter. Browser widgets can only use the last.
func extractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	return r.URL.Query().Get("api_key")
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
