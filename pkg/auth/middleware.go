package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/NikolayKlyatishev/vector-view/pkg/debug"
	"github.com/NikolayKlyatishev/vector-view/pkg/observability"
)

// DefaultBypassEndpoints lists endpoints that skip authentication.
var DefaultBypassEndpoints = []string{"/healthz", "/readyz", "/metrics"}

// Middleware authenticates every request not on the bypass list, enforces
// the write scope on state-changing methods and applies the rate limiter
// when one is given.
func Middleware(chain *Chain, limiter RateLimiter, bypassEndpoints []string) func(http.Handler) http.Handler {
	bypass := make(map[string]bool, len(bypassEndpoints))
	for _, ep := range bypassEndpoints {
		bypass[ep] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			result := chain.Authenticate(r.Context(), r)
			if result.Decision != Yes || result.Identity == nil {
				slog.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", result.Err,
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="vector-view"`)
				writeError(w, http.StatusUnauthorized, ErrUnauthenticated.Error())
				return
			}

			id := result.Identity
			if id.Subject == "" {
				slog.Error("authenticator returned identity with empty subject")
				writeError(w, http.StatusInternalServerError, "internal authentication error")
				return
			}
			debug.Log("auth", "authenticated", "subject", id.Subject, "method", r.Method, "path", r.URL.Path)

			if isWrite(r.Method) && !id.CanWrite() {
				slog.Warn("write denied", "subject", id.Subject, "method", r.Method, "path", r.URL.Path)
				writeError(w, http.StatusForbidden, ErrForbidden.Error())
				return
			}

			if limiter != nil {
				if err := limiter.Allow(r.Context(), id); err != nil {
					tier := tierOf(id)
					slog.Warn("rate limit exceeded", "subject", id.Subject, "tier", tier)
					observability.RateLimitRejectedTotal.WithLabelValues(tier).Inc()
					w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
					writeError(w, http.StatusTooManyRequests, ErrTooManyRequests.Error())
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// writeError writes the {"error": msg} body used across the HTTP API.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
