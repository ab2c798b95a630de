package ratelimit

import (
	"net/http"
	"time"

	"contacts-api/internal/auth"
	"contacts-api/internal/httputil"
	"contacts-api/internal/logging"
)

// Limit returns a middleware enforcing limit requests per window for the
// given purpose, keyed by the authenticated user's email. Unauthenticated
// requests fall back to the remote address. Limiter errors fail open so a
// Redis outage does not take the API down.
func (l *Limiter) Limit(purpose string, limit int, window time.Duration) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := logging.GetLoggerFromContext(r.Context())

			identity := r.RemoteAddr
			if current, ok := auth.GetUserFromContext(r.Context()); ok {
				identity = current.Email
			}

			allowed, err := l.Allow(r.Context(), purpose, identity, limit, window)
			if err != nil {
				logger.Error("rate limit check failed", "purpose", purpose, "error", err.Error())
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				logger.Warn("rate limit exceeded", "purpose", purpose, "identity", identity)
				httputil.RespondErrorWithCode(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
