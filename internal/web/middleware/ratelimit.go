package middleware

import (
	"net/http"

	"github.com/healthcare-ti/form-enfermagem/internal/logging"
	"github.com/healthcare-ti/form-enfermagem/internal/ratelimit"
)

// RateLimit rejects clients over their allowance with 429. The client key
// is scope plus RemoteAddr, so it must run after TrustedRealIP.
//
// A limiter error (Redis unreachable) lets the request through: a broken
// counter store must not close the form.
func RateLimit(l ratelimit.Limiter, scope string, reject http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := l.Allow(r.Context(), scope+":"+r.RemoteAddr)
			if err != nil {
				logging.FromContext(r.Context()).Warn("rate limiter unavailable, allowing request",
					"scope", scope, "error", err)
				ok = true
			}
			if !ok {
				w.Header().Set("Retry-After", "60")
				reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
