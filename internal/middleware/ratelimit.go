package middleware

import (
	"net/http"

	"golang.org/x/time/rate"

	"redcode-api/pkg/apierror"
)

// RateLimit caps the request rate across all callers of the wrapped routes.
// A non-positive limit disables it.
func RateLimit(perSecond float64, burst int) func(http.Handler) http.Handler {
	if perSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, apierror.TooManyRequests(""))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
