package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"redcode-api/pkg/apierror"
)

// UserIDKey is the context key for the authenticated user id.
const UserIDKey contextKey = "user_id"

// TokenParser validates a session token and returns the user id it names.
type TokenParser func(token string) (string, error)

// RequireUser rejects requests without a valid "Authorization: Bearer" session
// token and stores the user id in the request context.
func RequireUser(parse TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, apierror.Unauthorized("JWT token required"))
				return
			}

			userID, err := parse(token)
			if err != nil || userID == "" {
				writeError(w, apierror.Unauthorized("Invalid JWT token"))
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireLoginKey guards admin routes with the X-Login-Key header.
// An empty configured key disables the routes entirely.
func RequireLoginKey(loginKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if loginKey == "" {
				writeError(w, apierror.ServiceUnavailable("Admin access not configured"))
				return
			}

			provided := r.Header.Get("X-Login-Key")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(loginKey)) != 1 {
				writeError(w, apierror.Unauthorized("Invalid login key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserID retrieves the authenticated user id from context.
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	w.Write(err.ToJSON())
}
