// Package middleware provides HTTP middleware for the filecore API.
package middleware

import (
	"context"
	"net/http"
)

// UserIDHeader carries the caller identity, injected by the API gateway
// in front of this service. The service trusts the header; it does not
// authenticate callers itself.
const UserIDHeader = "X-User-ID"

type contextKey string

const userIDContextKey contextKey = "user_id"

// WithUserID returns a context carrying the caller identity. Used by
// the RequireUser middleware and by tests that bypass it.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// GetUserID retrieves the caller identity from the request context.
// Returns the empty string if no identity is present, which only
// happens in routes without the RequireUser middleware.
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDContextKey).(string)
	return id
}

// RequireUser extracts the caller identity from the identity header and
// stores it in the request context. Requests without the header are
// rejected with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(UserIDHeader)
		if userID == "" {
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"title":"Unauthorized","status":401,"detail":"missing ` + UserIDHeader + ` header"}`))
			return
		}

		ctx := WithUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
