package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const ctxUserIDKey contextKey = "user_id"

// TokenValidator verifies a bearer token and returns the user id it belongs to.
type TokenValidator interface {
	ValidateToken(token string) (int64, error)
}

// BearerAuth authenticates requests by validating the Authorization bearer
// token and sets the verified user id into request context.
func BearerAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}

			userID, err := validator.ValidateToken(raw)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// UserIDFromCtx returns the authenticated user id, or 0 when absent.
func UserIDFromCtx(ctx context.Context) int64 {
	id, _ := ctx.Value(ctxUserIDKey).(int64)
	return id
}

// WithUserID returns a context carrying the given user id.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxUserIDKey, userID)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
