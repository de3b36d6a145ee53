package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pgpay/pgpay-backend/internal/auth"
	"github.com/pgpay/pgpay-backend/internal/models"
	"github.com/pgpay/pgpay-backend/internal/storage"
)

type contextKey int

const userContextKey contextKey = iota

// Authenticate resolves a Bearer token, if present, to a user and stores
// it in the request context. Requests without a valid token pass through
// anonymously; handlers that need a user reject them there.
func Authenticate(tokens *auth.TokenManager, users storage.UserStore, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if raw, ok := strings.CutPrefix(header, "Bearer "); ok {
			if userID, err := tokens.Parse(strings.TrimSpace(raw)); err == nil {
				if user, err := users.UserByID(r.Context(), userID); err == nil {
					r = r.WithContext(WithUser(r.Context(), user))
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFrom extracts the authenticated user, if any.
func UserFrom(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}
