// internal/auth/middleware.go
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/apperr"
)

// CookieName is the cookie carrying the identity token.
const CookieName = "auth_token"

type userKey struct{}

// WithUser returns a context carrying the verified participant ID.
func WithUser(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFrom returns the participant ID stored by the middleware.
func UserFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// TokenFromRequest extracts the token from the auth_token cookie or an
// "Authorization: Bearer" header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// Middleware rejects requests without a valid token by calling fail with an
// apperr AuthError; otherwise the participant ID is placed in the context.
func (a *Authority) Middleware(fail func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				fail(w, r, apperr.Auth("missing auth token"))
				return
			}
			userID, err := a.AuthenticateJWT(token)
			if err != nil {
				fail(w, r, apperr.Wrap(apperr.CodeAuth, "invalid auth token", err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
		})
	}
}
