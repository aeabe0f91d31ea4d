package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yumovie/backend/internal/apperr"
	"github.com/yumovie/backend/internal/httpx"
	"github.com/yumovie/backend/internal/models"
)

// TokenHeader is the legacy header the web client sends the token in.
const TokenHeader = "x-auth-token"

type ctxKey struct{}

// Authenticator resolves a bearer token to the user it was issued to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// RequireAuth validates the bearer token and injects the user into the
// request context.
func RequireAuth(auth Authenticator, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				httpx.WriteError(w, r, log, apperr.Unauthorized("No token, authorization denied"))
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				httpx.WriteError(w, r, log, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireAdmin rejects users without the admin role. It must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !CurrentUser(r.Context()).IsAdmin() {
			httpx.WriteError(w, r, nil, apperr.Forbidden("Admin resources access denied"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TokenFromRequest reads the token from x-auth-token or an Authorization
// bearer header.
func TokenFromRequest(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get(TokenHeader)); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// CurrentUser returns the authenticated user, or nil outside RequireAuth.
func CurrentUser(ctx context.Context) *models.User {
	u, _ := ctx.Value(ctxKey{}).(*models.User)
	return u
}
