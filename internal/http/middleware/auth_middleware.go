package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/poetry-royal/mefil/internal/http/response"
	"github.com/poetry-royal/mefil/internal/observability"
	"github.com/poetry-royal/mefil/internal/security"
)

type contextKey string

const (
	SessionContextKey contextKey = "session"
)

// AuthMiddleware resolves the caller's session from the cookie, falling back
// to a bearer header for non-browser clients. A bad token clears the cookie
// so a stale browser stops retrying it.
func AuthMiddleware(tokens *security.TokenAuthority) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := security.GetCookie(r, security.SessionCookieName)
			source := "cookie"
			if raw == "" {
				auth := r.Header.Get("Authorization")
				if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
					raw = strings.TrimSpace(auth[7:])
					source = "bearer"
				}
			}
			if raw == "" {
				observability.RecordTokenValidation(r.Context(), "missing", "none")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing session token", nil)
				return
			}
			session, err := tokens.Parse(raw)
			if err != nil {
				observability.RecordTokenValidation(r.Context(), "invalid", source)
				if source == "cookie" {
					security.ClearSessionCookie(w)
				}
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid session token", nil)
				return
			}
			observability.RecordTokenValidation(r.Context(), "valid", source)
			ctx := context.WithValue(r.Context(), SessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SessionFromContext(ctx context.Context) (*security.Session, bool) {
	s, ok := ctx.Value(SessionContextKey).(*security.Session)
	return s, ok
}
