package middleware

import (
	"net/http"

	"github.com/poetry-royal/mefil/internal/domain"
	"github.com/poetry-royal/mefil/internal/http/response"
)

// ResolveActor returns the authenticated role for a request. When the body
// or query names a role explicitly it must match the session; a client can
// never act as its partner.
func ResolveActor(w http.ResponseWriter, r *http.Request, claimed string) (domain.Role, bool) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return "", false
	}
	if claimed == "" {
		return session.Role, true
	}
	role, err := domain.ParseRole(claimed)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "unknown role", map[string]string{"role": claimed})
		return "", false
	}
	if role != session.Role {
		response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "role does not match the session", map[string]string{
			"session_role": session.Role.String(),
			"claimed_role": role.String(),
		})
		return "", false
	}
	return role, true
}
