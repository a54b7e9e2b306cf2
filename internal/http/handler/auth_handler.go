package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/poetry-royal/mefil/internal/http/response"
	"github.com/poetry-royal/mefil/internal/observability"
	"github.com/poetry-royal/mefil/internal/security"
	"github.com/poetry-royal/mefil/internal/service"
)

type AuthHandler struct {
	auth         *service.AuthService
	tokens       *security.TokenAuthority
	cookieSecure bool
}

func NewAuthHandler(auth *service.AuthService, tokens *security.TokenAuthority, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: auth, tokens: tokens, cookieSecure: cookieSecure}
}

// loginRequest accepts either field name for the role; the original web
// client posts it as username.
type loginRequest struct {
	Role     string `json:"role"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r loginRequest) roleName() string {
	if r.Role != "" {
		return r.Role
	}
	return r.Username
}

type sessionResponse struct {
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

type sessionStatusResponse struct {
	LoggedIn  bool       `json:"logged_in"`
	Role      string     `json:"role,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}
	token, session, err := h.auth.Login(req.roleName(), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid role or password", nil)
		case errors.Is(err, service.ErrRoleNotConfigured):
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "login is not configured for this role", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "could not issue session", nil)
		}
		return
	}
	security.SetSessionCookie(w, token, h.auth.SessionTTL(), h.cookieSecure)
	observability.Audit(r, "auth.login", "role", session.Role.String())
	response.JSON(w, r, http.StatusOK, sessionResponse{
		Role:      session.Role.String(),
		ExpiresAt: session.ExpiresAt.UTC(),
	})
}

// Session reports who the cookie belongs to. It answers 200 regardless, so
// the clients can probe it on load without tripping error handling.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	raw := security.GetCookie(r, security.SessionCookieName)
	if raw == "" {
		response.JSON(w, r, http.StatusOK, sessionStatusResponse{LoggedIn: false})
		return
	}
	session, err := h.tokens.Parse(raw)
	if err != nil {
		security.ClearSessionCookie(w)
		response.JSON(w, r, http.StatusOK, sessionStatusResponse{LoggedIn: false})
		return
	}
	expires := session.ExpiresAt.UTC()
	response.JSON(w, r, http.StatusOK, sessionStatusResponse{
		LoggedIn:  true,
		Role:      session.Role.String(),
		ExpiresAt: &expires,
	})
}

// Logout clears the cookie unconditionally; the audit line is written only
// when the request still carried a parsable session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if raw := security.GetCookie(r, security.SessionCookieName); raw != "" {
		if session, err := h.tokens.Parse(raw); err == nil {
			observability.Audit(r, "auth.logout", "role", session.Role.String())
		}
	}
	security.ClearSessionCookie(w)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}
