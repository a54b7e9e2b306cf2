package service

import (
	"errors"
	"time"

	"github.com/poetry-royal/mefil/internal/domain"
	"github.com/poetry-royal/mefil/internal/observability"
	"github.com/poetry-royal/mefil/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrRoleNotConfigured means the deployment has no secret for a valid
	// role. A deployment problem, not a caller problem.
	ErrRoleNotConfigured = errors.New("role secret is not configured")
)

// RoleSecrets maps a role identifier to its configured password. Satisfied
// by *config.Config.
type RoleSecrets interface {
	RolePassword(role string) string
}

// AuthService trades a role name and password for a signed session token.
type AuthService struct {
	tokens     *security.TokenAuthority
	secrets    RoleSecrets
	sessionTTL time.Duration
}

func NewAuthService(tokens *security.TokenAuthority, secrets RoleSecrets, sessionTTL time.Duration) *AuthService {
	return &AuthService{tokens: tokens, secrets: secrets, sessionTTL: sessionTTL}
}

func (s *AuthService) Login(rawRole, password string) (token string, session *security.Session, err error) {
	role, err := domain.ParseRole(rawRole)
	if err != nil {
		observability.RecordAuthLogin(rawRole, "unknown_role")
		return "", nil, ErrInvalidCredentials
	}
	if err := security.VerifyRolePassword(s.secrets.RolePassword(role.String()), password); err != nil {
		if errors.Is(err, security.ErrPasswordUnconfigured) {
			observability.RecordAuthLogin(role.String(), "unconfigured")
			return "", nil, ErrRoleNotConfigured
		}
		observability.RecordAuthLogin(role.String(), "bad_password")
		return "", nil, ErrInvalidCredentials
	}
	token, err = s.tokens.Sign(role, s.sessionTTL)
	if err != nil {
		observability.RecordAuthLogin(role.String(), "sign_error")
		return "", nil, err
	}
	observability.RecordAuthLogin(role.String(), "success")
	return token, &security.Session{Role: role, ExpiresAt: time.Now().Add(s.sessionTTL)}, nil
}

// SessionTTL is the lifetime used for the session cookie.
func (s *AuthService) SessionTTL() time.Duration { return s.sessionTTL }
