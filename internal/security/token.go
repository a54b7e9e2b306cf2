package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/poetry-royal/mefil/internal/domain"
)

// SessionClaims binds a signed token to one of the two Mefil roles.
type SessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Session is the verified identity carried by a valid token.
type Session struct {
	Role      domain.Role
	ExpiresAt time.Time
}

var ErrInvalidToken = errors.New("invalid session token")

// TokenAuthority issues and verifies the stateless Mefil session tokens.
// Verification recomputes the HMAC over the encoded payload; there is no
// server-side session store to revoke against.
type TokenAuthority struct {
	issuer string
	secret []byte
}

func NewTokenAuthority(issuer, secret string) *TokenAuthority {
	return &TokenAuthority{issuer: issuer, secret: []byte(secret)}
}

func (a *TokenAuthority) Sign(role domain.Role, ttl time.Duration) (string, error) {
	if !role.Valid() {
		return "", ErrInvalidToken
	}
	claims := SessionClaims{
		Role: role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   role.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse verifies signature, expiry and role. It never mutates state, so a
// failed parse carries no side effects beyond the returned error.
func (a *TokenAuthority) Parse(raw string) (*Session, error) {
	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return a.secret, nil
	}, jwt.WithIssuer(a.issuer), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &Session{Role: role, ExpiresAt: claims.ExpiresAt.Time}, nil
}
