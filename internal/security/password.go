package security

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPasswordMismatch     = errors.New("password mismatch")
	ErrPasswordUnconfigured = errors.New("role password is not configured")
)

// VerifyRolePassword compares a supplied password against the configured
// per-role secret. Bcrypt hashes are detected by prefix; anything else is a
// plaintext secret compared in constant time.
func VerifyRolePassword(configured, supplied string) error {
	if configured == "" {
		return ErrPasswordUnconfigured
	}
	if isBcryptHash(configured) {
		if err := bcrypt.CompareHashAndPassword([]byte(configured), []byte(supplied)); err != nil {
			return ErrPasswordMismatch
		}
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(configured), []byte(supplied)) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
