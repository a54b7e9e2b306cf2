package security

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestVerifyRolePasswordPlaintext(t *testing.T) {
	if err := VerifyRolePassword("shahi-darbar", "shahi-darbar"); err != nil {
		t.Fatalf("matching plaintext rejected: %v", err)
	}
	if err := VerifyRolePassword("shahi-darbar", "wrong"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("err=%v want mismatch", err)
	}
}

func TestVerifyRolePasswordBcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("mushaira"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := VerifyRolePassword(string(hash), "mushaira"); err != nil {
		t.Fatalf("matching bcrypt rejected: %v", err)
	}
	if err := VerifyRolePassword(string(hash), "ghazal"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("err=%v want mismatch", err)
	}
}

func TestVerifyRolePasswordUnconfigured(t *testing.T) {
	if err := VerifyRolePassword("", "anything"); !errors.Is(err, ErrPasswordUnconfigured) {
		t.Fatalf("err=%v want unconfigured", err)
	}
}
