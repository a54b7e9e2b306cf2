package security

import (
	"strings"
	"testing"
	"time"

	"github.com/poetry-royal/mefil/internal/domain"
)

func newTestAuthority() *TokenAuthority {
	return NewTokenAuthority("mefil", "0123456789abcdef0123456789abcdef")
}

func TestSignAndParseRoundTrip(t *testing.T) {
	auth := newTestAuthority()
	for _, role := range domain.Roles() {
		raw, err := auth.Sign(role, time.Hour)
		if err != nil {
			t.Fatalf("sign %s: %v", role, err)
		}
		session, err := auth.Parse(raw)
		if err != nil {
			t.Fatalf("parse %s: %v", role, err)
		}
		if session.Role != role {
			t.Fatalf("role=%s want %s", session.Role, role)
		}
		if !session.ExpiresAt.After(time.Now()) {
			t.Fatalf("expiry %v not in the future", session.ExpiresAt)
		}
	}
}

func TestSignRejectsUnknownRole(t *testing.T) {
	auth := newTestAuthority()
	if _, err := auth.Sign(domain.Role("admin"), time.Hour); err == nil {
		t.Fatal("expected error signing an unknown role")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	auth := newTestAuthority()
	raw, err := auth.Sign(domain.RoleBelal, -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.Parse(raw); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	auth := newTestAuthority()
	raw, err := auth.Sign(domain.RoleBelal, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	// Flip one character in each segment: header, payload, signature.
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", raw)
	}
	for i := range parts {
		mutated := make([]string, 3)
		copy(mutated, parts)
		segment := []byte(mutated[i])
		if segment[0] == 'A' {
			segment[0] = 'B'
		} else {
			segment[0] = 'A'
		}
		mutated[i] = string(segment)
		if _, err := auth.Parse(strings.Join(mutated, ".")); err == nil {
			t.Fatalf("mutation of segment %d was accepted", i)
		}
	}
}

func TestParseRejectsForeignSecret(t *testing.T) {
	raw, err := newTestAuthority().Sign(domain.RoleRutbah, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	other := NewTokenAuthority("mefil", "ffffffffffffffffffffffffffffffff")
	if _, err := other.Parse(raw); err == nil {
		t.Fatal("token signed with another secret was accepted")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	auth := newTestAuthority()
	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := auth.Parse(raw); err == nil {
			t.Fatalf("garbage token %q was accepted", raw)
		}
	}
}
