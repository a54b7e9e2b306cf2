package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/poetry-royal/mefil/internal/domain"
	"github.com/poetry-royal/mefil/internal/security"
)

func newAuthorityForTest() *security.TokenAuthority {
	return security.NewTokenAuthority("mefil", "0123456789abcdef0123456789abcdef")
}

func passthroughHandler(t *testing.T, wantRole domain.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := SessionFromContext(r.Context())
		if !ok {
			t.Fatal("session missing from context")
		}
		if session.Role != wantRole {
			t.Fatalf("role=%s want %s", session.Role, wantRole)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthMiddlewareAcceptsCookie(t *testing.T) {
	auth := newAuthorityForTest()
	token, err := auth.Sign(domain.RoleBelal, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	h := AuthMiddleware(auth)(passthroughHandler(t, domain.RoleBelal))
	req := httptest.NewRequest(http.MethodGet, "/api/mefil/state", nil)
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: token})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status=%d want 204", rr.Code)
	}
}

func TestAuthMiddlewareAcceptsBearer(t *testing.T) {
	auth := newAuthorityForTest()
	token, err := auth.Sign(domain.RoleRutbah, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	h := AuthMiddleware(auth)(passthroughHandler(t, domain.RoleRutbah))
	req := httptest.NewRequest(http.MethodGet, "/api/mefil/state", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status=%d want 204", rr.Code)
	}
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	h := AuthMiddleware(newAuthorityForTest())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler must not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/mefil/state", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d want 401", rr.Code)
	}
}

func TestAuthMiddlewareClearsBadCookie(t *testing.T) {
	h := AuthMiddleware(newAuthorityForTest())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler must not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/mefil/state", nil)
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: "garbage"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d want 401", rr.Code)
	}
	cleared := false
	for _, c := range rr.Result().Cookies() {
		if c.Name == security.SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("bad cookie was not cleared")
	}
}

func TestResolveActorDefaultsToSessionRole(t *testing.T) {
	auth := newAuthorityForTest()
	token, _ := auth.Sign(domain.RoleBelal, time.Hour)

	var resolved domain.Role
	h := AuthMiddleware(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := ResolveActor(w, r, "")
		if !ok {
			return
		}
		resolved = role
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/mefil/pomodoro/start", nil)
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: token})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent || resolved != domain.RoleBelal {
		t.Fatalf("status=%d resolved=%s", rr.Code, resolved)
	}
}

func TestResolveActorRejectsPartnerRole(t *testing.T) {
	auth := newAuthorityForTest()
	token, _ := auth.Sign(domain.RoleBelal, time.Hour)

	h := AuthMiddleware(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ResolveActor(w, r, "rutbah"); ok {
			t.Fatal("must not act as the partner")
		}
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/mefil/distracted", nil)
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: token})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status=%d want 403", rr.Code)
	}
}

func TestResolveActorRejectsUnknownRole(t *testing.T) {
	auth := newAuthorityForTest()
	token, _ := auth.Sign(domain.RoleRutbah, time.Hour)

	h := AuthMiddleware(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ResolveActor(w, r, "admin"); ok {
			t.Fatal("unknown role accepted")
		}
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/mefil/distracted", nil)
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: token})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", rr.Code)
	}
}
