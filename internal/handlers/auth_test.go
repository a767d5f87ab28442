package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/taskboard/apiserver/types"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	user := types.User{ID: 42, Role: types.RoleAdmin}

	token, err := issueToken(user, secret, time.Hour)
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	principal, err := parseToken(token, secret)
	if err != nil {
		t.Fatalf("parseToken: %v", err)
	}
	if principal.ID != 42 || principal.Role != types.RoleAdmin {
		t.Errorf("principal = %+v", principal)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := issueToken(types.User{ID: 1, Role: types.RoleUser}, []byte("right"), time.Hour)
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	if _, err := parseToken(token, []byte("wrong")); err == nil {
		t.Fatal("token signed with a different secret must not parse")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := issueToken(types.User{ID: 1, Role: types.RoleUser}, []byte("s"), -time.Minute)
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	if _, err := parseToken(token, []byte("s")); err == nil {
		t.Fatal("expired token must not parse")
	}
}

func TestRequireAuthSources(t *testing.T) {
	secret := "test-secret"
	token, err := issueToken(types.User{ID: 7, Role: types.RoleUser}, []byte(secret), time.Hour)
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}

	var got Principal
	handler := RequireAuth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = principalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	// Bearer header.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("bearer: status = %d, want 204", rec.Code)
	}
	if got.ID != 7 {
		t.Errorf("principal ID = %d, want 7", got.ID)
	}

	// Cookie fallback.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: token})
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("cookie: status = %d, want 204", rec.Code)
	}

	// No credentials.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", rec.Code)
	}

	// Garbage token.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d, want 401", rec.Code)
	}
}
