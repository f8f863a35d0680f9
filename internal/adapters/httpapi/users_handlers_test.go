package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSignupLoginMe(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	authz, userID := signupUser(t, h, "alice@example.com", "Alice Johnson")

	rec := doJSON(t, h, http.MethodGet, "/api/me", authz, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("me status=%d body=%s", rec.Code, rec.Body.String())
	}
	var me userJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.Id != userID || me.Email != "alice@example.com" || me.DisplayName != "Alice Johnson" {
		t.Fatalf("unexpected profile: %s", rec.Body.String())
	}

	// Email comparison is case-insensitive at login.
	rec = doJSON(t, h, http.MethodPost, "/api/login", "", `{"email":"ALICE@example.com","password":"correct horse"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if resp.User.Id != userID || resp.Token == "" {
		t.Fatalf("unexpected login response: %s", rec.Body.String())
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	signupUser(t, h, "alice@example.com", "Alice")

	rec := doJSON(t, h, http.MethodPost, "/api/login", "", `{"email":"alice@example.com","password":"wrong password"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "INVALID_CREDENTIALS" {
		t.Fatalf("code=%s", code)
	}

	// Unknown account answers identically.
	rec = doJSON(t, h, http.MethodPost, "/api/login", "", `{"email":"nobody@example.com","password":"correct horse"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "INVALID_CREDENTIALS" {
		t.Fatalf("code=%s", code)
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)
	signupUser(t, h, "alice@example.com", "Alice")

	rec := doJSON(t, h, http.MethodPost, "/api/signup", "", `{"email":"Alice@Example.com","displayName":"Impostor","password":"correct horse"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "EMAIL_TAKEN" {
		t.Fatalf("code=%s", code)
	}
}

func TestSignup_Validation(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	for name, body := range map[string]string{
		"bad email":      `{"email":"not-an-email","displayName":"A","password":"correct horse"}`,
		"short password": `{"email":"a@example.com","displayName":"A","password":"short"}`,
		"empty name":     `{"email":"a@example.com","displayName":"  ","password":"correct horse"}`,
	} {
		rec := doJSON(t, h, http.MethodPost, "/api/signup", "", body)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: status=%d body=%s", name, rec.Code, rec.Body.String())
		}
		if code := errorCode(t, rec); code != "VALIDATION_ERROR" {
			t.Fatalf("%s: code=%s", name, code)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	// Health endpoint is open.
	rec := doJSON(t, h, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rec.Code)
	}

	cases := map[string]string{
		"missing header":   "",
		"malformed header": "Token abc",
		"garbage token":    "Bearer not.a.token",
	}
	for name, authz := range cases {
		rec := doJSON(t, h, http.MethodGet, "/api/me", authz, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status=%d body=%s", name, rec.Code, rec.Body.String())
		}
		if code := errorCode(t, rec); code != "UNAUTHORIZED" {
			t.Fatalf("%s: code=%s", name, code)
		}
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	t.Parallel()

	var gotSubject string
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotSubject, _ = SubjectFromContext(r.Context())
	})
	mw := NewDevAuthMiddleware("fallback-user")

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("X-Debug-Subject", "user-42")
	mw(next).ServeHTTP(httptest.NewRecorder(), req)
	if gotSubject != "user-42" {
		t.Fatalf("subject=%q", gotSubject)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	mw(next).ServeHTTP(httptest.NewRecorder(), req)
	if gotSubject != "fallback-user" {
		t.Fatalf("fallback subject=%q", gotSubject)
	}

	rec := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	NewDevAuthMiddleware("")(next).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no subject: status=%d", rec.Code)
	}
}
