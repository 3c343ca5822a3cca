package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newHandlerServer(t *testing.T) *httptest.Server {
	t.Helper()

	svc := newTestService(t)
	h, err := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	mux := http.NewServeMux()
	h.Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRegisterLoginMeLogoutFlow(t *testing.T) {
	t.Parallel()

	srv := newHandlerServer(t)

	resp, err := http.Post(srv.URL+"/auth/register", "application/json",
		bytes.NewReader([]byte(`{"email":"june@example.com","display_name":"June","password":"long enough pw"}`)))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}

	// Duplicate registration conflicts.
	resp, err = http.Post(srv.URL+"/auth/register", "application/json",
		bytes.NewReader([]byte(`{"email":"june@example.com","password":"long enough pw"}`)))
	if err != nil {
		t.Fatalf("second register: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/auth/login", "application/json",
		bytes.NewReader([]byte(`{"email":"june@example.com","password":"long enough pw"}`)))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	var login loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || login.Token == "" {
		t.Fatalf("login: status=%d token=%q", resp.StatusCode, login.Token)
	}

	me, err := http.NewRequest(http.MethodGet, srv.URL+"/me", nil)
	if err != nil {
		t.Fatalf("build /me: %v", err)
	}
	me.Header.Set("Authorization", "Bearer "+login.Token)
	resp, err = http.DefaultClient.Do(me)
	if err != nil {
		t.Fatalf("/me: %v", err)
	}
	var meBody meResponse
	if err := json.NewDecoder(resp.Body).Decode(&meBody); err != nil {
		t.Fatalf("decode /me: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || meBody.User.Email != "june@example.com" {
		t.Fatalf("/me: status=%d user=%+v", resp.StatusCode, meBody.User)
	}

	logout, err := http.NewRequest(http.MethodPost, srv.URL+"/auth/logout", nil)
	if err != nil {
		t.Fatalf("build logout: %v", err)
	}
	logout.Header.Set("Authorization", "Bearer "+login.Token)
	resp, err = http.DefaultClient.Do(logout)
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", resp.StatusCode)
	}

	resp, err = http.DefaultClient.Do(me)
	if err != nil {
		t.Fatalf("/me after logout: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("/me after logout: expected 401, got %d", resp.StatusCode)
	}
}

func TestLoginFailureMapsTo401(t *testing.T) {
	t.Parallel()

	srv := newHandlerServer(t)

	resp, err := http.Post(srv.URL+"/auth/login", "application/json",
		bytes.NewReader([]byte(`{"email":"nobody@example.com","password":"whatever it is"}`)))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	t.Parallel()

	srv := newHandlerServer(t)

	resp, raw := func() (*http.Response, []byte) {
		resp, err := http.Post(srv.URL+"/auth/register", "application/json",
			bytes.NewReader([]byte(`{"email":"june@example.com","password":"short"}`)))
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		defer func() { _ = resp.Body.Close() }()
		raw, _ := io.ReadAll(resp.Body)
		return resp, raw
	}()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.StatusCode, raw)
	}

	var body errorResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error.Code != "weak_password" {
		t.Fatalf("expected weak_password code, got %q", body.Error.Code)
	}
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	srv := newHandlerServer(t)

	resp, err := http.Post(srv.URL+"/auth/register", "application/json",
		bytes.NewReader([]byte(`{"email":"carol@example.com","password":"long enough pw"}`)))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}

	bad := []byte(`{"email":"carol@example.com","password":"not the password"}`)
	for i := 0; i < 5; i++ {
		resp, err = http.Post(srv.URL+"/auth/login", "application/json", bytes.NewReader(bad))
		if err != nil {
			t.Fatalf("login attempt %d: %v", i, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i, resp.StatusCode)
		}
	}

	// The account is now locked; even the correct password is throttled.
	resp, err = http.Post(srv.URL+"/auth/login", "application/json",
		bytes.NewReader([]byte(`{"email":"carol@example.com","password":"long enough pw"}`)))
	if err != nil {
		t.Fatalf("locked login: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header on 429")
	}
}
