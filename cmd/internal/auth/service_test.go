package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"vows/cmd/security/password"
)

// testPasswordConfig keeps argon2id cheap so the suite stays fast; production
// strength comes from DefaultConfig/FromEnv.
func testPasswordConfig() password.Config {
	return password.Config{
		Params: password.Params{
			MemoryKiB:   1024,
			Iterations:  1,
			Parallelism: 1,
		},
		Policy: password.Policy{MinLength: 8, MaxLength: 256},
	}
}

func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]ServiceOption{WithPasswordConfig(testPasswordConfig())}, opts...)
	svc, err := NewService(log, NewMemoryStore(), opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestService(t)

	if _, err := svc.Register(ctx, "not-an-email", "", "long enough pw"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad email: expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Register(ctx, "june@example.com", "", "short"); !errors.Is(err, password.ErrPasswordTooShort) {
		t.Fatalf("short password: expected ErrPasswordTooShort, got %v", err)
	}

	u, err := svc.Register(ctx, "  June@Example.COM ", " June ", "long enough pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "june@example.com" || u.DisplayName != "June" || u.ID == "" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.PasswordHash == "" || u.PasswordHash == "long enough pw" {
		t.Fatalf("password must be stored hashed")
	}

	if _, err := svc.Register(ctx, "june@example.com", "", "long enough pw"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate email: expected ErrEmailTaken, got %v", err)
	}
}

func TestLogin_CredentialChecks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestService(t)

	if _, err := svc.Register(ctx, "june@example.com", "", "long enough pw"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := svc.Login(ctx, "nobody@example.com", "long enough pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "june@example.com", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}

	u, tok, err := svc.Login(ctx, "June@example.com", "long enough pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if tok == "" || u.Email != "june@example.com" {
		t.Fatalf("unexpected login result: token=%q user=%+v", tok, u)
	}
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestService(t)

	if _, err := svc.Register(ctx, "june@example.com", "", "long enough pw"); err != nil {
		t.Fatalf("register: %v", err)
	}
	u, tok, err := svc.Login(ctx, "june@example.com", "long enough pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	got, err := svc.UserFromRequest(req)
	if err != nil {
		t.Fatalf("user from request: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("resolved wrong user: %q vs %q", got.ID, u.ID)
	}

	// No header, garbage token.
	if _, err := svc.UserFromRequest(httptest.NewRequest("GET", "/me", nil)); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("missing header: expected ErrUnauthenticated, got %v", err)
	}
	bad := httptest.NewRequest("GET", "/me", nil)
	bad.Header.Set("Authorization", "Bearer nonsense")
	if _, err := svc.UserFromRequest(bad); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("bad token: expected ErrUnauthenticated, got %v", err)
	}

	// Logout revokes and stays idempotent.
	if err := svc.Logout(ctx, tok); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := svc.Logout(ctx, tok); err != nil {
		t.Fatalf("second logout must be a no-op: %v", err)
	}
	if _, err := svc.UserFromRequest(req); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("revoked token: expected ErrUnauthenticated, got %v", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestService(t, WithSessionTTL(time.Nanosecond))

	if _, err := svc.Register(ctx, "june@example.com", "", "long enough pw"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, tok, err := svc.Login(ctx, "june@example.com", "long enough pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	if _, err := svc.UserFromRequest(req); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expired session: expected ErrUnauthenticated, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Bearer   abc  ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
	} {
		req := httptest.NewRequest("GET", "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		if got := bearerToken(req); got != tc.want {
			t.Errorf("bearerToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
