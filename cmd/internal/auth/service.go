package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"vows/cmd/security/password"
	"vows/cmd/security/token"

	"github.com/oklog/ulid/v2"
)

const (
	defaultSessionTTL = 30 * 24 * time.Hour
	tokenBytes        = 32
	maxEmailLen       = 254
	maxDisplayNameLen = 100
)

// Service implements registration, login, and bearer-session resolution.
type Service struct {
	log   *slog.Logger
	store Store
	pw    password.Config
	ttl   time.Duration

	// dummyHash keeps login timing comparable for unknown emails.
	dummyHash string

	now func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithSessionTTL overrides the default session lifetime.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithPasswordConfig overrides the default password hashing/policy config.
func WithPasswordConfig(cfg password.Config) ServiceOption {
	return func(s *Service) { s.pw = cfg }
}

// NewService constructs an auth Service.
func NewService(log *slog.Logger, store Store, opts ...ServiceOption) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		return nil, errors.New("auth: nil store")
	}
	s := &Service{
		log:   log,
		store: store,
		pw:    password.DefaultConfig(),
		ttl:   defaultSessionTTL,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}

	if hash, err := s.pw.Hash("dummy-password-for-timing-only"); err == nil {
		s.dummyHash = hash
	}
	return s, nil
}

// Register creates a new owner account.
func (s *Service) Register(ctx context.Context, email, displayName, plainPassword string) (User, error) {
	email = NormalizeEmail(email)
	displayName = strings.TrimSpace(displayName)
	if !validEmail(email) || len(displayName) > maxDisplayNameLen {
		return User{}, ErrInvalidInput
	}
	if err := s.pw.Validate(plainPassword); err != nil {
		return User{}, err
	}

	hash, err := s.pw.Hash(plainPassword)
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:           newID(s.now()),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return User{}, err
	}

	s.log.Info("user registered", "user_id", u.ID)
	return u, nil
}

// Login verifies credentials and issues a new bearer session. The returned
// plain token is shown to the client exactly once.
func (s *Service) Login(ctx context.Context, email, plainPassword string) (User, string, error) {
	email = NormalizeEmail(email)

	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Burn comparable time so unknown emails are not distinguishable
			// by response latency.
			if s.dummyHash != "" {
				_, _ = s.pw.Verify(s.dummyHash, plainPassword)
			}
			return User{}, "", ErrInvalidCredentials
		}
		return User{}, "", err
	}

	ok, err := s.pw.Verify(u.PasswordHash, plainPassword)
	if err != nil || !ok {
		return User{}, "", ErrInvalidCredentials
	}

	plain, hashHex, err := newOpaqueSessionToken(tokenBytes)
	if err != nil {
		return User{}, "", err
	}

	now := s.now()
	sess := Session{
		ID:        newID(now),
		UserID:    u.ID,
		TokenHash: hashHex,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return User{}, "", err
	}

	s.log.Info("user logged in", "user_id", u.ID, "session_id", sess.ID)
	return u, plain, nil
}

// Logout revokes the session carried by the raw token. Unknown tokens are a
// no-op so logout is idempotent.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil
	}
	err := s.store.DeleteSessionByTokenHash(ctx, token.HashSessionTokenHex(rawToken))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// AuthenticateRequest resolves the user id behind the request's bearer token.
func (s *Service) AuthenticateRequest(r *http.Request) (string, error) {
	u, err := s.UserFromRequest(r)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

// UserFromRequest resolves the full user record behind the request's bearer
// token, failing with ErrUnauthenticated for missing, unknown, or expired
// sessions.
func (s *Service) UserFromRequest(r *http.Request) (User, error) {
	raw := bearerToken(r)
	if raw == "" {
		return User{}, ErrUnauthenticated
	}

	ctx := r.Context()
	sess, err := s.store.SessionByTokenHash(ctx, token.HashSessionTokenHex(raw))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrUnauthenticated
		}
		return User{}, err
	}
	if sess.Expired(s.now()) {
		return User{}, ErrUnauthenticated
	}

	u, err := s.store.UserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrUnauthenticated
		}
		return User{}, err
	}
	return u, nil
}

// ---- helpers ----

func newOpaqueSessionToken(nBytes int) (plain string, hashHex string, err error) {
	b := make([]byte, nBytes)
	if _, err = rand.Read(b); err != nil {
		return "", "", err
	}

	// URL-safe, no padding.
	plain = base64.RawURLEncoding.EncodeToString(b)
	hashHex = token.HashSessionTokenHex(plain) // 64 hex chars
	return plain, hashHex, nil
}

func newID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

func validEmail(email string) bool {
	if email == "" || len(email) > maxEmailLen {
		return false
	}
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t\r\n")
}
