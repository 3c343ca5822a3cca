// Package auth owns owner accounts and bearer sessions: argon2id password
// hashes at rest, opaque session tokens stored as HMAC-SHA256 digests, and
// the request accessor the API handlers authenticate with.
package auth

import (
	"strings"
	"time"
)

// User is an invitation owner account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is one issued bearer session. Only the token hash is stored; the
// plain token exists client-side only.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
