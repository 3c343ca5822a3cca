package app

import (
	"errors"

	"vows/cmd/security/token"
)

// ValidateSecurityConfig enforces the security policy at startup.
//
// Fail-fast: silently falling back to weaker crypto in production is
// unacceptable. Enforcement validates the same module that performs
// hashing (security/token).
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.RequireTokenHMAC {
		return nil
	}

	// Minimum 32 bytes for an HMAC-SHA256 secret, measured in bytes
	// (not runes) because the key is used as raw bytes.
	if _, err := token.HMACKeyFromEnv(32); err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return errors.New("security policy: VOWS_REQUIRE_TOKEN_HMAC=true but VOWS_TOKEN_HMAC_KEY is missing")
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return errors.New("security policy: VOWS_REQUIRE_TOKEN_HMAC=true but VOWS_TOKEN_HMAC_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}

	// Hard assertion: hashing must be HMAC-enabled in this runtime.
	if !token.HMACEnabled() {
		return errors.New("security policy: VOWS_REQUIRE_TOKEN_HMAC=true but token hasher is not in HMAC mode")
	}

	return nil
}
