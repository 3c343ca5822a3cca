package invitationapi

import (
	"os"
	"strconv"
	"strings"
)

// Config controls invitation API request handling.
type Config struct {
	MaxBodyBytes int64

	// DevFakePayments exposes POST /api/invitations/{id}/pay so local
	// setups can reach the paid state without the checkout provider.
	// Never enable in production.
	DevFakePayments bool
}

// LoadConfigFromEnv loads invitation API config from environment variables
// with safe defaults.
func LoadConfigFromEnv() Config {
	return Config{
		MaxBodyBytes:    envInt64("VOWS_API_MAX_BODY_BYTES", 1<<20), // 1 MiB
		DevFakePayments: envBool("VOWS_DEV_FAKE_PAYMENTS", false),
	}
}

func envBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func envInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
