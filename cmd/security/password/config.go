package password

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Params sets the Argon2id cost. Salt and key sizes are fixed at hash time;
// Verify accepts whatever a stored hash encodes, within decode bounds.
type Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
}

// Policy bounds what a registration may choose as a password.
// Lengths count runes, not bytes.
type Policy struct {
	MinLength    int
	MaxLength    int
	RejectCommon bool
}

// Config is everything auth needs to hash, verify and validate passwords.
type Config struct {
	Params Params
	Policy Policy
}

// DefaultConfig is a conservative baseline for interactive logins.
// Parallelism follows the host CPU count, clamped to keep container
// resource usage predictable.
func DefaultConfig() Config {
	threads := runtime.NumCPU()
	if threads < 1 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Params: Params{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: uint8(threads),
		},
		Policy: Policy{
			MinLength: 12,
			MaxLength: 256,
		},
	}
}

// FromEnv overlays DefaultConfig with the VOWS_* password settings:
// VOWS_PASSWORD_MIN_LEN, VOWS_PASSWORD_MAX_LEN, VOWS_PASSWORD_REJECT_COMMON,
// VOWS_ARGON2_MEMORY_KIB, VOWS_ARGON2_ITERATIONS, VOWS_ARGON2_PARALLELISM.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	readUint := func(key string, lo, hi uint64, set func(uint64)) error {
		v, ok := os.LookupEnv(key)
		if !ok {
			return nil
		}
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 32)
		if err != nil {
			return fmt.Errorf("%s: not an unsigned integer", key)
		}
		if n < lo || n > hi {
			return fmt.Errorf("%s: out of range [%d..%d]", key, lo, hi)
		}
		set(n)
		return nil
	}

	for _, err := range []error{
		readUint("VOWS_PASSWORD_MIN_LEN", 1, 1024, func(n uint64) { cfg.Policy.MinLength = int(n) }),
		readUint("VOWS_PASSWORD_MAX_LEN", 1, 4096, func(n uint64) { cfg.Policy.MaxLength = int(n) }),
		readUint("VOWS_ARGON2_MEMORY_KIB", 8*1024, 1024*1024, func(n uint64) { cfg.Params.MemoryKiB = uint32(n) }),
		readUint("VOWS_ARGON2_ITERATIONS", 1, 20, func(n uint64) { cfg.Params.Iterations = uint32(n) }),
		readUint("VOWS_ARGON2_PARALLELISM", 1, 64, func(n uint64) { cfg.Params.Parallelism = uint8(n) }),
	} {
		if err != nil {
			return Config{}, err
		}
	}

	if v, ok := os.LookupEnv("VOWS_PASSWORD_REJECT_COMMON"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("VOWS_PASSWORD_REJECT_COMMON: invalid boolean")
		}
		cfg.Policy.RejectCommon = b
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength, cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}
