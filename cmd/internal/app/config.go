package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL   string
	DBSchema      string
	DBMaxConns    int32
	DBMinConns    int32
	DBApplySchema bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// Security policy:
	// If true, VOWS_TOKEN_HMAC_KEY MUST be set (>= 32 bytes) and session-token hashing must be HMAC-based.
	RequireTokenHMAC bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("VOWS_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("VOWS_LOG_LEVEL", "info"),
		LogFormat: EnvString("VOWS_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("VOWS_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("VOWS_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("VOWS_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("VOWS_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("VOWS_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:   EnvString("VOWS_DATABASE_URL", ""),
		DBSchema:      EnvString("VOWS_DB_SCHEMA", "vows"),
		DBMaxConns:    EnvInt32("VOWS_DB_MAX_CONNS", 10),
		DBMinConns:    EnvInt32("VOWS_DB_MIN_CONNS", 0),
		DBApplySchema: EnvBool("VOWS_DB_APPLY_SCHEMA", true),

		CORSAllowedOrigins:   EnvCSV("VOWS_CORS_ALLOWED_ORIGINS", []string{"http://localhost:*", "http://127.0.0.1:*"}),
		CORSAllowCredentials: EnvBool("VOWS_CORS_ALLOW_CREDENTIALS", false),
		CORSMaxAgeSeconds:    EnvInt("VOWS_CORS_MAX_AGE_SECONDS", 600),

		ReadinessRequireDB: EnvBool("VOWS_READINESS_REQUIRE_DB", false),

		RequireTokenHMAC: EnvBool("VOWS_REQUIRE_TOKEN_HMAC", false),
	}
}
