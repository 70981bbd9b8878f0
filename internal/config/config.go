// Package config parses and validates all application configuration from
// environment variables using caarlos0/env/v11.
//
// Call [Load] once at startup; pass the resulting [Config] to subcommands.
// Server exits if any field tagged "required" is missing.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration sourced from environment variables.
// Field defaults match .env.example. Sensitive fields are never logged.
type Config struct {
	// ── Database ─────────────────────────────────────────────────────────────────
	DatabaseURL          string        `env:"DATABASE_URL,required"`
	DBMaxConns           int32         `env:"DB_MAX_CONNS"           envDefault:"25"`
	DBMaxConnIdleTime    time.Duration `env:"DB_MAX_CONN_IDLE_TIME"  envDefault:"5m"`
	DBStatementTimeoutMS int           `env:"DB_STATEMENT_TIMEOUT_MS" envDefault:"14000"`
	// DBQueryExecMode: "simple_protocol" (PgBouncer-compatible) or "extended_protocol".
	DBQueryExecMode string `env:"DB_QUERY_EXEC_MODE" envDefault:"simple_protocol"`

	// ── Server ───────────────────────────────────────────────────────────────────
	ListenAddr             string `env:"LISTEN_ADDR"              envDefault:":9390"`
	AppEnv                 string `env:"APP_ENV"                  envDefault:"development"`
	ShutdownTimeoutSeconds int    `env:"SHUTDOWN_TIMEOUT_SECONDS" envDefault:"60"`

	// ── Auth — JWT ───────────────────────────────────────────────────────────────
	JWTSecret      string        `env:"JWT_SECRET,required"`
	JWTAlgorithm   string        `env:"JWT_ALGORITHM"    envDefault:"HS256"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`

	// ── Auth — Argon2id ──────────────────────────────────────────────────────────
	// Max simultaneous hash operations; each allocates ~19.5 MB.
	Argon2MaxConcurrent int `env:"ARGON2_MAX_CONCURRENT" envDefault:"5"`

	// ── Listings ─────────────────────────────────────────────────────────────────
	// MaxRowsPerPage caps user-requested page sizes on every listing unless
	// the caller explicitly ignores the cap.
	MaxRowsPerPage int64 `env:"MAX_ROWS_PER_PAGE" envDefault:"1000"`
	// DefaultRowsPerPage backs the rows=-2 sentinel when the user has no
	// "Rows Per Page" setting of their own.
	DefaultRowsPerPage int64 `env:"DEFAULT_ROWS_PER_PAGE" envDefault:"10"`

	// ── Rate limiting ────────────────────────────────────────────────────────────
	// Comma-separated CIDRs of trusted reverse proxies; empty = no proxy.
	TrustedProxies    string        `env:"TRUSTED_PROXIES"`
	RateLimitEvictTTL time.Duration `env:"RATE_LIMIT_EVICT_TTL" envDefault:"15m"`

	// ── Logging ──────────────────────────────────────────────────────────────────
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load parses and returns Config from environment variables.
// Returns an error if any required field is missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
