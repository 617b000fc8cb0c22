// Package config assembles runtime settings from defaults, an optional
// .env file, the environment and command-line flags, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Config holds runtime settings for the server.
//
// Fields:
//   - Addr: HTTP listen address.
//   - DatabasePath: SQLite database file.
//   - JWTSecret: HMAC secret for signing session tokens (HS256), at least 32 characters.
//   - CookieSecure: sets the Secure flag on the auth cookie; disable only for local development.
//   - BcryptCost: password hashing cost, 4..14.
//   - SessionTTL / ResetTokenTTL: lifetimes of sign-in sessions and password reset links.
//   - BaseURL: public origin used in emailed links.
//   - JanitorSchedule: cron spec of the cleanup job.
//   - LogLevel: minimum slog level.
type Config struct {
	Addr            string
	DatabasePath    string
	JWTSecret       string
	CookieSecure    bool
	BcryptCost      int
	SessionTTL      time.Duration
	ResetTokenTTL   time.Duration
	BaseURL         string
	JanitorSchedule string
	LogLevel        slog.Level
}

// LoadDefaults populates Config with development defaults. JWTSecret has no
// default and must be supplied.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.DatabasePath = "cool-todo.db"
	c.CookieSecure = true
	c.BcryptCost = 12
	c.SessionTTL = 24 * time.Hour
	c.ResetTokenTTL = time.Hour
	c.BaseURL = "http://localhost:8080"
	c.JanitorSchedule = "@every 10m"
	c.LogLevel = slog.LevelInfo
}

// Load builds a Config from defaults, the .env file named by ENV_FILE
// (default ".env", optional), the environment and args, then validates it.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch {
	case c.JWTSecret == "":
		return errors.New("JWT_SECRET is required")
	case len(c.JWTSecret) < 32:
		return errors.New("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security")
	case c.BcryptCost < 4 || c.BcryptCost > 14:
		return fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", c.BcryptCost)
	case c.SessionTTL <= 0:
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	case c.ResetTokenTTL <= 0:
		return fmt.Errorf("RESET_TOKEN_TTL must be positive, got %s", c.ResetTokenTTL)
	case c.Addr == "":
		return errors.New("listen address must not be empty")
	case c.DatabasePath == "":
		return errors.New("DATABASE_PATH must not be empty")
	}
	return nil
}
