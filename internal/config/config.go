// Package config loads server settings from the environment.
//
// Every setting has a default except the secrets, so a bare `go run
// ./cmd/server` starts a local server on SQLite with sign-in disabled.
// A .env file in the working directory is loaded by main before Load runs.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds everything cmd/server needs to build a server.
type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// DBPath is the SQLite file used when DatabaseURL is empty.
	DBPath      string `env:"DB_PATH" envDefault:"data/showcase.db"`
	DatabaseURL string `env:"DATABASE_URL"`

	SessionSecret      string `env:"SESSION_SECRET"`
	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `env:"GITHUB_CALLBACK"`
	CookieSecure       bool   `env:"COOKIE_SECURE" envDefault:"false"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

// Load parses the environment into a Config and fills derived defaults.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// AuthEnabled reports whether GitHub sign-in can be offered.
func (c Config) AuthEnabled() bool {
	return c.SessionSecret != "" && c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to Info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
