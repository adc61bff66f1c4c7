// Package config loads runtime settings from the environment.
//
// Command-line flags override these values; see internal/cli.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/oced/internal/search"
)

// Config holds settings shared by every command.
type Config struct {
	// MaxObserves overrides the schema's per-event bound when positive.
	MaxObserves int `env:"OCED_MAX_OBSERVES" envDefault:"0"`

	StepBudget int64         `env:"OCED_STEP_BUDGET" envDefault:"5000000"`
	Timeout    time.Duration `env:"OCED_TIMEOUT" envDefault:"0s"`
	Workers    int           `env:"OCED_WORKERS" envDefault:"1"`
	LogLevel   string        `env:"OCED_LOG_LEVEL" envDefault:"info"`

	// DBPath, when set, persists results to a SQLite store.
	DBPath string `env:"OCED_DB"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads and validates the configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values no command can run with.
func (c Config) Validate() error {
	if c.MaxObserves < 0 {
		return fmt.Errorf("OCED_MAX_OBSERVES must not be negative, got %d", c.MaxObserves)
	}
	if c.StepBudget <= 0 {
		return fmt.Errorf("OCED_STEP_BUDGET must be positive, got %d", c.StepBudget)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("OCED_TIMEOUT must not be negative, got %s", c.Timeout)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("OCED_WORKERS must be positive, got %d", c.Workers)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", name)
}

// SearchOptions translates the search settings into search options.
func (c Config) SearchOptions() []search.Option {
	opts := []search.Option{
		search.WithWorkers(c.Workers),
		search.WithStepBudget(c.StepBudget),
	}
	if c.Timeout > 0 {
		opts = append(opts, search.WithTimeout(c.Timeout))
	}
	return opts
}
