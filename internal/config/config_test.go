package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Config{
		MaxObserves: 0,
		StepBudget:  5_000_000,
		Timeout:     0,
		Workers:     1,
		LogLevel:    "info",
	}, cfg)
	assert.Len(t, cfg.SearchOptions(), 2)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("OCED_MAX_OBSERVES", "3")
	t.Setenv("OCED_STEP_BUDGET", "1000")
	t.Setenv("OCED_TIMEOUT", "1500ms")
	t.Setenv("OCED_WORKERS", "4")
	t.Setenv("OCED_LOG_LEVEL", "DEBUG")
	t.Setenv("OCED_DB", "/tmp/oced.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MaxObserves)
	assert.Equal(t, int64(1000), cfg.StepBudget)
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "/tmp/oced.db", cfg.DBPath)
	assert.Len(t, cfg.SearchOptions(), 3)
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("OCED_WORKERS", "many")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "parse env:"), "got %v", err)
}

func TestValidate(t *testing.T) {
	base := Config{StepBudget: 10, Workers: 1, LogLevel: "info"}
	require.NoError(t, base.Validate())

	cases := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"negative max observes", func(c *Config) { c.MaxObserves = -1 }, "OCED_MAX_OBSERVES"},
		{"zero budget", func(c *Config) { c.StepBudget = 0 }, "OCED_STEP_BUDGET"},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "OCED_TIMEOUT"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "OCED_WORKERS"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "unknown log level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			tc.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug": slog.LevelDebug, "": slog.LevelInfo, "Warn": slog.LevelWarn, "error": slog.LevelError,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}
