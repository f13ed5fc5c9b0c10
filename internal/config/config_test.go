// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValidExceptCredentials(t *testing.T) {
	cfg := defaultConfig()
	err := cfg.Validate()
	require.Error(t, err, "defaults must not pass validation without Spotify credentials")
	assert.Contains(t, err.Error(), "spotify.client_id")

	cfg.Spotify.ClientID = "id"
	cfg.Spotify.ClientSecret = "secret"
	require.NoError(t, cfg.Validate())
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"spotify credential", "RESONATE_SPOTIFY_CLIENT_ID", "spotify.client_id"},
		{"server port", "RESONATE_SERVER_PORT", "server.port"},
		{"multi word key", "RESONATE_CACHE_SNAPSHOT_TTL", "cache.snapshot_ttl"},
		{"queue transport", "RESONATE_QUEUE_TRANSPORT", "queue.transport"},
		{"unknown section dropped", "RESONATE_BOGUS_KEY", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, envTransformFunc(tt.in))
		})
	}
}

func TestLoadWithKoanfEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9000
spotify:
  client_id: file-id
  client_secret: file-secret
cache:
  backend: memory
database:
  path: ":memory:"
jobs:
  retry_delay: 1s
`
	require.NoError(t, os.WriteFile(configPath, []byte(yaml), 0o600))
	t.Setenv(ConfigPathEnvVar, configPath)
	t.Setenv("RESONATE_SERVER_PORT", "9100")
	t.Setenv("RESONATE_JOBS_DEFAULT_GENRES", "jazz, blues")

	cfg, err := LoadWithKoanf()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port, "env var must override file")
	assert.Equal(t, "file-id", cfg.Spotify.ClientID)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, []string{"jazz", "blues"}, cfg.Jobs.DefaultGenres)
	assert.Equal(t, time.Second, cfg.Jobs.RetryDelay)
	// Untouched sections keep defaults.
	assert.Equal(t, 3, cfg.Jobs.MaxAttempts)
	assert.Equal(t, 100, cfg.Jobs.MaxPerUser)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg := defaultConfig()
		cfg.Spotify.ClientID = "id"
		cfg.Spotify.ClientSecret = "secret"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad cache backend", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"bad queue transport", func(c *Config) { c.Queue.Transport = "rabbit" }},
		{"zero attempts", func(c *Config) { c.Jobs.MaxAttempts = 0 }},
		{"limit beyond cap", func(c *Config) { c.Jobs.DefaultLimit = 500 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"missing redis addr", func(c *Config) { c.Cache.RedisAddr = "" }},
		{"scheduler interval too short", func(c *Config) { c.Scheduler.Interval = time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
