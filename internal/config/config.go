// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

// Package config provides layered configuration loading for Resonate.
//
// Precedence: environment variables > YAML config file > built-in defaults.
// All sections use koanf struct tags; see LoadWithKoanf for the layering.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the Resonate server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Cache     CacheConfig     `koanf:"cache"`
	Spotify   SpotifyConfig   `koanf:"spotify"`
	Queue     QueueConfig     `koanf:"queue"`
	Jobs      JobsConfig      `koanf:"jobs"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file path. ":memory:" opens an in-memory
	// database, used by tests.
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// CacheConfig holds the shared key-value cache settings. The cache is a
// process-external store (Redis) so multiple workers observe the same token
// and snapshot entries; the memory backend exists for tests and single-node
// development.
type CacheConfig struct {
	Backend       string        `koanf:"backend" validate:"oneof=redis memory"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	SnapshotTTL   time.Duration `koanf:"snapshot_ttl" validate:"min=1s"`
}

// SpotifyConfig holds credentials and tuning for the Spotify Web API client.
type SpotifyConfig struct {
	ClientID     string        `koanf:"client_id"`
	ClientSecret string        `koanf:"client_secret"`
	AuthURL      string        `koanf:"auth_url" validate:"required,url"`
	APIURL       string        `koanf:"api_url" validate:"required,url"`
	Market       string        `koanf:"market"`
	Timeout      time.Duration `koanf:"timeout" validate:"min=1s"`

	// Outbound rate limit (token bucket).
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gt=0"`
	Burst             int     `koanf:"burst" validate:"min=1"`

	// Circuit breaker: open after ConsecutiveFailures, retry after OpenTimeout.
	BreakerConsecutiveFailures uint32        `koanf:"breaker_consecutive_failures"`
	BreakerOpenTimeout         time.Duration `koanf:"breaker_open_timeout"`
}

// QueueConfig holds the job queue transport settings.
//
// The "channel" transport runs the queue in-process over Watermill's
// GoChannel Pub/Sub. The "nats" transport uses JetStream for durable,
// multi-instance consumption, optionally against an embedded server.
type QueueConfig struct {
	Transport string `koanf:"transport" validate:"oneof=channel nats"`

	NATSURL        string `koanf:"nats_url"`
	StreamName     string `koanf:"stream_name"`
	SubjectPrefix  string `koanf:"subject_prefix"`
	QueueGroup     string `koanf:"queue_group"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`

	// Worker concurrency per instance.
	Workers int `koanf:"workers" validate:"min=1"`
}

// JobsConfig holds fetch-job behavior settings.
type JobsConfig struct {
	// MaxAttempts is the total number of executions per job, including the
	// first. Exhaustion leaves the job failed with only log rows as evidence.
	MaxAttempts int `koanf:"max_attempts" validate:"min=1"`

	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration `koanf:"retry_delay"`

	// DefaultLimit is the recommendation count when a request omits one.
	DefaultLimit int `koanf:"default_limit" validate:"min=1,max=100"`

	// DefaultGenres seed the assembler when a user has no usable profile.
	DefaultGenres []string `koanf:"default_genres" validate:"min=1"`

	// ProfileGenreLimit caps how many profile genres become seeds.
	ProfileGenreLimit int `koanf:"profile_genre_limit" validate:"min=1"`

	// MaxPerUser is the retention cap enforced by pruning.
	MaxPerUser int `koanf:"max_per_user" validate:"min=1"`
}

// SchedulerConfig holds the periodic refresh sweep settings.
type SchedulerConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval" validate:"min=1m"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// defaultConfig returns a Config with all defaults applied. Defaults are
// loaded first, then overridden by config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Database: DatabaseConfig{
			Path:      "/data/resonate.db",
			MaxMemory: "1GB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		Cache: CacheConfig{
			Backend:     "redis",
			RedisAddr:   "127.0.0.1:6379",
			RedisDB:     0,
			SnapshotTTL: 15 * time.Minute,
		},
		Spotify: SpotifyConfig{
			AuthURL:                    "https://accounts.spotify.com/api/token",
			APIURL:                     "https://api.spotify.com/v1",
			Market:                     "US",
			Timeout:                    10 * time.Second,
			RequestsPerSecond:          10,
			Burst:                      5,
			BreakerConsecutiveFailures: 5,
			BreakerOpenTimeout:         30 * time.Second,
		},
		Queue: QueueConfig{
			Transport:      "channel",
			NATSURL:        "nats://127.0.0.1:4222",
			StreamName:     "RESONATE_JOBS",
			SubjectPrefix:  "jobs",
			QueueGroup:     "resonate-workers",
			EmbeddedServer: false,
			StoreDir:       "/data/nats/jetstream",
			Workers:        4,
		},
		Jobs: JobsConfig{
			MaxAttempts:       3,
			RetryDelay:        60 * time.Second,
			DefaultLimit:      20,
			DefaultGenres:     []string{"pop", "rock"},
			ProfileGenreLimit: 5,
			MaxPerUser:        100,
		},
		Scheduler: SchedulerConfig{
			Enabled:  true,
			Interval: 6 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for invalid or inconsistent values.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is required when cache.backend is redis")
	}
	if c.Queue.Transport == "nats" && c.Queue.NATSURL == "" && !c.Queue.EmbeddedServer {
		return fmt.Errorf("queue.nats_url is required when queue.transport is nats without an embedded server")
	}
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return fmt.Errorf("spotify.client_id and spotify.client_secret are required")
	}
	return nil
}
