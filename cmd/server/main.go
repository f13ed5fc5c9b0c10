// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

// Package main is the entry point for the Resonate server.
//
// Resonate is a music discovery backend: users maintain taste profiles, a
// job pipeline expands those profiles into Spotify track recommendations,
// and an analytics layer reports on listening engagement.
//
// The server initializes components in this order:
//
//  1. Configuration: layered via Koanf v2 (defaults, config.yaml, RESONATE_* env)
//  2. Database: DuckDB storage for users, recommendations, logs, activity
//  3. Cache: Redis or in-memory key-value store for tokens and snapshots
//  4. Spotify client: rate-limited, circuit-broken catalog access
//  5. Queue transport: in-process channel or NATS JetStream (optionally embedded)
//  6. Supervisor tree: HTTP API in one layer, worker and scheduler in another
//
// Graceful shutdown on SIGINT/SIGTERM: the HTTP server drains in-flight
// requests, the worker finishes the job it is on, and the transport and
// stores close last.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/resonate-audio/resonate/internal/api"
	"github.com/resonate-audio/resonate/internal/config"
	"github.com/resonate-audio/resonate/internal/database"
	"github.com/resonate-audio/resonate/internal/jobs"
	"github.com/resonate-audio/resonate/internal/kvcache"
	"github.com/resonate-audio/resonate/internal/logging"
	"github.com/resonate-audio/resonate/internal/recommend"
	"github.com/resonate-audio/resonate/internal/spotify"
	"github.com/resonate-audio/resonate/internal/supervisor"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}); err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize logging")
	}

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("cache_backend", cfg.Cache.Backend).
		Str("queue_transport", cfg.Queue.Transport).
		Bool("scheduler", cfg.Scheduler.Enabled).
		Msg("starting resonate")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing database")
		}
	}()

	cache, err := newCache(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize cache")
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing cache")
		}
	}()

	catalog := spotify.New(&cfg.Spotify, cache)
	assembler := recommend.NewAssembler(catalog)

	transport, err := jobs.NewTransport(&cfg.Queue)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize queue transport")
	}
	defer func() {
		if err := transport.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing queue transport")
		}
	}()

	topic := transport.Topic(&cfg.Queue, jobs.FetchTopic)
	enqueuer := jobs.NewEnqueuer(transport.Publisher, topic)
	runner := jobs.NewRunner(db, assembler, cache, &cfg.Jobs, cfg.Cache.SnapshotTTL)

	worker, err := jobs.NewWorker(transport.Subscriber, runner, topic, cfg.Queue.Workers)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize worker")
	}

	handler := api.NewHandler(db, cache, enqueuer, &cfg.Jobs, cfg.Cache.SnapshotTTL)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handler, &cfg.Server),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree := supervisor.NewTree(supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(supervisor.NewHTTPService(server, cfg.Server.ShutdownTimeout))
	tree.AddPipelineService(supervisor.NewRunnableService("fetch-worker", worker))
	if cfg.Scheduler.Enabled {
		scheduler := jobs.NewScheduler(db, enqueuer, &cfg.Scheduler, &cfg.Jobs)
		tree.AddPipelineService(supervisor.NewRunnableService("refresh-scheduler", scheduler))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("serving")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervisor tree exited")
		os.Exit(1)
	}
	logging.Info().Msg("shutdown complete")
}

// newCache builds the configured key-value store backend.
func newCache(cfg *config.Config) (kvcache.Store, error) {
	switch cfg.Cache.Backend {
	case "redis":
		return kvcache.NewRedisStore(kvcache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		}, logging.Component("cache"))
	case "memory":
		return kvcache.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
