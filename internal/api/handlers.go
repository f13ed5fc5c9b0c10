// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

// Package api serves the HTTP interface: user and profile management,
// recommendation reads with a cache-first path, asynchronous refresh
// triggering, engagement recording, and analytics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/resonate-audio/resonate/internal/config"
	"github.com/resonate-audio/resonate/internal/database"
	"github.com/resonate-audio/resonate/internal/jobs"
	"github.com/resonate-audio/resonate/internal/kvcache"
)

// Handler carries the dependencies every endpoint shares.
type Handler struct {
	db          *database.DB
	cache       kvcache.Store
	enqueuer    *jobs.Enqueuer
	jobsCfg     *config.JobsConfig
	snapshotTTL time.Duration
}

// NewHandler wires the endpoint handlers.
func NewHandler(db *database.DB, cache kvcache.Store, enqueuer *jobs.Enqueuer,
	jobsCfg *config.JobsConfig, snapshotTTL time.Duration) *Handler {
	return &Handler{db: db, cache: cache, enqueuer: enqueuer, jobsCfg: jobsCfg, snapshotTTL: snapshotTTL}
}

// HealthLive reports process liveness. Always 200 while the process serves.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "alive"}, time.Now())
}

// HealthReady reports readiness: the store must answer a ping.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "Database is not reachable", err)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"status": "ready"}, started)
}
