// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package jobs

import (
	"context"
	"time"

	"github.com/resonate-audio/resonate/internal/config"
	"github.com/resonate-audio/resonate/internal/database"
	"github.com/resonate-audio/resonate/internal/logging"
)

// Scheduler periodically fans a fetch job out to every user. It only
// enqueues; job outcomes are not awaited.
type Scheduler struct {
	db       *database.DB
	enqueuer *Enqueuer
	cfg      *config.SchedulerConfig
	jobs     *config.JobsConfig
}

// NewScheduler wires the periodic refresh sweep.
func NewScheduler(db *database.DB, enqueuer *Enqueuer, cfg *config.SchedulerConfig, jobs *config.JobsConfig) *Scheduler {
	return &Scheduler{db: db, enqueuer: enqueuer, cfg: cfg, jobs: jobs}
}

// Run sweeps on the configured interval until ctx is cancelled. The first
// sweep happens after one interval, not at startup, so a deploy does not
// stampede the catalog API.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep enqueues one fetch job per user and returns how many enqueues
// succeeded. A per-user enqueue failure is logged and skipped; it never
// aborts the rest of the sweep.
func (s *Scheduler) Sweep(ctx context.Context) int {
	users, err := s.db.ListUsers(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("scheduler sweep: listing users failed")
		return 0
	}

	queued := 0
	for _, user := range users {
		_, err := s.enqueuer.Enqueue(FetchPayload{
			UserID: user.ID,
			Limit:  s.jobs.DefaultLimit,
			Origin: OriginScheduler,
		})
		if err != nil {
			logging.Warn().Err(err).Str("user_id", user.ID.String()).Msg("scheduler enqueue failed, skipping user")
			continue
		}
		queued++
	}

	logging.Info().Int("queued", queued).Int("users", len(users)).Msg("scheduled refresh sweep complete")
	return queued
}
