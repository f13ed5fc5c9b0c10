// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

// Package jobs is the asynchronous fetch pipeline: enqueueing refresh jobs,
// the worker that executes them, and the periodic scheduler that fans a job
// out to every user. Transport is Watermill over an in-process channel or
// NATS JetStream, selected by configuration.
package jobs

import (
	"github.com/google/uuid"
)

// FetchTopic is the queue topic fetch jobs are published to. With the NATS
// transport the configured subject prefix is prepended.
const FetchTopic = "fetch_recommendations"

// Enqueue origins, used for metrics labels.
const (
	OriginAPI       = "api"
	OriginScheduler = "scheduler"
)

// FetchPayload is the message body of one refresh job. Seed lists may be
// empty; the worker then derives seeds from the user's profile.
type FetchPayload struct {
	JobID       uuid.UUID `json:"job_id"`
	UserID      uuid.UUID `json:"user_id"`
	Limit       int       `json:"limit"`
	SeedGenres  []string  `json:"seed_genres,omitempty"`
	SeedArtists []string  `json:"seed_artists,omitempty"`
	Origin      string    `json:"origin"`
}
