// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package jobs

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/resonate-audio/resonate/internal/logging"
	"github.com/resonate-audio/resonate/internal/metrics"
)

// Enqueuer publishes fetch jobs. Enqueueing is fire-and-forget: the caller
// gets a job id back immediately and observes the outcome later through the
// fetch logs.
type Enqueuer struct {
	publisher message.Publisher
	topic     string
}

// NewEnqueuer wraps a publisher for the given transport-resolved topic.
func NewEnqueuer(publisher message.Publisher, topic string) *Enqueuer {
	return &Enqueuer{publisher: publisher, topic: topic}
}

// Enqueue publishes one fetch job and returns its id. A zero JobID in the
// payload is filled in here.
func (e *Enqueuer) Enqueue(payload FetchPayload) (uuid.UUID, error) {
	if payload.JobID == uuid.Nil {
		payload.JobID = uuid.New()
	}
	if payload.Origin == "" {
		payload.Origin = OriginAPI
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal fetch payload: %w", err)
	}

	msg := message.NewMessage(payload.JobID.String(), body)
	if err := e.publisher.Publish(e.topic, msg); err != nil {
		return uuid.Nil, fmt.Errorf("publish fetch job: %w", err)
	}

	metrics.JobsEnqueued.WithLabelValues(payload.Origin).Inc()
	logging.Debug().
		Str("job_id", payload.JobID.String()).
		Str("user_id", payload.UserID.String()).
		Str("origin", payload.Origin).
		Msg("fetch job enqueued")
	return payload.JobID, nil
}
