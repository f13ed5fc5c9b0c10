// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonate-audio/resonate/internal/config"
	"github.com/resonate-audio/resonate/internal/database"
	"github.com/resonate-audio/resonate/internal/models"
)

// capturingPublisher records published messages; failEvery makes every n-th
// publish fail to exercise skip-and-continue.
type capturingPublisher struct {
	messages  []*message.Message
	failEvery int
	calls     int
}

func (p *capturingPublisher) Publish(_ string, msgs ...*message.Message) error {
	p.calls++
	if p.failEvery > 0 && p.calls%p.failEvery == 0 {
		return errors.New("transport unavailable")
	}
	p.messages = append(p.messages, msgs...)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func setupSchedulerDB(t *testing.T, users int) *database.DB {
	t.Helper()

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "1GB"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for i := 0; i < users; i++ {
		require.NoError(t, db.CreateUser(context.Background(), &models.User{
			Email:        fmt.Sprintf("user%d@example.com", i),
			Username:     fmt.Sprintf("user%d", i),
			PasswordHash: "x",
		}))
	}
	return db
}

func TestSweepEnqueuesOneJobPerUser(t *testing.T) {
	db := setupSchedulerDB(t, 4)
	pub := &capturingPublisher{}

	scheduler := NewScheduler(db, NewEnqueuer(pub, FetchTopic),
		&config.SchedulerConfig{Interval: time.Hour}, jobsTestConfig())

	queued := scheduler.Sweep(context.Background())

	assert.Equal(t, 4, queued)
	require.Len(t, pub.messages, 4)

	seen := map[string]bool{}
	for _, msg := range pub.messages {
		var payload FetchPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		assert.Equal(t, OriginScheduler, payload.Origin)
		assert.Equal(t, 20, payload.Limit)
		seen[payload.UserID.String()] = true
	}
	assert.Len(t, seen, 4, "each user scheduled exactly once")
}

func TestSweepCountsEnqueuesNotOutcomes(t *testing.T) {
	db := setupSchedulerDB(t, 4)
	pub := &capturingPublisher{failEvery: 2}

	scheduler := NewScheduler(db, NewEnqueuer(pub, FetchTopic),
		&config.SchedulerConfig{Interval: time.Hour}, jobsTestConfig())

	queued := scheduler.Sweep(context.Background())

	assert.Equal(t, 2, queued, "failed enqueues are skipped, not counted")
	assert.Len(t, pub.messages, 2)
}

func TestSweepEmptyUserSet(t *testing.T) {
	db := setupSchedulerDB(t, 0)
	pub := &capturingPublisher{}

	scheduler := NewScheduler(db, NewEnqueuer(pub, FetchTopic),
		&config.SchedulerConfig{Interval: time.Hour}, jobsTestConfig())

	assert.Zero(t, scheduler.Sweep(context.Background()))
	assert.Empty(t, pub.messages)
}
