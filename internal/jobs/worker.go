// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package jobs

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"

	"github.com/resonate-audio/resonate/internal/logging"
)

// Worker consumes fetch jobs from the queue and executes them through the
// Runner. Retry lives inside the Runner, not the queue: every delivered
// message is acked once Run returns, success or not, so a permanently failed
// job never clogs the subscription.
type Worker struct {
	router     *message.Router
	subscriber message.Subscriber
	runner     *Runner
	topic      string
	workers    int
}

// NewWorker builds the consuming router. workers is the per-instance handler
// parallelism.
func NewWorker(subscriber message.Subscriber, runner *Runner, topic string, workers int) (*Worker, error) {
	logger := newWatermillLogger()

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, fmt.Errorf("create queue router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)

	w := &Worker{
		router:     router,
		subscriber: subscriber,
		runner:     runner,
		topic:      topic,
		workers:    workers,
	}

	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		router.AddNoPublisherHandler(
			fmt.Sprintf("fetch_worker_%d", i),
			topic,
			subscriber,
			w.handle,
		)
	}
	return w, nil
}

// Run starts consuming and blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	return w.router.Run(ctx)
}

// Running returns a channel closed once the router is consuming.
func (w *Worker) Running() <-chan struct{} {
	return w.router.Running()
}

// Close stops the router.
func (w *Worker) Close() error {
	return w.router.Close()
}

// handle decodes one queue message and runs the job. Undecodable payloads
// are dropped with a log line; redelivering them could never succeed.
func (w *Worker) handle(msg *message.Message) error {
	var payload FetchPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		logging.Error().Err(err).Str("message_uuid", msg.UUID).Msg("undecodable fetch payload, dropping")
		return nil
	}
	return w.runner.Run(msg.Context(), payload)
}
