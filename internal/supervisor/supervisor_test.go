// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer simulates an HTTP server lifecycle.
type fakeServer struct {
	started  atomic.Bool
	stopped  atomic.Bool
	failWith error
	release  chan struct{}
}

func newFakeServer() *fakeServer {
	return &fakeServer{release: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	f.started.Store(true)
	if f.failWith != nil {
		return f.failWith
	}
	<-f.release
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(_ context.Context) error {
	f.stopped.Store(true)
	close(f.release)
	return nil
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	server := newFakeServer()
	svc := NewHTTPService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	require.Eventually(t, server.started.Load, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.True(t, server.stopped.Load())
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}
}

func TestHTTPServiceSurfacesListenError(t *testing.T) {
	server := newFakeServer()
	server.failWith = errors.New("address in use")
	svc := NewHTTPService(server, time.Second)

	err := svc.Serve(context.Background())
	assert.ErrorContains(t, err, "address in use")
}

// countingRunnable fails a fixed number of times before blocking until
// cancelled.
type countingRunnable struct {
	runs      atomic.Int32
	failTimes int32
}

func (c *countingRunnable) Run(ctx context.Context) error {
	n := c.runs.Add(1)
	if n <= c.failTimes {
		return errors.New("transient crash")
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestTreeRestartsCrashedPipelineService(t *testing.T) {
	tree := NewTree(TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	runnable := &countingRunnable{failTimes: 2}
	tree.AddPipelineService(NewRunnableService("flaky", runnable))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	require.Eventually(t, func() bool {
		return runnable.runs.Load() >= 3
	}, 10*time.Second, 10*time.Millisecond, "service restarted after crashes")

	cancel()
	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop")
	}
}
