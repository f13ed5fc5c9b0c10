// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// HTTPServer matches *http.Server's lifecycle surface.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService adapts an HTTP server's blocking ListenAndServe to suture's
// context-aware Serve, with graceful shutdown on cancellation.
type HTTPService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPService wraps a server for supervision.
func NewHTTPService(server HTTPServer, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service.
func (s *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

func (s *HTTPService) String() string { return "http-server" }

// Runnable is anything with a context-blocking Run loop; both the queue
// worker and the scheduler satisfy it.
type Runnable interface {
	Run(ctx context.Context) error
}

// RunnableService adapts a Run loop to suture.Service. Context cancellation
// is a normal stop, not a failure to restart.
type RunnableService struct {
	name     string
	runnable Runnable
}

// NewRunnableService wraps a Run loop for supervision.
func NewRunnableService(name string, runnable Runnable) *RunnableService {
	return &RunnableService{name: name, runnable: runnable}
}

// Serve implements suture.Service. Context errors pass through untouched;
// suture treats them as a normal stop.
func (s *RunnableService) Serve(ctx context.Context) error {
	return s.runnable.Run(ctx)
}

func (s *RunnableService) String() string { return s.name }
