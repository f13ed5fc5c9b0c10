// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

// Package middleware holds the HTTP middleware shared by all API routes:
// request identification and Prometheus instrumentation. Rate limiting and
// CORS come from chi ecosystem packages and are wired in the router.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/resonate-audio/resonate/internal/logging"
)

type contextKey string

// RequestIDKey is the context key the request id is stored under.
const RequestIDKey contextKey = "request_id"

// requestIDHeader is honored inbound (proxy-assigned ids win) and always set
// outbound.
const requestIDHeader = "X-Request-ID"

// RequestID assigns each request a unique id, exposes it in the response
// header, and threads it through the context so every log line of the
// request carries it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set(requestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = logging.ContextWithRequestID(ctx, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID extracts the request id from context, or "" when absent.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
