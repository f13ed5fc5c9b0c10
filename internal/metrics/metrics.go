// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

// Package metrics provides Prometheus instrumentation for the HTTP API, the
// store, the Spotify client, the job pipeline, and the shared cache.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resonate_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resonate_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Database metrics.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resonate_db_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resonate_db_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// Spotify client metrics.
	SpotifyCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resonate_spotify_calls_total",
			Help: "Total Spotify Web API calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"}, // outcome: ok, empty, error
	)

	SpotifyTokenExchanges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resonate_spotify_token_exchanges_total",
			Help: "Total client-credentials token exchanges performed",
		},
	)

	// Job pipeline metrics.
	JobsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resonate_jobs_enqueued_total",
			Help: "Total fetch jobs enqueued by origin",
		},
		[]string{"origin"}, // origin: api, scheduler
	)

	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resonate_jobs_processed_total",
			Help: "Total fetch job executions by terminal outcome",
		},
		[]string{"outcome"}, // outcome: success, failed, user_not_found
	)

	JobAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resonate_job_attempts_total",
			Help: "Total fetch job attempts including retries",
		},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resonate_job_duration_seconds",
			Help:    "Duration of fetch job executions in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"outcome"},
	)

	// Cache metrics.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resonate_cache_hits_total",
			Help: "Total cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resonate_cache_misses_total",
			Help: "Total cache misses",
		},
	)
)

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	HTTPRequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, path, code).Inc()
}

// ObserveDBQuery records one store query.
func ObserveDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}
