// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/resonate-audio/resonate/internal/config"
	"github.com/resonate-audio/resonate/internal/middleware"
)

// Per-endpoint-class rate limits. Refresh is the strictest tier because each
// request fans out into catalog API calls.
const (
	refreshLimitPerMinute  = 5
	readLimitPerMinute     = 30
	activityLimitPerMinute = 20
)

// NewRouter assembles the full route tree.
func NewRouter(handler *Handler, cfg *config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", handler.HealthLive)
		r.Get("/ready", handler.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)

		r.Route("/users", func(r chi.Router) {
			r.Use(httprate.LimitByIP(readLimitPerMinute, time.Minute))
			r.Post("/", handler.CreateUser)
			r.Get("/", handler.ListUsers)
			r.Get("/{userID}", handler.GetUser)
			r.Patch("/{userID}", handler.UpdateUser)
			r.Delete("/{userID}", handler.DeleteUser)
			r.Put("/{userID}/profile", handler.UpsertProfile)
			r.Get("/{userID}/profile", handler.GetProfile)
			r.Get("/{userID}/activity", handler.ListActivities)
		})

		r.Route("/recommendations/users/{userID}", func(r chi.Router) {
			r.With(httprate.LimitByIP(readLimitPerMinute, time.Minute)).
				Get("/", handler.GetRecommendations)
			r.With(httprate.LimitByIP(readLimitPerMinute, time.Minute)).
				Get("/logs", handler.GetRecommendationLogs)
			r.With(httprate.LimitByIP(refreshLimitPerMinute, time.Minute)).
				Post("/refresh", handler.RefreshRecommendations)
		})

		r.Route("/activity", func(r chi.Router) {
			r.Use(httprate.LimitByIP(activityLimitPerMinute, time.Minute))
			r.Post("/", handler.CreateActivity)
			r.Get("/", handler.ListActivities)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Use(httprate.LimitByIP(readLimitPerMinute, time.Minute))
			r.Get("/summary", handler.AnalyticsSummary)
			r.Get("/trends", handler.AnalyticsTrends)
			r.Get("/users/{userID}", handler.AnalyticsUserEngagement)
		})
	})

	return r
}
