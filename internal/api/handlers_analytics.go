// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/resonate-audio/resonate/internal/database"
)

// AnalyticsSummary handles GET /api/v1/analytics/summary.
func (h *Handler) AnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	summary, err := h.db.GetAnalyticsSummary(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Could not compute summary", err)
		return
	}
	respondData(w, http.StatusOK, summary, started)
}

// AnalyticsTrends handles GET /api/v1/analytics/trends.
func (h *Handler) AnalyticsTrends(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	trends, err := h.db.GetAnalyticsTrends(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Could not compute trends", err)
		return
	}
	respondData(w, http.StatusOK, trends, started)
}

// AnalyticsUserEngagement handles GET /api/v1/analytics/users/{userID}.
func (h *Handler) AnalyticsUserEngagement(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	engagement, err := h.db.GetUserEngagement(r.Context(), userID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "USER_NOT_FOUND", "No such user", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Could not compute engagement", err)
		return
	}
	respondData(w, http.StatusOK, engagement, started)
}
