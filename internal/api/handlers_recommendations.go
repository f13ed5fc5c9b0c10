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
	"github.com/resonate-audio/resonate/internal/jobs"
	"github.com/resonate-audio/resonate/internal/kvcache"
	"github.com/resonate-audio/resonate/internal/logging"
	"github.com/resonate-audio/resonate/internal/models"
)

// GetRecommendations handles GET /api/v1/recommendations/users/{userID}.
// Cache-first: the snapshot is served when present; otherwise the store is
// read and the snapshot repopulated so subsequent reads hit the cache until
// the next fetch job or expiry.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	limit := clampLimit(getIntParam(r, "limit", h.jobsCfg.DefaultLimit), 100)

	var cached []models.Recommendation
	found, err := h.cache.Get(r.Context(), kvcache.SnapshotKey(userID.String()), &cached)
	if err != nil {
		logging.Warn().Err(err).Msg("snapshot read failed, falling through to store")
	}
	if found {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		respondData(w, http.StatusOK, &models.RecommendationsResponse{
			UserID:          userID,
			Source:          "cache",
			Count:           len(cached),
			Recommendations: cached,
		}, started)
		return
	}

	if _, err := h.db.GetUser(r.Context(), userID); err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "USER_NOT_FOUND", "No such user", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Could not load user", err)
		return
	}

	recs, err := h.db.ListRecommendations(r.Context(), userID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Could not load recommendations", err)
		return
	}
	if recs == nil {
		recs = []models.Recommendation{}
	}

	// Repopulate best-effort; the store stays the source of truth.
	if len(recs) > 0 {
		key := kvcache.SnapshotKey(userID.String())
		if err := h.cache.Set(r.Context(), key, recs, h.snapshotTTL); err != nil {
			logging.Warn().Err(err).Str("key", key).Msg("snapshot repopulation failed")
		}
	}

	respondData(w, http.StatusOK, &models.RecommendationsResponse{
		UserID:          userID,
		Source:          "database",
		Count:           len(recs),
		Recommendations: recs,
	}, started)
}

// RefreshRecommendations handles POST /api/v1/recommendations/users/{userID}/refresh.
// The job is enqueued fire-and-forget; the 202 response carries the job id
// and the outcome is observable only via the fetch logs.
func (h *Handler) RefreshRecommendations(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	req := models.RefreshRequest{}
	if r.ContentLength > 0 {
		if !decodeAndValidate(w, r, &req) {
			return
		}
	}

	if _, err := h.db.GetUser(r.Context(), userID); err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "USER_NOT_FOUND", "No such user", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Could not load user", err)
		return
	}

	limit := req.Limit
	if limit == 0 {
		limit = h.jobsCfg.DefaultLimit
	}

	jobID, err := h.enqueuer.Enqueue(jobs.FetchPayload{
		UserID:      userID,
		Limit:       limit,
		SeedGenres:  req.SeedGenres,
		SeedArtists: req.SeedArtists,
		Origin:      jobs.OriginAPI,
	})
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "ENQUEUE_FAILED", "Could not queue refresh", err)
		return
	}

	respondData(w, http.StatusAccepted, &models.RefreshResponse{
		UserID:  userID,
		JobID:   jobID.String(),
		Status:  "queued",
		Message: "Recommendation refresh queued",
	}, started)
}

// GetRecommendationLogs handles GET /api/v1/recommendations/users/{userID}/logs.
func (h *Handler) GetRecommendationLogs(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	limit := clampLimit(getIntParam(r, "limit", 20), 100)

	logs, err := h.db.ListRecommendationLogs(r.Context(), userID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Could not load fetch logs", err)
		return
	}
	if logs == nil {
		logs = []models.RecommendationLog{}
	}
	respondData(w, http.StatusOK, logs, started)
}
