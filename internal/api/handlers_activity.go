// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/resonate-audio/resonate/internal/database"
	"github.com/resonate-audio/resonate/internal/models"
)

// CreateActivity handles POST /api/v1/activity.
func (h *Handler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req models.CreateActivityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	activity := &models.UserActivity{
		UserID:           req.UserID,
		RecommendationID: req.RecommendationID,
		TrackID:          req.TrackID,
		TrackName:        req.TrackName,
		ArtistName:       req.ArtistName,
		Action:           req.Action,
		Metadata:         req.Metadata,
	}
	if err := h.db.InsertActivity(r.Context(), activity); err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "USER_NOT_FOUND", "No such user", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "INSERT_FAILED", "Could not record activity", err)
		return
	}
	respondData(w, http.StatusCreated, activity, started)
}

// ListActivities handles GET /api/v1/activity and
// GET /api/v1/users/{userID}/activity.
func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	limit := clampLimit(getIntParam(r, "limit", 50), 200)

	var filter *uuid.UUID
	if raw := chi.URLParam(r, "userID"); raw != "" {
		userID, ok := userIDParam(w, r)
		if !ok {
			return
		}
		filter = &userID
	}

	activities, err := h.db.ListActivities(r.Context(), filter, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Could not load activities", err)
		return
	}
	if activities == nil {
		activities = []models.UserActivity{}
	}
	respondData(w, http.StatusOK, activities, started)
}
