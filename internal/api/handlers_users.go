// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package api

import (
	"errors"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/resonate-audio/resonate/internal/database"
	"github.com/resonate-audio/resonate/internal/models"
)

// CreateUser handles POST /api/v1/users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req models.CreateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "HASH_FAILED", "Could not process password", err)
		return
	}

	user := &models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hash),
	}
	if err := h.db.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			respondError(w, http.StatusConflict, "DUPLICATE_EMAIL", "Email is already registered", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "CREATE_FAILED", "Could not create user", err)
		return
	}
	respondData(w, http.StatusCreated, user, started)
}

// GetUser handles GET /api/v1/users/{userID}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	user, err := h.db.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "USER_NOT_FOUND", "No such user", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Could not load user", err)
		return
	}
	respondData(w, http.StatusOK, user, started)
}

// ListUsers handles GET /api/v1/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	users, err := h.db.ListUsers(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Could not list users", err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	respondData(w, http.StatusOK, users, started)
}

// UpdateUser handles PATCH /api/v1/users/{userID}.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	var req models.UpdateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.db.UpdateUser(r.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrUserNotFound):
			respondError(w, http.StatusNotFound, "USER_NOT_FOUND", "No such user", nil)
		case errors.Is(err, database.ErrDuplicateEmail):
			respondError(w, http.StatusConflict, "DUPLICATE_EMAIL", "Email is already registered", nil)
		default:
			respondError(w, http.StatusInternalServerError, "UPDATE_FAILED", "Could not update user", err)
		}
		return
	}
	respondData(w, http.StatusOK, user, started)
}

// DeleteUser handles DELETE /api/v1/users/{userID}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	if err := h.db.DeleteUser(r.Context(), userID); err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "USER_NOT_FOUND", "No such user", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DELETE_FAILED", "Could not delete user", err)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"deleted": userID.String()}, started)
}

// UpsertProfile handles PUT /api/v1/users/{userID}/profile.
func (h *Handler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	var req models.UpsertProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	profile := &models.UserProfile{
		UserID:          userID,
		FavoriteGenres:  req.FavoriteGenres,
		FavoriteArtists: req.FavoriteArtists,
		Moods:           req.Moods,
		Preferences:     req.Preferences,
	}
	if err := h.db.UpsertProfile(r.Context(), profile); err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "USER_NOT_FOUND", "No such user", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "UPSERT_FAILED", "Could not save profile", err)
		return
	}
	respondData(w, http.StatusOK, profile, started)
}

// GetProfile handles GET /api/v1/users/{userID}/profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	profile, err := h.db.GetUserProfile(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Could not load profile", err)
		return
	}
	if profile == nil {
		respondError(w, http.StatusNotFound, "PROFILE_NOT_FOUND", "User has no profile", nil)
		return
	}
	respondData(w, http.StatusOK, profile, started)
}
