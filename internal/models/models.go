// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

// Package models defines the domain records persisted by the store and the
// request/response shapes exposed by the API.
package models

import (
	"time"

	"github.com/google/uuid"
)

// RecommendationLog statuses.
const (
	LogStatusSuccess = "success"
	LogStatusError   = "error"
)

// RecommendationSource tags where a recommendation batch came from.
const RecommendationSource = "spotify"

// Activity actions accepted by the analytics surface.
const (
	ActionPlay  = "play"
	ActionLike  = "like"
	ActionSkip  = "skip"
	ActionShare = "share"
)

// User is an account that owns a taste profile and recommendations.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserProfile holds a user's music preferences. Favorite genres are the
// default seed source for recommendation refreshes.
type UserProfile struct {
	UserID          uuid.UUID      `json:"user_id"`
	FavoriteGenres  []string       `json:"favorite_genres"`
	FavoriteArtists []string       `json:"favorite_artists"`
	Moods           []string       `json:"moods"`
	Preferences     map[string]any `json:"preferences"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Recommendation is one track recommended to a user. Rows are immutable
// after creation and removed only by retention pruning.
type Recommendation struct {
	ID          uuid.UUID      `json:"id"`
	UserID      uuid.UUID      `json:"user_id"`
	TrackID     string         `json:"track_id"`
	TrackName   string         `json:"track_name"`
	ArtistName  string         `json:"artist_name"`
	AlbumName   string         `json:"album_name"`
	PreviewURL  string         `json:"preview_url,omitempty"`
	SpotifyURL  string         `json:"spotify_url"`
	AlbumArtURL string         `json:"album_art_url,omitempty"`
	DurationMS  int            `json:"duration_ms"`
	Popularity  int            `json:"popularity"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// RecommendationLog is one append-only row per fetch-job attempt outcome.
type RecommendationLog struct {
	ID           uuid.UUID      `json:"id"`
	UserID       uuid.UUID      `json:"user_id"`
	FetchedAt    time.Time      `json:"fetched_at"`
	Count        int            `json:"recommendations_count"`
	Source       string         `json:"source"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// UserActivity records one engagement event with a track.
type UserActivity struct {
	ID               uuid.UUID      `json:"id"`
	UserID           uuid.UUID      `json:"user_id"`
	RecommendationID *uuid.UUID     `json:"recommendation_id,omitempty"`
	TrackID          string         `json:"track_id"`
	TrackName        string         `json:"track_name"`
	ArtistName       string         `json:"artist_name"`
	Action           string         `json:"action"`
	Timestamp        time.Time      `json:"timestamp"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// ValidAction reports whether the action is one of the accepted engagement
// types.
func ValidAction(action string) bool {
	switch action {
	case ActionPlay, ActionLike, ActionSkip, ActionShare:
		return true
	}
	return false
}
