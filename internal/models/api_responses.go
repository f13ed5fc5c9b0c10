// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package models

import (
	"time"

	"github.com/google/uuid"
)

// APIResponse is the envelope for all JSON responses.
type APIResponse struct {
	Status   string    `json:"status"`
	Data     any       `json:"data,omitempty"`
	Error    *APIError `json:"error,omitempty"`
	Metadata Metadata  `json:"metadata"`
}

// APIError carries a machine-readable code and a human-readable message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Metadata is attached to every response for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// CreateUserRequest is the payload for POST /users.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=1,max=150"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// UpdateUserRequest is the payload for PATCH /users/{id}. Empty fields are
// left unchanged.
type UpdateUserRequest struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Username string `json:"username" validate:"omitempty,min=1,max=150"`
}

// UpsertProfileRequest is the payload for PUT /users/{id}/profile.
type UpsertProfileRequest struct {
	FavoriteGenres  []string       `json:"favorite_genres" validate:"max=50,dive,min=1,max=100"`
	FavoriteArtists []string       `json:"favorite_artists" validate:"max=50,dive,min=1,max=200"`
	Moods           []string       `json:"moods" validate:"max=50,dive,min=1,max=100"`
	Preferences     map[string]any `json:"preferences"`
}

// RefreshRequest is the payload for POST /recommendations/users/{id}/refresh.
// Seeds are optional; when omitted the job derives them from the profile.
type RefreshRequest struct {
	Limit       int      `json:"limit" validate:"omitempty,min=1,max=100"`
	SeedGenres  []string `json:"seed_genres" validate:"max=10,dive,min=1,max=100"`
	SeedArtists []string `json:"seed_artists" validate:"max=10,dive,min=1,max=200"`
}

// RefreshResponse acknowledges a queued refresh. Completion is observable
// only through the fetch logs and the refreshed recommendation set.
type RefreshResponse struct {
	UserID  uuid.UUID `json:"user_id"`
	JobID   string    `json:"job_id"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
}

// RecommendationsResponse wraps a user's recommendation list with its origin
// ("cache" or "database").
type RecommendationsResponse struct {
	UserID          uuid.UUID        `json:"user_id"`
	Source          string           `json:"source"`
	Count           int              `json:"count"`
	Recommendations []Recommendation `json:"recommendations"`
}

// CreateActivityRequest is the payload for POST /activity.
type CreateActivityRequest struct {
	UserID           uuid.UUID      `json:"user_id" validate:"required"`
	RecommendationID *uuid.UUID     `json:"recommendation_id"`
	TrackID          string         `json:"track_id" validate:"required,max=255"`
	TrackName        string         `json:"track_name" validate:"required,max=500"`
	ArtistName       string         `json:"artist_name" validate:"required,max=500"`
	Action           string         `json:"action" validate:"required,oneof=play like skip share"`
	Metadata         map[string]any `json:"metadata"`
}

// AnalyticsSummary is the service-wide engagement overview.
type AnalyticsSummary struct {
	TotalUsers           int                 `json:"total_users"`
	TotalActivities      int                 `json:"total_activities"`
	TotalRecommendations int                 `json:"total_recommendations"`
	ActivitiesByAction   map[string]int      `json:"activities_by_action"`
	MostActiveUsers      []UserActivityCount `json:"most_active_users"`
}

// UserActivityCount pairs a user with an activity tally.
type UserActivityCount struct {
	UserID        uuid.UUID `json:"user_id"`
	Email         string    `json:"email"`
	ActivityCount int       `json:"activity_count"`
}

// AnalyticsTrends aggregates what is popular across all users.
type AnalyticsTrends struct {
	TrendingGenres  []NameCount  `json:"trending_genres"`
	TrendingArtists []NameCount  `json:"trending_artists"`
	PopularTracks   []TrackCount `json:"popular_tracks"`
}

// NameCount is a generic name/tally pair.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TrackCount is a track with its play/like tally.
type TrackCount struct {
	TrackID    string `json:"track_id"`
	TrackName  string `json:"track_name"`
	ArtistName string `json:"artist_name"`
	PlayCount  int    `json:"play_count"`
}

// UserEngagement is the per-user analytics view.
type UserEngagement struct {
	UserID             uuid.UUID      `json:"user_id"`
	TotalActivities    int            `json:"total_activities"`
	ActivitiesByAction map[string]int `json:"activities_by_action"`
	FavoriteArtists    []NameCount    `json:"favorite_artists"`
	FavoriteTracks     []TrackCount   `json:"favorite_tracks"`
	RecentActivities   []UserActivity `json:"recent_activities"`
}
