// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package api

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonate-audio/resonate/internal/config"
	"github.com/resonate-audio/resonate/internal/database"
	"github.com/resonate-audio/resonate/internal/jobs"
	"github.com/resonate-audio/resonate/internal/kvcache"
	"github.com/resonate-audio/resonate/internal/models"
)

type testEnv struct {
	router   http.Handler
	db       *database.DB
	cache    kvcache.Store
	queue    *gochannel.GoChannel
	clientIP string
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "1GB"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cache := kvcache.NewMemoryStore()
	t.Cleanup(func() { _ = cache.Close() })

	queue := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = queue.Close() })

	jobsCfg := &config.JobsConfig{
		MaxAttempts:       3,
		RetryDelay:        time.Minute,
		DefaultLimit:      20,
		DefaultGenres:     []string{"pop", "rock"},
		ProfileGenreLimit: 5,
		MaxPerUser:        100,
	}

	handler := NewHandler(db, cache, jobs.NewEnqueuer(queue, jobs.FetchTopic), jobsCfg, 15*time.Minute)
	router := NewRouter(handler, &config.ServerConfig{CORSOrigins: []string{"*"}})

	// Each environment gets its own client IP so per-IP rate limits never
	// bleed across tests.
	ip := fmt.Sprintf("10.%d.%d.%d", rand.Intn(250), rand.Intn(250), rand.Intn(250)+1)

	return &testEnv{router: router, db: db, cache: cache, queue: queue, clientIP: ip}
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", env.clientIP)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data any) *models.APIResponse {
	t.Helper()

	var envelope models.APIResponse
	raw := rec.Body.Bytes()
	require.NoError(t, json.Unmarshal(raw, &envelope))
	if data != nil && envelope.Data != nil {
		blob, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(blob, data))
	}
	return &envelope
}

func (env *testEnv) createUser(t *testing.T, email string) uuid.UUID {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/api/v1/users", models.CreateUserRequest{
		Email:    email,
		Username: "listener",
		Password: "super-secret-pw",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var user models.User
	decodeEnvelope(t, rec, &user)
	return user.ID
}

func TestCreateUserEndpoint(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/users", models.CreateUserRequest{
		Email:    "new@example.com",
		Username: "new",
		Password: "super-secret-pw",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var user models.User
	envelope := decodeEnvelope(t, rec, &user)
	assert.Equal(t, "success", envelope.Status)
	assert.Equal(t, "new@example.com", user.Email)
	assert.NotContains(t, rec.Body.String(), "password_hash", "hash never serialized")
}

func TestCreateUserValidation(t *testing.T) {
	env := setupEnv(t)

	tests := []struct {
		name string
		req  models.CreateUserRequest
	}{
		{"bad email", models.CreateUserRequest{Email: "nope", Username: "u", Password: "super-secret-pw"}},
		{"short password", models.CreateUserRequest{Email: "ok@example.com", Username: "u", Password: "short"}},
		{"missing username", models.CreateUserRequest{Email: "ok@example.com", Password: "super-secret-pw"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/users", tc.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			envelope := decodeEnvelope(t, rec, nil)
			require.NotNil(t, envelope.Error)
			assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
		})
	}
}

func TestCreateUserDuplicateEmailConflict(t *testing.T) {
	env := setupEnv(t)
	env.createUser(t, "dup@example.com")

	rec := env.do(t, http.MethodPost, "/api/v1/users", models.CreateUserRequest{
		Email:    "dup@example.com",
		Username: "other",
		Password: "super-secret-pw",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetUserNotFound(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/users/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/users/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileRoundTrip(t *testing.T) {
	env := setupEnv(t)
	userID := env.createUser(t, "tastes@example.com")

	rec := env.do(t, http.MethodPut, "/api/v1/users/"+userID.String()+"/profile",
		models.UpsertProfileRequest{
			FavoriteGenres:  []string{"indie", "jazz"},
			FavoriteArtists: []string{"Big Thief"},
		})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/users/"+userID.String()+"/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var profile models.UserProfile
	decodeEnvelope(t, rec, &profile)
	assert.Equal(t, []string{"indie", "jazz"}, profile.FavoriteGenres)
}

func TestGetProfileAbsent(t *testing.T) {
	env := setupEnv(t)
	userID := env.createUser(t, "noprofile@example.com")

	rec := env.do(t, http.MethodGet, "/api/v1/users/"+userID.String()+"/profile", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefreshReturnsAcceptedAndEnqueues(t *testing.T) {
	env := setupEnv(t)
	userID := env.createUser(t, "refresh@example.com")

	messages, err := env.queue.Subscribe(context.Background(), jobs.FetchTopic)
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost,
		"/api/v1/recommendations/users/"+userID.String()+"/refresh",
		models.RefreshRequest{Limit: 10, SeedGenres: []string{"indie"}})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp models.RefreshResponse
	decodeEnvelope(t, rec, &resp)
	assert.Equal(t, "queued", resp.Status)
	assert.NotEmpty(t, resp.JobID)

	select {
	case msg := <-messages:
		var payload jobs.FetchPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		assert.Equal(t, userID, payload.UserID)
		assert.Equal(t, 10, payload.Limit)
		assert.Equal(t, []string{"indie"}, payload.SeedGenres)
		assert.Equal(t, jobs.OriginAPI, payload.Origin)
		msg.Ack()
	case <-time.After(5 * time.Second):
		t.Fatal("no job enqueued")
	}
}

func TestRefreshUnknownUser(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPost,
		"/api/v1/recommendations/users/"+uuid.NewString()+"/refresh", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRecommendationsCacheFirst(t *testing.T) {
	env := setupEnv(t)
	userID := env.createUser(t, "cached@example.com")

	snapshot := []models.Recommendation{
		{UserID: userID, TrackID: "cached-1", TrackName: "Cached", ArtistName: "Cache Artist"},
	}
	require.NoError(t, env.cache.Set(context.Background(),
		kvcache.SnapshotKey(userID.String()), snapshot, time.Minute))

	rec := env.do(t, http.MethodGet, "/api/v1/recommendations/users/"+userID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.RecommendationsResponse
	decodeEnvelope(t, rec, &resp)
	assert.Equal(t, "cache", resp.Source)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "cached-1", resp.Recommendations[0].TrackID)
}

func TestGetRecommendationsFallsBackToStore(t *testing.T) {
	env := setupEnv(t)
	userID := env.createUser(t, "stored@example.com")
	ctx := context.Background()

	require.NoError(t, env.db.InsertRecommendations(ctx, []models.Recommendation{
		{UserID: userID, TrackID: "db-1", TrackName: "Stored", ArtistName: "Store Artist"},
	}))

	rec := env.do(t, http.MethodGet, "/api/v1/recommendations/users/"+userID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.RecommendationsResponse
	decodeEnvelope(t, rec, &resp)
	assert.Equal(t, "database", resp.Source)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "db-1", resp.Recommendations[0].TrackID)
}

func TestGetRecommendationsMissRepopulatesSnapshot(t *testing.T) {
	env := setupEnv(t)
	userID := env.createUser(t, "repop@example.com")
	ctx := context.Background()

	require.NoError(t, env.db.InsertRecommendations(ctx, []models.Recommendation{
		{UserID: userID, TrackID: "db-2", TrackName: "Warm", ArtistName: "Warm Artist"},
	}))

	rec := env.do(t, http.MethodGet, "/api/v1/recommendations/users/"+userID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.RecommendationsResponse
	decodeEnvelope(t, rec, &resp)
	require.Equal(t, "database", resp.Source)

	var snapshot []models.Recommendation
	found, err := env.cache.Get(ctx, kvcache.SnapshotKey(userID.String()), &snapshot)
	require.NoError(t, err)
	require.True(t, found, "fallback read writes the snapshot back")
	require.Len(t, snapshot, 1)
	assert.Equal(t, "db-2", snapshot[0].TrackID)

	rec = env.do(t, http.MethodGet, "/api/v1/recommendations/users/"+userID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeEnvelope(t, rec, &resp)
	assert.Equal(t, "cache", resp.Source, "second read is served from the snapshot")
}

func TestActivityEndpointValidation(t *testing.T) {
	env := setupEnv(t)
	userID := env.createUser(t, "acts@example.com")

	rec := env.do(t, http.MethodPost, "/api/v1/activity", models.CreateActivityRequest{
		UserID:     userID,
		TrackID:    "t1",
		TrackName:  "Song",
		ArtistName: "Band",
		Action:     "dance",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown action rejected")

	rec = env.do(t, http.MethodPost, "/api/v1/activity", models.CreateActivityRequest{
		UserID:     userID,
		TrackID:    "t1",
		TrackName:  "Song",
		ArtistName: "Band",
		Action:     models.ActionPlay,
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAnalyticsEndpoints(t *testing.T) {
	env := setupEnv(t)
	userID := env.createUser(t, "analytics@example.com")

	rec := env.do(t, http.MethodPost, "/api/v1/activity", models.CreateActivityRequest{
		UserID:     userID,
		TrackID:    "t1",
		TrackName:  "Song",
		ArtistName: "Band",
		Action:     models.ActionPlay,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/analytics/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary models.AnalyticsSummary
	decodeEnvelope(t, rec, &summary)
	assert.Equal(t, 1, summary.TotalUsers)
	assert.Equal(t, 1, summary.TotalActivities)

	rec = env.do(t, http.MethodGet, "/api/v1/analytics/trends", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/analytics/users/"+userID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var engagement models.UserEngagement
	decodeEnvelope(t, rec, &engagement)
	assert.Equal(t, 1, engagement.TotalActivities)
}

func TestHealthEndpoints(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshRateLimited(t *testing.T) {
	env := setupEnv(t)
	userID := env.createUser(t, "limited@example.com")
	path := "/api/v1/recommendations/users/" + userID.String() + "/refresh"

	limited := false
	for i := 0; i < refreshLimitPerMinute+1; i++ {
		rec := env.do(t, http.MethodPost, path, nil)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	assert.True(t, limited, "requests beyond the refresh tier are rejected")
}

func TestDeleteUserEndpoint(t *testing.T) {
	env := setupEnv(t)
	userID := env.createUser(t, "bye@example.com")

	rec := env.do(t, http.MethodDelete, "/api/v1/users/"+userID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/users/"+userID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
