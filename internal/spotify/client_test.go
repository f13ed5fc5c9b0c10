// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package spotify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonate-audio/resonate/internal/config"
	"github.com/resonate-audio/resonate/internal/kvcache"
)

// stubSpotify is a fake Spotify API plus auth endpoint for client tests.
type stubSpotify struct {
	server         *httptest.Server
	tokenExchanges atomic.Int32
	apiCalls       atomic.Int32
	failAuth       bool
	failAPI        bool
	expiresIn      int
}

func newStubSpotify(t *testing.T) *stubSpotify {
	t.Helper()

	stub := &stubSpotify{expiresIn: 3600}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		stub.tokenExchanges.Add(1)
		if stub.failAuth {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]any{
			"access_token": "stub-token",
			"token_type":   "Bearer",
			"expires_in":   stub.expiresIn,
		})
	})

	mux.HandleFunc("/v1/", func(w http.ResponseWriter, r *http.Request) {
		stub.apiCalls.Add(1)
		if stub.failAPI {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if r.Header.Get("Authorization") != "Bearer stub-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		stub.route(w, r)
	})

	stub.server = httptest.NewServer(mux)
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *stubSpotify) route(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/v1/search" && r.URL.Query().Get("type") == "track":
		writeJSON(w, map[string]any{
			"tracks": map[string]any{
				"items": []map[string]any{
					trackJSON("t1", "First Song", "Artist One"),
					trackJSON("t2", "Second Song", "Artist Two"),
				},
				"total": 2,
			},
		})
	case r.URL.Path == "/v1/search" && r.URL.Query().Get("type") == "artist":
		writeJSON(w, map[string]any{
			"artists": map[string]any{
				"items": []map[string]any{
					{"id": "a1", "name": "Artist One"},
				},
				"total": 1,
			},
		})
	case r.URL.Path == "/v1/artists/a1":
		writeJSON(w, map[string]any{
			"id": "a1", "name": "Artist One", "genres": []string{"indie rock", "folk"},
		})
	case r.URL.Path == "/v1/artists/a1/top-tracks":
		writeJSON(w, map[string]any{
			"tracks": []map[string]any{
				trackJSON("tt1", "Top One", "Artist One"),
				trackJSON("tt2", "Top Two", "Artist One"),
			},
		})
	case r.URL.Path == "/v1/artists/a1/related-artists":
		artists := make([]map[string]any, 8)
		for i := range artists {
			artists[i] = map[string]any{"id": "rel", "name": "Related"}
		}
		writeJSON(w, map[string]any{"artists": artists})
	case r.URL.Path == "/v1/tracks/t1":
		writeJSON(w, trackJSON("t1", "First Song", "Artist One"))
	case r.URL.Path == "/v1/recommendations/available-genre-seeds":
		writeJSON(w, map[string]any{"genres": []string{"acoustic", "ambient"}})
	default:
		writeJSON(w, map[string]any{})
	}
}

func trackJSON(id, name, artist string) map[string]any {
	return map[string]any{
		"id":      id,
		"name":    name,
		"artists": []map[string]any{{"id": "a-" + id, "name": artist}},
		"album": map[string]any{
			"id":   "al-" + id,
			"name": "Album",
			"images": []map[string]any{
				{"url": "https://img.example/" + id, "width": 640, "height": 640},
			},
		},
		"duration_ms":   210000,
		"popularity":    55,
		"external_urls": map[string]any{"spotify": "https://open.spotify.com/track/" + id},
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func testClient(t *testing.T, stub *stubSpotify) (*Client, kvcache.Store) {
	t.Helper()

	cache := kvcache.NewMemoryStore()
	t.Cleanup(func() { _ = cache.Close() })

	cfg := &config.SpotifyConfig{
		ClientID:          "client-id",
		ClientSecret:      "client-secret",
		AuthURL:           stub.server.URL + "/api/token",
		APIURL:            stub.server.URL + "/v1",
		Market:            "US",
		Timeout:           5 * time.Second,
		RequestsPerSecond: 100,
		Burst:             100,

		BreakerConsecutiveFailures: 5,
		BreakerOpenTimeout:         time.Minute,
	}
	return New(cfg, cache), cache
}

func TestTokenExchangeAndCaching(t *testing.T) {
	stub := newStubSpotify(t)
	client, cache := testClient(t, stub)
	ctx := context.Background()

	token, err := client.Tokens().Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stub-token", token)
	assert.Equal(t, int32(1), stub.tokenExchanges.Load())

	// Second call hits the cache, not the auth endpoint.
	token, err = client.Tokens().Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stub-token", token)
	assert.Equal(t, int32(1), stub.tokenExchanges.Load())

	var cached string
	found, err := cache.Get(ctx, kvcache.TokenKey, &cached)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "stub-token", cached)
}

func TestTokenExchangeFailureIsFatal(t *testing.T) {
	stub := newStubSpotify(t)
	stub.failAuth = true
	client, _ := testClient(t, stub)

	_, err := client.Tokens().Token(context.Background())
	assert.Error(t, err)
}

func TestTokenBelowSafetyMarginNotCached(t *testing.T) {
	stub := newStubSpotify(t)
	stub.expiresIn = 60 // below the 5 minute margin
	client, cache := testClient(t, stub)
	ctx := context.Background()

	token, err := client.Tokens().Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stub-token", token)

	var cached string
	found, err := cache.Get(ctx, kvcache.TokenKey, &cached)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSearchTracks(t *testing.T) {
	stub := newStubSpotify(t)
	client, _ := testClient(t, stub)

	tracks := client.SearchTracks(context.Background(), "genre:indie", 10)
	require.Len(t, tracks, 2)
	assert.Equal(t, "t1", tracks[0].ID)
	assert.Equal(t, "Artist One", tracks[0].PrimaryArtistName())
	assert.Equal(t, "https://img.example/t1", tracks[0].Album.Images[0].URL)
}

func TestSearchArtists(t *testing.T) {
	stub := newStubSpotify(t)
	client, _ := testClient(t, stub)

	artists := client.SearchArtists(context.Background(), "Artist One", 1)
	require.Len(t, artists, 1)
	assert.Equal(t, "a1", artists[0].ID)
}

func TestGetArtistIncludesGenres(t *testing.T) {
	stub := newStubSpotify(t)
	client, _ := testClient(t, stub)

	artist := client.GetArtist(context.Background(), "a1")
	require.NotNil(t, artist)
	assert.Equal(t, []string{"indie rock", "folk"}, artist.Genres)
}

func TestGetArtistTopTracks(t *testing.T) {
	stub := newStubSpotify(t)
	client, _ := testClient(t, stub)

	tracks := client.GetArtistTopTracks(context.Background(), "a1")
	require.Len(t, tracks, 2)
	assert.Equal(t, "tt1", tracks[0].ID)
}

func TestGetRelatedArtistsCapped(t *testing.T) {
	stub := newStubSpotify(t)
	client, _ := testClient(t, stub)

	related := client.GetRelatedArtists(context.Background(), "a1")
	assert.Len(t, related, maxRelatedArtists)
}

func TestGetTrack(t *testing.T) {
	stub := newStubSpotify(t)
	client, _ := testClient(t, stub)

	track := client.GetTrack(context.Background(), "t1")
	require.NotNil(t, track)
	assert.Equal(t, "First Song", track.Name)
}

func TestAvailableGenreSeeds(t *testing.T) {
	stub := newStubSpotify(t)
	client, _ := testClient(t, stub)

	genres := client.AvailableGenreSeeds(context.Background())
	assert.Equal(t, []string{"acoustic", "ambient"}, genres)
}

func TestCatalogFailureReturnsNil(t *testing.T) {
	stub := newStubSpotify(t)
	stub.failAPI = true
	client, _ := testClient(t, stub)
	ctx := context.Background()

	assert.Nil(t, client.SearchTracks(ctx, "anything", 10))
	assert.Nil(t, client.GetArtist(ctx, "a1"))
	assert.Nil(t, client.GetTrack(ctx, "t1"))
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	stub := newStubSpotify(t)
	stub.failAPI = true
	client, _ := testClient(t, stub)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		client.SearchTracks(ctx, "anything", 10)
	}
	before := stub.apiCalls.Load()

	// Breaker is open; this call never reaches the server.
	client.SearchTracks(ctx, "anything", 10)
	assert.Equal(t, before, stub.apiCalls.Load())
}
