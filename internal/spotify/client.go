// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

// Package spotify is the outbound request layer for the Spotify Web API:
// client-credentials token management plus thin wrappers over the search and
// lookup endpoints the recommendation pipeline composes.
//
// Catalog calls return nil or an empty collection on failure after logging
// it; callers treat "no result" as a valid, non-fatal outcome. Only token
// acquisition surfaces an error, which is fatal to the calling operation.
package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/go-resty/resty/v2"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/resonate-audio/resonate/internal/config"
	"github.com/resonate-audio/resonate/internal/kvcache"
	"github.com/resonate-audio/resonate/internal/logging"
	"github.com/resonate-audio/resonate/internal/metrics"
	"github.com/resonate-audio/resonate/internal/models"
)

// maxRelatedArtists caps the related-artists result, mirroring how few of
// them the assembler can usefully seed from.
const maxRelatedArtists = 5

// Client wraps the Spotify Web API. One instance is shared by all workers;
// it is safe for concurrent use. Outbound calls pass through a token-bucket
// rate limiter and a circuit breaker so a misbehaving upstream cannot stall
// every worker at once.
type Client struct {
	cfg     *config.SpotifyConfig
	tokens  *TokenSource
	http    *resty.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*resty.Response]
}

// New builds a catalog client backed by the given cache store.
func New(cfg *config.SpotifyConfig, cache kvcache.Store) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.APIURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	consecutive := cfg.BreakerConsecutiveFailures
	if consecutive == 0 {
		consecutive = 5
	}

	breaker := gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:    "spotify-api",
		Timeout: cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutive
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return &Client{
		cfg:     cfg,
		tokens:  NewTokenSource(cfg, cache),
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker: breaker,
	}
}

// Tokens exposes the token source, mainly for health checks.
func (c *Client) Tokens() *TokenSource {
	return c.tokens
}

// SearchTracks runs a track search and returns up to limit tracks. Returns
// nil on any failure.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) []models.SpotifyTrack {
	var result models.SpotifySearchResponse
	params := url.Values{
		"q":     {query},
		"type":  {"track"},
		"limit": {strconv.Itoa(limit)},
	}
	if c.cfg.Market != "" {
		params.Set("market", c.cfg.Market)
	}
	if !c.get(ctx, "search_tracks", "/search", params, &result) {
		return nil
	}
	if result.Tracks == nil || len(result.Tracks.Items) == 0 {
		metrics.SpotifyCalls.WithLabelValues("search_tracks", "empty").Inc()
		return nil
	}
	return result.Tracks.Items
}

// SearchArtists runs an artist search and returns up to limit artists.
// Returns nil on any failure.
func (c *Client) SearchArtists(ctx context.Context, query string, limit int) []models.SpotifyArtist {
	var result models.SpotifySearchResponse
	params := url.Values{
		"q":     {query},
		"type":  {"artist"},
		"limit": {strconv.Itoa(limit)},
	}
	if !c.get(ctx, "search_artists", "/search", params, &result) {
		return nil
	}
	if result.Artists == nil || len(result.Artists.Items) == 0 {
		metrics.SpotifyCalls.WithLabelValues("search_artists", "empty").Inc()
		return nil
	}
	return result.Artists.Items
}

// GetArtist looks up one artist by id. The lookup payload carries the
// artist's genres, which search results omit. Returns nil on failure.
func (c *Client) GetArtist(ctx context.Context, artistID string) *models.SpotifyArtist {
	var artist models.SpotifyArtist
	if !c.get(ctx, "get_artist", "/artists/"+url.PathEscape(artistID), nil, &artist) {
		return nil
	}
	if artist.ID == "" {
		metrics.SpotifyCalls.WithLabelValues("get_artist", "empty").Inc()
		return nil
	}
	return &artist
}

// GetArtistTopTracks fetches an artist's top tracks for the configured
// market. Returns nil on failure.
func (c *Client) GetArtistTopTracks(ctx context.Context, artistID string) []models.SpotifyTrack {
	params := url.Values{}
	if c.cfg.Market != "" {
		params.Set("market", c.cfg.Market)
	}
	var result models.SpotifyTopTracksResponse
	if !c.get(ctx, "top_tracks", "/artists/"+url.PathEscape(artistID)+"/top-tracks", params, &result) {
		return nil
	}
	if len(result.Tracks) == 0 {
		metrics.SpotifyCalls.WithLabelValues("top_tracks", "empty").Inc()
		return nil
	}
	return result.Tracks
}

// GetRelatedArtists fetches artists related to the given one, capped at
// five. Returns nil on failure.
func (c *Client) GetRelatedArtists(ctx context.Context, artistID string) []models.SpotifyArtist {
	var result models.SpotifyRelatedArtistsResponse
	if !c.get(ctx, "related_artists", "/artists/"+url.PathEscape(artistID)+"/related-artists", nil, &result) {
		return nil
	}
	if len(result.Artists) == 0 {
		metrics.SpotifyCalls.WithLabelValues("related_artists", "empty").Inc()
		return nil
	}
	if len(result.Artists) > maxRelatedArtists {
		return result.Artists[:maxRelatedArtists]
	}
	return result.Artists
}

// GetTrack looks up one track by id. Returns nil on failure.
func (c *Client) GetTrack(ctx context.Context, trackID string) *models.SpotifyTrack {
	var track models.SpotifyTrack
	if !c.get(ctx, "get_track", "/tracks/"+url.PathEscape(trackID), nil, &track) {
		return nil
	}
	if track.ID == "" {
		metrics.SpotifyCalls.WithLabelValues("get_track", "empty").Inc()
		return nil
	}
	return &track
}

// AvailableGenreSeeds fetches the genre seed vocabulary. Returns nil on
// failure.
func (c *Client) AvailableGenreSeeds(ctx context.Context) []string {
	var result models.SpotifyGenreSeedsResponse
	if !c.get(ctx, "genre_seeds", "/recommendations/available-genre-seeds", nil, &result) {
		return nil
	}
	if len(result.Genres) == 0 {
		metrics.SpotifyCalls.WithLabelValues("genre_seeds", "empty").Inc()
		return nil
	}
	return result.Genres
}

// get issues one authorized GET and decodes the body into out. It reports
// whether the call succeeded; failures are logged and counted, never
// returned. No retry happens at this layer.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out any) bool {
	if err := c.limiter.Wait(ctx); err != nil {
		c.fail(endpoint, path, err)
		return false
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.fail(endpoint, path, err)
		return false
	}

	_, err = c.breaker.Execute(func() (*resty.Response, error) {
		req := c.http.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetResult(out)
		if len(params) > 0 {
			req.SetQueryParamsFromValues(params)
		}
		resp, err := req.Get(path)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("status %d", resp.StatusCode())
		}
		return resp, nil
	})
	if err != nil {
		c.fail(endpoint, path, err)
		return false
	}

	metrics.SpotifyCalls.WithLabelValues(endpoint, "ok").Inc()
	return true
}

func (c *Client) fail(endpoint, path string, err error) {
	metrics.SpotifyCalls.WithLabelValues(endpoint, "error").Inc()
	logging.Warn().
		Err(err).
		Str("endpoint", endpoint).
		Str("path", path).
		Msg("spotify call failed")
}
