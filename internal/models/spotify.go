// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package models

// Wire types for the Spotify Web API. Field sets cover only what the
// pipeline consumes; unknown fields are ignored during decoding.

// SpotifyTokenResponse is the client-credentials exchange response.
type SpotifyTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// SpotifyTrack is a track object as returned by search, lookup, and
// top-tracks endpoints.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	PreviewURL   string          `json:"preview_url"`
	DurationMS   int             `json:"duration_ms"`
	Popularity   int             `json:"popularity"`
	ExternalURLs SpotifyURLs     `json:"external_urls"`
}

// SpotifyArtist is an artist object. Genres are populated only by the
// artist lookup endpoint, not by search or track payloads.
type SpotifyArtist struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Genres       []string    `json:"genres,omitempty"`
	Popularity   int         `json:"popularity,omitempty"`
	ExternalURLs SpotifyURLs `json:"external_urls"`
}

// SpotifyAlbum is the album object embedded in track payloads.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
}

// SpotifyImage is one artwork rendition. Spotify orders images widest first.
type SpotifyImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// SpotifyURLs holds external link targets.
type SpotifyURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifySearchResponse is the /search response for type=track or
// type=artist queries.
type SpotifySearchResponse struct {
	Tracks  *SpotifyPage[SpotifyTrack]  `json:"tracks,omitempty"`
	Artists *SpotifyPage[SpotifyArtist] `json:"artists,omitempty"`
}

// SpotifyPage is the paging container Spotify wraps result lists in.
type SpotifyPage[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// SpotifyTopTracksResponse is the artist top-tracks response.
type SpotifyTopTracksResponse struct {
	Tracks []SpotifyTrack `json:"tracks"`
}

// SpotifyRelatedArtistsResponse is the related-artists response.
type SpotifyRelatedArtistsResponse struct {
	Artists []SpotifyArtist `json:"artists"`
}

// SpotifyGenreSeedsResponse is the available-genre-seeds response.
type SpotifyGenreSeedsResponse struct {
	Genres []string `json:"genres"`
}

// PrimaryArtistName returns the first artist's name, or "" when absent.
func (t *SpotifyTrack) PrimaryArtistName() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].Name
}
