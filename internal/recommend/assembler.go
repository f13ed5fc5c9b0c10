// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

// Package recommend builds recommendation candidate lists by expanding seed
// genres, artists, and tracks through catalog searches.
package recommend

import (
	"context"
	"fmt"

	"github.com/resonate-audio/resonate/internal/logging"
	"github.com/resonate-audio/resonate/internal/models"
)

// Strategy fan-out caps. Each strategy only consumes a fixed prefix of its
// seed list so one oversized profile cannot monopolize the catalog budget.
const (
	maxGenreSeeds     = 3
	maxArtistSeeds    = 2
	maxTrackSeeds     = 2
	genreBonusTracks  = 3
	similarPerTrack   = 3
	spotifyIDLength   = 22
	fallbackQuery     = "year:2023-2025"
	artistSearchLimit = 1
)

// Catalog is the subset of the Spotify client the assembler composes. All
// methods return nil on failure; the assembler treats that as an empty
// contribution.
type Catalog interface {
	SearchTracks(ctx context.Context, query string, limit int) []models.SpotifyTrack
	SearchArtists(ctx context.Context, query string, limit int) []models.SpotifyArtist
	GetArtist(ctx context.Context, artistID string) *models.SpotifyArtist
	GetArtistTopTracks(ctx context.Context, artistID string) []models.SpotifyTrack
	GetTrack(ctx context.Context, trackID string) *models.SpotifyTrack
}

// Seeds are the inputs to one assembly run. Empty lists are valid; all-empty
// triggers the recency fallback.
type Seeds struct {
	Genres  []string
	Artists []string
	Tracks  []string
}

// Empty reports whether no seeds were supplied at all.
func (s Seeds) Empty() bool {
	return len(s.Genres) == 0 && len(s.Artists) == 0 && len(s.Tracks) == 0
}

// Assembler turns seeds into a deduplicated, limit-bounded track list.
type Assembler struct {
	catalog Catalog
}

// NewAssembler builds an assembler over the given catalog.
func NewAssembler(catalog Catalog) *Assembler {
	return &Assembler{catalog: catalog}
}

// Assemble runs the seed-expansion strategies in order, accumulates their
// candidates, and returns the first limit unique tracks by id. A nil result
// means assembly failed entirely; callers treat it as "no recommendations
// available", not as a crash. Any panic inside a strategy is caught and
// downgraded the same way so a single bad seed cannot abort the whole call.
func (a *Assembler) Assemble(ctx context.Context, seeds Seeds, limit int) (tracks []models.SpotifyTrack) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Str("panic", fmt.Sprint(r)).
				Msg("assembly aborted, returning no recommendations")
			tracks = nil
		}
	}()

	if limit <= 0 {
		return nil
	}

	var candidates []models.SpotifyTrack
	candidates = append(candidates, a.genreStrategy(ctx, seeds.Genres, limit)...)
	candidates = append(candidates, a.artistStrategy(ctx, seeds.Artists, limit)...)
	candidates = append(candidates, a.trackSeedStrategy(ctx, seeds.Tracks)...)

	if seeds.Empty() {
		candidates = append(candidates, a.catalog.SearchTracks(ctx, fallbackQuery, limit)...)
	}

	return dedupe(candidates, limit)
}

// genreStrategy searches tracks per genre, splitting the limit evenly across
// up to the first three genres.
func (a *Assembler) genreStrategy(ctx context.Context, genres []string, limit int) []models.SpotifyTrack {
	if len(genres) == 0 {
		return nil
	}
	if len(genres) > maxGenreSeeds {
		genres = genres[:maxGenreSeeds]
	}
	perGenre := limit / len(genres)
	if perGenre == 0 {
		return nil
	}

	var out []models.SpotifyTrack
	for _, genre := range genres {
		out = append(out, a.catalog.SearchTracks(ctx, "genre:"+genre, perGenre)...)
	}
	return out
}

// artistStrategy resolves up to the first two artist identifiers to catalog
// ids, pulls their top tracks, and supplements each with a small genre
// search on the artist's primary genre. The genre search substitutes for
// related-artist expansion, which the upstream API restricts.
func (a *Assembler) artistStrategy(ctx context.Context, artists []string, limit int) []models.SpotifyTrack {
	if len(artists) == 0 {
		return nil
	}
	if len(artists) > maxArtistSeeds {
		artists = artists[:maxArtistSeeds]
	}
	// A zero share still runs the loop: the genre bonus applies per resolved
	// artist regardless of the top-tracks budget.
	perArtist := limit / len(artists)

	var out []models.SpotifyTrack
	for _, ident := range artists {
		artistID := a.resolveArtistID(ctx, ident)
		if artistID == "" {
			continue
		}

		top := a.catalog.GetArtistTopTracks(ctx, artistID)
		if len(top) > perArtist {
			top = top[:perArtist]
		}
		out = append(out, top...)

		if artist := a.catalog.GetArtist(ctx, artistID); artist != nil && len(artist.Genres) > 0 {
			out = append(out, a.catalog.SearchTracks(ctx, "genre:"+artist.Genres[0], genreBonusTracks)...)
		}
	}
	return out
}

// resolveArtistID treats a 22-character identifier as a catalog id and
// resolves anything else through artist search. Returns "" when the name
// cannot be resolved.
func (a *Assembler) resolveArtistID(ctx context.Context, ident string) string {
	if len(ident) == spotifyIDLength {
		return ident
	}
	found := a.catalog.SearchArtists(ctx, ident, artistSearchLimit)
	if len(found) == 0 {
		logging.Debug().Str("artist", ident).Msg("artist seed unresolvable, skipping")
		return ""
	}
	return found[0].ID
}

// trackSeedStrategy expands up to the first two seed tracks into a few
// tracks by the same primary artist.
func (a *Assembler) trackSeedStrategy(ctx context.Context, trackIDs []string) []models.SpotifyTrack {
	if len(trackIDs) == 0 {
		return nil
	}
	if len(trackIDs) > maxTrackSeeds {
		trackIDs = trackIDs[:maxTrackSeeds]
	}

	var out []models.SpotifyTrack
	for _, id := range trackIDs {
		track := a.catalog.GetTrack(ctx, id)
		if track == nil {
			continue
		}
		name := track.PrimaryArtistName()
		if name == "" {
			continue
		}
		out = append(out, a.catalog.SearchTracks(ctx, "artist:"+name, similarPerTrack)...)
	}
	return out
}

// dedupe keeps the first occurrence per track id, in candidate order,
// stopping once limit uniques are collected.
func dedupe(candidates []models.SpotifyTrack, limit int) []models.SpotifyTrack {
	seen := make(map[string]struct{}, limit)
	var out []models.SpotifyTrack
	for _, track := range candidates {
		if track.ID == "" {
			continue
		}
		if _, dup := seen[track.ID]; dup {
			continue
		}
		seen[track.ID] = struct{}{}
		out = append(out, track)
		if len(out) == limit {
			break
		}
	}
	return out
}
