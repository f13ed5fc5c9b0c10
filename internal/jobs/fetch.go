// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/resonate-audio/resonate/internal/config"
	"github.com/resonate-audio/resonate/internal/database"
	"github.com/resonate-audio/resonate/internal/kvcache"
	"github.com/resonate-audio/resonate/internal/logging"
	"github.com/resonate-audio/resonate/internal/metrics"
	"github.com/resonate-audio/resonate/internal/models"
	"github.com/resonate-audio/resonate/internal/recommend"
)

// Terminal job outcomes, used for metrics labels.
const (
	outcomeSuccess      = "success"
	outcomeFailed       = "failed"
	outcomeUserNotFound = "user_not_found"
)

// errNoRecommendations marks an assembly run that produced nothing; the
// attempt is retryable.
var errNoRecommendations = errors.New("no recommendations available")

// Runner executes fetch jobs: seed resolution, assembly, persistence,
// pruning, cache refresh, and logging, with a fixed-delay retry budget.
type Runner struct {
	db          *database.DB
	assembler   *recommend.Assembler
	cache       kvcache.Store
	cfg         *config.JobsConfig
	snapshotTTL time.Duration

	// sleep pauses between attempts; tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRunner wires a fetch job runner.
func NewRunner(db *database.DB, assembler *recommend.Assembler, cache kvcache.Store,
	cfg *config.JobsConfig, snapshotTTL time.Duration) *Runner {
	return &Runner{
		db:          db,
		assembler:   assembler,
		cache:       cache,
		cfg:         cfg,
		snapshotTTL: snapshotTTL,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run executes one fetch job to its terminal state. An unknown user is
// terminal immediately; any other failure is retried with a fixed delay
// until the attempt budget is spent. Each failed attempt leaves an error row
// in the fetch log. Run itself returns nil for every terminal state; the
// outcome is observable through logs and metrics, not the return value.
func (r *Runner) Run(ctx context.Context, payload FetchPayload) error {
	start := time.Now()
	log := logging.With().
		Str("job_id", payload.JobID.String()).
		Str("user_id", payload.UserID.String()).
		Logger()

	user, err := r.db.GetUser(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			log.Warn().Msg("fetch job for unknown user, dropping")
			metrics.JobsProcessed.WithLabelValues(outcomeUserNotFound).Inc()
			metrics.JobDuration.WithLabelValues(outcomeUserNotFound).Observe(time.Since(start).Seconds())
			return nil
		}
		// Store unavailable before the job properly started; let the retry
		// loop below handle it like any other transient failure.
		log.Warn().Err(err).Msg("user lookup failed, treating as transient")
	}

	limit := payload.Limit
	if limit <= 0 {
		limit = r.cfg.DefaultLimit
	}

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		metrics.JobAttempts.Inc()

		seeds := r.resolveSeeds(ctx, payload)
		err := r.attempt(ctx, payload, user, seeds, limit)
		if err == nil {
			log.Info().Int("attempt", attempt).Msg("fetch job succeeded")
			metrics.JobsProcessed.WithLabelValues(outcomeSuccess).Inc()
			metrics.JobDuration.WithLabelValues(outcomeSuccess).Observe(time.Since(start).Seconds())
			return nil
		}

		log.Warn().Err(err).Int("attempt", attempt).Msg("fetch attempt failed")
		r.logError(ctx, payload, seeds, err)

		if attempt < r.cfg.MaxAttempts {
			if sleepErr := r.sleep(ctx, r.cfg.RetryDelay); sleepErr != nil {
				log.Warn().Err(sleepErr).Msg("retry wait interrupted, abandoning job")
				break
			}
		}
	}

	log.Error().Int("attempts", r.cfg.MaxAttempts).Msg("fetch job exhausted retries")
	metrics.JobsProcessed.WithLabelValues(outcomeFailed).Inc()
	metrics.JobDuration.WithLabelValues(outcomeFailed).Observe(time.Since(start).Seconds())
	return nil
}

// resolveSeeds prefers explicit payload seeds, then profile genres, then the
// configured defaults. A broken profile read falls back to defaults rather
// than failing the job.
func (r *Runner) resolveSeeds(ctx context.Context, payload FetchPayload) recommend.Seeds {
	if len(payload.SeedGenres) > 0 || len(payload.SeedArtists) > 0 {
		return recommend.Seeds{Genres: payload.SeedGenres, Artists: payload.SeedArtists}
	}

	profile, err := r.db.GetUserProfile(ctx, payload.UserID)
	if err != nil {
		logging.Warn().Err(err).Str("user_id", payload.UserID.String()).
			Msg("profile unreadable, using default seed genres")
		return recommend.Seeds{Genres: r.cfg.DefaultGenres}
	}
	if profile == nil || len(profile.FavoriteGenres) == 0 {
		return recommend.Seeds{Genres: r.cfg.DefaultGenres}
	}

	genres := profile.FavoriteGenres
	if len(genres) > r.cfg.ProfileGenreLimit {
		genres = genres[:r.cfg.ProfileGenreLimit]
	}
	return recommend.Seeds{Genres: genres}
}

// attempt runs one assembly-persist-prune-cache cycle. Any returned error is
// retryable.
func (r *Runner) attempt(ctx context.Context, payload FetchPayload, user *models.User,
	seeds recommend.Seeds, limit int) error {
	if user == nil {
		// Lookup failed transiently in Run; try again so the job can still
		// distinguish unknown users from store outages.
		var err error
		user, err = r.db.GetUser(ctx, payload.UserID)
		if err != nil {
			return fmt.Errorf("resolve user: %w", err)
		}
	}

	tracks := r.assembler.Assemble(ctx, seeds, limit)
	if len(tracks) == 0 {
		return errNoRecommendations
	}

	recs := make([]models.Recommendation, 0, len(tracks))
	for i := range tracks {
		recs = append(recs, trackToRecommendation(user, &tracks[i]))
	}
	if err := r.db.InsertRecommendations(ctx, recs); err != nil {
		return fmt.Errorf("persist recommendations: %w", err)
	}

	if count, err := r.db.CountRecommendations(ctx, payload.UserID); err == nil && count > r.cfg.MaxPerUser {
		if removed, err := r.db.PruneRecommendations(ctx, payload.UserID, r.cfg.MaxPerUser); err != nil {
			logging.Warn().Err(err).Str("user_id", payload.UserID.String()).Msg("prune failed")
		} else if removed > 0 {
			logging.Debug().Int("removed", removed).Str("user_id", payload.UserID.String()).Msg("pruned old recommendations")
		}
	}

	if err := r.db.InsertRecommendationLog(ctx, &models.RecommendationLog{
		UserID:   payload.UserID,
		Count:    len(recs),
		Status:   models.LogStatusSuccess,
		Metadata: seedMetadata(seeds),
	}); err != nil {
		return fmt.Errorf("write fetch log: %w", err)
	}

	r.refreshSnapshot(ctx, payload, limit)
	return nil
}

// refreshSnapshot rewrites the user's cached recommendation list. Cache
// trouble never fails the job; the store remains the source of truth.
func (r *Runner) refreshSnapshot(ctx context.Context, payload FetchPayload, limit int) {
	recs, err := r.db.ListRecommendations(ctx, payload.UserID, limit)
	if err != nil {
		logging.Warn().Err(err).Msg("snapshot read-back failed")
		return
	}
	key := kvcache.SnapshotKey(payload.UserID.String())
	if err := r.cache.Set(ctx, key, recs, r.snapshotTTL); err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("snapshot cache write failed")
	}
}

// logError appends an error row to the fetch log. Best effort: a log write
// failure is swallowed so it cannot mask the original error.
func (r *Runner) logError(ctx context.Context, payload FetchPayload, seeds recommend.Seeds, cause error) {
	meta := seedMetadata(seeds)
	if err := r.db.InsertRecommendationLog(ctx, &models.RecommendationLog{
		UserID:       payload.UserID,
		Status:       models.LogStatusError,
		ErrorMessage: cause.Error(),
		Metadata:     meta,
	}); err != nil {
		logging.Warn().Err(err).Msg("error log write failed")
	}
}

func seedMetadata(seeds recommend.Seeds) map[string]any {
	meta := map[string]any{}
	if len(seeds.Genres) > 0 {
		meta["seed_genres"] = seeds.Genres
	}
	if len(seeds.Artists) > 0 {
		meta["seed_artists"] = seeds.Artists
	}
	if len(seeds.Tracks) > 0 {
		meta["seed_tracks"] = seeds.Tracks
	}
	return meta
}

// trackToRecommendation flattens a catalog track into a stored row: artist
// names joined with ", ", first artwork rendition, link and preview URLs
// defaulted to empty.
func trackToRecommendation(user *models.User, track *models.SpotifyTrack) models.Recommendation {
	names := make([]string, 0, len(track.Artists))
	for _, a := range track.Artists {
		names = append(names, a.Name)
	}

	albumArt := ""
	if len(track.Album.Images) > 0 {
		albumArt = track.Album.Images[0].URL
	}

	return models.Recommendation{
		UserID:      user.ID,
		TrackID:     track.ID,
		TrackName:   track.Name,
		ArtistName:  strings.Join(names, ", "),
		AlbumName:   track.Album.Name,
		PreviewURL:  track.PreviewURL,
		SpotifyURL:  track.ExternalURLs.Spotify,
		AlbumArtURL: albumArt,
		DurationMS:  track.DurationMS,
		Popularity:  track.Popularity,
		Metadata: map[string]any{
			"artists": names,
			"album":   track.Album.Name,
		},
	}
}
