// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/resonate-audio/resonate/internal/metrics"
	"github.com/resonate-audio/resonate/internal/models"
)

// InsertRecommendations stores one batch of recommendations for a user.
// Rows are immutable after creation; only pruning removes them.
func (db *DB) InsertRecommendations(ctx context.Context, recs []models.Recommendation) error {
	start := time.Now()

	var err error
	for i := range recs {
		rec := &recs[i]
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now().UTC()
		}

		var meta string
		if meta, err = encodeJSON(rec.Metadata); err != nil {
			break
		}

		if _, err = db.conn.ExecContext(ctx,
			`INSERT INTO recommendations
				(id, user_id, track_id, track_name, artist_name, album_name,
				 preview_url, spotify_url, album_art_url, duration_ms, popularity,
				 metadata, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.UserID, rec.TrackID, rec.TrackName, rec.ArtistName,
			rec.AlbumName, rec.PreviewURL, rec.SpotifyURL, rec.AlbumArtURL,
			rec.DurationMS, rec.Popularity, meta, rec.CreatedAt); err != nil {
			break
		}
	}
	metrics.ObserveDBQuery("insert", "recommendations", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("insert recommendations: %w", err)
	}
	return nil
}

// ListRecommendations returns the limit most recent recommendations for a
// user, newest first.
func (db *DB) ListRecommendations(ctx context.Context, userID uuid.UUID, limit int) ([]models.Recommendation, error) {
	start := time.Now()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, track_id, track_name, artist_name, album_name,
			preview_url, spotify_url, album_art_url, duration_ms, popularity,
			metadata, created_at
		 FROM recommendations
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, userID, limit)
	metrics.ObserveDBQuery("select", "recommendations", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	defer rows.Close()

	var recs []models.Recommendation
	for rows.Next() {
		var (
			rec  models.Recommendation
			meta string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.TrackID, &rec.TrackName,
			&rec.ArtistName, &rec.AlbumName, &rec.PreviewURL, &rec.SpotifyURL,
			&rec.AlbumArtURL, &rec.DurationMS, &rec.Popularity, &meta,
			&rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		if rec.Metadata, err = decodeJSONMap(meta); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// CountRecommendations returns the number of stored recommendations for a
// user.
func (db *DB) CountRecommendations(ctx context.Context, userID uuid.UUID) (int, error) {
	start := time.Now()

	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recommendations WHERE user_id = ?`, userID).Scan(&count)
	metrics.ObserveDBQuery("select", "recommendations", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("count recommendations: %w", err)
	}
	return count, nil
}

// PruneRecommendations deletes all but the keep most recent recommendations
// for a user and returns the number of rows removed.
//
// This is a best-effort retention cap, not a transactional invariant: a
// concurrent refresh for the same user may transiently push the count above
// keep, and a prune may race a concurrent insert. The store intentionally
// does not serialize these; callers treat the cap as advisory.
func (db *DB) PruneRecommendations(ctx context.Context, userID uuid.UUID, keep int) (int, error) {
	start := time.Now()

	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM recommendations
		 WHERE user_id = ?
		   AND id NOT IN (
			SELECT id FROM recommendations
			WHERE user_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		 )`, userID, userID, keep)
	metrics.ObserveDBQuery("delete", "recommendations", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("prune recommendations: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, nil //nolint:nilerr // rows-affected support is driver-dependent
	}
	return int(affected), nil
}

// InsertRecommendationLog appends one fetch-log row. Logs are append-only.
func (db *DB) InsertRecommendationLog(ctx context.Context, log *models.RecommendationLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.FetchedAt.IsZero() {
		log.FetchedAt = time.Now().UTC()
	}
	if log.Source == "" {
		log.Source = models.RecommendationSource
	}

	meta, err := encodeJSON(log.Metadata)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO recommendation_logs
			(id, user_id, fetched_at, recommendations_count, source, status, error_message, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.UserID, log.FetchedAt, log.Count, log.Source, log.Status,
		log.ErrorMessage, meta)
	metrics.ObserveDBQuery("insert", "recommendation_logs", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("insert recommendation log: %w", err)
	}
	return nil
}

// ListRecommendationLogs returns the limit most recent fetch logs for a
// user, newest first.
func (db *DB) ListRecommendationLogs(ctx context.Context, userID uuid.UUID, limit int) ([]models.RecommendationLog, error) {
	start := time.Now()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, fetched_at, recommendations_count, source, status,
			error_message, metadata
		 FROM recommendation_logs
		 WHERE user_id = ?
		 ORDER BY fetched_at DESC, id DESC
		 LIMIT ?`, userID, limit)
	metrics.ObserveDBQuery("select", "recommendation_logs", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list recommendation logs: %w", err)
	}
	defer rows.Close()

	var logs []models.RecommendationLog
	for rows.Next() {
		var (
			log  models.RecommendationLog
			meta string
		)
		if err := rows.Scan(&log.ID, &log.UserID, &log.FetchedAt, &log.Count,
			&log.Source, &log.Status, &log.ErrorMessage, &meta); err != nil {
			return nil, fmt.Errorf("scan recommendation log: %w", err)
		}
		if log.Metadata, err = decodeJSONMap(meta); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
