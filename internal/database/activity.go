// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/resonate-audio/resonate/internal/metrics"
	"github.com/resonate-audio/resonate/internal/models"
)

// InsertActivity appends one engagement event.
func (db *DB) InsertActivity(ctx context.Context, activity *models.UserActivity) error {
	if !models.ValidAction(activity.Action) {
		return fmt.Errorf("invalid action %q", activity.Action)
	}
	if _, err := db.GetUser(ctx, activity.UserID); err != nil {
		return err
	}

	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	if activity.Timestamp.IsZero() {
		activity.Timestamp = time.Now().UTC()
	}

	meta, err := encodeJSON(activity.Metadata)
	if err != nil {
		return err
	}

	var recID any
	if activity.RecommendationID != nil {
		recID = *activity.RecommendationID
	}

	start := time.Now()
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO user_activities
			(id, user_id, recommendation_id, track_id, track_name, artist_name,
			 action, timestamp, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		activity.ID, activity.UserID, recID, activity.TrackID, activity.TrackName,
		activity.ArtistName, activity.Action, activity.Timestamp, meta)
	metrics.ObserveDBQuery("insert", "user_activities", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// ListActivities returns the limit most recent activities, optionally
// filtered to one user (nil userID means all users).
func (db *DB) ListActivities(ctx context.Context, userID *uuid.UUID, limit int) ([]models.UserActivity, error) {
	query := `SELECT id, user_id, recommendation_id, track_id, track_name,
			artist_name, action, timestamp, metadata
		 FROM user_activities`
	args := []any{}
	if userID != nil {
		query += ` WHERE user_id = ?`
		args = append(args, *userID)
	}
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.ObserveDBQuery("select", "user_activities", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	return scanActivities(rows)
}

func scanActivities(rows *sql.Rows) ([]models.UserActivity, error) {
	var activities []models.UserActivity
	for rows.Next() {
		var (
			a     models.UserActivity
			recID sql.Null[uuid.UUID]
			meta  string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &recID, &a.TrackID, &a.TrackName,
			&a.ArtistName, &a.Action, &a.Timestamp, &meta); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if recID.Valid {
			id := recID.V
			a.RecommendationID = &id
		}
		var err error
		if a.Metadata, err = decodeJSONMap(meta); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}
