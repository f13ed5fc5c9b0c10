// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package database

import "fmt"

// schemaStatements creates all tables and indexes. Statements are idempotent
// so startup can re-run them safely.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email VARCHAR NOT NULL UNIQUE,
		username VARCHAR NOT NULL,
		password_hash VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS user_profiles (
		user_id UUID PRIMARY KEY,
		favorite_genres VARCHAR NOT NULL DEFAULT '[]',
		favorite_artists VARCHAR NOT NULL DEFAULT '[]',
		moods VARCHAR NOT NULL DEFAULT '[]',
		preferences VARCHAR NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS recommendations (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		track_id VARCHAR NOT NULL,
		track_name VARCHAR NOT NULL,
		artist_name VARCHAR NOT NULL,
		album_name VARCHAR NOT NULL DEFAULT '',
		preview_url VARCHAR NOT NULL DEFAULT '',
		spotify_url VARCHAR NOT NULL DEFAULT '',
		album_art_url VARCHAR NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		popularity INTEGER NOT NULL DEFAULT 0,
		metadata VARCHAR NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recommendations_user_created
		ON recommendations (user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_recommendations_track
		ON recommendations (track_id)`,

	`CREATE TABLE IF NOT EXISTS recommendation_logs (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		fetched_at TIMESTAMP NOT NULL,
		recommendations_count INTEGER NOT NULL DEFAULT 0,
		source VARCHAR NOT NULL DEFAULT 'spotify',
		status VARCHAR NOT NULL DEFAULT 'success',
		error_message VARCHAR NOT NULL DEFAULT '',
		metadata VARCHAR NOT NULL DEFAULT '{}'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recommendation_logs_user_fetched
		ON recommendation_logs (user_id, fetched_at)`,

	`CREATE TABLE IF NOT EXISTS user_activities (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		recommendation_id UUID,
		track_id VARCHAR NOT NULL,
		track_name VARCHAR NOT NULL,
		artist_name VARCHAR NOT NULL,
		action VARCHAR NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		metadata VARCHAR NOT NULL DEFAULT '{}'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_activities_user_ts
		ON user_activities (user_id, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_user_activities_action_ts
		ON user_activities (action, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_user_activities_track
		ON user_activities (track_id)`,
}

// initialize creates the schema.
func (db *DB) initialize() error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
