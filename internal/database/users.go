// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/resonate-audio/resonate/internal/metrics"
	"github.com/resonate-audio/resonate/internal/models"
)

// CreateUser inserts a new user. Returns ErrDuplicateEmail when the email is
// already registered.
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	start := time.Now()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, username, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Username, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	metrics.ObserveDBQuery("insert", "users", time.Since(start), err)
	if err != nil {
		if strings.Contains(err.Error(), "unique") || strings.Contains(err.Error(), "Duplicate") {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser fetches a user by ID. Returns ErrUserNotFound when absent.
func (db *DB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	start := time.Now()

	row := db.conn.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash, created_at, updated_at
		 FROM users WHERE id = ?`, id)

	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash,
		&user.CreatedAt, &user.UpdatedAt)
	metrics.ObserveDBQuery("select", "users", time.Since(start), err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

// UpdateUser applies non-empty fields from req to the user.
func (db *DB) UpdateUser(ctx context.Context, id uuid.UUID, req *models.UpdateUserRequest) (*models.User, error) {
	user, err := db.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Username != "" {
		user.Username = req.Username
	}
	user.UpdatedAt = time.Now().UTC()

	start := time.Now()
	_, err = db.conn.ExecContext(ctx,
		`UPDATE users SET email = ?, username = ?, updated_at = ? WHERE id = ?`,
		user.Email, user.Username, user.UpdatedAt, id)
	metrics.ObserveDBQuery("update", "users", time.Since(start), err)
	if err != nil {
		if strings.Contains(err.Error(), "unique") || strings.Contains(err.Error(), "Duplicate") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// DeleteUser removes a user and all dependent rows.
func (db *DB) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if _, err := db.GetUser(ctx, id); err != nil {
		return err
	}

	start := time.Now()
	var err error
	for _, stmt := range []string{
		`DELETE FROM user_activities WHERE user_id = ?`,
		`DELETE FROM recommendation_logs WHERE user_id = ?`,
		`DELETE FROM recommendations WHERE user_id = ?`,
		`DELETE FROM user_profiles WHERE user_id = ?`,
		`DELETE FROM users WHERE id = ?`,
	} {
		if _, err = db.conn.ExecContext(ctx, stmt, id); err != nil {
			break
		}
	}
	metrics.ObserveDBQuery("delete", "users", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// ListUsers returns all users ordered by creation time.
func (db *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	start := time.Now()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, email, username, password_hash, created_at, updated_at
		 FROM users ORDER BY created_at`)
	metrics.ObserveDBQuery("select", "users", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash,
			&u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpsertProfile creates or replaces a user's preference profile.
func (db *DB) UpsertProfile(ctx context.Context, profile *models.UserProfile) error {
	if _, err := db.GetUser(ctx, profile.UserID); err != nil {
		return err
	}

	genres, err := encodeJSON(sliceOrEmpty(profile.FavoriteGenres))
	if err != nil {
		return err
	}
	artists, err := encodeJSON(sliceOrEmpty(profile.FavoriteArtists))
	if err != nil {
		return err
	}
	moods, err := encodeJSON(sliceOrEmpty(profile.Moods))
	if err != nil {
		return err
	}
	prefs, err := encodeJSON(profile.Preferences)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	start := time.Now()
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO user_profiles
			(user_id, favorite_genres, favorite_artists, moods, preferences, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
			favorite_genres = excluded.favorite_genres,
			favorite_artists = excluded.favorite_artists,
			moods = excluded.moods,
			preferences = excluded.preferences,
			updated_at = excluded.updated_at`,
		profile.UserID, genres, artists, moods, prefs, profile.CreatedAt, profile.UpdatedAt)
	metrics.ObserveDBQuery("upsert", "user_profiles", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// GetUserProfile fetches a user's profile. A missing profile returns
// (nil, nil): "absent" is an expected state, distinct from query failure, so
// callers branch on it explicitly instead of swallowing errors.
func (db *DB) GetUserProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	start := time.Now()

	row := db.conn.QueryRowContext(ctx,
		`SELECT user_id, favorite_genres, favorite_artists, moods, preferences, created_at, updated_at
		 FROM user_profiles WHERE user_id = ?`, userID)

	var (
		profile models.UserProfile
		genres  string
		artists string
		moods   string
		prefs   string
	)
	err := row.Scan(&profile.UserID, &genres, &artists, &moods, &prefs,
		&profile.CreatedAt, &profile.UpdatedAt)
	metrics.ObserveDBQuery("select", "user_profiles", time.Since(start), err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select profile: %w", err)
	}

	if profile.FavoriteGenres, err = decodeJSONSlice(genres); err != nil {
		return nil, err
	}
	if profile.FavoriteArtists, err = decodeJSONSlice(artists); err != nil {
		return nil, err
	}
	if profile.Moods, err = decodeJSONSlice(moods); err != nil {
		return nil, err
	}
	if profile.Preferences, err = decodeJSONMap(prefs); err != nil {
		return nil, err
	}
	return &profile, nil
}

func sliceOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
