// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/resonate-audio/resonate/internal/metrics"
	"github.com/resonate-audio/resonate/internal/models"
)

const analyticsTopN = 10

// GetAnalyticsSummary computes the service-wide engagement overview.
func (db *DB) GetAnalyticsSummary(ctx context.Context) (*models.AnalyticsSummary, error) {
	start := time.Now()

	summary := &models.AnalyticsSummary{
		ActivitiesByAction: map[string]int{},
		MostActiveUsers:    []models.UserActivityCount{},
	}

	err := db.conn.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM user_activities),
			(SELECT COUNT(*) FROM recommendations)`).
		Scan(&summary.TotalUsers, &summary.TotalActivities, &summary.TotalRecommendations)
	if err != nil {
		metrics.ObserveDBQuery("select", "analytics", time.Since(start), err)
		return nil, fmt.Errorf("analytics totals: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT action, COUNT(*) FROM user_activities GROUP BY action`)
	if err != nil {
		metrics.ObserveDBQuery("select", "analytics", time.Since(start), err)
		return nil, fmt.Errorf("analytics by action: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			action string
			count  int
		)
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("scan action count: %w", err)
		}
		summary.ActivitiesByAction[action] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	userRows, err := db.conn.QueryContext(ctx,
		`SELECT a.user_id, u.email, COUNT(*) AS cnt
		 FROM user_activities a
		 JOIN users u ON u.id = a.user_id
		 GROUP BY a.user_id, u.email
		 ORDER BY cnt DESC
		 LIMIT ?`, analyticsTopN)
	metrics.ObserveDBQuery("select", "analytics", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("analytics active users: %w", err)
	}
	defer userRows.Close()
	for userRows.Next() {
		var uc models.UserActivityCount
		if err := userRows.Scan(&uc.UserID, &uc.Email, &uc.ActivityCount); err != nil {
			return nil, fmt.Errorf("scan active user: %w", err)
		}
		summary.MostActiveUsers = append(summary.MostActiveUsers, uc)
	}
	return summary, userRows.Err()
}

// GetAnalyticsTrends computes what is popular across all users. Genres come
// from profile favorites; artists and tracks come from play/like activity.
func (db *DB) GetAnalyticsTrends(ctx context.Context) (*models.AnalyticsTrends, error) {
	start := time.Now()

	trends := &models.AnalyticsTrends{
		TrendingGenres:  []models.NameCount{},
		TrendingArtists: []models.NameCount{},
		PopularTracks:   []models.TrackCount{},
	}

	// Genre favorites are stored as JSON arrays, one row per profile, so the
	// tally happens here rather than in SQL.
	genreRows, err := db.conn.QueryContext(ctx,
		`SELECT favorite_genres FROM user_profiles`)
	if err != nil {
		metrics.ObserveDBQuery("select", "analytics", time.Since(start), err)
		return nil, fmt.Errorf("trending genres: %w", err)
	}
	defer genreRows.Close()

	genreCounts := map[string]int{}
	for genreRows.Next() {
		var raw string
		if err := genreRows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan profile genres: %w", err)
		}
		genres, err := decodeJSONSlice(raw)
		if err != nil {
			return nil, err
		}
		for _, g := range genres {
			genreCounts[g]++
		}
	}
	if err := genreRows.Err(); err != nil {
		return nil, err
	}
	trends.TrendingGenres = topNameCounts(genreCounts, analyticsTopN)

	artistRows, err := db.conn.QueryContext(ctx,
		`SELECT artist_name, COUNT(*) AS cnt
		 FROM user_activities
		 WHERE artist_name <> ''
		 GROUP BY artist_name
		 ORDER BY cnt DESC
		 LIMIT ?`, analyticsTopN)
	if err != nil {
		metrics.ObserveDBQuery("select", "analytics", time.Since(start), err)
		return nil, fmt.Errorf("trending artists: %w", err)
	}
	defer artistRows.Close()
	for artistRows.Next() {
		var nc models.NameCount
		if err := artistRows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, fmt.Errorf("scan trending artist: %w", err)
		}
		trends.TrendingArtists = append(trends.TrendingArtists, nc)
	}
	if err := artistRows.Err(); err != nil {
		return nil, err
	}

	trackRows, err := db.conn.QueryContext(ctx,
		`SELECT track_id, MAX(track_name), MAX(artist_name), COUNT(*) AS cnt
		 FROM user_activities
		 WHERE action IN (?, ?) AND track_id <> ''
		 GROUP BY track_id
		 ORDER BY cnt DESC
		 LIMIT ?`, models.ActionPlay, models.ActionLike, analyticsTopN)
	metrics.ObserveDBQuery("select", "analytics", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("popular tracks: %w", err)
	}
	defer trackRows.Close()
	for trackRows.Next() {
		var tc models.TrackCount
		if err := trackRows.Scan(&tc.TrackID, &tc.TrackName, &tc.ArtistName, &tc.PlayCount); err != nil {
			return nil, fmt.Errorf("scan popular track: %w", err)
		}
		trends.PopularTracks = append(trends.PopularTracks, tc)
	}
	return trends, trackRows.Err()
}

// GetUserEngagement computes the per-user analytics view.
func (db *DB) GetUserEngagement(ctx context.Context, userID uuid.UUID) (*models.UserEngagement, error) {
	if _, err := db.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	start := time.Now()

	engagement := &models.UserEngagement{
		UserID:             userID,
		ActivitiesByAction: map[string]int{},
		FavoriteArtists:    []models.NameCount{},
		FavoriteTracks:     []models.TrackCount{},
		RecentActivities:   []models.UserActivity{},
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT action, COUNT(*) FROM user_activities WHERE user_id = ? GROUP BY action`,
		userID)
	if err != nil {
		metrics.ObserveDBQuery("select", "analytics", time.Since(start), err)
		return nil, fmt.Errorf("user engagement actions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			action string
			count  int
		)
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("scan action count: %w", err)
		}
		engagement.ActivitiesByAction[action] = count
		engagement.TotalActivities += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	artistRows, err := db.conn.QueryContext(ctx,
		`SELECT artist_name, COUNT(*) AS cnt
		 FROM user_activities
		 WHERE user_id = ? AND artist_name <> ''
		 GROUP BY artist_name
		 ORDER BY cnt DESC
		 LIMIT 5`, userID)
	if err != nil {
		metrics.ObserveDBQuery("select", "analytics", time.Since(start), err)
		return nil, fmt.Errorf("user favorite artists: %w", err)
	}
	defer artistRows.Close()
	for artistRows.Next() {
		var nc models.NameCount
		if err := artistRows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, fmt.Errorf("scan favorite artist: %w", err)
		}
		engagement.FavoriteArtists = append(engagement.FavoriteArtists, nc)
	}
	if err := artistRows.Err(); err != nil {
		return nil, err
	}

	trackRows, err := db.conn.QueryContext(ctx,
		`SELECT track_id, MAX(track_name), MAX(artist_name), COUNT(*) AS cnt
		 FROM user_activities
		 WHERE user_id = ? AND action IN (?, ?) AND track_id <> ''
		 GROUP BY track_id
		 ORDER BY cnt DESC
		 LIMIT 5`, userID, models.ActionPlay, models.ActionLike)
	metrics.ObserveDBQuery("select", "analytics", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("user favorite tracks: %w", err)
	}
	defer trackRows.Close()
	for trackRows.Next() {
		var tc models.TrackCount
		if err := trackRows.Scan(&tc.TrackID, &tc.TrackName, &tc.ArtistName, &tc.PlayCount); err != nil {
			return nil, fmt.Errorf("scan favorite track: %w", err)
		}
		engagement.FavoriteTracks = append(engagement.FavoriteTracks, tc)
	}
	if err := trackRows.Err(); err != nil {
		return nil, err
	}

	recent, err := db.ListActivities(ctx, &userID, analyticsTopN)
	if err != nil {
		return nil, err
	}
	if recent != nil {
		engagement.RecentActivities = recent
	}
	return engagement, nil
}

// topNameCounts orders a tally map by count descending, name ascending for
// ties, and keeps the first n.
func topNameCounts(counts map[string]int, n int) []models.NameCount {
	out := make([]models.NameCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, models.NameCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
