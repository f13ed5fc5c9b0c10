// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

// Package kvcache provides the shared key-value cache used for the Spotify
// access token and per-user recommendation snapshots.
//
// The cache is injected rather than held as process state so that multiple
// worker instances observe the same entries and tests can substitute the
// in-memory implementation. Staleness is bounded by TTL only; writers do not
// invalidate other keys.
package kvcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// Well-known cache keys.
const (
	// TokenKey holds the process-shared Spotify access token.
	TokenKey = "spotify_access_token"

	// snapshotPrefix namespaces per-user recommendation snapshots.
	snapshotPrefix = "user_recommendations_"
)

// SnapshotKey returns the cache key for a user's recommendation snapshot.
func SnapshotKey(userID string) string {
	return snapshotPrefix + userID
}

// Store is a key-value cache with per-key TTL. Values are JSON-encoded.
type Store interface {
	// Get decodes the value at key into dest. The second return is false
	// when the key is absent or expired.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value at key for ttl. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases underlying resources.
	Close() error
}

// MemoryStore is an in-process Store for tests and single-node development.
// Expiry is checked lazily on read.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	data    []byte
	expires time.Time // zero = no expiry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, key string, dest any) (bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if !entry.expires.IsZero() && time.Now().After(entry.expires) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return false, nil
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, fmt.Errorf("decode cache value for %s: %w", key, err)
	}
	return true, nil
}

// Set implements Store.
func (m *MemoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value for %s: %w", key, err)
	}
	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expires = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
