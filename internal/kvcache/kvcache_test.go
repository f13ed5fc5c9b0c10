// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package kvcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonate-audio/resonate/internal/logging"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// storeUnderTest runs the same contract against every Store implementation.
func storeUnderTest(t *testing.T, store Store, expire func(d time.Duration)) {
	t.Helper()
	ctx := context.Background()

	t.Run("get absent key", func(t *testing.T) {
		var out payload
		found, err := store.Get(ctx, "missing", &out)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("set then get", func(t *testing.T) {
		in := payload{Name: "rock", Count: 3}
		require.NoError(t, store.Set(ctx, "k1", in, time.Minute))

		var out payload
		found, err := store.Get(ctx, "k1", &out)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, in, out)
	})

	t.Run("ttl expiry", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "k2", payload{Name: "jazz"}, 50*time.Millisecond))
		expire(100 * time.Millisecond)

		var out payload
		found, err := store.Get(ctx, "k2", &out)
		require.NoError(t, err)
		assert.False(t, found, "expired entry must read as absent")
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "k3", payload{Name: "soul"}, time.Minute))
		require.NoError(t, store.Delete(ctx, "k3"))

		var out payload
		found, err := store.Get(ctx, "k3", &out)
		require.NoError(t, err)
		assert.False(t, found)

		require.NoError(t, store.Delete(ctx, "k3"), "double delete is not an error")
	})
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	storeUnderTest(t, store, func(d time.Duration) { time.Sleep(d) })
}

func TestRedisStore(t *testing.T) {
	srv := miniredis.RunT(t)
	store, err := NewRedisStore(RedisConfig{Addr: srv.Addr()}, logging.Component("test"))
	require.NoError(t, err)
	defer store.Close()

	// miniredis does not advance clocks on its own.
	storeUnderTest(t, store, func(d time.Duration) { srv.FastForward(d) })
}

func TestRedisStoreHealthCheck(t *testing.T) {
	srv := miniredis.RunT(t)
	store, err := NewRedisStore(RedisConfig{Addr: srv.Addr()}, logging.Component("test"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.HealthCheck(context.Background()))
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{Addr: "127.0.0.1:1"}, logging.Component("test"))
	require.Error(t, err)
}

func TestSnapshotKey(t *testing.T) {
	assert.Equal(t, "user_recommendations_abc", SnapshotKey("abc"))
}
