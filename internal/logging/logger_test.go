// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRejectsInvalidLevel(t *testing.T) {
	err := Init(Config{Level: "loud", Format: "json"})
	require.Error(t, err)
}

func TestInitAndLog(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: "debug", Format: "json", Output: &buf}))
	defer func() { _ = Init(DefaultConfig()) }()

	Info().Str("key", "value").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "info", entry["level"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: "warn", Format: "json", Output: &buf}))
	defer func() { _ = Init(DefaultConfig()) }()

	Debug().Msg("suppressed")
	Info().Msg("suppressed")
	Warn().Msg("emitted")

	assert.NotContains(t, buf.String(), "suppressed")
	assert.Contains(t, buf.String(), "emitted")
}

func TestLevelHelpers(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: "trace", Format: "json", Output: &buf}))
	defer func() { _ = Init(DefaultConfig()) }()

	Trace().Msg("trace line")
	Debug().Msg("debug line")
	Info().Msg("info line")
	Warn().Msg("warn line")
	Error().Msg("error line")

	for _, want := range []string{"trace line", "debug line", "info line", "warn line", "error line"} {
		assert.Contains(t, buf.String(), want)
	}
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: "info", Format: "json", Output: &buf}))
	defer func() { _ = Init(DefaultConfig()) }()

	logger := Component("scheduler")
	logger.Info().Msg("tick")
	assert.Contains(t, buf.String(), `"component":"scheduler"`)
}

func TestCtxCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: "info", Format: "json", Output: &buf}))
	defer func() { _ = Init(DefaultConfig()) }()

	ctx := ContextWithRequestID(context.Background(), "req-123")
	logger := Ctx(ctx)
	logger.Info().Msg("traced")
	assert.Contains(t, buf.String(), `"request_id":"req-123"`)

	assert.Equal(t, "req-123", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: "debug", Format: "json", Output: &buf}))
	defer func() { _ = Init(DefaultConfig()) }()

	slogger := NewSlogLogger()
	slogger.Info("supervisor event", slog.String("service", "worker"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "supervisor event", entry["message"])
	assert.Equal(t, "worker", entry["service"])
}

func TestSlogAdapterGroups(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: "debug", Format: "json", Output: &buf}))
	defer func() { _ = Init(DefaultConfig()) }()

	slogger := NewSlogLogger().WithGroup("job").With(slog.String("id", "42"))
	slogger.Warn("retry scheduled")
	assert.Contains(t, buf.String(), `"job.id":"42"`)
}
