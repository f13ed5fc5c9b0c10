// Resonate - Music Taste Profiles and Track Recommendations
// Copyright 2026 Resonate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonate-audio/resonate

package spotify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/resonate-audio/resonate/internal/config"
	"github.com/resonate-audio/resonate/internal/kvcache"
	"github.com/resonate-audio/resonate/internal/logging"
	"github.com/resonate-audio/resonate/internal/metrics"
	"github.com/resonate-audio/resonate/internal/models"
)

// tokenSafetyMargin is subtracted from the issuer-declared expiry so a token
// handed out near its deadline cannot expire mid-request.
const tokenSafetyMargin = 5 * time.Minute

// TokenSource hands out a valid client-credentials access token, caching it
// in the shared key-value store for its declared lifetime minus a safety
// margin. All workers in the process share one cached token.
type TokenSource struct {
	cfg   *config.SpotifyConfig
	cache kvcache.Store
	http  *resty.Client
}

// NewTokenSource builds a token source backed by the given cache store.
func NewTokenSource(cfg *config.SpotifyConfig, cache kvcache.Store) *TokenSource {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &TokenSource{cfg: cfg, cache: cache, http: client}
}

// Token returns a cached access token, performing a fresh exchange when the
// cache has none. Exchange failure is fatal for the calling operation; there
// is no local retry here.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	var cached string
	found, err := ts.cache.Get(ctx, kvcache.TokenKey, &cached)
	if err != nil {
		logging.Warn().Err(err).Msg("token cache read failed, exchanging fresh token")
	}
	if found && cached != "" {
		return cached, nil
	}
	return ts.exchange(ctx)
}

// Invalidate drops the cached token so the next call performs an exchange.
func (ts *TokenSource) Invalidate(ctx context.Context) error {
	return ts.cache.Delete(ctx, kvcache.TokenKey)
}

func (ts *TokenSource) exchange(ctx context.Context) (string, error) {
	metrics.SpotifyTokenExchanges.Inc()

	var token models.SpotifyTokenResponse
	resp, err := ts.http.R().
		SetContext(ctx).
		SetBasicAuth(ts.cfg.ClientID, ts.cfg.ClientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		SetResult(&token).
		Post(ts.cfg.AuthURL)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("token exchange: status %d", resp.StatusCode())
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token exchange: empty access_token in response")
	}

	ttl := time.Duration(token.ExpiresIn)*time.Second - tokenSafetyMargin
	if ttl <= 0 {
		// Short-lived token; use it but do not cache.
		logging.Warn().Int("expires_in", token.ExpiresIn).Msg("token lifetime below safety margin, not caching")
		return token.AccessToken, nil
	}

	if err := ts.cache.Set(ctx, kvcache.TokenKey, token.AccessToken, ttl); err != nil {
		logging.Warn().Err(err).Msg("token cache write failed")
	}
	logging.Debug().Dur("ttl", ttl).Msg("cached fresh access token")
	return token.AccessToken, nil
}
