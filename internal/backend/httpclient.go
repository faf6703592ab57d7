// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Portal API paths. These are fixed by the portal contract, not configurable.
const (
	epVersion         = "/api/version"
	epDeviceLink      = "/api/device/link"
	epDeviceToken     = "/api/device/token"
	epDeviceCheck     = "/api/device/check"
	epLogout          = "/api/auth/logout"
	epMe              = "/api/me"
	epGames           = "/api/games"
	epProgression     = "/api/progression"
	epProgressionSync = "/api/progression/sync"
)

// HTTP implements API over the portal's REST endpoints.
// User data is cached in memory to support offline scenarios and reduce
// round trips to the portal.
type HTTP struct {
	// baseURL is the portal origin (e.g. "https://celestial-arcade.app")
	baseURL string
	// client is the underlying HTTP client with configured timeout
	client *http.Client
	// meCache stores user data from /api/me for offline access
	meCache map[string]any
	// meCacheTime tracks when the cache was last updated
	meCacheTime time.Time
}

// newHTTP creates a portal client for the given base URL with a 10-second
// request timeout.
func newHTTP(baseURL string) *HTTP {
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// setStandardHeaders applies headers common to every portal request.
func (h *HTTP) setStandardHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json, */*")
	req.Header.Set("User-Agent", "arcade-client")
}

// GetVersion calls GET /api/version and returns the version string when
// available. No authentication required, which makes it the standard
// connectivity probe.
func (h *HTTP) GetVersion(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+epVersion, nil)
	if err != nil {
		return "", err
	}
	h.setStandardHeaders(req)
	resp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "unknown", nil
	}
	var out struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Version == "" {
		return "unknown", nil
	}
	return out.Version, nil
}
