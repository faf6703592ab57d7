// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"celestial/arcade/internal/progression"
)

// GetProgression calls GET /api/progression and returns the authoritative
// snapshot for the authenticated user.
func (h *HTTP) GetProgression(ctx context.Context, accessToken string) (progression.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+epProgression, nil)
	if err != nil {
		return progression.Snapshot{}, err
	}
	h.setStandardHeaders(req)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return progression.Snapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			return progression.Snapshot{}, errors.New("unauthorized")
		}
		b, _ := io.ReadAll(resp.Body)
		return progression.Snapshot{}, fmt.Errorf("get-progression failed: %d %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var snap progression.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return progression.Snapshot{}, err
	}
	return snap, nil
}

// SyncProgression posts one aggregated delta to /api/progression/sync and
// returns the snapshot the server computed from it. The server's response
// is authoritative; the caller replaces local state with it wholesale.
func (h *HTTP) SyncProgression(ctx context.Context, accessToken string, delta progression.Delta) (progression.Snapshot, error) {
	body, err := json.Marshal(delta)
	if err != nil {
		return progression.Snapshot{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+epProgressionSync, bytes.NewReader(body))
	if err != nil {
		return progression.Snapshot{}, err
	}
	h.setStandardHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return progression.Snapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			return progression.Snapshot{}, errors.New("unauthorized")
		}
		b, _ := io.ReadAll(resp.Body)
		return progression.Snapshot{}, fmt.Errorf("sync failed: %d %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out struct {
		Progression *progression.Snapshot `json:"progression"`
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return progression.Snapshot{}, err
	}
	// Accept both { progression: {...} } and a bare snapshot object
	if err := json.Unmarshal(raw, &out); err == nil && out.Progression != nil {
		return *out.Progression, nil
	}
	var snap progression.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return progression.Snapshot{}, err
	}
	return snap, nil
}
