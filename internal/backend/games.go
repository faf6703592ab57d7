// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Game is one catalog entry as the portal reports it. TierRequired gates
// visibility server-side; the client only ever sees games it may play.
type Game struct {
	ID           string `json:"id"`
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Version      string `json:"version"`
	TierRequired string `json:"tierRequired"`
	ManifestPath string `json:"manifestPath"`
	SizeBytes    int64  `json:"sizeBytes"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

// ListGames calls GET /api/games and returns the catalog visible at the
// caller's subscription tier.
func (h *HTTP) ListGames(ctx context.Context, accessToken string) ([]Game, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+epGames, nil)
	if err != nil {
		return nil, err
	}
	h.setStandardHeaders(req)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, errors.New("unauthorized")
		}
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("list-games failed: %d %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out struct {
		Games []Game `json:"games"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Games, nil
}
