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
	"time"
)

// GetMe calls GET /api/me with Authorization header.
// Results are cached in memory for 10 minutes so identity commands keep
// working offline. Returns user data as a map, or an error if the request
// fails and no cached data is available.
func (h *HTTP) GetMe(ctx context.Context, accessToken string) (map[string]any, error) {
	if h.meCache != nil && time.Since(h.meCacheTime) < 10*time.Minute {
		return h.meCache, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+epMe, nil)
	if err != nil {
		if h.meCache != nil {
			return h.meCache, nil
		}
		return nil, err
	}
	h.setStandardHeaders(req)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		// Network error, fall back to cached identity
		if h.meCache != nil {
			return h.meCache, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if h.meCache != nil {
			return h.meCache, nil
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, errors.New("unauthorized")
		}
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get-me failed: %d %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var userData map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&userData); err != nil {
		if h.meCache != nil {
			return h.meCache, nil
		}
		return nil, err
	}

	h.meCache = userData
	h.meCacheTime = time.Now()
	return userData, nil
}
