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

// parseBearerToken extracts a token from a value like "Bearer <token>"
// case-insensitively. Returns an empty string for anything else.
func parseBearerToken(value string) string {
	v := strings.TrimSpace(value)
	if len(v) < 7 {
		return ""
	}
	if strings.EqualFold(v[0:6], "bearer") {
		if rest := strings.TrimSpace(v[6:]); rest != "" {
			return rest
		}
	}
	return ""
}

// findBearerTokenInHeaders scans headers for a Bearer token, preferring the
// Authorization header and falling back to any bearer-like value.
func findBearerTokenInHeaders(h http.Header) string {
	if t := parseBearerToken(h.Get("Authorization")); t != "" {
		return t
	}

	for k, vals := range h {
		if strings.EqualFold(k, "authorization") {
			for _, v := range vals {
				if t := parseBearerToken(v); t != "" {
					return t
				}
			}
		}
		for _, v := range vals {
			lower := strings.ToLower(v)
			idx := strings.Index(lower, "bearer ")
			if idx >= 0 {
				token := strings.TrimSpace(v[idx+len("bearer "):])
				if token != "" {
					return token
				}
			}
		}
	}
	return ""
}

// RefreshToken calls POST /api/device/token with a refresh token to get a
// new access token. The portal may choose to rotate the refresh token or
// keep it the same.
func (h *HTTP) RefreshToken(ctx context.Context, refreshToken string) (string, string, error) {
	body := map[string]string{
		"refresh_token": refreshToken,
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+epDeviceToken, strings.NewReader(string(jsonBody)))
	if err != nil {
		return "", "", err
	}
	h.setStandardHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			return "", "", errors.New("refresh token expired or invalid")
		}
		b, _ := io.ReadAll(resp.Body)
		return "", "", fmt.Errorf("refresh-token failed: %d %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", "", err
	}

	newAccessToken := extractAccessToken(result)
	if newAccessToken == "" {
		return "", "", errors.New("no access_token in response")
	}

	// refresh_token is optional; the portal may not rotate it
	return newAccessToken, extractRefreshToken(result), nil
}

// extractAccessToken tries the common field names for an access token.
func extractAccessToken(result map[string]any) string {
	for _, key := range []string{"access_token", "accessToken", "token"} {
		if v, ok := result[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// extractRefreshToken tries the common field names for a refresh token.
func extractRefreshToken(result map[string]any) string {
	for _, key := range []string{"refresh_token", "refreshToken"} {
		if v, ok := result[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
