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
	"net/url"
	"strings"
	"time"
)

// BeginDeviceLink fetches a magic link from /api/device/link.
// It initiates the device authorization flow by requesting a link and device
// code from the portal. Returns the magic link URL, device code, polling
// interval in seconds, and any error.
func (h *HTTP) BeginDeviceLink(ctx context.Context) (string, string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+epDeviceLink, nil)
	if err != nil {
		return "", "", 0, err
	}
	h.setStandardHeaders(req)
	resp, err := h.client.Do(req)
	if err != nil {
		return "", "", 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", "", 0, fmt.Errorf("device-link failed: %s", strings.TrimSpace(string(b)))
	}

	// Be liberal in what we accept: decode into a map first
	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", "", 0, err
	}

	link := extractLink(raw)
	if link == "" {
		return "", "", 0, errors.New("empty magic link")
	}

	deviceID := extractDeviceID(raw, link)
	return link, deviceID, 3, nil
}

// extractLink extracts the magic link from the response payload.
func extractLink(raw map[string]any) string {
	if v, ok := raw["link"].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// extractDeviceID extracts the device code from various possible fields in
// the response. It tries multiple common field names to be resilient to
// portal changes.
func extractDeviceID(raw map[string]any, link string) string {
	candidates := []string{
		"device_id", "deviceId", "code", "user_code", "userCode", "device_code", "deviceCode",
	}
	for _, key := range candidates {
		if v, ok := raw[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	// Fallback: parse from the link URL
	return extractDeviceIDFromURL(link)
}

// extractDeviceIDFromURL attempts to extract a device code from query
// parameters or path segments.
func extractDeviceIDFromURL(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}

	q := u.Query()
	for _, key := range []string{"device_id", "deviceId", "code"} {
		if v := q.Get(key); v != "" {
			return v
		}
	}

	parts := strings.Split(u.Path, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if p := strings.TrimSpace(parts[i]); p != "" {
			return p
		}
	}
	return ""
}

// PollDeviceLink posts to /api/device/token with { device_id }.
// Returns empty tokens while the link is still pending authorization, and
// access plus refresh tokens once the device has been authorized.
func (h *HTTP) PollDeviceLink(ctx context.Context, deviceID string) (string, string, error) {
	jsonBody := map[string]string{
		"device_id": deviceID,
	}
	if access, refresh, ok := h.tryTokenPost(ctx, jsonBody); ok {
		return access, refresh, nil
	}
	return "", "", nil
}

// parseTokensFromBody extracts access and refresh tokens from the response
// body. It supports both JSON responses (with nested structures) and plain
// text responses.
func parseTokensFromBody(r io.Reader, contentType string) (string, string) {
	lowerCT := strings.ToLower(contentType)
	if strings.Contains(lowerCT, "application/json") || strings.Contains(lowerCT, "+json") || contentType == "" {
		var anyBody any
		if err := json.NewDecoder(r).Decode(&anyBody); err == nil {
			var access, refresh string
			walkJSON(anyBody, &access, &refresh)
			return access, refresh
		}
	}

	// Fallback to plain text
	b, _ := io.ReadAll(r)
	token := strings.TrimSpace(string(b))
	return token, ""
}

// walkJSON recursively searches a JSON structure for access and refresh
// tokens under common field naming conventions.
func walkJSON(node any, access *string, refresh *string) {
	if *access != "" && *refresh != "" {
		return
	}

	switch v := node.(type) {
	case map[string]any:
		for k, vv := range v {
			lk := strings.ToLower(strings.ReplaceAll(k, "_", ""))
			if s, ok := vv.(string); ok {
				val := strings.TrimSpace(s)
				if *access == "" {
					if lk == "accesstoken" || lk == "access" || lk == "token" || lk == "bearer" {
						*access = val
					} else if lk == "authorization" {
						if t := parseBearerToken(val); t != "" {
							*access = t
						}
					}
				}
				if *refresh == "" {
					if lk == "refreshtoken" || lk == "refresh" {
						*refresh = val
					}
				}
			}
			if *access == "" || *refresh == "" {
				walkJSON(vv, access, refresh)
			}
		}
	case []any:
		for _, e := range v {
			if *access == "" || *refresh == "" {
				walkJSON(e, access, refresh)
			}
		}
	}
}

// tryTokenPost posts JSON to the token endpoint and returns tokens when
// successful. It returns (access, refresh, true) on success, or
// ("", "", false) while pending or on failure.
func (h *HTTP) tryTokenPost(ctx context.Context, body map[string]string) (string, string, bool) {
	b, err := json.Marshal(body)
	if err != nil {
		return "", "", false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+epDeviceToken, strings.NewReader(string(b)))
	if err != nil {
		return "", "", false
	}
	h.setStandardHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", "", false
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		// Some deployments hand the token back in a header
		if token := findBearerTokenInHeaders(resp.Header); token != "" {
			return token, "", true
		}
		access, refresh := parseTokensFromBody(resp.Body, resp.Header.Get("Content-Type"))
		if access != "" || refresh != "" {
			return access, refresh, true
		}
		return "", "", false
	default:
		return "", "", false
	}
}

// CheckDevice calls POST /api/device/check with Authorization: Bearer <token>.
// It verifies the device authorization and returns the user ID if successful.
func (h *HTTP) CheckDevice(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+epDeviceCheck, nil)
	if err != nil {
		return "", err
	}
	h.setStandardHeaders(req)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var out map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&out); err == nil {
			if v, ok := out["user_id"].(string); ok && v != "" {
				return v, nil
			}
		}
		return "", errors.New("unexpected response")
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return "", errors.New("unauthorized")
	}

	b, _ := io.ReadAll(resp.Body)
	return "", fmt.Errorf("device-check failed: %d %s", resp.StatusCode, strings.TrimSpace(string(b)))
}

// Logout calls POST /api/auth/logout with Authorization header.
// It invalidates the current access token and clears cached user data.
func (h *HTTP) Logout(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+epLogout, nil)
	if err != nil {
		return err
	}
	h.setStandardHeaders(req)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	h.meCache = nil
	h.meCacheTime = time.Time{}

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	b, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("logout failed: %d %s", resp.StatusCode, strings.TrimSpace(string(b)))
}
