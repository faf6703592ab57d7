// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"net/http"
	"testing"
)

func TestParseBearerToken(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"standard", "Bearer abc123", "abc123"},
		{"lowercase", "bearer abc123", "abc123"},
		{"mixed case", "BeArEr abc123", "abc123"},
		{"extra spaces", "  Bearer   abc123  ", "abc123"},
		{"no prefix", "abc123", ""},
		{"prefix only", "Bearer ", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseBearerToken(tt.value); got != tt.want {
				t.Errorf("parseBearerToken(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestFindBearerTokenInHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer tok-1")
	if got := findBearerTokenInHeaders(h); got != "tok-1" {
		t.Errorf("findBearerTokenInHeaders = %q, want tok-1", got)
	}

	h = http.Header{}
	h.Set("X-Auth", "prefix bearer tok-2")
	if got := findBearerTokenInHeaders(h); got != "tok-2" {
		t.Errorf("findBearerTokenInHeaders fallback = %q, want tok-2", got)
	}

	if got := findBearerTokenInHeaders(http.Header{}); got != "" {
		t.Errorf("findBearerTokenInHeaders on empty headers = %q, want empty", got)
	}
}

func TestExtractTokens(t *testing.T) {
	result := map[string]any{
		"accessToken":   "a-2",
		"refresh_token": "r-1",
	}
	if got := extractAccessToken(result); got != "a-2" {
		t.Errorf("extractAccessToken = %q, want a-2", got)
	}
	if got := extractRefreshToken(result); got != "r-1" {
		t.Errorf("extractRefreshToken = %q, want r-1", got)
	}
	if got := extractRefreshToken(map[string]any{}); got != "" {
		t.Errorf("extractRefreshToken on empty = %q, want empty", got)
	}
}
