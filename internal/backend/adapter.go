// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backend provides interfaces and implementations for communicating with the arcade portal.
// It defines the API contract for authentication, game listing, and progression sync.
// The package includes both interface definitions and HTTP-based implementations.
package backend

import (
	"context"

	"celestial/arcade/internal/progression"
)

// API defines portal operations the client depends on.
// Implementations may call real HTTP endpoints or provide mocks for tests.
type API interface {
	GetVersion(ctx context.Context) (string, error)
	BeginDeviceLink(ctx context.Context) (authURL string, userCode string, pollIntervalSeconds int, err error)
	PollDeviceLink(ctx context.Context, userCode string) (accessToken string, refreshToken string, err error)
	// CheckDevice validates the current access token with the portal and
	// returns the associated user identifier when available.
	CheckDevice(ctx context.Context, accessToken string) (userID string, err error)
	// Logout invalidates the current access token on the portal.
	Logout(ctx context.Context, accessToken string) error
	// GetMe retrieves the current user's information from the portal.
	// Returns user data as a map containing fields like user_id, email, etc.
	GetMe(ctx context.Context, accessToken string) (map[string]any, error)
	// RefreshToken exchanges a refresh token for a new access token.
	// Returns new access token and optionally a new refresh token.
	RefreshToken(ctx context.Context, refreshToken string) (newAccessToken string, newRefreshToken string, err error)

	// ListGames returns the games visible at the caller's subscription tier.
	ListGames(ctx context.Context, accessToken string) ([]Game, error)
	// GetProgression retrieves the authoritative progression snapshot.
	GetProgression(ctx context.Context, accessToken string) (progression.Snapshot, error)
	// SyncProgression sends one aggregated delta and returns the authoritative
	// snapshot the server computed from it.
	SyncProgression(ctx context.Context, accessToken string, delta progression.Delta) (progression.Snapshot, error)
}
