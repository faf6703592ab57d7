// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package auth provides authentication services for the arcade client.
// It manages the device authorization flow, token refresh, and session
// validation. Authentication state and tokens are stored in the OS keychain.
package auth

import (
	"context"

	"celestial/arcade/internal/backend"
	"celestial/arcade/internal/keychain"
)

// Service centralizes authentication-related operations against the portal
// and local secure storage.
type Service struct {
	be backend.API
}

// NewService constructs an auth Service for the given portal URL.
func NewService(baseURL string) *Service {
	return &Service{be: backend.New(baseURL)}
}

// NewServiceWith constructs an auth Service over an existing portal client.
func NewServiceWith(be backend.API) *Service {
	return &Service{be: be}
}

// StartLogin begins the device-link login flow.
func (s *Service) StartLogin(ctx context.Context) (authURL string, deviceID string, pollIntervalSeconds int, err error) {
	return s.be.BeginDeviceLink(ctx)
}

// PollLogin attempts to complete login for the given deviceID.
// When tokens are issued they are saved to the keychain and local state is
// updated. Returns (account, true, nil) on success; (_, false, nil) if the
// link is still pending.
func (s *Service) PollLogin(ctx context.Context, deviceID string) (string, bool, error) {
	access, refresh, err := s.be.PollDeviceLink(ctx, deviceID)
	if err != nil {
		return "", false, err
	}
	if access == "" {
		return "", false, nil
	}

	km, err := keychain.GetManager()
	if err != nil {
		return "", false, err
	}
	if err := km.SaveAuthTokens(access, refresh); err != nil {
		return "", false, err
	}

	userID := ""
	if uid, err := s.be.CheckDevice(ctx, access); err == nil && uid != "" {
		userID = uid
	}
	if userID == "" {
		userID = "player"
	}
	_ = Save(State{LoggedIn: true, Account: userID})
	return userID, true, nil
}

// WhoAmI validates the current access token and returns the account when
// valid. It tries /api/me first (cached, so offline-friendly), refreshes an
// expired token, and finally falls back to local state when the portal is
// unreachable.
func (s *Service) WhoAmI(ctx context.Context) (string, bool, error) {
	km, err := keychain.GetManager()
	if err != nil {
		return "", false, nil
	}

	token, err := km.LoadAccessToken()
	if err == nil && token != "" {
		if account, ok := s.identify(ctx, token); ok {
			return account, true, nil
		}

		// Expired access token: refresh once and retry
		if refreshed, _ := s.RefreshAccessToken(ctx); refreshed {
			if newToken, err := km.LoadAccessToken(); err == nil && newToken != "" {
				if account, ok := s.identify(ctx, newToken); ok {
					return account, true, nil
				}
			}
		}
	}

	// Portal unreachable: trust local state so offline play keeps working
	st, err := Load()
	if err != nil {
		return "", false, err
	}
	if st.LoggedIn && st.Account != "" {
		return st.Account, true, nil
	}
	return "", false, nil
}

// identify resolves an account name from /api/me.
func (s *Service) identify(ctx context.Context, token string) (string, bool) {
	userData, err := s.be.GetMe(ctx, token)
	if err != nil || userData == nil {
		return "", false
	}
	for _, key := range []string{"user_id", "id", "email"} {
		if v, ok := userData[key].(string); ok && v != "" {
			return v, true
		}
	}
	return "player", true
}

// Logout performs remote logout (best-effort) and clears local
// credentials and state.
func (s *Service) Logout(ctx context.Context) error {
	if token, err := keychain.MustGetManager().LoadAccessToken(); err == nil && token != "" {
		_ = s.be.Logout(ctx, token)
	}
	return s.ResetLocalAuth()
}

// ResetLocalAuth clears only local credentials and state, no remote calls.
func (s *Service) ResetLocalAuth() error {
	if err := keychain.MustGetManager().ClearAuth(); err != nil {
		return err
	}
	return Clear()
}

// RefreshAccessToken exchanges the stored refresh token for a new access
// token and updates the keychain. Returns true on success.
func (s *Service) RefreshAccessToken(ctx context.Context) (bool, error) {
	km := keychain.MustGetManager()

	refreshToken, err := km.LoadRefreshToken()
	if err != nil || refreshToken == "" {
		return false, err
	}

	newAccessToken, newRefreshToken, err := s.be.RefreshToken(ctx, refreshToken)
	if err != nil {
		return false, err
	}

	if err := km.SaveAuthTokens(newAccessToken, ""); err != nil {
		return false, err
	}
	if newRefreshToken != "" {
		if err := km.SaveAuthTokens("", newRefreshToken); err != nil {
			return false, err
		}
	}
	return true, nil
}

// GetAccessToken returns the stored access token without validation.
// For automatic refresh use GetValidAccessToken.
func (s *Service) GetAccessToken(ctx context.Context) (string, error) {
	return keychain.MustGetManager().LoadAccessToken()
}

// GetValidAccessToken retrieves a usable access token, refreshing once if
// the portal rejects the stored one. If both tokens are expired, local auth
// is cleared and the error propagated. Network failures return the stored
// token anyway so offline commands keep working.
func (s *Service) GetValidAccessToken(ctx context.Context) (string, error) {
	km := keychain.MustGetManager()
	token, err := km.LoadAccessToken()
	if err != nil {
		return "", err
	}

	if _, err := s.be.GetMe(ctx, token); err == nil {
		return token, nil
	} else if err.Error() == "unauthorized" {
		if refreshed, _ := s.RefreshAccessToken(ctx); refreshed {
			if newToken, err := km.LoadAccessToken(); err == nil {
				return newToken, nil
			}
		}
		_ = s.ResetLocalAuth()
		return "", err
	}

	return token, nil
}

// WarmCache pre-fetches user data from /api/me to populate the offline
// cache. Typically called right after a successful login.
func (s *Service) WarmCache(ctx context.Context) error {
	token, err := keychain.MustGetManager().LoadAccessToken()
	if err != nil || token == "" {
		return err
	}
	_, _ = s.be.GetMe(ctx, token)
	return nil
}

// GetUserData retrieves full user data from /api/me, including the
// subscription tier when the portal reports one.
func (s *Service) GetUserData(ctx context.Context) (map[string]any, error) {
	token, err := keychain.MustGetManager().LoadAccessToken()
	if err != nil || token == "" {
		return nil, err
	}
	return s.be.GetMe(ctx, token)
}
