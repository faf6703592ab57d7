// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package progression implements the local progression store and the
// reconciler that keeps it converged with the portal's server of record.
//
// The local snapshot is a cache that may be briefly stale or ahead of the
// server: every gameplay delta is folded into it immediately and queued
// durably until a flush replaces the snapshot with the server's
// authoritative result.
package progression

import "time"

// LocalUserID is the single local user slot. One device holds exactly one
// snapshot row regardless of which account is logged in upstream.
const LocalUserID = "current"

// Snapshot is the full progression state for the local user slot.
type Snapshot struct {
	UserID        string   `json:"userId"`
	Coins         int      `json:"coins"`
	Xp            int      `json:"xp"`
	Achievements  []string `json:"achievements"`
	UnlockedItems []string `json:"unlockedItems"`
	LastSyncedAt  string   `json:"lastSyncedAt"`
}

// Delta is one incremental progression change produced by a gameplay event.
// Deltas are commutative: sums and set unions, so replay order never
// affects the converged result.
type Delta struct {
	// ID is the locally assigned queue key; zero until enqueued.
	ID                 int64    `json:"-"`
	CoinsEarned        int      `json:"coinsEarned"`
	XpEarned           int      `json:"xpEarned"`
	NewAchievements    []string `json:"newAchievements"`
	NewUnlockedItems   []string `json:"newUnlockedItems"`
	ClientLastSyncedAt string   `json:"clientLastSyncedAt,omitempty"`
}

// ZeroSnapshot returns the snapshot used before any progression exists.
func ZeroSnapshot() Snapshot {
	return Snapshot{
		UserID:        LocalUserID,
		Achievements:  []string{},
		UnlockedItems: []string{},
		LastSyncedAt:  time.Now().UTC().Format(time.RFC3339),
	}
}

// IsZero reports whether the delta carries no change at all.
func (d Delta) IsZero() bool {
	return d.CoinsEarned == 0 && d.XpEarned == 0 &&
		len(d.NewAchievements) == 0 && len(d.NewUnlockedItems) == 0
}
