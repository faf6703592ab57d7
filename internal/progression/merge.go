// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package progression

import "sort"

// Apply folds one delta into a snapshot and returns the result.
// It is pure: no storage, no clock. Coins and XP are summed, achievement
// and unlocked-item sets are unioned. The caller is responsible for
// persisting the result and stamping LastSyncedAt.
func Apply(s Snapshot, d Delta) Snapshot {
	return Snapshot{
		UserID:        LocalUserID,
		Coins:         s.Coins + d.CoinsEarned,
		Xp:            s.Xp + d.XpEarned,
		Achievements:  unionSorted(s.Achievements, d.NewAchievements),
		UnlockedItems: unionSorted(s.UnlockedItems, d.NewUnlockedItems),
		LastSyncedAt:  s.LastSyncedAt,
	}
}

// Aggregate combines pending deltas into the single payload the portal's
// sync endpoint accepts: earned fields summed, sets unioned. Per-delta
// granularity is intentionally discarded; the server only ever sees the sum.
func Aggregate(deltas []Delta) Delta {
	var agg Delta
	for _, d := range deltas {
		agg.CoinsEarned += d.CoinsEarned
		agg.XpEarned += d.XpEarned
		agg.NewAchievements = unionSorted(agg.NewAchievements, d.NewAchievements)
		agg.NewUnlockedItems = unionSorted(agg.NewUnlockedItems, d.NewUnlockedItems)
	}
	return agg
}

// unionSorted merges two string sets into a sorted, duplicate-free slice.
// Sorted output keeps persisted JSON deterministic.
func unionSorted(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		seen[s] = struct{}{}
	}
	for _, s := range b {
		seen[s] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
