// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package progression

import (
	"reflect"
	"testing"
)

func TestApply(t *testing.T) {
	base := Snapshot{
		UserID:        LocalUserID,
		Coins:         100,
		Xp:            50,
		Achievements:  []string{"first-win"},
		UnlockedItems: []string{"skin-red"},
		LastSyncedAt:  "2025-01-01T00:00:00Z",
	}

	tests := []struct {
		name string
		d    Delta
		want Snapshot
	}{
		{
			name: "sums and unions",
			d: Delta{
				CoinsEarned:      25,
				XpEarned:         10,
				NewAchievements:  []string{"combo-5", "first-win"},
				NewUnlockedItems: []string{"skin-blue"},
			},
			want: Snapshot{
				UserID:        LocalUserID,
				Coins:         125,
				Xp:            60,
				Achievements:  []string{"combo-5", "first-win"},
				UnlockedItems: []string{"skin-blue", "skin-red"},
				LastSyncedAt:  "2025-01-01T00:00:00Z",
			},
		},
		{
			name: "zero delta is identity",
			d:    Delta{},
			want: Snapshot{
				UserID:        LocalUserID,
				Coins:         100,
				Xp:            50,
				Achievements:  []string{"first-win"},
				UnlockedItems: []string{"skin-red"},
				LastSyncedAt:  "2025-01-01T00:00:00Z",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(base, tt.d)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Apply() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestApplyOrderIndependent(t *testing.T) {
	a := Delta{CoinsEarned: 10, NewAchievements: []string{"a"}}
	b := Delta{CoinsEarned: 5, XpEarned: 3, NewAchievements: []string{"b"}, NewUnlockedItems: []string{"hat"}}
	base := ZeroSnapshot()
	base.LastSyncedAt = "2025-01-01T00:00:00Z"

	ab := Apply(Apply(base, a), b)
	ba := Apply(Apply(base, b), a)
	if !reflect.DeepEqual(ab, ba) {
		t.Errorf("apply order changed result: %+v vs %+v", ab, ba)
	}
}

func TestAggregate(t *testing.T) {
	deltas := []Delta{
		{CoinsEarned: 10, XpEarned: 5, NewAchievements: []string{"a"}},
		{CoinsEarned: 20, NewAchievements: []string{"b", "a"}, NewUnlockedItems: []string{"hat"}},
		{XpEarned: 2},
	}

	got := Aggregate(deltas)
	if got.CoinsEarned != 30 || got.XpEarned != 7 {
		t.Errorf("Aggregate sums = coins %d xp %d, want 30 and 7", got.CoinsEarned, got.XpEarned)
	}
	if !reflect.DeepEqual(got.NewAchievements, []string{"a", "b"}) {
		t.Errorf("Aggregate achievements = %v, want [a b]", got.NewAchievements)
	}
	if !reflect.DeepEqual(got.NewUnlockedItems, []string{"hat"}) {
		t.Errorf("Aggregate unlocked items = %v, want [hat]", got.NewUnlockedItems)
	}

	if agg := Aggregate(nil); !agg.IsZero() {
		t.Errorf("Aggregate(nil) = %+v, want zero delta", agg)
	}
}

func TestDeltaIsZero(t *testing.T) {
	if !(Delta{ClientLastSyncedAt: "2025-01-01T00:00:00Z"}).IsZero() {
		t.Error("delta with only a sync timestamp should be zero")
	}
	if (Delta{CoinsEarned: 1}).IsZero() {
		t.Error("delta with earned coins should not be zero")
	}
	if (Delta{NewUnlockedItems: []string{"hat"}}).IsZero() {
		t.Error("delta with unlocked items should not be zero")
	}
}
