// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package progression

import (
	"context"
	"errors"
	"testing"
)

// fakeSyncAPI plays the portal's server of record: it folds received
// aggregates into its own snapshot and echoes the result back.
type fakeSyncAPI struct {
	snap     Snapshot
	syncErr  error
	received []Delta

	// onSync runs before the server applies the aggregate, letting tests
	// inject deltas mid-flush.
	onSync func()
}

func (f *fakeSyncAPI) GetProgression(ctx context.Context, accessToken string) (Snapshot, error) {
	return f.snap, nil
}

func (f *fakeSyncAPI) SyncProgression(ctx context.Context, accessToken string, delta Delta) (Snapshot, error) {
	if f.onSync != nil {
		f.onSync()
	}
	if f.syncErr != nil {
		return Snapshot{}, f.syncErr
	}
	f.received = append(f.received, delta)
	f.snap = Apply(f.snap, delta)
	f.snap.LastSyncedAt = "2025-06-01T12:00:00Z"
	return f.snap, nil
}

func newTestReconciler(t *testing.T, api SyncAPI) *Reconciler {
	t.Helper()
	return NewReconciler(openTestStore(t), api, nil, nil)
}

func TestFlushEmptyQueueIsNoop(t *testing.T) {
	api := &fakeSyncAPI{}
	rec := newTestReconciler(t, api)

	if err := rec.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(api.received) != 0 {
		t.Errorf("empty flush contacted the server: %+v", api.received)
	}
}

func TestFlushRoundTrip(t *testing.T) {
	api := &fakeSyncAPI{snap: Snapshot{UserID: "u-1", Coins: 100}}
	rec := newTestReconciler(t, api)

	if _, err := rec.ApplyLocalDelta(Delta{CoinsEarned: 10, NewAchievements: []string{"a"}}); err != nil {
		t.Fatalf("ApplyLocalDelta() error = %v", err)
	}
	if _, err := rec.ApplyLocalDelta(Delta{CoinsEarned: 5, XpEarned: 2}); err != nil {
		t.Fatalf("ApplyLocalDelta() error = %v", err)
	}

	if err := rec.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	if len(api.received) != 1 {
		t.Fatalf("server received %d payloads, want 1 aggregate", len(api.received))
	}
	agg := api.received[0]
	if agg.CoinsEarned != 15 || agg.XpEarned != 2 {
		t.Errorf("aggregate = coins %d xp %d, want 15 and 2", agg.CoinsEarned, agg.XpEarned)
	}
	if agg.ClientLastSyncedAt == "" {
		t.Error("aggregate missing client sync timestamp")
	}

	// Local snapshot is replaced with the server's result under the local slot.
	snap, err := rec.GetLocal()
	if err != nil {
		t.Fatalf("GetLocal() error = %v", err)
	}
	if snap.UserID != LocalUserID {
		t.Errorf("snapshot user id = %q, want %q", snap.UserID, LocalUserID)
	}
	if snap.Coins != 115 {
		t.Errorf("snapshot coins = %d, want server total 115", snap.Coins)
	}

	n, err := rec.Pending()
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if n != 0 {
		t.Errorf("pending after flush = %d, want 0", n)
	}
}

func TestFlushFailureKeepsQueue(t *testing.T) {
	api := &fakeSyncAPI{syncErr: errors.New("network unreachable")}
	rec := newTestReconciler(t, api)

	if _, err := rec.ApplyLocalDelta(Delta{CoinsEarned: 10}); err != nil {
		t.Fatalf("ApplyLocalDelta() error = %v", err)
	}
	if err := rec.Flush(context.Background()); err == nil {
		t.Fatal("Flush() succeeded despite server error")
	}

	n, err := rec.Pending()
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if n != 1 {
		t.Errorf("pending after failed flush = %d, want 1", n)
	}

	snap, err := rec.GetLocal()
	if err != nil {
		t.Fatalf("GetLocal() error = %v", err)
	}
	if snap.Coins != 10 {
		t.Errorf("local coins after failed flush = %d, want 10", snap.Coins)
	}
}

func TestFlushKeepsMidFlightDelta(t *testing.T) {
	api := &fakeSyncAPI{snap: Snapshot{Coins: 100}}
	rec := newTestReconciler(t, api)

	if _, err := rec.ApplyLocalDelta(Delta{CoinsEarned: 10}); err != nil {
		t.Fatalf("ApplyLocalDelta() error = %v", err)
	}

	// A gameplay delta lands while the sync request is on the wire.
	api.onSync = func() {
		if _, err := rec.ApplyLocalDelta(Delta{CoinsEarned: 7}); err != nil {
			t.Fatalf("mid-flight ApplyLocalDelta() error = %v", err)
		}
	}

	if err := rec.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	if api.received[0].CoinsEarned != 10 {
		t.Errorf("flushed aggregate = %d coins, want only the pre-flush 10", api.received[0].CoinsEarned)
	}

	// The mid-flight delta survives for the next flush.
	pending, err := rec.store.PendingDeltas()
	if err != nil {
		t.Fatalf("PendingDeltas() error = %v", err)
	}
	if len(pending) != 1 || pending[0].CoinsEarned != 7 {
		t.Fatalf("pending after flush = %+v, want only the mid-flight delta", pending)
	}

	api.onSync = nil
	if err := rec.Flush(context.Background()); err != nil {
		t.Fatalf("second Flush() error = %v", err)
	}
	snap, err := rec.GetLocal()
	if err != nil {
		t.Fatalf("GetLocal() error = %v", err)
	}
	if snap.Coins != 117 {
		t.Errorf("converged coins = %d, want 117", snap.Coins)
	}
}

func TestLoadServerSnapshotRefusesWithPending(t *testing.T) {
	api := &fakeSyncAPI{snap: Snapshot{Coins: 500}}
	rec := newTestReconciler(t, api)

	if _, err := rec.ApplyLocalDelta(Delta{CoinsEarned: 1}); err != nil {
		t.Fatalf("ApplyLocalDelta() error = %v", err)
	}
	if _, err := rec.LoadServerSnapshot(context.Background()); err == nil {
		t.Fatal("LoadServerSnapshot() overwrote local state with deltas pending")
	}
}

func TestLoadServerSnapshot(t *testing.T) {
	api := &fakeSyncAPI{snap: Snapshot{UserID: "u-1", Coins: 500, Achievements: []string{"vet"}}}
	rec := newTestReconciler(t, api)

	snap, err := rec.LoadServerSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LoadServerSnapshot() error = %v", err)
	}
	if snap.UserID != LocalUserID || snap.Coins != 500 {
		t.Errorf("loaded snapshot = %+v, want server coins under local slot", snap)
	}

	local, err := rec.GetLocal()
	if err != nil {
		t.Fatalf("GetLocal() error = %v", err)
	}
	if local.Coins != 500 {
		t.Errorf("persisted coins = %d, want 500", local.Coins)
	}
}
