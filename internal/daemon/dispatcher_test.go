// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package daemon

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"celestial/arcade/internal/cachestatus"
	"celestial/arcade/internal/channel"
	"celestial/arcade/internal/gamecache"
	"celestial/arcade/internal/progression"
	"celestial/arcade/internal/worker"
)

// fakeCacheOps simulates the asset worker.
type fakeCacheOps struct {
	downloadErr error
	deleted     []string
	sizes       map[string]int64
}

func (f *fakeCacheOps) DownloadGame(ctx context.Context, slug string) error { return f.downloadErr }
func (f *fakeCacheOps) DeleteGame(ctx context.Context, slug string) error {
	f.deleted = append(f.deleted, slug)
	return nil
}
func (f *fakeCacheOps) TotalSize() (int64, error) {
	var total int64
	for _, n := range f.sizes {
		total += n
	}
	return total, nil
}
func (f *fakeCacheOps) GameSizes() (map[string]int64, error) { return f.sizes, nil }
func (f *fakeCacheOps) FreeSpace() int64                     { return 1 << 30 }

// offlineSync always fails, keeping the pending queue intact.
type offlineSync struct{}

func (offlineSync) GetProgression(ctx context.Context, token string) (progression.Snapshot, error) {
	return progression.Snapshot{}, errors.New("network unavailable")
}
func (offlineSync) SyncProgression(ctx context.Context, token string, d progression.Delta) (progression.Snapshot, error) {
	return progression.Snapshot{}, errors.New("network unavailable")
}

func newTestDispatcher(t *testing.T, ops gamecache.Ops) (*Dispatcher, *progression.Reconciler) {
	t.Helper()
	store, err := progression.OpenStore(filepath.Join(t.TempDir(), "progression.db"))
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	rec := progression.NewReconciler(store, offlineSync{}, nil, nil)
	mgr := gamecache.NewManager(ops, cachestatus.NewTracker(""))
	return NewDispatcher(mgr, rec, nil, nil), rec
}

func TestHandleCacheGame(t *testing.T) {
	d, _ := newTestDispatcher(t, &fakeCacheOps{})

	resp, err := d.Handle(context.Background(), channel.Envelope{Type: channel.TypeCacheGame, Slug: "star-drifter"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Type != channel.TypeCacheComplete || resp.Slug != "star-drifter" {
		t.Errorf("response = %+v, want CACHE_COMPLETE for star-drifter", resp)
	}
}

func TestHandleCacheGameFailure(t *testing.T) {
	ops := &fakeCacheOps{downloadErr: &worker.DownloadError{Slug: "star-drifter", Failures: 3}}
	d, _ := newTestDispatcher(t, ops)

	resp, err := d.Handle(context.Background(), channel.Envelope{Type: channel.TypeCacheGame, Slug: "star-drifter"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Type != channel.TypeCacheError {
		t.Fatalf("response type = %q, want CACHE_ERROR", resp.Type)
	}
	if resp.Payload["failureCount"] != 3 {
		t.Errorf("failureCount = %v, want 3", resp.Payload["failureCount"])
	}
}

func TestHandleDeleteGameCache(t *testing.T) {
	ops := &fakeCacheOps{}
	d, _ := newTestDispatcher(t, ops)

	resp, err := d.Handle(context.Background(), channel.Envelope{Type: channel.TypeDeleteGameCache, Slug: "moon-miner"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Type != channel.TypeCacheDeleted || resp.Slug != "moon-miner" {
		t.Errorf("response = %+v, want CACHE_DELETED", resp)
	}
	if len(ops.deleted) != 1 || ops.deleted[0] != "moon-miner" {
		t.Errorf("deleted = %v, want [moon-miner]", ops.deleted)
	}
}

func TestHandleGetCacheSize(t *testing.T) {
	ops := &fakeCacheOps{sizes: map[string]int64{"a": 100, "b": 50}}
	d, _ := newTestDispatcher(t, ops)

	resp, err := d.Handle(context.Background(), channel.Envelope{Type: channel.TypeGetCacheSize})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Type != channel.TypeCacheSize {
		t.Fatalf("response type = %q, want CACHE_SIZE", resp.Type)
	}
	if resp.Payload["totalSize"] != int64(150) {
		t.Errorf("totalSize = %v, want 150", resp.Payload["totalSize"])
	}
	if resp.Payload["quota"] != int64(150+1<<30) {
		t.Errorf("quota = %v, want usage plus free space", resp.Payload["quota"])
	}
}

func TestHandleProgressionRoundTrip(t *testing.T) {
	d, rec := newTestDispatcher(t, &fakeCacheOps{})

	update := channel.Envelope{
		Type: channel.TypeProgressionUpdate,
		Payload: map[string]any{
			"coinsEarned":     float64(25),
			"xpEarned":        float64(10),
			"newAchievements": []any{"first-win"},
		},
	}
	resp, err := d.Handle(context.Background(), update)
	if err != nil {
		t.Fatalf("Handle(update) error = %v", err)
	}
	if resp.Type != channel.TypeProgressionConfirmed {
		t.Fatalf("response type = %q, want progression.confirmed", resp.Type)
	}
	snap, ok := resp.Payload["progression"].(map[string]any)
	if !ok {
		t.Fatalf("payload = %v, want progression object", resp.Payload)
	}
	if snap["coins"] != float64(25) {
		t.Errorf("confirmed coins = %v, want 25", snap["coins"])
	}

	// The delta stays queued since the portal is unreachable.
	resp, err = d.Handle(context.Background(), channel.Envelope{Type: channel.TypeProgressionRequest})
	if err != nil {
		t.Fatalf("Handle(request) error = %v", err)
	}
	snap = resp.Payload["progression"].(map[string]any)
	if snap["coins"] != float64(25) {
		t.Errorf("requested coins = %v, want 25", snap["coins"])
	}
	if n, _ := rec.Pending(); n != 1 {
		t.Errorf("pending = %d, want 1 while offline", n)
	}
}

func TestHandleUnknownTypeIgnored(t *testing.T) {
	d, _ := newTestDispatcher(t, &fakeCacheOps{})
	resp, err := d.Handle(context.Background(), channel.Envelope{Type: "bogus"})
	if err != nil || resp != nil {
		t.Errorf("Handle(bogus) = %+v, %v; want nil, nil", resp, err)
	}
}

// countingSync records sync attempts.
type countingSync struct {
	calls atomic.Int64
}

func (c *countingSync) GetProgression(ctx context.Context, token string) (progression.Snapshot, error) {
	return progression.Snapshot{}, errors.New("network unavailable")
}
func (c *countingSync) SyncProgression(ctx context.Context, token string, d progression.Delta) (progression.Snapshot, error) {
	c.calls.Add(1)
	return progression.Snapshot{}, errors.New("network unavailable")
}

func TestHandleProgressionUpdateSkipsFlushWhileOffline(t *testing.T) {
	store, err := progression.OpenStore(filepath.Join(t.TempDir(), "progression.db"))
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	api := &countingSync{}
	rec := progression.NewReconciler(store, api, nil, nil)
	mon := progression.NewMonitor("http://127.0.0.1:1")
	mon.SetOnline(false)
	d := NewDispatcher(gamecache.NewManager(&fakeCacheOps{}, cachestatus.NewTracker("")), rec, mon, nil)

	resp, err := d.Handle(context.Background(), channel.Envelope{
		Type:    channel.TypeProgressionUpdate,
		Payload: map[string]any{"coinsEarned": float64(5)},
	})
	if err != nil {
		t.Fatalf("Handle(update) error = %v", err)
	}
	if resp.Type != channel.TypeProgressionConfirmed {
		t.Fatalf("response type = %q, want progression.confirmed", resp.Type)
	}

	// No sync attempt fires while offline; the delta stays queued for
	// the auto-sync loop.
	time.Sleep(100 * time.Millisecond)
	if n := api.calls.Load(); n != 0 {
		t.Errorf("sync attempts while offline = %d, want 0", n)
	}
	if n, err := rec.Pending(); err != nil || n != 1 {
		t.Errorf("pending = %d (err %v), want 1", n, err)
	}
}
