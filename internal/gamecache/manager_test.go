// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package gamecache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"celestial/arcade/internal/cachestatus"
)

// fakeOps counts calls and optionally blocks downloads until released.
type fakeOps struct {
	downloads atomic.Int64
	deletes   atomic.Int64
	block     chan struct{}
	err       error
}

func (f *fakeOps) DownloadGame(ctx context.Context, slug string) error {
	f.downloads.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func (f *fakeOps) DeleteGame(ctx context.Context, slug string) error {
	f.deletes.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func (f *fakeOps) TotalSize() (int64, error)            { return 0, nil }
func (f *fakeOps) GameSizes() (map[string]int64, error) { return nil, nil }
func (f *fakeOps) FreeSpace() int64                     { return 0 }

func TestDownloadCoalescesConcurrentRequests(t *testing.T) {
	ops := &fakeOps{block: make(chan struct{})}
	m := NewManager(ops, cachestatus.NewTracker(""))

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Download(context.Background(), "star-drifter")
		}(i)
	}

	// Let all three requests land, then release the single download.
	time.Sleep(50 * time.Millisecond)
	close(ops.block)
	wg.Wait()

	if n := ops.downloads.Load(); n != 1 {
		t.Errorf("downloads started = %d, want 1 (coalesced)", n)
	}
	for i, err := range errs {
		if err != nil {
			t.Errorf("request %d error = %v", i, err)
		}
	}
}

func TestDownloadResultSharedAcrossWaiters(t *testing.T) {
	wantErr := errors.New("asset fetch failed")
	ops := &fakeOps{block: make(chan struct{}), err: wantErr}
	m := NewManager(ops, cachestatus.NewTracker(""))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Download(context.Background(), "moon-miner")
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(ops.block)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, wantErr) {
			t.Errorf("request %d error = %v, want shared download error", i, err)
		}
	}
}

func TestDownloadCallerTimeoutDoesNotCancelFill(t *testing.T) {
	ops := &fakeOps{block: make(chan struct{})}
	m := NewManager(ops, cachestatus.NewTracker(""))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := m.Download(ctx, "slow-game"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Download() error = %v, want deadline exceeded", err)
	}

	// The fill keeps running after the caller gave up.
	close(ops.block)
	time.Sleep(50 * time.Millisecond)
	if err := m.Download(context.Background(), "slow-game"); err != nil {
		t.Errorf("second Download() error = %v", err)
	}
	if n := ops.downloads.Load(); n != 2 {
		t.Errorf("downloads = %d, want the original plus one fresh", n)
	}
}

func TestDelete(t *testing.T) {
	ops := &fakeOps{}
	m := NewManager(ops, cachestatus.NewTracker(""))

	if err := m.Delete(context.Background(), "star-drifter"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if n := ops.deletes.Load(); n != 1 {
		t.Errorf("deletes = %d, want 1", n)
	}
}

func TestDeleteResetsStatusWithoutConfirmation(t *testing.T) {
	ops := &fakeOps{block: make(chan struct{})}
	tracker := cachestatus.NewTracker("")
	m := NewManager(ops, tracker)

	tracker.SetCached("star-drifter")

	// The ops delete never confirms inside the window; the badge must
	// reset anyway.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := m.Delete(ctx, "star-drifter"); err == nil {
		t.Fatal("Delete() expected timeout error")
	}
	close(ops.block)

	if st := tracker.Get("star-drifter"); st.Cached {
		t.Errorf("status after unconfirmed delete = %+v, want cached=false", st)
	}
}
