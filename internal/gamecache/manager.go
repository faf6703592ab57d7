// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package gamecache applies caching policy on top of the asset worker:
// download deadlines, bounded delete waits, and coalescing of concurrent
// download requests for the same game.
package gamecache

import (
	"context"
	"sync"
	"time"

	"celestial/arcade/internal/cachestatus"
	arcerrors "celestial/arcade/internal/errors"
)

const (
	// downloadTimeout bounds one full game download.
	downloadTimeout = 5 * time.Minute
	// deleteTimeout bounds a cache delete; deletes are best-effort.
	deleteTimeout = 5 * time.Second
)

// Ops is the slice of the worker the manager drives.
type Ops interface {
	DownloadGame(ctx context.Context, slug string) error
	DeleteGame(ctx context.Context, slug string) error
	TotalSize() (int64, error)
	GameSizes() (map[string]int64, error)
	FreeSpace() int64
}

// Manager coordinates cache operations per game.
type Manager struct {
	ops    Ops
	status *cachestatus.Tracker

	mu       sync.Mutex
	inflight map[string]*inflightDownload
}

type inflightDownload struct {
	done chan struct{}
	err  error
}

// NewManager builds a manager over the given worker and status tracker.
func NewManager(ops Ops, status *cachestatus.Tracker) *Manager {
	return &Manager{
		ops:      ops,
		status:   status,
		inflight: map[string]*inflightDownload{},
	}
}

// Download caches the named game, waiting up to the download deadline.
// A request for a game already downloading joins the in-flight download
// instead of starting a second one; both callers get the same result.
func (m *Manager) Download(ctx context.Context, slug string) error {
	m.mu.Lock()
	if in, ok := m.inflight[slug]; ok {
		m.mu.Unlock()
		select {
		case <-in.done:
			return in.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	in := &inflightDownload{done: make(chan struct{})}
	m.inflight[slug] = in
	m.mu.Unlock()

	// The download runs on its own deadline, detached from the requester:
	// a caller that gives up must not cancel a cache fill that other
	// surfaces may be waiting on.
	go func() {
		dctx, cancel := context.WithTimeout(context.Background(), downloadTimeout)
		defer cancel()
		in.err = m.ops.DownloadGame(dctx, slug)

		m.mu.Lock()
		delete(m.inflight, slug)
		m.mu.Unlock()
		close(in.done)
	}()

	select {
	case <-in.done:
		return in.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Delete removes the named game cache, waiting at most the delete
// deadline. The delete is best-effort: the status badge is reset even
// when no confirmation arrives within the bound, so a game never keeps
// reading cached after its delete was dispatched.
func (m *Manager) Delete(ctx context.Context, slug string) error {
	dctx, cancel := context.WithTimeout(ctx, deleteTimeout)
	defer cancel()
	err := m.ops.DeleteGame(dctx, slug)
	m.status.Clear(slug)
	if err != nil {
		return arcerrors.Wrap(arcerrors.StorageUnavailable, "delete game cache", err)
	}
	return nil
}

// Status returns the cache badge for one game.
func (m *Manager) Status(slug string) cachestatus.Status {
	return m.status.Get(slug)
}

// Statuses returns the badges for every tracked game.
func (m *Manager) Statuses() map[string]cachestatus.Status {
	return m.status.All()
}

// TotalSize returns total cached game bytes.
func (m *Manager) TotalSize() (int64, error) {
	return m.ops.TotalSize()
}

// GameSizes returns per-game cached bytes.
func (m *Manager) GameSizes() (map[string]int64, error) {
	return m.ops.GameSizes()
}

// FreeSpace estimates remaining cache capacity on disk.
func (m *Manager) FreeSpace() int64 {
	return m.ops.FreeSpace()
}
