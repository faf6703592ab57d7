// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cachestatus tracks per-game cache state so the catalog can show
// cached/downloading/error badges. State is persisted as JSON in the state
// directory; persistence failures degrade to in-memory tracking and are
// never surfaced to callers, since status is advisory.
package cachestatus

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Status is the cache state badge for one game. Cached and Downloading are
// mutually exclusive; the setters below enforce that.
type Status struct {
	Cached      bool      `json:"cached"`
	Downloading bool      `json:"downloading"`
	Progress    float64   `json:"progress"`
	Error       string    `json:"error,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Tracker holds the status map and persists it best-effort.
type Tracker struct {
	mu       sync.Mutex
	path     string
	statuses map[string]Status
}

// NewTracker loads (or initializes) the tracker backed by the given file.
// A missing or unreadable file starts empty.
func NewTracker(path string) *Tracker {
	t := &Tracker{path: path, statuses: map[string]Status{}}
	data, err := os.ReadFile(path)
	if err != nil {
		return t
	}
	var loaded map[string]Status
	if err := json.Unmarshal(data, &loaded); err == nil && loaded != nil {
		t.statuses = loaded
	}
	return t
}

// Reload re-reads the backing file, picking up writes from another
// process. A missing or unreadable file leaves the current map as is.
func (t *Tracker) Reload() {
	if t.path == "" {
		return
	}
	data, err := os.ReadFile(t.path)
	if err != nil {
		return
	}
	var loaded map[string]Status
	if err := json.Unmarshal(data, &loaded); err != nil || loaded == nil {
		return
	}
	t.mu.Lock()
	t.statuses = loaded
	t.mu.Unlock()
}

// Get returns the status for a game; an untracked game yields the zero
// status.
func (t *Tracker) Get(slug string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statuses[slug]
}

// All returns a copy of every tracked status keyed by slug.
func (t *Tracker) All() map[string]Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]Status, len(t.statuses))
	for k, v := range t.statuses {
		out[k] = v
	}
	return out
}

// SetDownloading marks a game as downloading with the given progress in
// [0,1]. Clears cached and error state.
func (t *Tracker) SetDownloading(slug string, progress float64) {
	t.set(slug, Status{Downloading: true, Progress: progress})
}

// SetCached marks a game as fully cached.
func (t *Tracker) SetCached(slug string) {
	t.set(slug, Status{Cached: true, Progress: 1})
}

// SetError records a caching failure for a game.
func (t *Tracker) SetError(slug string, msg string) {
	t.set(slug, Status{Error: msg})
}

// Clear removes a game from tracking entirely, typically after its cache
// has been deleted.
func (t *Tracker) Clear(slug string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.statuses, slug)
	t.persistLocked()
}

func (t *Tracker) set(slug string, s Status) {
	s.LastUpdated = time.Now().UTC()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statuses[slug] = s
	t.persistLocked()
}

// persistLocked writes the status file. Errors are swallowed; the
// in-memory map stays authoritative for this process.
func (t *Tracker) persistLocked() {
	if t.path == "" {
		return
	}
	data, err := json.MarshalIndent(t.statuses, "", "  ")
	if err != nil {
		return
	}
	_ = os.MkdirAll(filepath.Dir(t.path), 0o700)
	_ = os.WriteFile(t.path, data, 0o600)
}
