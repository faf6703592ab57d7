// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cachestatus

import (
	"path/filepath"
	"testing"
)

func TestTrackerTransitions(t *testing.T) {
	tr := NewTracker(filepath.Join(t.TempDir(), "status.json"))

	tr.SetDownloading("star-drifter", 0.5)
	st := tr.Get("star-drifter")
	if !st.Downloading || st.Cached {
		t.Errorf("after SetDownloading: %+v", st)
	}
	if st.Progress != 0.5 {
		t.Errorf("progress = %v, want 0.5", st.Progress)
	}

	tr.SetCached("star-drifter")
	st = tr.Get("star-drifter")
	if !st.Cached || st.Downloading || st.Error != "" {
		t.Errorf("after SetCached: %+v", st)
	}

	tr.SetError("star-drifter", "3 assets failed")
	st = tr.Get("star-drifter")
	if st.Cached || st.Downloading || st.Error != "3 assets failed" {
		t.Errorf("after SetError: %+v", st)
	}

	tr.Clear("star-drifter")
	if st = tr.Get("star-drifter"); st.Cached || st.Downloading || st.Error != "" {
		t.Errorf("after Clear: %+v", st)
	}
}

func TestTrackerPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")

	tr := NewTracker(path)
	tr.SetCached("moon-miner")

	reopened := NewTracker(path)
	if st := reopened.Get("moon-miner"); !st.Cached {
		t.Errorf("reopened status = %+v, want cached", st)
	}
}

func TestTrackerDegradesWithoutFile(t *testing.T) {
	// Empty path means no persistence; tracking still works in memory.
	tr := NewTracker("")
	tr.SetDownloading("a", 0.1)
	if st := tr.Get("a"); !st.Downloading {
		t.Errorf("in-memory status = %+v, want downloading", st)
	}
}

func TestTrackerAllCopies(t *testing.T) {
	tr := NewTracker("")
	tr.SetCached("a")

	all := tr.All()
	all["a"] = Status{}
	if st := tr.Get("a"); !st.Cached {
		t.Error("All() returned a live reference to internal state")
	}
}

func TestTrackerReloadSeesExternalWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	writer := NewTracker(path)
	reader := NewTracker(path)

	writer.SetDownloading("moon-miner", 0.25)
	if st := reader.Get("moon-miner"); st.Downloading {
		t.Fatal("reader saw the write before Reload")
	}

	reader.Reload()
	st := reader.Get("moon-miner")
	if !st.Downloading || st.Progress != 0.25 {
		t.Errorf("after Reload: %+v", st)
	}

	// Memory-only trackers keep their state on Reload.
	mem := NewTracker("")
	mem.SetCached("solo")
	mem.Reload()
	if !mem.Get("solo").Cached {
		t.Error("memory-only tracker lost state on Reload")
	}
}
