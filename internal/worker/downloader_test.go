// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"celestial/arcade/internal/assetcache"
	"celestial/arcade/internal/cachestatus"
	arcerrors "celestial/arcade/internal/errors"
	"celestial/arcade/internal/manifest"
)

func newPortal(t *testing.T, slug string, assets map[string]string, failPaths map[string]bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/games/"+slug+"/manifest", func(w http.ResponseWriter, r *http.Request) {
		names := make([]string, 0, len(assets))
		for name := range assets {
			if name == "index.html" {
				continue
			}
			names = append(names, name)
		}
		json.NewEncoder(w).Encode(manifest.GameManifest{
			Version:    "1.0.0",
			EntryPoint: "index.html",
			Assets:     names,
		})
	})
	mux.HandleFunc("/games/"+slug+"/", func(w http.ResponseWriter, r *http.Request) {
		if failPaths[r.URL.Path] {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		name := r.URL.Path[len("/games/"+slug+"/"):]
		body, ok := assets[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestDownloader(t *testing.T, baseURL string) (*Downloader, *assetcache.Store, *cachestatus.Tracker) {
	t.Helper()
	store, err := assetcache.Open(t.TempDir())
	if err != nil {
		t.Fatalf("assetcache.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	status := cachestatus.NewTracker("")
	return NewDownloader(baseURL, store, status, 2, nil, nil), store, status
}

func TestDownloadGameAllAssets(t *testing.T) {
	srv := newPortal(t, "dl-ok", map[string]string{
		"index.html": "<html>",
		"main.js":    "console.log(1)",
		"sprite.png": "png-bytes",
	}, nil)
	d, store, status := newTestDownloader(t, srv.URL)

	if err := d.DownloadGame(context.Background(), "dl-ok"); err != nil {
		t.Fatalf("DownloadGame() error = %v", err)
	}

	for _, p := range []string{"/games/dl-ok/index.html", "/games/dl-ok/main.js", "/games/dl-ok/sprite.png"} {
		if _, err := store.GetGameAsset("dl-ok", p); err != nil {
			t.Errorf("asset %s missing after download: %v", p, err)
		}
	}
	if st := status.Get("dl-ok"); !st.Cached || st.Downloading {
		t.Errorf("status after download = %+v, want cached", st)
	}
}

func TestDownloadGameDropsPartialOnFailure(t *testing.T) {
	srv := newPortal(t, "dl-fail", map[string]string{
		"index.html": "<html>",
		"main.js":    "console.log(1)",
	}, map[string]bool{"/games/dl-fail/main.js": true})
	d, store, status := newTestDownloader(t, srv.URL)

	err := d.DownloadGame(context.Background(), "dl-fail")
	var derr *DownloadError
	if !errors.As(err, &derr) {
		t.Fatalf("DownloadGame() error = %v, want DownloadError", err)
	}
	if derr.Failures != 1 {
		t.Errorf("failure count = %d, want 1", derr.Failures)
	}
	var kerr *arcerrors.E
	if !errors.As(err, &kerr) || kerr.Kind != arcerrors.DownloadFailed {
		t.Errorf("error kind = %v, want download_failed", err)
	}

	// All-or-nothing: the successfully fetched asset must be gone too.
	if ok, _ := store.HasGame("dl-fail"); ok {
		t.Error("partial cache survived a failed download")
	}
	if st := status.Get("dl-fail"); st.Cached || st.Error == "" {
		t.Errorf("status after failure = %+v, want error set", st)
	}
}

func TestDeleteGame(t *testing.T) {
	srv := newPortal(t, "dl-del", map[string]string{"index.html": "<html>"}, nil)
	d, store, status := newTestDownloader(t, srv.URL)

	if err := d.DownloadGame(context.Background(), "dl-del"); err != nil {
		t.Fatalf("DownloadGame() error = %v", err)
	}
	if err := d.DeleteGame(context.Background(), "dl-del"); err != nil {
		t.Fatalf("DeleteGame() error = %v", err)
	}
	if ok, _ := store.HasGame("dl-del"); ok {
		t.Error("cache present after DeleteGame")
	}
	if st := status.Get("dl-del"); st.Cached {
		t.Errorf("status after delete = %+v, want cleared", st)
	}
}

func TestGameSizes(t *testing.T) {
	srv := newPortal(t, "dl-size", map[string]string{"index.html": "0123456789"}, nil)
	d, _, _ := newTestDownloader(t, srv.URL)

	if err := d.DownloadGame(context.Background(), "dl-size"); err != nil {
		t.Fatalf("DownloadGame() error = %v", err)
	}

	sizes, err := d.GameSizes()
	if err != nil {
		t.Fatalf("GameSizes() error = %v", err)
	}
	if sizes["dl-size"] != 10 {
		t.Errorf("size = %d, want 10", sizes["dl-size"])
	}
	total, err := d.TotalSize()
	if err != nil || total != 10 {
		t.Errorf("TotalSize() = %d, %v; want 10", total, err)
	}
}

func TestDownloadGameTimeoutDropsPartialAndSetsError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/games/dl-hang/manifest", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(manifest.GameManifest{
			Version:    "1.0.0",
			EntryPoint: "index.html",
			Assets:     []string{"main.js"},
		})
	})
	mux.HandleFunc("/games/dl-hang/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/games/dl-hang/index.html" {
			w.Write([]byte("<html>"))
			return
		}
		// Never answers; the download deadline has to cut it off.
		<-r.Context().Done()
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	d, store, status := newTestDownloader(t, srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := d.DownloadGame(ctx, "dl-hang")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("DownloadGame() error = %v, want deadline exceeded", err)
	}
	var kerr *arcerrors.E
	if !errors.As(err, &kerr) || kerr.Kind != arcerrors.DownloadTimeout {
		t.Errorf("error kind = %v, want download_timeout", err)
	}

	// A download that never completed leaves no partial cache behind.
	has, herr := store.HasGame("dl-hang")
	if herr != nil {
		t.Fatalf("HasGame() error = %v", herr)
	}
	if has {
		t.Error("partial cache left after timeout")
	}

	st := status.Get("dl-hang")
	if st.Downloading || st.Cached || st.Error == "" {
		t.Errorf("status after timeout = %+v, want error badge only", st)
	}
}
