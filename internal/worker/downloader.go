// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package worker performs the daemon-side cache work: downloading every
// asset a game manifest lists, precaching the portal shell, and deleting
// game caches. Downloads are all-or-nothing; a partial cache is dropped
// rather than left to serve broken games offline.
package worker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"celestial/arcade/internal/assetcache"
	"celestial/arcade/internal/cachestatus"
	arcerrors "celestial/arcade/internal/errors"
	"celestial/arcade/internal/manifest"
	"celestial/arcade/internal/metrics"
)

// Shell assets precached on daemon start so the portal itself loads
// offline. The list mirrors what the portal serves at its root.
var shellAssets = []string{
	"/",
	"/index.html",
	"/styles.css",
	"/app.js",
	"/offline.html",
}

// DownloadError reports a failed game download with the number of assets
// that could not be fetched.
type DownloadError struct {
	Slug     string
	Failures int
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download of %s failed: %d assets could not be fetched", e.Slug, e.Failures)
}

// Downloader fetches assets from the portal into the local cache.
type Downloader struct {
	baseURL     string
	assets      *assetcache.Store
	status      *cachestatus.Tracker
	client      *http.Client
	concurrency int
	token       func(ctx context.Context) (string, error)
	logf        func(format string, args ...any)
}

// NewDownloader builds a downloader over the given stores. concurrency
// bounds parallel asset fetches; token and logf may be nil.
func NewDownloader(baseURL string, assets *assetcache.Store, status *cachestatus.Tracker, concurrency int, token func(ctx context.Context) (string, error), logf func(format string, args ...any)) *Downloader {
	if concurrency <= 0 {
		concurrency = 4
	}
	if token == nil {
		token = func(context.Context) (string, error) { return "", nil }
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Downloader{
		baseURL:     strings.TrimRight(baseURL, "/"),
		assets:      assets,
		status:      status,
		client:      &http.Client{Timeout: 60 * time.Second},
		concurrency: concurrency,
		token:       token,
		logf:        logf,
	}
}

// DownloadGame fetches every asset the game's manifest lists into the named
// game cache. Any asset failure drops the whole cache and returns a
// DownloadError carrying the failure count.
func (d *Downloader) DownloadGame(ctx context.Context, slug string) error {
	token, err := d.token(ctx)
	if err != nil {
		d.logf("worker: no access token for %s, downloading anonymously: %v", slug, err)
	}

	m, err := manifest.Get(ctx, d.baseURL, slug, token)
	if err != nil {
		d.status.SetError(slug, err.Error())
		metrics.DownloadsTotal.WithLabelValues("error").Inc()
		return arcerrors.Wrap(arcerrors.ManifestFailed, "fetch manifest for "+slug, err)
	}

	paths := m.AssetPaths(slug)
	d.status.SetDownloading(slug, 0)

	var (
		wg       sync.WaitGroup
		sem      = make(chan struct{}, d.concurrency)
		done     atomic.Int64
		failures atomic.Int64
	)
	total := int64(len(paths))

	for _, assetPath := range paths {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(p string) {
			defer wg.Done()
			defer func() { <-sem }()

			asset, err := d.fetchAsset(ctx, p, token)
			if err != nil {
				d.logf("worker: fetch %s: %v", p, err)
				failures.Add(1)
				metrics.AssetsFetched.WithLabelValues("error").Inc()
				return
			}
			if err := d.assets.PutGameAsset(slug, asset); err != nil {
				d.logf("worker: store %s: %v", p, err)
				failures.Add(1)
				metrics.AssetsFetched.WithLabelValues("error").Inc()
				return
			}
			metrics.AssetsFetched.WithLabelValues("success").Inc()
			n := done.Add(1)
			d.status.SetDownloading(slug, float64(n)/float64(total))
		}(assetPath)
	}
	wg.Wait()

	if ctx.Err() != nil {
		// Timed out or canceled: drop whatever landed so far
		if err := d.assets.DropGame(slug); err != nil {
			d.logf("worker: drop partial cache for %s: %v", slug, err)
		}
		d.status.SetError(slug, "download canceled")
		metrics.DownloadsTotal.WithLabelValues("timeout").Inc()
		return arcerrors.Wrap(arcerrors.DownloadTimeout, "download window elapsed for "+slug, ctx.Err())
	}

	if n := int(failures.Load()); n > 0 {
		// Drop the partial cache so offline play never hits missing assets
		if err := d.assets.DropGame(slug); err != nil {
			d.logf("worker: drop partial cache for %s: %v", slug, err)
		}
		derr := &DownloadError{Slug: slug, Failures: n}
		d.status.SetError(slug, derr.Error())
		metrics.DownloadsTotal.WithLabelValues("error").Inc()
		return arcerrors.Wrap(arcerrors.DownloadFailed, "cache "+slug, derr)
	}

	d.status.SetCached(slug)
	metrics.DownloadsTotal.WithLabelValues("success").Inc()
	d.refreshCacheGauges()
	return nil
}

// DeleteGame removes the named game cache and its status badge.
func (d *Downloader) DeleteGame(ctx context.Context, slug string) error {
	if err := d.assets.DropGame(slug); err != nil {
		return err
	}
	d.status.Clear(slug)
	d.refreshCacheGauges()
	return nil
}

// TotalSize returns the total cached game asset bytes.
func (d *Downloader) TotalSize() (int64, error) {
	return d.assets.TotalSize()
}

// FreeSpace estimates remaining cache capacity on disk.
func (d *Downloader) FreeSpace() int64 {
	return d.assets.FreeSpace()
}

// GameSizes returns per-game cached byte totals.
func (d *Downloader) GameSizes() (map[string]int64, error) {
	slugs, err := d.assets.ListGames()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(slugs))
	for _, slug := range slugs {
		n, err := d.assets.GameSize(slug)
		if err != nil {
			return nil, err
		}
		out[slug] = n
	}
	return out, nil
}

// PrecacheShell fetches the portal shell into the cache generation for the
// given version, then drops every other generation. Failures are logged and
// swallowed; a stale shell still beats no shell.
func (d *Downloader) PrecacheShell(ctx context.Context, version string) {
	for _, p := range shellAssets {
		asset, err := d.fetchAsset(ctx, p, "")
		if err != nil {
			d.logf("worker: precache shell %s: %v", p, err)
			continue
		}
		if err := d.assets.PutShellAsset(version, asset); err != nil {
			d.logf("worker: store shell %s: %v", p, err)
		}
	}
	if err := d.assets.DropShellExcept(version); err != nil {
		d.logf("worker: drop stale shell generations: %v", err)
	}
}

func (d *Downloader) fetchAsset(ctx context.Context, assetPath, token string) (assetcache.Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+assetPath, nil)
	if err != nil {
		return assetcache.Asset{}, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return assetcache.Asset{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return assetcache.Asset{}, fmt.Errorf("fetch %s: status %d", assetPath, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return assetcache.Asset{}, err
	}
	return assetcache.Asset{
		Path:        assetPath,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func (d *Downloader) refreshCacheGauges() {
	if total, err := d.assets.TotalSize(); err == nil {
		metrics.CacheSizeBytes.Set(float64(total))
	}
	if games, err := d.assets.ListGames(); err == nil {
		metrics.CachedGames.Set(float64(len(games)))
	}
}
