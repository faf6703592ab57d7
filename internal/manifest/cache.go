// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package manifest

import "sync"

var (
	// Global in-process cache of fetched manifests, keyed by game slug.
	// Lives only in process memory and is cleared when the CLI exits.
	globalCache     = map[string]*GameManifest{}
	globalCacheLock sync.RWMutex
)

// GetCached returns the cached manifest for a slug from RAM, or nil if not cached.
func GetCached(slug string) *GameManifest {
	globalCacheLock.RLock()
	defer globalCacheLock.RUnlock()
	return globalCache[slug]
}

// SetCached stores a manifest in RAM.
func SetCached(slug string, m *GameManifest) {
	globalCacheLock.Lock()
	defer globalCacheLock.Unlock()
	globalCache[slug] = m
}

// ClearCache removes all cached manifests from RAM (primarily for testing).
func ClearCache() {
	globalCacheLock.Lock()
	defer globalCacheLock.Unlock()
	globalCache = map[string]*GameManifest{}
}
