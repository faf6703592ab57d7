// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package manifest handles per-game asset manifests.
package manifest

import "path"

// GameManifest lists everything one game needs to run offline.
// It is immutable once fetched.
type GameManifest struct {
	Version     string   `json:"version"`
	EntryPoint  string   `json:"entryPoint"`
	Assets      []string `json:"assets"`
	TotalSize   int64    `json:"totalSize"`
	LastUpdated string   `json:"lastUpdated"`
}

// AssetPaths returns every request path the manifest covers for the given
// game slug: the entry point first, then each listed asset. Paths are rooted
// under the game's namespace, mirroring how the gateway serves them.
func (m *GameManifest) AssetPaths(slug string) []string {
	base := "/games/" + slug + "/"
	out := make([]string, 0, len(m.Assets)+1)
	out = append(out, path.Clean(base+m.EntryPoint))
	for _, a := range m.Assets {
		out = append(out, path.Clean(base+a))
	}
	return out
}
