//go:build windows

// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package assetcache

// diskFree is not implemented on Windows; callers treat 0 as unknown.
func diskFree(string) int64 { return 0 }
