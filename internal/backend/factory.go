// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

// New creates the portal API implementation for the given base URL.
func New(baseURL string) API {
	return newHTTP(baseURL)
}
