package manifest

import (
	"context"
	"fmt"
)

// Get returns the manifest for a game slug, using the RAM cache if available.
// If not cached, it fetches from the portal and caches the result.
// Manifests are immutable for the life of the process once fetched.
func Get(ctx context.Context, baseURL, slug, accessToken string) (*GameManifest, error) {
	// Check RAM cache first
	if cached := GetCached(slug); cached != nil {
		return cached, nil
	}

	m, err := fetchFromServer(ctx, baseURL, slug, accessToken)
	if err != nil {
		return nil, fmt.Errorf("manifest for %s: %w", slug, err)
	}

	// Cache in RAM for future calls within this process
	SetCached(slug, m)

	return m, nil
}
