// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package channel implements the message channel between the portal
// surfaces (CLI commands, embedded game frames via the gateway) and the
// daemon. Messages travel as envelopes over a bidirectional gRPC stream;
// every request carries a correlation ID so responses can be matched
// without ordering assumptions.
package channel

// Message types exchanged over the channel. Cache control messages drive
// the daemon's asset worker; progression messages carry gameplay state
// between game frames and the local progression store.
const (
	TypeCacheGame       = "CACHE_GAME"
	TypeCacheComplete   = "CACHE_COMPLETE"
	TypeCacheError      = "CACHE_ERROR"
	TypeDeleteGameCache = "DELETE_GAME_CACHE"
	TypeCacheDeleted    = "CACHE_DELETED"
	TypeGetCacheSize    = "GET_CACHE_SIZE"
	TypeCacheSize       = "CACHE_SIZE"

	TypeProgressionRequest   = "progression.request"
	TypeProgressionResponse  = "progression.response"
	TypeProgressionUpdate    = "progression.update"
	TypeProgressionConfirmed = "progression.confirmed"
)

// Envelope is one channel message. Origin identifies the sender's surface
// and is validated against the trusted origin before any handler runs;
// envelopes from unknown origins are dropped without a response.
type Envelope struct {
	Type          string `json:"type"`
	Origin        string `json:"origin,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
	// Slug names the game a cache control message targets; empty for
	// progression messages.
	Slug string `json:"slug,omitempty"`
	// Payload carries type-specific fields (deltas, snapshots, sizes,
	// failure counts) as loosely typed JSON-compatible values.
	Payload map[string]any `json:"payload,omitempty"`
}
