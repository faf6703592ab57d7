// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package channel

import (
	"testing"
)

func TestEnvelopeWireRoundTrip(t *testing.T) {
	env := Envelope{
		Type:          TypeCacheGame,
		Origin:        "http://127.0.0.1:8799",
		CorrelationID: "c-1",
		Slug:          "star-drifter",
		Payload:       map[string]any{"failureCount": float64(3)},
	}

	wire, err := encodeEnvelope(env)
	if err != nil {
		t.Fatalf("encodeEnvelope() error = %v", err)
	}
	got := decodeEnvelope(wire)

	if got.Type != env.Type || got.Origin != env.Origin || got.CorrelationID != env.CorrelationID || got.Slug != env.Slug {
		t.Errorf("decoded envelope = %+v, want %+v", got, env)
	}
	if got.Payload["failureCount"] != float64(3) {
		t.Errorf("payload = %v, want failureCount 3", got.Payload)
	}
}

func TestDecodeEnvelopeDegradesGracefully(t *testing.T) {
	if env := decodeEnvelope(nil); env.Type != "" {
		t.Errorf("decodeEnvelope(nil) = %+v, want zero envelope", env)
	}

	wire, err := encodeEnvelope(Envelope{Type: TypeGetCacheSize, Origin: "o"})
	if err != nil {
		t.Fatalf("encodeEnvelope() error = %v", err)
	}
	env := decodeEnvelope(wire)
	if env.Slug != "" || env.Payload != nil {
		t.Errorf("optional fields not zero: %+v", env)
	}
}

func TestPendingTable(t *testing.T) {
	p := newPendingTable()

	ch := p.register("c-1")
	if !p.resolve(Envelope{CorrelationID: "c-1", Type: TypeCacheComplete}) {
		t.Fatal("resolve() found no waiter")
	}
	resp := <-ch
	if resp.Type != TypeCacheComplete {
		t.Errorf("resolved type = %q, want CACHE_COMPLETE", resp.Type)
	}

	// Second resolve for the same ID has no waiter left.
	if p.resolve(Envelope{CorrelationID: "c-1"}) {
		t.Error("resolve() matched an already-consumed waiter")
	}

	p.register("c-2")
	p.cancel("c-2")
	if p.resolve(Envelope{CorrelationID: "c-2"}) {
		t.Error("resolve() matched a canceled waiter")
	}
}
