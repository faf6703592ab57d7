// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package channel

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// Envelopes cross the wire as protobuf Struct values so both ends stay
// schema-free: the channel carries whatever payload fields a message type
// defines without regenerating stubs.

const (
	fieldType          = "type"
	fieldOrigin        = "origin"
	fieldCorrelationID = "correlationId"
	fieldSlug          = "slug"
	fieldPayload       = "payload"
)

// encodeEnvelope converts an envelope to its wire form.
func encodeEnvelope(env Envelope) (*structpb.Struct, error) {
	m := map[string]any{
		fieldType:          env.Type,
		fieldOrigin:        env.Origin,
		fieldCorrelationID: env.CorrelationID,
	}
	if env.Slug != "" {
		m[fieldSlug] = env.Slug
	}
	if env.Payload != nil {
		m[fieldPayload] = env.Payload
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return s, nil
}

// decodeEnvelope converts a wire message back to an envelope. Missing or
// mistyped fields degrade to zero values; the server treats an envelope
// without a type as invalid.
func decodeEnvelope(s *structpb.Struct) Envelope {
	var env Envelope
	if s == nil {
		return env
	}
	m := s.AsMap()
	env.Type, _ = m[fieldType].(string)
	env.Origin, _ = m[fieldOrigin].(string)
	env.CorrelationID, _ = m[fieldCorrelationID].(string)
	env.Slug, _ = m[fieldSlug].(string)
	if p, ok := m[fieldPayload].(map[string]any); ok {
		env.Payload = p
	}
	return env
}
