// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package channel

import (
	"context"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	arcerrors "celestial/arcade/internal/errors"
)

// Client is one surface's connection to the daemon's channel server.
// Request/response matching runs over correlation IDs, so multiple
// requests may be in flight on the same stream.
type Client struct {
	conn    *grpc.ClientConn
	stream  grpc.BidiStreamingClient[structpb.Struct, structpb.Struct]
	origin  string
	pending *pendingTable
}

// Connect dials the daemon and opens the channel stream. The daemon only
// listens on loopback, so the connection is plaintext.
func (c *Client) Connect(ctx context.Context, addr string, origin string) error {
	dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(dctx, addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return arcerrors.Wrap(arcerrors.ChannelUnavailable, "dial daemon", err)
	}

	// The service has no generated stubs; open the stream by its literal
	// method name.
	cs, err := conn.NewStream(ctx, &grpc.StreamDesc{ServerStreams: true, ClientStreams: true}, "/arcade.Channel/connect")
	if err != nil {
		conn.Close()
		return arcerrors.Wrap(arcerrors.ChannelUnavailable, "open channel stream", err)
	}

	c.conn = conn
	c.stream = &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: cs}
	c.origin = origin
	c.pending = newPendingTable()
	go c.receiveLoop()
	return nil
}

// Close tears down the stream and connection.
func (c *Client) Close() error {
	if c.stream != nil {
		_ = c.stream.CloseSend()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Request sends one envelope and waits for the matching response. The
// client stamps the origin and a fresh correlation ID; the caller's ctx
// bounds the wait.
func (c *Client) Request(ctx context.Context, env Envelope) (Envelope, error) {
	if c.stream == nil {
		return Envelope{}, arcerrors.New(arcerrors.ChannelUnavailable, "channel not connected")
	}

	env.Origin = c.origin
	env.CorrelationID = uuid.NewString()

	wire, err := encodeEnvelope(env)
	if err != nil {
		return Envelope{}, err
	}

	waiter := c.pending.register(env.CorrelationID)
	if err := c.stream.Send(wire); err != nil {
		c.pending.cancel(env.CorrelationID)
		return Envelope{}, arcerrors.Wrap(arcerrors.ChannelUnavailable, "send on channel", err)
	}

	select {
	case resp := <-waiter:
		return resp, nil
	case <-ctx.Done():
		c.pending.cancel(env.CorrelationID)
		return Envelope{}, ctx.Err()
	}
}

// receiveLoop resolves responses until the stream closes. Waiters for
// requests that never get a response time out via their caller's ctx.
func (c *Client) receiveLoop() {
	for {
		msg, err := c.stream.Recv()
		if err != nil {
			return
		}
		env := decodeEnvelope(msg)
		if env.CorrelationID == "" {
			continue
		}
		c.pending.resolve(env)
	}
}
