// Copyright (c) 2025 Celestial Arcade
// Licensed under the MIT License. See LICENSE file in the project root for details.

package channel

import (
	"context"
	"errors"
	"io"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Handler processes one validated envelope and optionally returns a
// response to send back on the same stream.
type Handler interface {
	Handle(ctx context.Context, env Envelope) (*Envelope, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, env Envelope) (*Envelope, error)

func (f HandlerFunc) Handle(ctx context.Context, env Envelope) (*Envelope, error) {
	return f(ctx, env)
}

// Server accepts channel streams from portal surfaces and dispatches
// envelopes to a handler. Envelopes whose origin does not match the
// trusted origin are dropped without a response, matching the silence a
// browser shows a cross-origin sender.
type Server struct {
	grpcServer    *grpc.Server
	trustedOrigin string
	handler       Handler
	logf          func(format string, args ...any)
}

// The channel service is described by hand: one bidirectional stream
// carrying Struct-encoded envelopes, no generated stubs.
var channelServiceDesc = grpc.ServiceDesc{
	ServiceName: "arcade.Channel",
	HandlerType: (*streamService)(nil),
	Streams: []grpc.StreamDesc{{
		StreamName:    "connect",
		Handler:       connectHandler,
		ServerStreams: true,
		ClientStreams: true,
	}},
	Metadata: "arcade/channel.proto",
}

type streamService interface {
	connect(grpc.BidiStreamingServer[structpb.Struct, structpb.Struct]) error
}

func connectHandler(srv any, stream grpc.ServerStream) error {
	return srv.(streamService).connect(&grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// NewServer builds a channel server dispatching to handler. logf may be
// nil to discard diagnostics.
func NewServer(trustedOrigin string, handler Handler, logf func(format string, args ...any)) *Server {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	s := &Server{
		grpcServer:    grpc.NewServer(),
		trustedOrigin: trustedOrigin,
		handler:       handler,
		logf:          logf,
	}
	s.grpcServer.RegisterService(&channelServiceDesc, s)
	return s
}

// Serve blocks serving streams on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// Stop gracefully stops the server, draining open streams.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}

// connect is the stream loop for one connected surface.
func (s *Server) connect(stream grpc.BidiStreamingServer[structpb.Struct, structpb.Struct]) error {
	ctx := stream.Context()
	for {
		msg, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		env := decodeEnvelope(msg)
		if env.Type == "" {
			s.logf("channel: dropping envelope without type")
			continue
		}
		if env.Origin != s.trustedOrigin {
			// Untrusted sender: no response, no error back on the stream
			s.logf("channel: dropping %s from untrusted origin %q", env.Type, env.Origin)
			continue
		}

		resp, err := s.handler.Handle(ctx, env)
		if err != nil {
			s.logf("channel: handler failed for %s: %v", env.Type, err)
			continue
		}
		if resp == nil {
			continue
		}
		if resp.CorrelationID == "" {
			resp.CorrelationID = env.CorrelationID
		}
		if resp.Origin == "" {
			resp.Origin = s.trustedOrigin
		}

		wire, err := encodeEnvelope(*resp)
		if err != nil {
			s.logf("channel: encode response for %s: %v", env.Type, err)
			continue
		}
		if err := stream.Send(wire); err != nil {
			return err
		}
	}
}
