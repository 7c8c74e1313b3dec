// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

package boundary

import (
	"context"
	"fmt"
	"net"

	"github.com/spyglass-remote/spyglass/bridge"
	"github.com/spyglass-remote/spyglass/lib/codec"
)

// Client issues requests against a boundary server socket. Each call
// dials a fresh connection; subscriptions keep theirs open for the
// event stream.
type Client struct {
	// SocketPath is the Unix socket the server listens on.
	SocketPath string
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", c.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("boundary: dialing %s: %w", c.SocketPath, err)
	}
	return conn, nil
}

// Do performs a single request/response exchange. A Response with
// OK=false is returned as-is, not as an error; transport and decode
// failures are errors.
func (c *Client) Do(ctx context.Context, request Request) (Response, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return Response{}, fmt.Errorf("boundary: writing request: %w", err)
	}
	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		return Response{}, fmt.Errorf("boundary: reading response: %w", err)
	}
	return response, nil
}

// Subscription is a live event stream from a subscribe action. The
// stream ends when the far side retires the sink or Close is called.
type Subscription struct {
	conn    net.Conn
	decoder *codec.Decoder
}

// Next blocks for the next event. It returns io.EOF (or a wrapped
// close error) once the stream has ended.
func (s *Subscription) Next() (bridge.Event, error) {
	var event bridge.Event
	if err := s.decoder.Decode(&event); err != nil {
		return bridge.Event{}, err
	}
	return event, nil
}

// Close drops the subscription. The server unregisters the sink once
// it observes the disconnect.
func (s *Subscription) Close() error {
	return s.conn.Close()
}

// Subscribe issues a subscribe-channel or subscribe-session request
// and returns the event stream. The server's initial response is
// consumed here; a refusal is returned as an error.
func (c *Client) Subscribe(ctx context.Context, request Request) (*Subscription, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		conn.Close()
		return nil, fmt.Errorf("boundary: writing request: %w", err)
	}
	decoder := codec.NewDecoder(conn)
	var response Response
	if err := decoder.Decode(&response); err != nil {
		conn.Close()
		return nil, fmt.Errorf("boundary: reading response: %w", err)
	}
	if !response.OK {
		conn.Close()
		return nil, fmt.Errorf("boundary: subscribe refused: %s", response.Error)
	}
	return &Subscription{conn: conn, decoder: decoder}, nil
}
