// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

package boundary

import (
	"net"
	"sync"

	"github.com/spyglass-remote/spyglass/bridge"
	"github.com/spyglass-remote/spyglass/lib/codec"
)

// connSink adapts a boundary connection into a bridge.Sink. Events are
// CBOR-encoded onto the wire; the mutex keeps the initial response and
// concurrent deliveries from interleaving mid-frame.
type connSink struct {
	mu      sync.Mutex
	conn    net.Conn
	encoder *codec.Encoder
	closed  bool
}

func newConnSink(conn net.Conn) *connSink {
	return &connSink{
		conn:    conn,
		encoder: codec.NewEncoder(conn),
	}
}

func (c *connSink) encode(value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return net.ErrClosed
	}
	return c.encoder.Encode(value)
}

func (c *connSink) Deliver(event bridge.Event) error {
	return c.encode(event)
}

// Close tears the connection down. The subscriber observes EOF after
// any already-written events (the closing notification included).
func (c *connSink) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}
