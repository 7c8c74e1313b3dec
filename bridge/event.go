// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"fmt"
	"log/slog"

	"github.com/spyglass-remote/spyglass/lib/codec"
)

// EventClosing is the terminal event delivered to a sink that is being
// replaced or torn down. It is the sink's signal to release its own
// resources; no further events follow. A UI that receives it can
// distinguish "another UI took over" from "your session ended" by
// whether its own session still exists.
const EventClosing = "closing"

// Event is one unit of engine-to-host notification. The bridge relays
// it without interpreting the payload: Name routes the event, Payload
// carries whatever structure the producer and the subscribed sink have
// agreed on.
type Event struct {
	// Name identifies the event type (e.g. "connection-ready",
	// "frame-geometry", "closing").
	Name string `cbor:"name"`

	// Payload is the CBOR-encoded event body. Empty for events that
	// carry no data.
	Payload codec.RawMessage `cbor:"payload,omitempty"`
}

// NewEvent builds an Event with the payload encoded as CBOR. Pass nil
// for events without a body.
func NewEvent(name string, payload any) (Event, error) {
	if payload == nil {
		return Event{Name: name}, nil
	}
	encoded, err := codec.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("bridge: encoding %q payload: %w", name, err)
	}
	return Event{Name: name, Payload: encoded}, nil
}

// Sink is a registered capability that delivers events to one external
// consumer. A sink is bound to exactly one channel name or one session
// at a time. The bridge guarantees that a replaced or unregistered sink
// receives a final EventClosing delivery before Close, and is never
// invoked again afterwards.
//
// Deliver runs synchronously on the pusher's goroutine and may cross
// the host boundary; implementations should not block indefinitely.
type Sink interface {
	// Deliver invokes the sink with one event. An error indicates the
	// far side failed to accept the event; the bridge logs it and
	// leaves the sink registered.
	Deliver(event Event) error

	// Close releases the sink's resources. Called once, after the
	// closing event has been delivered.
	Close() error
}

// retireSink delivers the terminal closing event to a sink that is
// being replaced or torn down, then closes it. Failures are logged at
// Debug: a sink that is going away is often already unreachable.
func retireSink(sink Sink, logger *slog.Logger, attrs ...any) {
	if err := sink.Deliver(Event{Name: EventClosing}); err != nil {
		logger.Debug("closing event not delivered", append(attrs, "error", err)...)
	}
	if err := sink.Close(); err != nil {
		logger.Debug("sink close failed", append(attrs, "error", err)...)
	}
}
