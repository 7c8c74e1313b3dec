// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "sync"

// Direction identifies which way a clipboard payload is travelling.
type Direction int

const (
	// HostToClient carries the host machine's clipboard toward the
	// remote client.
	HostToClient Direction = iota
	// ClientToHost carries the remote client's clipboard toward the
	// host.
	ClientToHost

	directionCount
)

// String returns the direction name used in logs and on the boundary
// wire.
func (d Direction) String() string {
	switch d {
	case HostToClient:
		return "host-to-client"
	case ClientToHost:
		return "client-to-host"
	default:
		return "unknown"
	}
}

func (d Direction) valid() bool {
	return d >= 0 && d < directionCount
}

// ClipboardItem is one representation of the clipboard content. A
// single update usually carries several formats of the same content
// (plain text, HTML, image).
type ClipboardItem struct {
	// Format names the representation (e.g. "text", "html", "rtf",
	// "image/png"). Format semantics belong to the engine and the UI;
	// the bridge relays them untouched.
	Format string `cbor:"format"`

	// Data is the content bytes in that format.
	Data []byte `cbor:"data"`
}

// ClipboardPayload is one parsed clipboard update as produced by the
// engine's protocol layer.
type ClipboardPayload struct {
	Items []ClipboardItem `cbor:"items"`
}

// Mailbox holds at most one pending clipboard payload per direction.
// Publish overwrites any unconsumed payload (last-write-wins — a
// payload superseded before being read is lost by design, matching
// clipboard semantics where only the latest content matters). Take
// atomically removes and returns the pending payload.
//
// Unlike frames, clipboard content has no staleness timeout: a
// clipboard update from a minute ago is still the clipboard.
//
// All methods are safe for concurrent use.
type Mailbox struct {
	mu      sync.Mutex
	pending [directionCount]*ClipboardPayload
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Publish stores payload for the direction, replacing any unconsumed
// prior payload. Invalid directions are ignored.
func (m *Mailbox) Publish(direction Direction, payload *ClipboardPayload) {
	if !direction.valid() || payload == nil {
		return
	}
	m.mu.Lock()
	m.pending[direction] = payload
	m.mu.Unlock()
}

// Take removes and returns the pending payload for the direction, or
// false if none is pending.
func (m *Mailbox) Take(direction Direction) (*ClipboardPayload, bool) {
	if !direction.valid() {
		return nil, false
	}
	m.mu.Lock()
	payload := m.pending[direction]
	m.pending[direction] = nil
	m.mu.Unlock()
	return payload, payload != nil
}

// reset discards any pending payloads. Used by Bridge.Teardown.
func (m *Mailbox) reset() {
	m.mu.Lock()
	for i := range m.pending {
		m.pending[i] = nil
	}
	m.mu.Unlock()
}
