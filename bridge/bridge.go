// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/spyglass-remote/spyglass/lib/clock"
)

// Options configures a Bridge. The zero value is usable: it selects
// the real clock, slog.Default(), and the standard video/audio frame
// slots.
type Options struct {
	// Clock provides time for frame staleness checks. Defaults to
	// clock.Real(); tests inject clock.Fake.
	Clock clock.Clock

	// Logger receives structured log output. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// FrameTimeouts maps each media kind to its staleness timeout.
	// Defaults to DefaultFrameTimeouts().
	FrameTimeouts map[FrameKind]time.Duration
}

// Bridge aggregates the hand-off structures between the native engine
// and the host runtime: the frame relay, the clipboard mailbox, the
// session registry, and the global channel registry. It is constructed
// explicitly — once per process in production, once per test in tests —
// rather than living in package-level state.
//
// The engine-facing producer methods (UpdateFrame, PublishClipboard,
// EmitChannel, EmitSession) are safe to call from any engine worker
// thread. The host-facing structures are exported fields; the host
// boundary layer calls them directly.
type Bridge struct {
	Frames    *FrameRelay
	Clipboard *Mailbox
	Sessions  *SessionRegistry
	Channels  *ChannelRegistry

	logger *slog.Logger
}

// New constructs a Bridge from opts.
func New(opts Options) *Bridge {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeouts := opts.FrameTimeouts
	if timeouts == nil {
		timeouts = DefaultFrameTimeouts()
	}
	return &Bridge{
		Frames:    NewFrameRelay(clk, logger, timeouts),
		Clipboard: NewMailbox(),
		Sessions:  NewSessionRegistry(logger),
		Channels:  NewChannelRegistry(logger),
		logger:    logger,
	}
}

// UpdateFrame publishes a raw frame from a capture/decode thread. The
// bridge takes ownership of data.
func (b *Bridge) UpdateFrame(kind FrameKind, data []byte) {
	b.Frames.Update(kind, data)
}

// PublishClipboard publishes a parsed clipboard payload for the given
// direction, superseding any unconsumed prior payload.
func (b *Bridge) PublishClipboard(direction Direction, payload *ClipboardPayload) {
	b.Clipboard.Publish(direction, payload)
}

// EmitChannel pushes an engine event into a named global channel.
func (b *Bridge) EmitChannel(name string, event Event) error {
	return b.Channels.Push(name, event)
}

// EmitSession delivers an engine event to a session's current sink. A
// missing session or absent sink reports false — the engine routinely
// races session teardown, and a miss is expected steady state.
func (b *Bridge) EmitSession(id uuid.UUID, event Event) bool {
	session, ok := b.Sessions.Get(id)
	if !ok {
		return false
	}
	return session.Emit(event)
}

// AddSession registers a new session. Returns ErrDuplicateSession if
// the id is already in use.
func (b *Bridge) AddSession(id uuid.UUID, peerID string) (*Session, error) {
	session, err := b.Sessions.Add(id, peerID)
	if err != nil {
		return nil, err
	}
	b.logger.Info("session added", "session_id", id, "peer_id", peerID)
	return session, nil
}

// RemoveSession unregisters the session and runs its teardown: the
// sink receives the closing event and is closed, and the round counter
// is bumped so any in-flight background loop retires itself. Reports
// false if the session does not exist (a benign race with an earlier
// removal, not an error).
func (b *Bridge) RemoveSession(id uuid.UUID) bool {
	session, ok := b.Sessions.Remove(id)
	if !ok {
		return false
	}
	session.close()
	b.logger.Info("session removed", "session_id", id, "peer_id", session.PeerID())
	return true
}

// Teardown returns the bridge to its post-construction state: every
// frame slot disabled and cleared, pending clipboard payloads
// discarded, every session removed with its sink closed, every channel
// sink closed. Safe to call more than once.
func (b *Bridge) Teardown() {
	for _, session := range b.Sessions.Sessions() {
		b.RemoveSession(session.ID())
	}
	b.Channels.closeAll()
	b.Frames.reset()
	b.Clipboard.reset()
	b.logger.Info("bridge torn down")
}
