// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"bytes"
	"log/slog"
	"sync"
	"time"

	"github.com/spyglass-remote/spyglass/lib/clock"
)

// FrameKind names a media stream with its own relay slot.
type FrameKind string

// The two standard media kinds. A relay may be constructed with
// additional kinds if the engine produces more streams.
const (
	FrameVideo FrameKind = "video"
	FrameAudio FrameKind = "audio"
)

// Default staleness timeouts. Video frames are worthless almost
// immediately; audio tolerates more delay before it is better dropped
// than played late.
const (
	DefaultVideoTimeout = 100 * time.Millisecond
	DefaultAudioTimeout = 1000 * time.Millisecond
)

// DefaultFrameTimeouts returns the standard video/audio slot
// configuration.
func DefaultFrameTimeouts() map[FrameKind]time.Duration {
	return map[FrameKind]time.Duration{
		FrameVideo: DefaultVideoTimeout,
		FrameAudio: DefaultAudioTimeout,
	}
}

// frameSlot is the single-value dead-drop for one media kind. The
// mutex guards the three fields as one unit; it is held only for
// pointer-sized updates, never across a byte copy.
type frameSlot struct {
	timeout time.Duration

	mu         sync.Mutex
	enabled    bool
	buffer     []byte
	lastUpdate time.Time
}

// FrameRelay hands raw media frames from the engine's capture threads
// to the host's polling thread, one slot per kind. Each slot holds at
// most the latest frame: an update overwrites, a take empties. A take
// never blocks a concurrent update and vice versa beyond the brief
// slot-field exchange.
//
// Slots are created once at construction and toggled with SetEnabled
// per external command. All methods are safe for concurrent use, but
// each slot assumes one producer role and one consumer role; multiple
// simultaneous producers for the same kind is a caller error.
type FrameRelay struct {
	clock  clock.Clock
	logger *slog.Logger
	slots  map[FrameKind]*frameSlot
}

// NewFrameRelay creates a relay with one slot per entry in timeouts.
// All slots start disabled. If logger is nil, slog.Default() is used.
func NewFrameRelay(clk clock.Clock, logger *slog.Logger, timeouts map[FrameKind]time.Duration) *FrameRelay {
	if logger == nil {
		logger = slog.Default()
	}
	slots := make(map[FrameKind]*frameSlot, len(timeouts))
	for kind, timeout := range timeouts {
		slots[kind] = &frameSlot{timeout: timeout}
	}
	return &FrameRelay{clock: clk, logger: logger, slots: slots}
}

// SetEnabled toggles the slot for kind. Disabling clears the buffer
// immediately and makes Update a no-op until re-enabled; a frame
// published just before disabling is discarded, never delivered.
// Unknown kinds are ignored.
func (r *FrameRelay) SetEnabled(kind FrameKind, enabled bool) {
	slot, ok := r.slots[kind]
	if !ok {
		r.logger.Debug("set-enabled for unknown frame kind", "kind", kind)
		return
	}
	slot.mu.Lock()
	slot.enabled = enabled
	slot.buffer = nil
	slot.mu.Unlock()
}

// Update replaces the slot's frame with data and stamps the update
// time. No-op while the slot is disabled. The relay takes ownership of
// data: the producer must not reuse the backing array after the call.
// Update never blocks on a busy consumer — the previous frame, read or
// not, is simply dropped.
func (r *FrameRelay) Update(kind FrameKind, data []byte) {
	slot, ok := r.slots[kind]
	if !ok {
		r.logger.Debug("update for unknown frame kind", "kind", kind)
		return
	}
	slot.mu.Lock()
	if slot.enabled {
		slot.buffer = data
		slot.lastUpdate = r.clock.Now()
	}
	slot.mu.Unlock()
}

// Take removes and returns the slot's frame. It returns false when the
// slot is disabled, empty, or holds a frame older than the kind's
// staleness timeout — a stale frame is dropped in place of delivery.
//
// previous is the last frame the consumer received. If the taken bytes
// are identical, Take suppresses the redundant delivery and returns
// false (the slot is still emptied). Identical repeated frames — a
// static screen — coalesce under this policy; consumers must tolerate
// that. This is a bandwidth tradeoff, not a correctness guarantee.
//
// On success the frame is appended to dst[:0] and returned, so a
// consumer can reuse one buffer across polls. The byte comparison and
// copy run outside the slot lock; the producer is never stalled behind
// a slow consumer.
func (r *FrameRelay) Take(kind FrameKind, dst, previous []byte) ([]byte, bool) {
	slot, ok := r.slots[kind]
	if !ok {
		return nil, false
	}

	slot.mu.Lock()
	if !slot.enabled || len(slot.buffer) == 0 {
		slot.mu.Unlock()
		return nil, false
	}
	if r.clock.Now().Sub(slot.lastUpdate) > slot.timeout {
		slot.mu.Unlock()
		r.logger.Debug("dropping stale frame", "kind", kind, "timeout", slot.timeout)
		return nil, false
	}
	taken := slot.buffer
	slot.buffer = nil
	slot.mu.Unlock()

	if bytes.Equal(taken, previous) {
		return nil, false
	}
	return append(dst[:0], taken...), true
}

// Kinds returns the frame kinds this relay was constructed with, in
// unspecified order.
func (r *FrameRelay) Kinds() []FrameKind {
	kinds := make([]FrameKind, 0, len(r.slots))
	for kind := range r.slots {
		kinds = append(kinds, kind)
	}
	return kinds
}

// reset disables every slot and discards any pending frames. Used by
// Bridge.Teardown.
func (r *FrameRelay) reset() {
	for _, slot := range r.slots {
		slot.mu.Lock()
		slot.enabled = false
		slot.buffer = nil
		slot.mu.Unlock()
	}
}
