// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge moves media frames, clipboard payloads, and events
// between the native capture/session engine and the host UI runtime.
//
// The two sides cannot share memory or ownership: every value crosses
// an explicit call boundary. The bridge therefore deals only in owned
// values handed off through small concurrent structures, each tuned to
// one traffic pattern:
//
//   - [FrameRelay]: a single-slot dead-drop per media kind. The
//     producer overwrites, the consumer takes the newest frame or
//     nothing. Frames older than the kind's staleness timeout are
//     dropped rather than delivered — for real-time media, correctness
//     beats completeness.
//   - [Mailbox]: one take-once slot per clipboard direction,
//     last-write-wins. Clipboard content does not go stale.
//   - [SessionRegistry]: the lifetime map from session id to
//     [Session]. Holders that keep only the id must re-look-up; the
//     registry never extends a session's life on their behalf.
//   - [ChannelRegistry]: named broadcast channels with at most one
//     live [Sink] each. Registering over an existing sink first
//     delivers a terminal closing event to the sink being replaced.
//   - [RoundState]: a per-session monotonic counter that retires
//     background loops superseded by a reconnect. Loops capture a
//     round token at start and stop touching session state once the
//     token is no longer current.
//
// [Bridge] aggregates the five structures into one explicitly
// constructed instance with a documented Teardown, so tests can build
// isolated bridges instead of sharing process-global state.
//
// The bridge does not decide what to send: argument marshalling, the
// wire protocol, codecs, rendering, and session business logic all
// live with its collaborators.
package bridge
