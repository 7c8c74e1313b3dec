// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "sync/atomic"

// RoundState is a strictly increasing per-session counter used to
// retire background loops across reconnects. Every (re)connect attempt
// calls NewRound and hands the returned token to the loop it spawns.
// The loop checks IsCurrent at each natural suspension point — before a
// blocking read, at the top of each iteration — and exits cleanly once
// a newer round exists.
//
// Round comparison is cooperative cancellation: it needs no signal
// delivery across the boundary, which is exactly why it is the fencing
// mechanism here. A reconnect can race an in-flight teardown of the
// previous attempt; the stale loop observes the mismatch on its next
// check and stops touching session state.
//
// The zero value is ready to use.
type RoundState struct {
	round atomic.Uint64
}

// NewRound increments the round and returns the new value as the token
// for the loop being started. Any loop holding an earlier token is now
// superseded.
func (r *RoundState) NewRound() uint64 {
	return r.round.Add(1)
}

// Current returns the current round value.
func (r *RoundState) Current() uint64 {
	return r.round.Load()
}

// IsCurrent reports whether token is still the active round. A false
// result means the holder has been superseded and must stop performing
// session-affecting work.
func (r *RoundState) IsCurrent(token uint64) bool {
	return r.round.Load() == token
}
