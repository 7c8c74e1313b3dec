// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "errors"

// ErrDuplicateSession is returned by SessionRegistry.Add when a session
// with the same id already exists. An id collision indicates a caller
// bug, so it is surfaced instead of silently overwriting.
var ErrDuplicateSession = errors.New("bridge: duplicate session id")

// ErrSessionNotFound is returned by operations that require an existing
// session. Most host-facing calls swallow it locally — the UI routinely
// races a session's teardown, and a miss is expected steady state, not
// an exceptional path.
var ErrSessionNotFound = errors.New("bridge: session not found")

// ErrChannelNotFound is returned by ChannelRegistry.Push when no sink
// is registered for the named channel.
var ErrChannelNotFound = errors.New("bridge: channel not found")
