// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

// Package boundary exposes the bridge to the host UI runtime over a
// Unix domain socket.
//
// The host runtime and the engine share no memory, so every call
// crosses this socket as a CBOR-encoded [Request] answered by a single
// [Response]. Most actions are one round trip per connection. The two
// subscribe actions instead upgrade the connection to an event feed:
// after the initial Response, the server writes [bridge.Event] values
// to the connection as they are pushed, and the connection itself
// becomes the registered sink. When another subscriber takes over the
// channel or session, the superseded connection receives the terminal
// closing event and is closed — the replace-with-notify contract made
// visible on the wire.
//
// [Client] wraps dialing, request encoding, and subscription reading
// for host-side callers and tests.
package boundary
