// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

package boundary

import (
	"fmt"

	"github.com/spyglass-remote/spyglass/bridge"
)

// Request actions. Host-facing actions mirror the calls the UI runtime
// makes; the update/publish/emit actions are the producer surface used
// when the engine runs as a separate process (or a mock engine drives
// the bridge in tests).
const (
	ActionSetFrameEnabled  = "set-frame-enabled"
	ActionTakeFrame        = "take-frame"
	ActionUpdateFrame      = "update-frame"
	ActionTakeClipboard    = "take-clipboard"
	ActionPublishClipboard = "publish-clipboard"
	ActionAddSession       = "add-session"
	ActionRemoveSession    = "remove-session"
	ActionSessionInfo      = "session-info"
	ActionSetDisplays      = "set-displays"
	ActionNewRound         = "new-round"
	ActionPushEvent        = "push-event"
	ActionListChannels     = "list-channels"
	ActionSubscribeChannel = "subscribe-channel"
	ActionSubscribeSession = "subscribe-session"
	ActionListPeers        = "list-peers"
	ActionSetPeerAlias     = "set-peer-alias"
	ActionDeviceID         = "device-id"
)

// Request is one CBOR-encoded call across the host boundary. Action
// selects the operation; the other fields are populated as that
// action requires.
type Request struct {
	Action string `cbor:"action"`

	// Kind is the frame kind ("video", "audio") for frame actions.
	Kind string `cbor:"kind,omitempty"`

	// Enabled is the target state for set-frame-enabled.
	Enabled bool `cbor:"enabled,omitempty"`

	// Frame is the raw frame bytes for update-frame.
	Frame []byte `cbor:"frame,omitempty"`

	// Previous is the consumer's last received frame for take-frame;
	// an identical new frame is suppressed server-side so the bytes
	// never cross the boundary twice.
	Previous []byte `cbor:"previous,omitempty"`

	// Direction is "host-to-client" or "client-to-host" for clipboard
	// actions.
	Direction string `cbor:"direction,omitempty"`

	// Clipboard is the payload for publish-clipboard.
	Clipboard *bridge.ClipboardPayload `cbor:"clipboard,omitempty"`

	// SessionID is the uuid string for session-scoped actions.
	SessionID string `cbor:"session_id,omitempty"`

	// PeerID is the remote peer identifier for add-session and
	// set-peer-alias.
	PeerID string `cbor:"peer_id,omitempty"`

	// Alias is the display name for set-peer-alias.
	Alias string `cbor:"alias,omitempty"`

	// Displays is the display index list for set-displays.
	Displays []int `cbor:"displays,omitempty"`

	// Channel is the channel name for channel-scoped actions. For
	// push-event, exactly one of Channel and SessionID is set.
	Channel string `cbor:"channel,omitempty"`

	// Event is the event for push-event.
	Event *bridge.Event `cbor:"event,omitempty"`
}

// Response answers one Request. OK=false carries the failure in Error;
// the remaining fields are populated per action.
type Response struct {
	OK    bool   `cbor:"ok"`
	Error string `cbor:"error,omitempty"`

	// Present reports whether take-frame / take-clipboard found data.
	// A false Present with OK=true is the normal empty-poll outcome,
	// not an error.
	Present bool `cbor:"present,omitempty"`

	// Frame is the taken frame bytes when Present.
	Frame []byte `cbor:"frame,omitempty"`

	// Clipboard is the taken payload when Present.
	Clipboard *bridge.ClipboardPayload `cbor:"clipboard,omitempty"`

	// Session describes the queried session for session-info.
	Session *SessionInfo `cbor:"session,omitempty"`

	// Round is the new round token for new-round.
	Round uint64 `cbor:"round,omitempty"`

	// Delivered reports whether push-event to a session reached a
	// sink.
	Delivered bool `cbor:"delivered,omitempty"`

	// Channels is the snapshot for list-channels.
	Channels []string `cbor:"channels,omitempty"`

	// Peers is the known-peer list for list-peers.
	Peers []PeerInfo `cbor:"peers,omitempty"`

	// DeviceID is this device's stable identifier for device-id.
	DeviceID string `cbor:"device_id,omitempty"`
}

// SessionInfo is the boundary view of one session.
type SessionInfo struct {
	SessionID string `cbor:"session_id"`
	PeerID    string `cbor:"peer_id"`
	Displays  []int  `cbor:"displays,omitempty"`
	Round     uint64 `cbor:"round"`
	HasSink   bool   `cbor:"has_sink"`
}

// PeerInfo is the boundary view of one known peer.
type PeerInfo struct {
	ID            string `cbor:"id"`
	Alias         string `cbor:"alias,omitempty"`
	LastSessionID string `cbor:"last_session_id"`
	LastSeenMS    int64  `cbor:"last_seen_ms"`
	Sessions      int64  `cbor:"sessions"`
}

// parseDirection maps the wire direction name to the bridge type.
func parseDirection(name string) (bridge.Direction, error) {
	switch name {
	case bridge.HostToClient.String():
		return bridge.HostToClient, nil
	case bridge.ClientToHost.String():
		return bridge.ClientToHost, nil
	default:
		return 0, fmt.Errorf("boundary: unknown direction %q", name)
	}
}
