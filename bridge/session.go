// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Session is one remote-access connection's bridge-side state: the
// peer identity, the at-most-one event sink feeding the UI, and the
// reconnection round counter. The session's business logic (input
// injection, file transfer, the network state machine) lives with the
// engine; the bridge only coordinates hand-off and lifecycle.
//
// Sessions are created through SessionRegistry.Add and reachable only
// while registered. Code that holds a session id rather than a
// *Session must re-look-up on every use — the id confers no liveness.
type Session struct {
	id        uuid.UUID
	peerID    string
	rounds    RoundState
	logger    *slog.Logger

	mu       sync.Mutex
	sink     Sink
	displays []int
}

// ID returns the process-unique session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// PeerID returns the remote peer's identifier string.
func (s *Session) PeerID() string { return s.peerID }

// Rounds returns the session's reconnection round counter.
func (s *Session) Rounds() *RoundState { return &s.rounds }

// SetDisplays records the remote display indices the UI is showing.
func (s *Session) SetDisplays(displays []int) {
	s.mu.Lock()
	s.displays = append([]int(nil), displays...)
	s.mu.Unlock()
}

// Displays returns a copy of the recorded display indices.
func (s *Session) Displays() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.displays...)
}

// SetSink installs sink as the session's event consumer. If a sink is
// already installed, it first receives the terminal closing event and
// is closed — the superseded UI learns deterministically that another
// UI took over. The closing delivery happens before the new sink
// becomes active; no event can reach the new sink first.
//
// Passing the currently installed sink again is a no-op.
func (s *Session) SetSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink == sink {
		return
	}
	if s.sink != nil {
		s.logger.Warn("session sink replaced", "session_id", s.id, "peer_id", s.peerID)
		retireSink(s.sink, s.logger, "session_id", s.id)
	}
	s.sink = sink
}

// ClearSink removes and retires the session's sink, if any.
func (s *Session) ClearSink() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink == nil {
		return
	}
	retireSink(s.sink, s.logger, "session_id", s.id)
	s.sink = nil
}

// DropSink removes and retires sink only if it is the session's
// current sink. Transport layers use this when the connection behind a
// sink dies; a replacement installed in the meantime is left untouched.
func (s *Session) DropSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink != sink {
		return
	}
	retireSink(s.sink, s.logger, "session_id", s.id)
	s.sink = nil
}

// HasSink reports whether an event sink is currently installed.
func (s *Session) HasSink() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink != nil
}

// Emit delivers event to the session's current sink. It reports false
// when no sink is installed or the sink failed to accept the event; a
// delivery failure is logged and the sink stays registered (the caller
// may ClearSink if it knows the far end is gone). The sink is invoked
// outside the session lock so a slow boundary crossing cannot stall
// SetSink or ClearSink callers.
func (s *Session) Emit(event Event) bool {
	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	if sink == nil {
		return false
	}
	if err := sink.Deliver(event); err != nil {
		s.logger.Error("session event delivery failed",
			"session_id", s.id,
			"event", event.Name,
			"error", err,
		)
		return false
	}
	return true
}

// close severs the session's sink and bumps the round counter so any
// in-flight background loop retires itself. Called by the registry
// owner after Remove; the registry itself never cascades teardown.
func (s *Session) close() {
	s.rounds.NewRound()
	s.ClearSink()
}

// SessionRegistry is the concurrent map from session id to session
// handle. It owns each session's reachability and nothing else:
// Remove hands the session back to the caller, who runs teardown.
// Reads take a shared lock; structural changes take the exclusive
// lock. All methods are safe for concurrent use.
type SessionRegistry struct {
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewSessionRegistry creates an empty registry. If logger is nil,
// slog.Default() is used.
func NewSessionRegistry(logger *slog.Logger) *SessionRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRegistry{
		logger:   logger,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Add creates and registers a session for the given id and peer.
// Returns ErrDuplicateSession if the id is already registered — a
// collision is a caller bug, not something to paper over.
func (r *SessionRegistry) Add(id uuid.UUID, peerID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSession, id)
	}
	session := &Session{
		id:     id,
		peerID: peerID,
		logger: r.logger,
	}
	r.sessions[id] = session
	return session, nil
}

// Get returns the session for id, or false if it is not registered.
func (r *SessionRegistry) Get(id uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	return session, ok
}

// Remove unregisters and returns the session for id, or false if it is
// not registered. Ownership passes to the caller, who is responsible
// for teardown (sink closure, round invalidation).
func (r *SessionRegistry) Remove(id uuid.UUID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return session, ok
}

// AttachSink installs sink on the session for id, or reports false if
// the session is not registered. Holding the registry lock across the
// lookup and the install means a concurrent Remove either happens
// first (AttachSink refuses) or after (the remover's teardown retires
// the sink); the sink can never land on a session that has already
// been torn down.
func (r *SessionRegistry) AttachSink(id uuid.UUID, sink Sink) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	if !ok {
		return false
	}
	session.SetSink(sink)
	return true
}

// Sessions returns a snapshot of all registered sessions, in
// unspecified order.
func (r *SessionRegistry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		snapshot = append(snapshot, session)
	}
	return snapshot
}
