// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
)

// recordingSink captures delivered events for assertions. If
// deliverErr is set, every Deliver fails with it.
type recordingSink struct {
	mu         sync.Mutex
	events     []Event
	closed     bool
	deliverErr error
}

func (s *recordingSink) Deliver(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deliverErr != nil {
		return s.deliverErr
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) eventNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.events))
	for i, event := range s.events {
		names[i] = event.Name
	}
	return names
}

func (s *recordingSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// requireEvents fails the test unless the sink saw exactly the named
// events in order.
func requireEvents(t *testing.T, sink *recordingSink, want ...string) {
	t.Helper()
	got := sink.eventNames()
	if len(got) != len(want) {
		t.Fatalf("sink saw events %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sink saw events %v, want %v", got, want)
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

var errFarSideGone = errors.New("far side gone")
