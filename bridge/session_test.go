// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/spyglass-remote/spyglass/lib/testutil"
)

func newTestRegistry() *SessionRegistry {
	return NewSessionRegistry(discardLogger())
}

func TestAdd_DuplicateID(t *testing.T) {
	registry := newTestRegistry()
	id := uuid.New()

	if _, err := registry.Add(id, testutil.UniqueID("peer")); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	_, err := registry.Add(id, testutil.UniqueID("peer"))
	if !errors.Is(err, ErrDuplicateSession) {
		t.Fatalf("second Add error = %v, want ErrDuplicateSession", err)
	}
}

func TestRemove_ThenGetReturnsAbsent(t *testing.T) {
	registry := newTestRegistry()
	id := uuid.New()
	peer := testutil.UniqueID("peer")

	if _, err := registry.Add(id, peer); err != nil {
		t.Fatalf("Add: %v", err)
	}
	removed, ok := registry.Remove(id)
	if !ok {
		t.Fatal("Remove reported the session absent")
	}
	if removed.PeerID() != peer {
		t.Fatalf("removed peer = %q, want %q", removed.PeerID(), peer)
	}
	if _, ok := registry.Get(id); ok {
		t.Fatal("Get found a removed session")
	}
	if _, ok := registry.Remove(id); ok {
		t.Fatal("second Remove found the session again")
	}
}

func TestGet_UnknownID(t *testing.T) {
	registry := newTestRegistry()
	if _, ok := registry.Get(uuid.New()); ok {
		t.Fatal("Get found a session that was never added")
	}
}

func TestSetSink_ReplacementNotifiesPrevious(t *testing.T) {
	registry := newTestRegistry()
	session, err := registry.Add(uuid.New(), testutil.UniqueID("peer"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	first := &recordingSink{}
	second := &recordingSink{}
	session.SetSink(first)
	session.SetSink(second)

	requireEvents(t, first, EventClosing)
	if !first.isClosed() {
		t.Fatal("superseded sink not closed")
	}

	if !session.Emit(Event{Name: "frame-geometry"}) {
		t.Fatal("Emit after replacement failed")
	}
	requireEvents(t, first, EventClosing)
	requireEvents(t, second, "frame-geometry")
}

func TestSetSink_SameSinkIsNoOp(t *testing.T) {
	registry := newTestRegistry()
	session, err := registry.Add(uuid.New(), testutil.UniqueID("peer"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	sink := &recordingSink{}
	session.SetSink(sink)
	session.SetSink(sink)

	requireEvents(t, sink)
	if sink.isClosed() {
		t.Fatal("re-installing the same sink closed it")
	}
}

func TestEmit_NoSink(t *testing.T) {
	registry := newTestRegistry()
	session, err := registry.Add(uuid.New(), testutil.UniqueID("peer"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if session.Emit(Event{Name: "anything"}) {
		t.Fatal("Emit reported delivery with no sink installed")
	}
}

func TestEmit_DeliveryFailureKeepsSink(t *testing.T) {
	registry := newTestRegistry()
	session, err := registry.Add(uuid.New(), testutil.UniqueID("peer"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	failing := &recordingSink{deliverErr: errFarSideGone}
	session.SetSink(failing)
	if session.Emit(Event{Name: "status"}) {
		t.Fatal("Emit reported delivery despite sink failure")
	}
	if !session.HasSink() {
		t.Fatal("failing sink was unregistered; that decision belongs to the caller")
	}
}

func TestClearSink_RetiresSink(t *testing.T) {
	registry := newTestRegistry()
	session, err := registry.Add(uuid.New(), testutil.UniqueID("peer"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	sink := &recordingSink{}
	session.SetSink(sink)
	session.ClearSink()

	requireEvents(t, sink, EventClosing)
	if !sink.isClosed() {
		t.Fatal("cleared sink not closed")
	}
	if session.Emit(Event{Name: "late"}) {
		t.Fatal("Emit delivered after ClearSink")
	}
}

func TestAttachSink_InstallsOnLiveSession(t *testing.T) {
	registry := newTestRegistry()
	id := uuid.New()
	session, err := registry.Add(id, testutil.UniqueID("peer"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	sink := &recordingSink{}
	if !registry.AttachSink(id, sink) {
		t.Fatal("AttachSink refused a registered session")
	}
	if !session.HasSink() {
		t.Fatal("sink not installed")
	}
	if !session.Emit(Event{Name: "ping"}) {
		t.Fatal("Emit should reach the attached sink")
	}
}

func TestAttachSink_RemovedSessionRefused(t *testing.T) {
	registry := newTestRegistry()
	id := uuid.New()
	if _, err := registry.Add(id, testutil.UniqueID("peer")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, ok := registry.Remove(id); !ok {
		t.Fatal("Remove: session missing")
	}

	// A subscriber that loses the race with removal must be refused
	// rather than have its sink stranded on the torn-down session.
	if registry.AttachSink(id, &recordingSink{}) {
		t.Fatal("AttachSink installed on a removed session")
	}
}

func TestAttachSink_ThenTeardownRetiresSink(t *testing.T) {
	registry := newTestRegistry()
	id := uuid.New()
	if _, err := registry.Add(id, testutil.UniqueID("peer")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	sink := &recordingSink{}
	if !registry.AttachSink(id, sink) {
		t.Fatal("AttachSink refused a registered session")
	}
	removed, ok := registry.Remove(id)
	if !ok {
		t.Fatal("Remove: session missing")
	}
	removed.close()

	if !sink.isClosed() {
		t.Fatal("teardown after attach must retire the sink")
	}
	requireEvents(t, sink, EventClosing)
}

func TestDisplays_CopyInAndOut(t *testing.T) {
	registry := newTestRegistry()
	session, err := registry.Add(uuid.New(), testutil.UniqueID("peer"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	input := []int{0, 1}
	session.SetDisplays(input)
	input[0] = 99

	displays := session.Displays()
	if len(displays) != 2 || displays[0] != 0 || displays[1] != 1 {
		t.Fatalf("Displays = %v, want [0 1]", displays)
	}
	displays[1] = 99
	if again := session.Displays(); again[1] != 1 {
		t.Fatal("Displays returned a live reference to internal state")
	}
}

func TestSessions_Snapshot(t *testing.T) {
	registry := newTestRegistry()
	for range 3 {
		if _, err := registry.Add(uuid.New(), testutil.UniqueID("peer")); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if got := len(registry.Sessions()); got != 3 {
		t.Fatalf("Sessions snapshot length = %d, want 3", got)
	}
}
