// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

package peerstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/spyglass-remote/spyglass/lib/clock"
	"github.com/spyglass-remote/spyglass/lib/testutil"
)

func openTestStore(t *testing.T) (*Store, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	store, err := Open(Config{
		Path:  filepath.Join(t.TempDir(), "peers.db"),
		Clock: fake,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store, fake
}

func TestDeviceID_StableAcrossCalls(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	first, err := store.DeviceID(ctx)
	if err != nil {
		t.Fatalf("first DeviceID: %v", err)
	}
	if first == uuid.Nil {
		t.Fatal("DeviceID returned the nil uuid")
	}
	second, err := store.DeviceID(ctx)
	if err != nil {
		t.Fatalf("second DeviceID: %v", err)
	}
	if second != first {
		t.Fatalf("DeviceID changed between calls: %v then %v", first, second)
	}
}

func TestDeviceID_PersistsAcrossReopen(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	path := filepath.Join(t.TempDir(), "peers.db")
	ctx := context.Background()

	store, err := Open(Config{Path: path, Clock: fake})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	first, err := store.DeviceID(ctx)
	if err != nil {
		t.Fatalf("DeviceID: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(Config{Path: path, Clock: fake})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	second, err := reopened.DeviceID(ctx)
	if err != nil {
		t.Fatalf("DeviceID after reopen: %v", err)
	}
	if second != first {
		t.Fatalf("DeviceID changed across reopen: %v then %v", first, second)
	}
}

func TestRememberPeer_CreatesAndUpdates(t *testing.T) {
	store, fake := openTestStore(t)
	ctx := context.Background()
	peerID := testutil.UniqueID("peer")

	firstSession := uuid.New()
	if err := store.RememberPeer(ctx, peerID, firstSession); err != nil {
		t.Fatalf("first RememberPeer: %v", err)
	}

	fake.Advance(time.Minute)
	secondSession := uuid.New()
	if err := store.RememberPeer(ctx, peerID, secondSession); err != nil {
		t.Fatalf("second RememberPeer: %v", err)
	}

	peer, found, err := store.Peer(ctx, peerID)
	if err != nil || !found {
		t.Fatalf("Peer: %v, found=%v", err, found)
	}
	if peer.LastSessionID != secondSession {
		t.Fatalf("LastSessionID = %v, want %v", peer.LastSessionID, secondSession)
	}
	if peer.Sessions != 2 {
		t.Fatalf("Sessions = %d, want 2", peer.Sessions)
	}
	wantSeen := time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC)
	if !peer.LastSeen.Equal(wantSeen) {
		t.Fatalf("LastSeen = %v, want %v", peer.LastSeen, wantSeen)
	}
}

func TestRememberPeer_EmptyID(t *testing.T) {
	store, _ := openTestStore(t)
	if err := store.RememberPeer(context.Background(), "", uuid.New()); err == nil {
		t.Fatal("RememberPeer accepted an empty peer id")
	}
}

func TestSetAlias(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	peerID := testutil.UniqueID("peer")

	if err := store.SetAlias(ctx, peerID, "office"); err == nil {
		t.Fatal("SetAlias succeeded for an unknown peer")
	}

	if err := store.RememberPeer(ctx, peerID, uuid.New()); err != nil {
		t.Fatalf("RememberPeer: %v", err)
	}
	if err := store.SetAlias(ctx, peerID, "office"); err != nil {
		t.Fatalf("SetAlias: %v", err)
	}
	peer, found, err := store.Peer(ctx, peerID)
	if err != nil || !found {
		t.Fatalf("Peer: %v, found=%v", err, found)
	}
	if peer.Alias != "office" {
		t.Fatalf("Alias = %q, want %q", peer.Alias, "office")
	}
}

func TestPeer_Unknown(t *testing.T) {
	store, _ := openTestStore(t)
	_, found, err := store.Peer(context.Background(), testutil.UniqueID("peer"))
	if err != nil {
		t.Fatalf("Peer: %v", err)
	}
	if found {
		t.Fatal("Peer reported an unknown peer as found")
	}
}

func TestPeers_MostRecentFirst(t *testing.T) {
	store, fake := openTestStore(t)
	ctx := context.Background()

	older := testutil.UniqueID("peer")
	newer := testutil.UniqueID("peer")
	if err := store.RememberPeer(ctx, older, uuid.New()); err != nil {
		t.Fatalf("RememberPeer: %v", err)
	}
	fake.Advance(time.Second)
	if err := store.RememberPeer(ctx, newer, uuid.New()); err != nil {
		t.Fatalf("RememberPeer: %v", err)
	}

	peers, err := store.Peers(ctx)
	if err != nil {
		t.Fatalf("Peers: %v", err)
	}
	if len(peers) != 2 {
		t.Fatalf("Peers returned %d rows, want 2", len(peers))
	}
	if peers[0].ID != newer || peers[1].ID != older {
		t.Fatalf("Peers order = [%s %s], want newest first", peers[0].ID, peers[1].ID)
	}
}
