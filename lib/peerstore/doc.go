// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

// Package peerstore persists the device's stable identity and the
// table of peers this device has connected to.
//
// The device id is a 128-bit identifier generated once on first open
// and returned unchanged for the life of the database. Peers are
// recorded on every session add and read back by the host UI for its
// recent-connections list. Storage is SQLite in WAL mode; the store is
// safe for concurrent use.
package peerstore
