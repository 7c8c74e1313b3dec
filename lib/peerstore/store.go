// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

package peerstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/spyglass-remote/spyglass/lib/clock"
)

// Peer is one row of the known-peers table.
type Peer struct {
	// ID is the remote peer's identifier string.
	ID string

	// Alias is the user-assigned display name, empty if never set.
	Alias string

	// LastSessionID is the id of the most recent session to this peer.
	LastSessionID uuid.UUID

	// LastSeen is when that session was added.
	LastSeen time.Time

	// Sessions counts how many sessions have been added to this peer.
	Sessions int64
}

// Config holds the parameters for opening a peer store.
type Config struct {
	// Path is the filesystem path to the SQLite database file. The
	// parent directory must exist. The file is created if it does not
	// exist.
	Path string

	// PoolSize is the number of connections in the pool. Defaults to
	// 4 if zero or negative.
	PoolSize int

	// Clock provides timestamps for peer bookkeeping. Required.
	Clock clock.Clock

	// Logger receives operational messages. If nil, logs are
	// discarded.
	Logger *slog.Logger
}

// Store is the SQLite-backed peer and identity store.
type Store struct {
	pool   *sqlitex.Pool
	clock  clock.Clock
	logger *slog.Logger
	path   string
}

// Open creates or opens the peer database at cfg.Path and ensures the
// schema exists. The caller must Close the store when done.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("peerstore: Path is required")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("peerstore: Clock is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("peerstore: opening %s: %w", cfg.Path, err)
	}

	store := &Store{pool: pool, clock: cfg.Clock, logger: logger, path: cfg.Path}
	if err := store.ensureSchema(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("peer store opened", "path", cfg.Path)
	return store, nil
}

// Close closes the connection pool. Blocks until all borrowed
// connections are returned.
func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("peerstore: closing %s: %w", s.path, err)
	}
	return nil
}

// DeviceID returns the device's stable 128-bit identifier, generating
// and persisting it on first call.
func (s *Store) DeviceID(ctx context.Context) (uuid.UUID, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("peerstore: take: %w", err)
	}
	defer s.pool.Put(conn)

	// INSERT OR IGNORE then SELECT: two concurrent first calls both
	// land on the row the winner inserted.
	generated := uuid.New()
	err = sqlitex.Execute(conn,
		`INSERT OR IGNORE INTO device (key, value) VALUES ('device_id', ?)`,
		&sqlitex.ExecOptions{Args: []any{generated.String()}},
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("peerstore: storing device id: %w", err)
	}

	var stored string
	err = sqlitex.Execute(conn,
		`SELECT value FROM device WHERE key = 'device_id'`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				stored = stmt.ColumnText(0)
				return nil
			},
		},
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("peerstore: reading device id: %w", err)
	}

	id, err := uuid.Parse(stored)
	if err != nil {
		return uuid.Nil, fmt.Errorf("peerstore: stored device id %q is not a uuid: %w", stored, err)
	}
	return id, nil
}

// RememberPeer records a session to peerID: the peer's last session id
// and timestamp are replaced and its session count incremented. A new
// peer row is created on first contact.
func (s *Store) RememberPeer(ctx context.Context, peerID string, sessionID uuid.UUID) error {
	if peerID == "" {
		return fmt.Errorf("peerstore: peer id is required")
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("peerstore: take: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO peers (peer_id, last_session_id, last_seen_unix_ms, sessions)
		VALUES (?, ?, ?, 1)
		ON CONFLICT (peer_id) DO UPDATE SET
			last_session_id = excluded.last_session_id,
			last_seen_unix_ms = excluded.last_seen_unix_ms,
			sessions = sessions + 1`,
		&sqlitex.ExecOptions{
			Args: []any{peerID, sessionID.String(), s.clock.Now().UnixMilli()},
		},
	)
	if err != nil {
		return fmt.Errorf("peerstore: remembering peer %q: %w", peerID, err)
	}
	return nil
}

// SetAlias assigns a display name to a known peer. Returns an error if
// the peer has never been seen.
func (s *Store) SetAlias(ctx context.Context, peerID, alias string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("peerstore: take: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`UPDATE peers SET alias = ? WHERE peer_id = ?`,
		&sqlitex.ExecOptions{Args: []any{alias, peerID}},
	)
	if err != nil {
		return fmt.Errorf("peerstore: setting alias for %q: %w", peerID, err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("peerstore: unknown peer %q", peerID)
	}
	return nil
}

// Peer returns the stored row for peerID, or false if the peer has
// never been seen.
func (s *Store) Peer(ctx context.Context, peerID string) (Peer, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Peer{}, false, fmt.Errorf("peerstore: take: %w", err)
	}
	defer s.pool.Put(conn)

	var peer Peer
	found := false
	err = sqlitex.Execute(conn,
		`SELECT peer_id, alias, last_session_id, last_seen_unix_ms, sessions
		 FROM peers WHERE peer_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{peerID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				var scanErr error
				peer, scanErr = scanPeer(stmt)
				found = true
				return scanErr
			},
		},
	)
	if err != nil {
		return Peer{}, false, fmt.Errorf("peerstore: reading peer %q: %w", peerID, err)
	}
	return peer, found, nil
}

// Peers returns all known peers, most recently seen first.
func (s *Store) Peers(ctx context.Context) ([]Peer, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("peerstore: take: %w", err)
	}
	defer s.pool.Put(conn)

	var peers []Peer
	err = sqlitex.Execute(conn,
		`SELECT peer_id, alias, last_session_id, last_seen_unix_ms, sessions
		 FROM peers ORDER BY last_seen_unix_ms DESC, peer_id`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				peer, scanErr := scanPeer(stmt)
				if scanErr != nil {
					return scanErr
				}
				peers = append(peers, peer)
				return nil
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("peerstore: listing peers: %w", err)
	}
	return peers, nil
}

func scanPeer(stmt *sqlite.Stmt) (Peer, error) {
	sessionID, err := uuid.Parse(stmt.ColumnText(2))
	if err != nil {
		return Peer{}, fmt.Errorf("peerstore: stored session id %q is not a uuid: %w", stmt.ColumnText(2), err)
	}
	return Peer{
		ID:            stmt.ColumnText(0),
		Alias:         stmt.ColumnText(1),
		LastSessionID: sessionID,
		LastSeen:      time.UnixMilli(stmt.ColumnInt64(3)).UTC(),
		Sessions:      stmt.ColumnInt64(4),
	}, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("peerstore: take: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.ExecuteScript(conn, `
		CREATE TABLE IF NOT EXISTS device (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS peers (
			peer_id           TEXT PRIMARY KEY,
			alias             TEXT NOT NULL DEFAULT '',
			last_session_id   TEXT NOT NULL,
			last_seen_unix_ms INTEGER NOT NULL,
			sessions          INTEGER NOT NULL DEFAULT 0
		);
	`, nil)
	if err != nil {
		return fmt.Errorf("peerstore: creating schema: %w", err)
	}
	return nil
}

// prepareConnection applies the standard pragmas to each pooled
// connection: WAL for concurrent readers, a busy timeout instead of
// immediate SQLITE_BUSY failures.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("peerstore: %s: %w", pragma, err)
		}
	}
	return nil
}
