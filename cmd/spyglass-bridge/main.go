// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

// Command spyglass-bridge runs the host boundary daemon: it owns the
// in-process bridge (frame relay, clipboard mailbox, session and
// channel registries), the peer database, and the Unix socket the
// host runtime connects to.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/spyglass-remote/spyglass/boundary"
	"github.com/spyglass-remote/spyglass/bridge"
	"github.com/spyglass-remote/spyglass/lib/clock"
	"github.com/spyglass-remote/spyglass/lib/config"
	"github.com/spyglass-remote/spyglass/lib/peerstore"
)

const version = "0.3.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		socketPath  string
		stateDir    string
		showVersion bool
	)
	pflag.StringVar(&configPath, "config", "", "path to YAML configuration (defaults apply when empty)")
	pflag.StringVar(&socketPath, "socket", "", "boundary socket path (overrides the config file)")
	pflag.StringVar(&stateDir, "state-dir", "", "persistent state directory (overrides the config file)")
	pflag.BoolVar(&showVersion, "version", false, "print version information and exit")
	pflag.Parse()

	if showVersion {
		fmt.Printf("spyglass-bridge %s\n", version)
		return nil
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if socketPath != "" {
		cfg.SocketPath = socketPath
	}
	if stateDir != "" {
		cfg.StateDir = stateDir
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		return fmt.Errorf("creating state dir %s: %w", cfg.StateDir, err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.SocketPath), 0o755); err != nil {
		return fmt.Errorf("creating socket dir: %w", err)
	}

	store, err := peerstore.Open(peerstore.Config{
		Path:   filepath.Join(cfg.StateDir, "peers.db"),
		Clock:  clock.Real(),
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	deviceID, err := store.DeviceID(ctx)
	if err != nil {
		return err
	}
	logger.Info("spyglass-bridge starting",
		"version", version,
		"device_id", deviceID,
		"socket", cfg.SocketPath,
	)

	b := bridge.New(bridge.Options{
		Logger: logger,
		FrameTimeouts: map[bridge.FrameKind]time.Duration{
			bridge.FrameVideo: cfg.VideoTimeout(),
			bridge.FrameAudio: cfg.AudioTimeout(),
		},
	})
	server := &boundary.Server{
		Bridge:     b,
		Peers:      store,
		SocketPath: cfg.SocketPath,
		Logger:     logger,
	}
	if err := server.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("shutting down")
	server.Stop()
	b.Teardown()
	return nil
}
