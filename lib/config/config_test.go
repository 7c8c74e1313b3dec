// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spyglass-remote/spyglass/bridge"
	"github.com/spyglass-remote/spyglass/lib/clock"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
socket_path: /tmp/test/bridge.sock
state_dir: /tmp/test/state
log:
  level: debug
frames:
  video_timeout_ms: 80
  audio_timeout_ms: 500
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SocketPath != "/tmp/test/bridge.sock" {
		t.Fatalf("SocketPath = %q", cfg.SocketPath)
	}
	level, err := cfg.LogLevel()
	if err != nil || level != slog.LevelDebug {
		t.Fatalf("LogLevel = %v, %v", level, err)
	}
	if cfg.VideoTimeout() != 80*time.Millisecond {
		t.Fatalf("VideoTimeout = %v", cfg.VideoTimeout())
	}
	if cfg.AudioTimeout() != 500*time.Millisecond {
		t.Fatalf("AudioTimeout = %v", cfg.AudioTimeout())
	}
}

func TestLoad_DefaultsApply(t *testing.T) {
	path := writeConfig(t, `
socket_path: /tmp/test/bridge.sock
state_dir: /tmp/test/state
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	level, err := cfg.LogLevel()
	if err != nil || level != slog.LevelInfo {
		t.Fatalf("default LogLevel = %v, %v", level, err)
	}
	if cfg.VideoTimeout() != bridge.DefaultVideoTimeout {
		t.Fatalf("unset video timeout should fall back to the standard default, got %v", cfg.VideoTimeout())
	}
	if cfg.AudioTimeout() != bridge.DefaultAudioTimeout {
		t.Fatalf("unset audio timeout should fall back to the standard default, got %v", cfg.AudioTimeout())
	}
}

// A relay built from the default configuration must deliver a fresh
// frame: a zero configured timeout selects the kind's default rather
// than marking everything stale.
func TestDefaultTimeoutsDeliverFreshFrames(t *testing.T) {
	cfg := Default()
	relay := bridge.NewFrameRelay(clock.Real(), slog.New(slog.DiscardHandler), map[bridge.FrameKind]time.Duration{
		bridge.FrameVideo: cfg.VideoTimeout(),
		bridge.FrameAudio: cfg.AudioTimeout(),
	})
	relay.SetEnabled(bridge.FrameVideo, true)
	relay.Update(bridge.FrameVideo, []byte{1, 2, 3})
	frame, ok := relay.Take(bridge.FrameVideo, nil, nil)
	if !ok {
		t.Fatal("fresh frame dropped as stale under the default config")
	}
	if string(frame) != "\x01\x02\x03" {
		t.Fatalf("unexpected frame %v", frame)
	}
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, `
socket_path: /tmp/test/bridge.sock
state_dir: /tmp/test/state
soket_path: /oops
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted an unknown field")
	}
}

func TestLoad_InvalidLevel(t *testing.T) {
	path := writeConfig(t, `
socket_path: /tmp/test/bridge.sock
state_dir: /tmp/test/state
log:
  level: loud
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted an unknown log level")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load succeeded on a missing file")
	}
}

func TestValidate_NegativeTimeout(t *testing.T) {
	cfg := Default()
	cfg.Frames.VideoTimeoutMS = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate accepted a negative timeout")
	}
}
