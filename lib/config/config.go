// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spyglass-remote/spyglass/bridge"
)

// Config is the bridge daemon configuration.
type Config struct {
	// SocketPath is where the daemon listens for host boundary
	// connections.
	SocketPath string `yaml:"socket_path"`

	// StateDir holds persistent state (the peer database). Created if
	// it does not exist.
	StateDir string `yaml:"state_dir"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`

	// Frames configures the media frame relay.
	Frames FramesConfig `yaml:"frames"`
}

// LogConfig selects the log level.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to
	// "info".
	Level string `yaml:"level"`
}

// FramesConfig sets the per-kind staleness timeouts in milliseconds.
// Zero selects the standard default for that kind.
type FramesConfig struct {
	VideoTimeoutMS int `yaml:"video_timeout_ms"`
	AudioTimeoutMS int `yaml:"audio_timeout_ms"`
}

// Default returns the configuration used when no config file is given:
// conventional runtime paths, info logging, standard frame timeouts.
func Default() *Config {
	return &Config{
		SocketPath: "/run/spyglass/bridge.sock",
		StateDir:   "/var/lib/spyglass",
		Log:        LogConfig{Level: "info"},
	}
}

// Load reads and validates the configuration file at path. Missing
// fields take their defaults; unknown fields are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.SocketPath == "" {
		return fmt.Errorf("socket_path is required")
	}
	if c.StateDir == "" {
		return fmt.Errorf("state_dir is required")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Frames.VideoTimeoutMS < 0 || c.Frames.AudioTimeoutMS < 0 {
		return fmt.Errorf("frame timeouts must not be negative")
	}
	return nil
}

// LogLevel parses the configured log level.
func (c *Config) LogLevel() (slog.Level, error) {
	switch c.Log.Level {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", c.Log.Level)
	}
}

// VideoTimeout returns the configured video staleness timeout. An
// unset (zero) value selects the relay's standard video default.
func (c *Config) VideoTimeout() time.Duration {
	if c.Frames.VideoTimeoutMS == 0 {
		return bridge.DefaultVideoTimeout
	}
	return time.Duration(c.Frames.VideoTimeoutMS) * time.Millisecond
}

// AudioTimeout returns the configured audio staleness timeout. An
// unset (zero) value selects the relay's standard audio default.
func (c *Config) AudioTimeout() time.Duration {
	if c.Frames.AudioTimeoutMS == 0 {
		return bridge.DefaultAudioTimeout
	}
	return time.Duration(c.Frames.AudioTimeoutMS) * time.Millisecond
}
