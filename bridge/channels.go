// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ChannelRegistry maps global channel names to event sinks, at most
// one live sink per name. It carries engine notifications that are not
// tied to a single session: connection-manager state, theme and
// language changes, service status.
//
// Reads (Push, Channels) take a shared lock; structural changes
// (Register, Unregister) take the exclusive lock. Push invokes the
// sink after releasing the read lock so a slow boundary crossing never
// holds up the registry. Register delivers the closing event to a
// replaced sink while still holding the exclusive lock — replacement
// is a rare control-plane operation, and holding the lock guarantees
// no push reaches the new sink before the old one has seen closing.
//
// All methods are safe for concurrent use.
type ChannelRegistry struct {
	logger *slog.Logger

	mu    sync.RWMutex
	sinks map[string]Sink
}

// NewChannelRegistry creates an empty registry. If logger is nil,
// slog.Default() is used.
func NewChannelRegistry(logger *slog.Logger) *ChannelRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelRegistry{
		logger: logger,
		sinks:  make(map[string]Sink),
	}
}

// Register installs sink as the channel's consumer. If the channel
// already has a sink, that sink first receives the terminal closing
// event and is closed, and the replacement is logged — two live sinks
// on one channel never exist.
func (r *ChannelRegistry) Register(name string, sink Sink) error {
	if name == "" {
		return fmt.Errorf("bridge: channel name is required")
	}
	if sink == nil {
		return fmt.Errorf("bridge: nil sink for channel %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if previous, exists := r.sinks[name]; exists {
		r.logger.Warn("channel sink replaced", "channel", name)
		retireSink(previous, r.logger, "channel", name)
	}
	r.sinks[name] = sink
	return nil
}

// Unregister removes and retires the channel's sink. No-op if the
// channel has no sink.
func (r *ChannelRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sink, exists := r.sinks[name]
	if !exists {
		return
	}
	delete(r.sinks, name)
	retireSink(sink, r.logger, "channel", name)
}

// UnregisterSink removes and retires the channel's sink only if sink
// is the one currently registered. Transport layers use this when the
// connection behind a sink dies: if the channel has since been handed
// to a replacement, the replacement is left untouched.
func (r *ChannelRegistry) UnregisterSink(name string, sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, exists := r.sinks[name]
	if !exists || current != sink {
		return
	}
	delete(r.sinks, name)
	retireSink(sink, r.logger, "channel", name)
}

// Push synchronously delivers event to the channel's sink. Returns
// ErrChannelNotFound if no sink is registered. A sink that fails the
// delivery is reported as an error and logged, but stays registered —
// one failing sink must not corrupt delivery on any other channel, and
// the caller may Unregister if it knows the far end is gone.
func (r *ChannelRegistry) Push(name string, event Event) error {
	r.mu.RLock()
	sink, exists := r.sinks[name]
	r.mu.RUnlock()
	if !exists {
		return fmt.Errorf("%w: %q", ErrChannelNotFound, name)
	}
	if err := sink.Deliver(event); err != nil {
		r.logger.Error("channel event delivery failed",
			"channel", name,
			"event", event.Name,
			"error", err,
		)
		return fmt.Errorf("bridge: delivering to channel %q: %w", name, err)
	}
	return nil
}

// Channels returns a sorted snapshot of the registered channel names.
// The snapshot is not a live view; channels may be registered or
// removed immediately after it is taken.
func (r *ChannelRegistry) Channels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sinks))
	for name := range r.sinks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// closeAll retires every registered sink. Used by Bridge.Teardown.
func (r *ChannelRegistry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, sink := range r.sinks {
		retireSink(sink, r.logger, "channel", name)
		delete(r.sinks, name)
	}
}
