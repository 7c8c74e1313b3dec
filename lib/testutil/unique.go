// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var uniqueCounter atomic.Uint64

// UniqueID returns a string of the form "prefix-N" where N is a
// monotonically increasing integer. Use this instead of time.Now() when
// tests need unique identifiers for peer ids, channel names, or event
// bodies that must be distinguishable across parallel tests.
//
//	peer := testutil.UniqueID("peer")     // "peer-1", "peer-2", ...
//	name := testutil.UniqueID("channel")  // "channel-3", ...
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}
