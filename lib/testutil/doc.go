// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Spyglass packages.
//
// The Require* helpers encapsulate the timeout safety valve pattern for
// channel operations so individual tests do not need direct time.After
// calls. SocketDir provides short temporary directories for Unix domain
// socket tests, and UniqueID provides process-unique identifiers.
package testutil
