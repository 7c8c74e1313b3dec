// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Spyglass's standard CBOR encoding configuration.
//
// The host boundary socket and all relayed event payloads use CBOR.
// This package provides the shared encoding and decoding modes so that
// every Spyglass package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (the boundary socket):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
package codec
