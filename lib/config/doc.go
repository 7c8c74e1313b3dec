// Copyright 2026 The Spyglass Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the Spyglass
// bridge daemon.
//
// Configuration is loaded from a single YAML file passed explicitly by
// the caller. There are no fallbacks or automatic discovery: this
// ensures deterministic, auditable configuration with no hidden
// overrides. Unknown keys are rejected so a typo fails loudly instead
// of silently using a default.
package config
