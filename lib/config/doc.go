// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads and persists holdqd's YAML configuration.
//
// The file is named by the HOLDQ_CONFIG environment variable ([Load])
// or a --config flag ([LoadFile]). There is no search path. Values the
// file omits keep the defaults from [Default], which match the
// behaviour operators expect from a stock install: a ten second queue,
// handoff to "smp", three attempts five seconds apart.
//
// Numeric settings with a meaningful range are clamped rather than
// rejected; each clamp is recorded and returned by
// [Config.Adjustments] so the daemon can log it. Settings that cannot
// be repaired (an empty target server, a non-positive tick) fail
// [Config.Validate].
//
// Admin actions that change settings at runtime (toggle, set-time,
// set-message, notify) write the file back with [Config.Save], which
// replaces it atomically.
//
// This package depends on no other holdq packages.
package config
