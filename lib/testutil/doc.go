// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for holdq packages.
//
// [RequireReceive] and [RequireClosed] wrap the
// select-with-timeout pattern for tests that cross goroutines (the
// worker-pool countdown, the host link, the admin socket). They are
// the only place tests use a wall-clock timeout; everything else runs
// on clock.Fake.
//
// [SocketDir] returns a short temporary directory for Unix sockets,
// whose paths are limited to 108 bytes.
//
// All helpers fail the test with t.Fatalf rather than returning errors.
package testutil
