// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"net"
	"testing"
	"time"
)

// WaitForSocket blocks until a Unix socket at path accepts a
// connection, failing the test after timeout. Use it after starting a
// server goroutine and before the first client call.
func WaitForSocket(t *testing.T, path string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout) //nolint:realclock test hang prevention
	for {
		conn, err := net.DialTimeout("unix", path, 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		if time.Now().After(deadline) { //nolint:realclock test hang prevention
			t.Fatalf("socket %s not accepting connections after %v: %v", path, timeout, err)
		}
		time.Sleep(10 * time.Millisecond) //nolint:realclock polling a real socket
	}
}
