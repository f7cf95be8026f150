// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package hostlink

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// checkPeer admits a peer running as this process's user or as root.
func checkPeer(conn *net.UnixConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("peer credentials: %w", err)
	}
	var credentials *unix.Ucred
	var credentialsErr error
	if err := raw.Control(func(fd uintptr) {
		credentials, credentialsErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return fmt.Errorf("peer credentials: %w", err)
	}
	if credentialsErr != nil {
		return fmt.Errorf("peer credentials: %w", credentialsErr)
	}
	if uid := int(credentials.Uid); uid != 0 && uid != os.Getuid() {
		return fmt.Errorf("peer pid %d runs as uid %d, want %d or root", credentials.Pid, uid, os.Getuid())
	}
	return nil
}
