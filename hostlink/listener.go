// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package hostlink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/holdq/holdq/lib/codec"
)

const (
	// helloTimeout bounds how long a shim may take to introduce itself
	// after connecting.
	helloTimeout = 10 * time.Second

	socketMode = 0o660
)

// Listener accepts shim connections on a Unix socket.
type Listener struct {
	path        string
	listener    *net.UnixListener
	callTimeout time.Duration
	logger      *slog.Logger
}

// Listen creates the host socket at path, replacing a stale one.
// callTimeout bounds each call on accepted links; zero means
// DefaultCallTimeout.
func Listen(path string, callTimeout time.Duration, logger *slog.Logger) (*Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing stale socket %s: %w", path, err)
	}
	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", path, err)
	}
	if err := os.Chmod(path, socketMode); err != nil {
		listener.Close()
		return nil, fmt.Errorf("setting mode on %s: %w", path, err)
	}
	logger.Info("host socket listening", "path", path)
	return &Listener{path: path, listener: listener, callTimeout: callTimeout, logger: logger}, nil
}

// Path returns the socket path.
func (l *Listener) Path() string { return l.path }

// Accept waits for a shim that passes the peer check and sends a
// valid hello. Connections that fail either are closed and skipped.
func (l *Listener) Accept(ctx context.Context) (*Link, error) {
	l.listener.SetDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() { l.listener.SetDeadline(time.Now()) })
	defer stop()

	for {
		conn, err := l.listener.AcceptUnix()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return nil, err
			}
			l.logger.Error("accepting host connection failed", "error", err)
			continue
		}

		link, err := l.handshake(conn)
		if err != nil {
			l.logger.Warn("rejected host connection", "error", err)
			conn.Close()
			continue
		}
		l.logger.Info("host connected", "capabilities", link.capabilities)
		return link, nil
	}
}

func (l *Listener) handshake(conn *net.UnixConn) (*Link, error) {
	if err := checkPeer(conn); err != nil {
		return nil, err
	}

	conn.SetReadDeadline(time.Now().Add(helloTimeout))
	decoder := codec.NewDecoder(conn)
	var hello Frame
	if err := decoder.Decode(&hello); err != nil {
		return nil, fmt.Errorf("reading hello: %w", err)
	}
	conn.SetReadDeadline(time.Time{})
	if hello.Kind != KindHello {
		return nil, fmt.Errorf("first frame is %q, want %q", hello.Kind, KindHello)
	}
	return newLink(conn, decoder, hello.Capabilities, l.callTimeout, l.logger), nil
}

// Close stops listening and removes the socket file.
func (l *Listener) Close() error {
	err := l.listener.Close()
	os.Remove(l.path)
	return err
}
