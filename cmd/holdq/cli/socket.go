// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/holdq/holdq/lib/config"
	"github.com/holdq/holdq/lib/service"
)

// SocketEnv overrides the default admin socket path.
const SocketEnv = "HOLDQ_ADMIN_SOCKET"

// callTimeout bounds one admin call.
const callTimeout = 30 * time.Second

// DefaultSocket returns $HOLDQ_ADMIN_SOCKET, or the path holdqd uses
// with its default configuration.
func DefaultSocket() string {
	if path := os.Getenv(SocketEnv); path != "" {
		return path
	}
	return config.Default().Paths.AdminSocket
}

// SocketFlag adds --socket to flagSet, bound to target.
func SocketFlag(flagSet *pflag.FlagSet, target *string) {
	flagSet.StringVar(target, "socket", DefaultSocket(), "holdqd admin socket (default $"+SocketEnv+")")
}

// Connect calls action on the admin socket at socketPath and decodes
// the reply into result, which may be nil.
func Connect(parent context.Context, socketPath, action string, fields map[string]any, result any) error {
	ctx, cancel := context.WithTimeout(parent, callTimeout)
	defer cancel()

	err := service.NewClient(socketPath).Call(ctx, action, fields, result)
	if err == nil {
		return nil
	}
	var serviceErr *service.ServiceError
	if errors.As(err, &serviceErr) {
		return errors.New(serviceErr.Message)
	}
	return diagnose(err, socketPath)
}

// diagnose adds a hint to the transport failures an operator can fix.
func diagnose(err error, socketPath string) error {
	switch {
	case errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		return fmt.Errorf("%w\n\npermission denied on %s: run as the holdq user or a member of its group", err, socketPath)
	case errors.Is(err, syscall.ENOENT), errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("%w\n\nholdqd is not running at %s (set --socket or $%s)", err, socketPath, SocketEnv)
	}
	return err
}
