// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"

	"github.com/holdq/holdq/admin"
	"github.com/holdq/holdq/cmd/holdq/cli"
)

func sendCommand(out io.Writer) *cli.Command {
	var socket string
	return &cli.Command{
		Name:    "send",
		Summary: "Transfer a user to the target server now",
		Description: `Skip the countdown for one online user: release them and start the
transfer to the target server immediately. The user may be named by
UUID or by name (case-insensitive).`,
		Usage: "holdq send <user> [flags]",
		Examples: []cli.Example{
			{Command: "holdq send Alice"},
		},
		Flags: socketFlags("send", &socket),
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("send takes exactly one argument: the user")
			}
			var response admin.SendResponse
			if err := call(socket, admin.ActionSend, map[string]any{"user": args[0]}, &response); err != nil {
				return err
			}
			fmt.Fprintf(out, "sending %s to %s\n", displayName(response.Name, response.User.String()), response.Target)
			return nil
		},
	}
}

func releaseCommand(out io.Writer) *cli.Command {
	var socket string
	return &cli.Command{
		Name:    "release",
		Summary: "Release a user from the lobby without transferring them",
		Description: `Lift every restriction on a user and drop any transfer in progress.
An online user may be named by UUID or name; a user who has left may be
named by UUID to clear a stale record.`,
		Usage: "holdq release <user> [flags]",
		Flags: socketFlags("release", &socket),
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("release takes exactly one argument: the user")
			}
			var response admin.ReleaseResponse
			if err := call(socket, admin.ActionRelease, map[string]any{"user": args[0]}, &response); err != nil {
				return err
			}
			if !response.Released {
				fmt.Fprintf(out, "%s was not held\n", response.User)
				return &cli.ExitError{Code: 1}
			}
			fmt.Fprintf(out, "released %s\n", response.User)
			return nil
		},
	}
}

func displayName(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
