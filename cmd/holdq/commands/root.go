// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands defines the holdq command tree.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/holdq/holdq/cmd/holdq/cli"
)

// Root returns the holdq command tree writing to stdout. Styling is
// dropped when stdout is not a terminal or NO_COLOR is set.
func Root() *cli.Command {
	if !term.IsTerminal(int(os.Stdout.Fd())) || os.Getenv("NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	return newRoot(os.Stdout)
}

func newRoot(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "holdq",
		Summary: "Operate the holdq lobby daemon",
		Description: `holdq talks to a running holdqd over its admin socket.

Changes made here apply immediately and are saved to the daemon's
configuration file.`,
		Subcommands: []*cli.Command{
			statusCommand(out),
			toggleCommand(out),
			setTimeCommand(out),
			setMessageCommand(out),
			notifyCommand(out),
			sendCommand(out),
			releaseCommand(out),
			reloadCommand(out),
		},
	}
}

// socketFlags returns a Flags function that offers only --socket.
func socketFlags(name string, socket *string) func() *pflag.FlagSet {
	return func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
		cli.SocketFlag(flagSet, socket)
		return flagSet
	}
}

func call(socket, action string, fields map[string]any, result any) error {
	return cli.Connect(context.Background(), socket, action, fields, result)
}

// parseSwitch reads an optional on/off argument. A nil result means
// flip the current setting.
func parseSwitch(command string, args []string) (*bool, error) {
	switch len(args) {
	case 0:
		return nil, nil
	case 1:
	default:
		return nil, fmt.Errorf("%s takes at most one argument (on or off)", command)
	}
	var value bool
	switch strings.ToLower(args[0]) {
	case "on", "true", "enable", "enabled":
		value = true
	case "off", "false", "disable", "disabled":
		value = false
	default:
		return nil, fmt.Errorf("%s: expected on or off, got %q", command, args[0])
	}
	return &value, nil
}

func onOff(value bool) string {
	if value {
		return "on"
	}
	return "off"
}
