// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/holdq/holdq/admin"
	"github.com/holdq/holdq/cmd/holdq/cli"
)

func toggleCommand(out io.Writer) *cli.Command {
	var socket string
	return &cli.Command{
		Name:    "toggle",
		Summary: "Turn the countdown queue on or off",
		Description: `Turn the countdown queue on or off. Without an argument the
current setting is flipped.

Turning the queue on starts the countdown for everyone already held.
Turning it off leaves held users in place until they leave or are sent.`,
		Usage: "holdq toggle [on|off] [flags]",
		Examples: []cli.Example{
			{Description: "Stop admitting users through the countdown", Command: "holdq toggle off"},
		},
		Flags: socketFlags("toggle", &socket),
		Run: func(args []string) error {
			enabled, err := parseSwitch("toggle", args)
			if err != nil {
				return err
			}
			fields := map[string]any{}
			if enabled != nil {
				fields["enabled"] = *enabled
			}
			var response admin.ToggleResponse
			if err := call(socket, admin.ActionToggle, fields, &response); err != nil {
				return err
			}
			fmt.Fprintf(out, "queue %s", onOff(response.Enabled))
			if response.Queued > 0 {
				fmt.Fprintf(out, " (%d held users now counting down)", response.Queued)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

func setTimeCommand(out io.Writer) *cli.Command {
	var socket string
	return &cli.Command{
		Name:    "set-time",
		Summary: "Set the countdown length in seconds",
		Description: `Set the countdown length in seconds. Values are clamped to the
range holdqd accepts and the stored value is printed. Countdowns already
running keep their remaining time.`,
		Usage: "holdq set-time <seconds> [flags]",
		Examples: []cli.Example{
			{Command: "holdq set-time 10"},
		},
		Flags: socketFlags("set-time", &socket),
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("set-time takes exactly one argument: the countdown in seconds")
			}
			seconds, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("set-time: %q is not a whole number of seconds", args[0])
			}
			var response admin.SetTimeResponse
			if err := call(socket, admin.ActionSetTime, map[string]any{"seconds": seconds}, &response); err != nil {
				return err
			}
			if response.Seconds != seconds {
				fmt.Fprintf(out, "queue time set to %ds (clamped from %d)\n", response.Seconds, seconds)
				return nil
			}
			fmt.Fprintf(out, "queue time set to %ds\n", response.Seconds)
			return nil
		},
	}
}

func setMessageCommand(out io.Writer) *cli.Command {
	var (
		socket string
		key    string
	)
	return &cli.Command{
		Name:    "set-message",
		Summary: "Replace the disabled notice or a message template",
		Description: `Replace a user-facing message. Without --key this sets the notice
shown on join while the queue is off. With --key it replaces the named
template, which keeps its printf verbs (%d, %s) and & colour codes.`,
		Usage: "holdq set-message [--key KEY] <message...> [flags]",
		Examples: []cli.Example{
			{Description: "Change the disabled notice", Command: "holdq set-message 'Server is warming up'"},
			{Description: "Change the countdown title", Command: "holdq set-message --key welcome_title '&6Hold tight'"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("set-message", pflag.ContinueOnError)
			cli.SocketFlag(flagSet, &socket)
			flagSet.StringVar(&key, "key", "", "message template to replace (default: the disabled notice)")
			return flagSet
		},
		Run: func(args []string) error {
			message := strings.Join(args, " ")
			if message == "" {
				return fmt.Errorf("set-message requires the message text")
			}
			fields := map[string]any{"message": message}
			if key != "" {
				fields["key"] = key
			}
			if err := call(socket, admin.ActionSetMessage, fields, nil); err != nil {
				return err
			}
			if key == "" {
				fmt.Fprintln(out, "disabled notice updated")
			} else {
				fmt.Fprintf(out, "message %q updated\n", key)
			}
			return nil
		},
	}
}

func notifyCommand(out io.Writer) *cli.Command {
	var socket string
	return &cli.Command{
		Name:    "notify",
		Summary: "Turn the disabled notice on or off",
		Usage:   "holdq notify [on|off] [flags]",
		Flags:   socketFlags("notify", &socket),
		Run: func(args []string) error {
			show, err := parseSwitch("notify", args)
			if err != nil {
				return err
			}
			fields := map[string]any{}
			if show != nil {
				fields["show"] = *show
			}
			var response admin.NotifyResponse
			if err := call(socket, admin.ActionNotify, fields, &response); err != nil {
				return err
			}
			fmt.Fprintf(out, "disabled notice %s\n", onOff(response.Show))
			return nil
		},
	}
}

func reloadCommand(out io.Writer) *cli.Command {
	var socket string
	return &cli.Command{
		Name:    "reload",
		Summary: "Reload the daemon's configuration file",
		Description: `Re-read holdqd's configuration file and apply it. Socket paths
change only on restart. Values that had to be clamped are listed.`,
		Flags: socketFlags("reload", &socket),
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("reload takes no arguments")
			}
			var response admin.ReloadResponse
			if err := call(socket, admin.ActionReload, nil, &response); err != nil {
				return err
			}
			fmt.Fprintln(out, "configuration reloaded")
			for _, adjustment := range response.Adjustments {
				fmt.Fprintf(out, "  adjusted: %s\n", adjustment)
			}
			return nil
		},
	}
}
