// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"

	"github.com/holdq/holdq/admin"
	"github.com/holdq/holdq/cmd/holdq/cli"
	"github.com/holdq/holdq/queue"
	"github.com/holdq/holdq/transfer"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	onStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	offStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func statusCommand(out io.Writer) *cli.Command {
	var (
		socket     string
		outputJSON bool
	)
	return &cli.Command{
		Name:    "status",
		Summary: "Show the queue, held users, and transfers in progress",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
			cli.SocketFlag(flagSet, &socket)
			flagSet.BoolVar(&outputJSON, "json", false, "output as JSON")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("status takes no arguments")
			}
			var status admin.StatusResponse
			if err := call(socket, admin.ActionStatus, nil, &status); err != nil {
				return err
			}
			if outputJSON {
				return cli.WriteJSON(out, status)
			}
			renderStatus(out, status, time.Now())
			return nil
		},
	}
}

// renderStatus writes the human-readable status report.
func renderStatus(w io.Writer, status admin.StatusResponse, now time.Time) {
	state := offStyle.Render("off")
	if status.Queue.Enabled {
		state = onStyle.Render("on")
	}

	fmt.Fprintln(w, headingStyle.Render("Queue"))
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	field(tw, "queue", state)
	field(tw, "queue time", fmt.Sprintf("%ds", status.Queue.QueueTime))
	field(tw, "target", status.Queue.TargetServer)
	notice := "hidden"
	if status.Queue.ShowDisabledMessage {
		notice = "shown"
	}
	field(tw, "disabled notice", fmt.Sprintf("%s: %q", notice, status.Queue.DisabledMessage))
	field(tw, "host tier", string(status.Queue.Tier))
	if len(status.Queue.Capabilities) > 0 {
		field(tw, "capabilities", strings.Join(status.Queue.Capabilities, ", "))
	}
	if status.Queue.WorkerPool {
		field(tw, "countdowns", "dedicated workers")
	}
	if !status.StartedAt.IsZero() {
		field(tw, "session", "up "+now.Sub(status.StartedAt).Round(time.Second).String())
	}
	tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("Held users (%d)", len(status.Queue.Held))))
	if len(status.Queue.Held) == 0 {
		fmt.Fprintln(w, labelStyle.Render("  none"))
	} else {
		tw = tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  USER\tNAME\tSTATE\tREMAINING")
		for _, entry := range status.Queue.Held {
			remaining := "-"
			if entry.State == queue.HeldQueued {
				remaining = fmt.Sprintf("%ds", entry.Remaining)
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", entry.User, displayName(entry.Name, "-"), entry.State, remaining)
		}
		tw.Flush()
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("Transfers (%d)", len(status.Transfers))))
	if len(status.Transfers) == 0 {
		fmt.Fprintln(w, labelStyle.Render("  none"))
	} else {
		tw = tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  USER\tTARGET\tATTEMPT\tSTATE\tLAST")
		for _, entry := range status.Transfers {
			attemptState := entry.State.String()
			if entry.State == transfer.Failed {
				attemptState = warnStyle.Render(attemptState)
			}
			fmt.Fprintf(tw, "  %s\t%s\t%d/%d\t%s\t%s ago\n", entry.User, entry.Target,
				entry.Attempts, status.Connection.MaxRetries, attemptState,
				now.Sub(entry.LastAttemptAt).Round(time.Second))
		}
		tw.Flush()
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, headingStyle.Render("Connection"))
	tw = tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	field(tw, "max retries", fmt.Sprint(status.Connection.MaxRetries))
	field(tw, "retry delay", status.Connection.RetryDelay.String())
	field(tw, "timeout", status.Connection.Timeout.String())
	field(tw, "channel", status.Connection.Channel)
	tw.Flush()

	if len(status.Metrics) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headingStyle.Render("Counters"))
		names := make([]string, 0, len(status.Metrics))
		for name := range status.Metrics {
			names = append(names, name)
		}
		slices.Sort(names)
		tw = tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
		for _, name := range names {
			field(tw, name, fmt.Sprint(status.Metrics[name]))
		}
		tw.Flush()
	}
}

func field(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %s\t%s\n", labelStyle.Render(label+":"), value)
}
