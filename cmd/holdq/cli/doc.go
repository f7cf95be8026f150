// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for the holdq operator tool.
//
// A [Command] tree is dispatched by [Command.Execute]: the first
// positional argument selects a subcommand, flags are parsed with
// pflag, and unknown commands or flags get an edit-distance
// suggestion. Commands that talk to holdqd resolve the admin socket
// with [SocketFlag] and call it through [Connect].
package cli
