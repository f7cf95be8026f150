// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/holdq/holdq/cmd/holdq/commands"
	"github.com/holdq/holdq/lib/process"
)

func main() {
	if err := run(); err != nil {
		// Commands that already printed their outcome return an
		// ExitError; only the code matters.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		process.Fatal(err)
	}
}

func run() error {
	return commands.Root().Execute(os.Args[1:])
}
