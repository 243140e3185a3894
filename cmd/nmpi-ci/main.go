// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

// nmpi-ci is the command-line client for running neuromorphic platform
// CI pipelines locally. See cmd/nmpi-ci/commands for the command tree.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/neuromorphic-platform/nmpi-ci/cmd/nmpi-ci/cli"
	"github.com/neuromorphic-platform/nmpi-ci/cmd/nmpi-ci/commands"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Interrupt and termination signals cancel the context so an
	// in-flight pipeline run can stop its stage process, mark the run
	// aborted, and still record it before the process exits.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --verbose is global: it configures the logger, which must exist
	// before any command flag set is parsed.
	args, verbose := cli.ExtractVerbose(os.Args[1:])
	logger := cli.NewCommandLogger(verbose)

	if err := commands.Root().Execute(ctx, args, logger); err != nil {
		// Commands that propagate a process exit status (pipeline run
		// mirrors the failing stage's code) have already reported the
		// failure; pass the code through without re-printing.
		var coded interface{ ExitCode() int }
		if errors.As(err, &coded) {
			return coded.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
