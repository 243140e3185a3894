// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package runs

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/neuromorphic-platform/nmpi-ci/cmd/nmpi-ci/cli"
	"github.com/neuromorphic-platform/nmpi-ci/lib/runstore"
)

// Command returns the "runs" parent command with all subcommands.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "runs",
		Summary: "Inspect recorded pipeline runs",
		Description: `Inspect the local run history database.

Every "pipeline run" (unless started with --no-record) stores its
complete result and the masked output of every executed stage.
Stored runs are immutable; the history is an append-only record of
what ran, with what definition, and how it ended.`,
		Subcommands: []*cli.Command{
			listCommand(),
			showCommand(),
			logCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "List the most recent runs",
				Command:     "nmpi-ci runs list",
			},
			{
				Description: "Show run 17's result",
				Command:     "nmpi-ci runs show 17",
			},
			{
				Description: "Print the test stage's output from run 17",
				Command:     "nmpi-ci runs log 17 test",
			},
		},
	}
}

// storeParams carries the database location flag shared by every
// subcommand in the group.
type storeParams struct {
	Store string `flag:"store" desc:"run history database path"`
}

// open opens the run store read-side. A missing database is reported
// as such rather than silently created empty.
func (p *storeParams) open(logger *slog.Logger) (*runstore.Store, error) {
	path, err := cli.StorePath(p.Store)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no run history at %s (run a pipeline first)", path)
	}
	return runstore.Open(runstore.Config{Path: path, Logger: logger})
}

// parseRunID converts a command argument into a run ID.
func parseRunID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid run ID %q (see \"nmpi-ci runs list\")", arg)
	}
	return id, nil
}

// formatDuration renders a millisecond count for the run tables.
func formatDuration(ms int64) string {
	duration := time.Duration(ms) * time.Millisecond
	if duration >= time.Minute {
		return duration.Round(time.Second).String()
	}
	return duration.Round(10 * time.Millisecond).String()
}
