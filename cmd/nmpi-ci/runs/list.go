// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package runs

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/neuromorphic-platform/nmpi-ci/cmd/nmpi-ci/cli"
)

type listParams struct {
	storeParams
	cli.JSONOutput
	Limit int `flag:"limit" desc:"maximum number of runs to list" default:"20"`
}

// listCommand returns the "list" subcommand showing recent runs,
// newest first.
func listCommand() *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List recorded runs, newest first",
		Usage:   "nmpi-ci runs list [flags]",
		Examples: []cli.Example{
			{
				Description: "List the 5 most recent runs",
				Command:     "nmpi-ci runs list --limit 5",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}

			store, err := params.open(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			summaries, err := store.ListRuns(ctx, params.Limit)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(summaries); done {
				return err
			}

			if len(summaries) == 0 {
				fmt.Fprintln(os.Stderr, "no runs recorded")
				return nil
			}

			fmt.Fprintf(os.Stdout, "%-6s  %-24s  %-18s  %-20s  %s\n",
				"ID", "PIPELINE", "STATUS", "STARTED", "DURATION")
			for _, summary := range summaries {
				fmt.Fprintf(os.Stdout, "%-6d  %-24s  %-18s  %-20s  %s\n",
					summary.ID,
					summary.Pipeline,
					summary.Status,
					summary.StartedAt,
					formatDuration(summary.DurationMS))
			}
			return nil
		},
	}
}
