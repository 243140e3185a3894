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
	"github.com/neuromorphic-platform/nmpi-ci/lib/codec"
)

type showParams struct {
	storeParams
	cli.JSONOutput
	Diag bool `flag:"diag" desc:"print the raw run document in CBOR diagnostic notation"`
}

// showCommand returns the "show" subcommand displaying one run's
// result.
func showCommand() *cli.Command {
	var params showParams

	return &cli.Command{
		Name:    "show",
		Summary: "Show a recorded run's result",
		Description: `Show a recorded run: outcome, timing, and the per-stage results.

With --json the stored result document is printed as JSON. With
--diag the raw CBOR document is printed in diagnostic notation
(RFC 8949 section 8), which exposes exactly what is stored, byte
for byte, without re-encoding.`,
		Usage: "nmpi-ci runs show [flags] <id>",
		Examples: []cli.Example{
			{
				Description: "Show run 17",
				Command:     "nmpi-ci runs show 17",
			},
			{
				Description: "Inspect the stored document",
				Command:     "nmpi-ci runs show 17 --diag",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("show", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: nmpi-ci runs show [flags] <id>")
			}
			id, err := parseRunID(args[0])
			if err != nil {
				return err
			}

			store, err := params.open(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			if params.Diag {
				document, err := store.GetRunDocument(ctx, id)
				if err != nil {
					return err
				}
				notation, err := codec.Diagnose(document)
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, notation)
				return nil
			}

			result, err := store.GetRun(ctx, id)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(result); done {
				return err
			}

			fmt.Fprintf(os.Stdout, "run %d: %s\n", id, result.Pipeline)
			fmt.Fprintf(os.Stdout, "  status:    %s\n", cli.StatusText(result.Status))
			fmt.Fprintf(os.Stdout, "  started:   %s\n", result.StartedAt)
			fmt.Fprintf(os.Stdout, "  completed: %s\n", result.CompletedAt)
			fmt.Fprintf(os.Stdout, "  duration:  %s\n", formatDuration(result.DurationMS))
			if result.Fingerprint != "" {
				fmt.Fprintf(os.Stdout, "  pipeline fingerprint: %s\n", result.Fingerprint)
			}
			if result.ErrorMessage != "" {
				fmt.Fprintf(os.Stdout, "  error:     %s\n", result.ErrorMessage)
			}

			fmt.Fprintf(os.Stdout, "\n%-24s  %-18s  %-6s  %-10s  %s\n",
				"STAGE", "STATUS", "EXIT", "DURATION", "LOG")
			for _, stage := range result.Stages {
				logSize := "-"
				if stage.LogBytes > 0 {
					logSize = fmt.Sprintf("%d B", stage.LogBytes)
				}
				fmt.Fprintf(os.Stdout, "%-24s  %-18s  %-6d  %-10s  %s\n",
					stage.Name,
					stage.Status,
					stage.ExitCode,
					formatDuration(stage.DurationMS),
					logSize)
			}
			return nil
		},
	}
}
