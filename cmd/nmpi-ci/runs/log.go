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
	"github.com/neuromorphic-platform/nmpi-ci/lib/pipeline"
)

type logParams struct {
	storeParams
}

// logCommand returns the "log" subcommand printing stored stage
// output.
func logCommand() *cli.Command {
	var params logParams

	return &cli.Command{
		Name:    "log",
		Summary: "Print a run's stage output",
		Description: `Print the captured output of a run's stages to stdout, exactly as
recorded (credentials were masked at capture time).

With a stage name, prints that stage's output alone, suitable for
piping. Without one, prints every executed stage in order; the
"==> stage <==" separators go to stderr so stdout stays clean.`,
		Usage: "nmpi-ci runs log [flags] <id> [stage]",
		Examples: []cli.Example{
			{
				Description: "Print the whole run's output",
				Command:     "nmpi-ci runs log 17",
			},
			{
				Description: "Pipe one stage's output into grep",
				Command:     "nmpi-ci runs log 17 test | grep -i 'assertion'",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("log", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) < 1 || len(args) > 2 {
				return fmt.Errorf("usage: nmpi-ci runs log [flags] <id> [stage]")
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

			if len(args) == 2 {
				output, err := store.GetStageLog(ctx, id, args[1])
				if err != nil {
					return err
				}
				_, err = os.Stdout.Write(output)
				return err
			}

			// Whole run: walk the result's stage order and print every
			// stage that has stored output. Skipped stages have none.
			result, err := store.GetRun(ctx, id)
			if err != nil {
				return err
			}
			for _, stage := range result.Stages {
				if stage.Status == pipeline.StageSkipped {
					continue
				}
				output, err := store.GetStageLog(ctx, id, stage.Name)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "==> %s <==\n", stage.Name)
				if _, err := os.Stdout.Write(output); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
