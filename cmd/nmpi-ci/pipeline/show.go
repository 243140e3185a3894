// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/neuromorphic-platform/nmpi-ci/cmd/nmpi-ci/cli"
)

type showParams struct {
	cli.JSONOutput
}

// showCommand returns the "show" subcommand for displaying a
// definition file.
func showCommand() *cli.Command {
	var params showParams

	return &cli.Command{
		Name:    "show",
		Summary: "Show a pipeline definition",
		Description: `Display a pipeline definition file. By default the file is shown
as written, comments included, with syntax highlighting when stdout
is a terminal. With --json the parsed definition is printed as
canonical JSON: comments stripped, defaults untouched, exactly what
the runner would execute.`,
		Usage: "nmpi-ci pipeline show [flags] <file>",
		Examples: []cli.Example{
			{
				Description: "Show the BrainScaleS pipeline with its comments",
				Command:     "nmpi-ci pipeline show ci/pipeline.jsonc",
			},
			{
				Description: "Dump the parsed form for scripting",
				Command:     "nmpi-ci pipeline show ci/pipeline.jsonc --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("show", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: nmpi-ci pipeline show [flags] <file>")
			}

			definition, raw, err := loadDefinition(args[0])
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(definition); done {
				return err
			}

			fmt.Fprint(os.Stdout, cli.HighlightJSONC(string(raw)))
			return nil
		},
	}
}
