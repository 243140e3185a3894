// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/neuromorphic-platform/nmpi-ci/cmd/nmpi-ci/cli"
	"github.com/neuromorphic-platform/nmpi-ci/lib/pipeline"
)

// validateCommand returns the "validate" subcommand for checking
// definition files without running them.
func validateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Summary: "Validate a pipeline definition file",
		Description: `Validate a pipeline definition file. Checks that the JSONC is
well-formed and that the definition is runnable: at least one stage,
each stage has a name and exactly one of script or run, an image is
set when any stage uses a script, environment bindings carry either
a value or a credential name, and timeouts parse.

Variable references are not checked here; they may be satisfied at
run time by --param or the environment. This is a purely local
check: no container is launched and the credential store is not
opened.`,
		Usage: "nmpi-ci pipeline validate <file>",
		Examples: []cli.Example{
			{
				Description: "Validate the BrainScaleS pipeline",
				Command:     "nmpi-ci pipeline validate ci/pipeline.jsonc",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: nmpi-ci pipeline validate <file>")
			}

			path := args[0]
			definition, _, err := loadDefinition(path)
			if err != nil {
				return err
			}

			issues := pipeline.Validate(definition)
			if len(issues) > 0 {
				for _, issue := range issues {
					fmt.Fprintf(os.Stderr, "  - %s\n", issue)
				}
				return fmt.Errorf("%s: %d validation issue(s) found", path, len(issues))
			}

			fmt.Fprintf(os.Stdout, "%s: valid\n", path)
			return nil
		},
	}
}
