// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"github.com/neuromorphic-platform/nmpi-ci/cmd/nmpi-ci/cli"
)

// Command returns the "pipeline" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "pipeline",
		Summary: "Validate, show, and run pipeline definitions",
		Description: `Work with pipeline definition files.

A pipeline definition names the container image, the environment
bindings exported to every stage (literal values or references into
the encrypted credential store), and an ordered list of stages.
Stages run sequentially; the first non-optional failure stops the
run and the failing stage's exit code becomes the process exit code.

Definition files use JSONC (JSON with comments): // line comments,
/* block comments */, and trailing commas are allowed.`,
		Subcommands: []*cli.Command{
			runCommand(),
			validateCommand(),
			showCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Run the BrainScaleS test pipeline",
				Command:     "nmpi-ci pipeline run ci/pipeline.jsonc",
			},
			{
				Description: "Override the platform queue for one run",
				Command:     "nmpi-ci pipeline run ci/pipeline.jsonc --param NMPI_TEST_QUEUE=BrainScaleS-ESS",
			},
			{
				Description: "Check a definition without running it",
				Command:     "nmpi-ci pipeline validate ci/pipeline.jsonc",
			},
		},
	}
}
