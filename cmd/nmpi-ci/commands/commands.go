// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands assembles the nmpi-ci command tree.
//
// Each top-level command group lives in its own package under
// cmd/nmpi-ci/ and exposes a Command() constructor. This package wires
// them into the root command that main dispatches against.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neuromorphic-platform/nmpi-ci/cmd/nmpi-ci/cli"
	"github.com/neuromorphic-platform/nmpi-ci/cmd/nmpi-ci/credential"
	"github.com/neuromorphic-platform/nmpi-ci/cmd/nmpi-ci/pipeline"
	"github.com/neuromorphic-platform/nmpi-ci/cmd/nmpi-ci/runs"
	"github.com/neuromorphic-platform/nmpi-ci/lib/version"
)

// Root returns the root nmpi-ci command with all groups registered.
func Root() *cli.Command {
	return &cli.Command{
		Name: "nmpi-ci",
		Description: "nmpi-ci runs neuromorphic platform CI pipelines in local\n" +
			"container sandboxes: it parses a pipeline definition, binds\n" +
			"credentials from an encrypted store, executes the stages\n" +
			"sequentially, and records every run in a local history database.",
		Subcommands: []*cli.Command{
			pipeline.Command(),
			credential.Command(),
			runs.Command(),
			versionCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Run the BrainScaleS test pipeline",
				Command:     "nmpi-ci pipeline run ci/pipeline.jsonc",
			},
			{
				Description: "Store the platform API token (prompted, hidden)",
				Command:     "nmpi-ci credential set nmpi-test-token",
			},
			{
				Description: "Inspect the most recent runs",
				Command:     "nmpi-ci runs list",
			},
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			fmt.Println(version.Full())
			return nil
		},
	}
}
