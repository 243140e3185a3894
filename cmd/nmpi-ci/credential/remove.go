// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/neuromorphic-platform/nmpi-ci/cmd/nmpi-ci/cli"
)

type removeParams struct {
	storeParams
}

// removeCommand returns the "remove" subcommand for deleting a
// credential.
func removeCommand() *cli.Command {
	var params removeParams

	return &cli.Command{
		Name:    "remove",
		Summary: "Remove a credential from the store",
		Description: `Remove a credential by name. Removing an unknown name is an error,
so a typo does not silently succeed.`,
		Usage: "nmpi-ci credential remove [flags] <name>",
		Examples: []cli.Example{
			{
				Description: "Remove a retired token",
				Command:     "nmpi-ci credential remove nmpi-test-token-nonmember",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("remove", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: nmpi-ci credential remove [flags] <name>")
			}
			name := args[0]

			store, err := params.open()
			if err != nil {
				return err
			}

			if err := store.Remove(name); err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "Removed credential %q\n", name)
			return nil
		},
	}
}
