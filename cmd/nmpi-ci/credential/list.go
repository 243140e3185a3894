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

type listParams struct {
	storeParams
	cli.JSONOutput
}

// listCommand returns the "list" subcommand for showing stored
// credential names.
func listCommand() *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List stored credential names",
		Description: `List the names of the credentials in the store, sorted. Values are
never shown. Listing decrypts the bundle, so it also verifies that
the identity file still matches.`,
		Usage: "nmpi-ci credential list [flags]",
		Examples: []cli.Example{
			{
				Description: "List credential names",
				Command:     "nmpi-ci credential list",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}

			store, err := params.open()
			if err != nil {
				return err
			}

			names, err := store.List()
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(names); done {
				return err
			}

			if len(names) == 0 {
				fmt.Fprintln(os.Stderr, "no credentials stored")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(os.Stdout, name)
			}
			return nil
		},
	}
}
