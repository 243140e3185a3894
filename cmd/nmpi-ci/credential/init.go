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

type initParams struct {
	storeParams
}

// initCommand returns the "init" subcommand for creating a new store.
func initCommand() *cli.Command {
	var params initParams

	return &cli.Command{
		Name:    "init",
		Summary: "Create a new credential store",
		Description: `Create a new credential store: generate an age keypair, write the
identity file (mode 0600), and write an empty encrypted bundle.

Refuses to overwrite an existing store. To start over, delete both
the bundle and the identity file first; the stored credentials are
unrecoverable without the identity.`,
		Usage: "nmpi-ci credential init [flags]",
		Examples: []cli.Example{
			{
				Description: "Create the store in the default location",
				Command:     "nmpi-ci credential init",
			},
			{
				Description: "Create a store in a project directory",
				Command:     "nmpi-ci credential init --credentials ./ci/credentials.age --identity ./ci/identity.key",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("init", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}

			store, err := params.open()
			if err != nil {
				return err
			}

			publicKey, err := store.Init()
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "Created credential store\n")
			fmt.Fprintf(os.Stderr, "  bundle:     %s\n", store.BundlePath)
			fmt.Fprintf(os.Stderr, "  identity:   %s\n", store.IdentityPath)
			fmt.Fprintf(os.Stderr, "  public key: %s\n", publicKey)
			return nil
		},
	}
}
