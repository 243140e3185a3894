// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"github.com/neuromorphic-platform/nmpi-ci/cmd/nmpi-ci/cli"
	libcred "github.com/neuromorphic-platform/nmpi-ci/lib/credential"
)

// Command returns the "credential" parent command with all subcommands.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "credential",
		Summary: "Manage the encrypted credential store",
		Description: `Manage the local credential store that pipeline definitions draw
platform tokens from.

The store is a single age-encrypted bundle on disk plus an identity
key file. Credential values never appear on the command line or in
pipeline definitions: definitions reference credentials by name, and
the runner decrypts them immediately before the first stage and
masks them in all captured output.

Run "credential init" once to create the store, then "credential
set" for each token the pipeline needs.`,
		Subcommands: []*cli.Command{
			initCommand(),
			setCommand(),
			listCommand(),
			removeCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Create the store",
				Command:     "nmpi-ci credential init",
			},
			{
				Description: "Store the platform token (prompted, hidden)",
				Command:     "nmpi-ci credential set nmpi-test-token",
			},
			{
				Description: "Store a token from a file",
				Command:     "nmpi-ci credential set nmpi-test-token-nonmember --value-file ./token.txt",
			},
		},
	}
}

// storeParams carries the store location flags shared by every
// subcommand in the group.
type storeParams struct {
	Credentials string `flag:"credentials" desc:"encrypted credential bundle path"`
	Identity    string `flag:"identity"    desc:"age identity file path"`
}

// open resolves the store location (flags, then environment, then the
// user config directory) and returns a store handle. The handle does
// not touch the filesystem until an operation needs it.
func (p *storeParams) open() (*libcred.Store, error) {
	bundle, err := cli.CredentialsPath(p.Credentials)
	if err != nil {
		return nil, err
	}
	identity, err := cli.IdentityPath(p.Identity)
	if err != nil {
		return nil, err
	}
	return &libcred.Store{BundlePath: bundle, IdentityPath: identity}, nil
}
