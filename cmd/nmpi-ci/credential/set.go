// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/neuromorphic-platform/nmpi-ci/cmd/nmpi-ci/cli"
	libcred "github.com/neuromorphic-platform/nmpi-ci/lib/credential"
	"github.com/neuromorphic-platform/nmpi-ci/lib/secret"
)

type setParams struct {
	storeParams
	ValueFile string `flag:"value-file" desc:"read the value from this file (\"-\" for stdin)"`
}

// setCommand returns the "set" subcommand for storing a credential.
func setCommand() *cli.Command {
	var params setParams

	return &cli.Command{
		Name:    "set",
		Summary: "Store a credential value",
		Description: `Store a credential value under a name, replacing any existing
value.

The value never passes through the command line (process argv is
world-readable on Linux). It is read from, in order of preference:
--value-file, piped stdin, or an interactive hidden prompt when
stdin is a terminal. Leading and trailing whitespace is trimmed.`,
		Usage: "nmpi-ci credential set [flags] <name>",
		Examples: []cli.Example{
			{
				Description: "Prompt for the platform token",
				Command:     "nmpi-ci credential set nmpi-test-token",
			},
			{
				Description: "Read the token from a file",
				Command:     "nmpi-ci credential set nmpi-test-token --value-file ./token.txt",
			},
			{
				Description: "Pipe the token in",
				Command:     "pass show hbp/nmpi-token | nmpi-ci credential set nmpi-test-token",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("set", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: nmpi-ci credential set [flags] <name>")
			}
			name := args[0]
			if err := libcred.ValidateName(name); err != nil {
				return err
			}

			store, err := params.open()
			if err != nil {
				return err
			}

			value, err := readValue(params.ValueFile, name)
			if err != nil {
				return err
			}
			defer value.Close()

			if err := store.Set(name, value); err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "Stored credential %q (%d bytes)\n", name, value.Len())
			return nil
		},
	}
}

// readValue obtains the credential value without ever placing it in
// process argv: from a file, from piped stdin, or from a hidden
// terminal prompt.
func readValue(valueFile, name string) (*secret.Buffer, error) {
	if valueFile != "" {
		return secret.ReadFromPath(valueFile)
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return secret.ReadFromPath("-")
	}

	fmt.Fprintf(os.Stderr, "Value for %s (input hidden): ", name)
	line, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading value: %w", err)
	}

	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		secret.Zero(line)
		return nil, fmt.Errorf("value is empty")
	}

	// NewFromBytes zeroes trimmed in place; the whitespace bytes of
	// the original line are cleared separately.
	buffer, err := secret.NewFromBytes(trimmed)
	secret.Zero(line)
	return buffer, err
}
