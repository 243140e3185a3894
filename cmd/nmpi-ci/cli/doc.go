// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for the nmpi-ci binary: a
// [Command] tree with pflag flag sets, subcommand dispatch with typo
// suggestions, structured help output, and shared helpers for JSON
// output, terminal styling, and configuration path resolution.
//
// Command handlers receive a context carrying SIGINT/SIGTERM
// cancellation and a structured logger. Errors implementing
// interface{ ExitCode() int } set the process exit status without an
// extra "error:" line; everything else is printed and exits 1.
package cli
