// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewCommandLogger creates the structured logger handed to command
// handlers. When stderr is a terminal, it uses slog.TextHandler for
// human-readable output. When stderr is piped or redirected (CI,
// scripts), it uses slog.JSONHandler for machine-parseable output.
//
// verbose lowers the level from Info to Debug; at Debug the profile
// loader, runner, and stores narrate what they touch.
func NewCommandLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

// ExtractVerbose removes every "--verbose" from args and reports
// whether one was present. The flag is global: it configures the
// process logger, which exists before any command's flag set is
// built, so main strips it ahead of dispatch.
func ExtractVerbose(args []string) ([]string, bool) {
	kept := make([]string, 0, len(args))
	verbose := false
	for _, arg := range args {
		if arg == "--verbose" {
			verbose = true
			continue
		}
		kept = append(kept, arg)
	}
	return kept, verbose
}
