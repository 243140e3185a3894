// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Status colors from the 256-color palette. The profile is pinned at
// init rather than left to auto-detection: ANSI256 when stdout is a
// terminal, stripped otherwise, so piped output and test captures see
// plain text. SetColorProfile is required because
// lipgloss.Renderer.ColorProfile() ignores the termenv.Output profile
// and re-detects from the environment unless explicitly set.
var (
	stdoutRenderer = newStdoutRenderer()

	styleOK      = stdoutRenderer.NewStyle().Foreground(lipgloss.Color("114")) // green
	styleFailed  = stdoutRenderer.NewStyle().Foreground(lipgloss.Color("196")) // red
	styleWarn    = stdoutRenderer.NewStyle().Foreground(lipgloss.Color("220")) // yellow/amber
	styleSkipped = stdoutRenderer.NewStyle().Foreground(lipgloss.Color("245")) // gray
)

func newStdoutRenderer() *lipgloss.Renderer {
	profile := termenv.Ascii
	if term.IsTerminal(int(os.Stdout.Fd())) {
		profile = termenv.ANSI256
	}
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)
	return renderer
}

// StatusText returns a run or stage status word styled for stdout:
// green for ok/success, red for failed/failure, yellow for aborted and
// optional failures, gray for skipped. Unknown statuses pass through
// unstyled.
func StatusText(status string) string {
	switch status {
	case "ok", "success":
		return styleOK.Render(status)
	case "failed", "failure":
		return styleFailed.Render(status)
	case "failed (optional)", "aborted":
		return styleWarn.Render(status)
	case "skipped":
		return styleSkipped.Render(status)
	default:
		return status
	}
}

// HighlightJSONC writes JSONC source to stdout, syntax-highlighted
// when stdout is a terminal. Piped output and highlighting failures
// fall back to the source verbatim. The javascript lexer is used
// because chroma's json lexer has no comment tokens and renders JSONC
// comments as errors.
func HighlightJSONC(source string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		_, err := io.WriteString(os.Stdout, source)
		return err
	}

	// Highlight into a buffer first so a mid-stream failure never
	// leaves partial escape sequences on the terminal.
	var highlighted strings.Builder
	if err := quick.Highlight(&highlighted, source, "javascript", "terminal256", "monokai"); err != nil {
		_, err := io.WriteString(os.Stdout, source)
		return err
	}
	_, err := io.WriteString(os.Stdout, highlighted.String())
	return err
}
