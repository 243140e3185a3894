// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"log/slog"
	"reflect"
	"testing"
)

func TestExtractVerbose(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantArgs    []string
		wantVerbose bool
	}{
		{
			name:        "no verbose flag",
			args:        []string{"pipeline", "run", "ci/pipeline.jsonc"},
			wantArgs:    []string{"pipeline", "run", "ci/pipeline.jsonc"},
			wantVerbose: false,
		},
		{
			name:        "verbose before command",
			args:        []string{"--verbose", "pipeline", "run"},
			wantArgs:    []string{"pipeline", "run"},
			wantVerbose: true,
		},
		{
			name:        "verbose after command",
			args:        []string{"pipeline", "run", "--verbose", "ci/pipeline.jsonc"},
			wantArgs:    []string{"pipeline", "run", "ci/pipeline.jsonc"},
			wantVerbose: true,
		},
		{
			name:        "repeated verbose",
			args:        []string{"--verbose", "runs", "--verbose", "list"},
			wantArgs:    []string{"runs", "list"},
			wantVerbose: true,
		},
		{
			name:        "empty args",
			args:        []string{},
			wantArgs:    []string{},
			wantVerbose: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			gotArgs, gotVerbose := ExtractVerbose(test.args)
			if !reflect.DeepEqual(gotArgs, test.wantArgs) {
				t.Errorf("args = %v, want %v", gotArgs, test.wantArgs)
			}
			if gotVerbose != test.wantVerbose {
				t.Errorf("verbose = %v, want %v", gotVerbose, test.wantVerbose)
			}
		})
	}
}

func TestNewCommandLogger(t *testing.T) {
	logger := NewCommandLogger(false)
	if logger == nil {
		t.Fatal("NewCommandLogger(false) = nil")
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("non-verbose logger should not enable debug-level records")
	}

	verboseLogger := NewCommandLogger(true)
	if !verboseLogger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("verbose logger should enable debug-level records")
	}
}
