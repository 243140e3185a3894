// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package runs

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/neuromorphic-platform/nmpi-ci/lib/pipeline"
	"github.com/neuromorphic-platform/nmpi-ci/lib/runstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedStore creates a run store with one recorded run and returns the
// database path and the run's ID.
func seedStore(t *testing.T) (string, int64) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := runstore.Open(runstore.Config{Path: path, Logger: testLogger()})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer store.Close()

	result := &pipeline.RunResult{
		Version:     pipeline.RunResultVersion,
		Pipeline:    "brainscales-verification",
		Fingerprint: "deadbeef",
		Status:      pipeline.RunFailure,
		StartedAt:   "2026-08-25T10:00:00Z",
		CompletedAt: "2026-08-25T10:04:10Z",
		DurationMS:  250_000,
		FailedStage: "test",
		ErrorMessage: `stage "test" failed: exit code 3`,
		Stages: []pipeline.StageResult{
			{Name: "install-dependencies", Status: pipeline.StageOK, DurationMS: 130_000, LogBytes: 21},
			{Name: "test", Status: pipeline.StageFailed, ExitCode: 3, DurationMS: 120_000, Error: "exit code 3", LogBytes: 25},
			{Name: "never-ran", Status: pipeline.StageSkipped},
		},
	}
	logs := []runstore.StageLog{
		{Stage: "install-dependencies", Output: []byte("collecting packages\n")},
		{Stage: "test", Output: []byte("FAILED (errors=2)\nexit 3\n")},
	}

	id, err := store.RecordRun(context.Background(), result, logs)
	if err != nil {
		t.Fatalf("RecordRun() error: %v", err)
	}
	return path, id
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	path, _ := seedStore(t)
	cmd := listCommand()
	err := cmd.Execute(context.Background(), []string{"--store", path}, testLogger())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
}

func TestListRunsJSON(t *testing.T) {
	t.Parallel()

	path, _ := seedStore(t)
	cmd := listCommand()
	err := cmd.Execute(context.Background(), []string{"--store", path, "--json"}, testLogger())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
}

func TestListRunsMissingStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "absent.db")
	cmd := listCommand()
	err := cmd.Execute(context.Background(), []string{"--store", path}, testLogger())
	if err == nil {
		t.Fatal("Execute() = nil, want error for missing database")
	}
	if !strings.Contains(err.Error(), "no run history") {
		t.Errorf("error = %q, want no-run-history message", err.Error())
	}
}

func TestShowRun(t *testing.T) {
	t.Parallel()

	path, id := seedStore(t)
	cmd := showCommand()
	args := []string{"--store", path, formatID(id)}
	if err := cmd.Execute(context.Background(), args, testLogger()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
}

func TestShowRunDiag(t *testing.T) {
	t.Parallel()

	path, id := seedStore(t)
	cmd := showCommand()
	err := cmd.Execute(context.Background(), []string{"--store", path, "--diag", formatID(id)}, testLogger())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
}

func TestShowUnknownRun(t *testing.T) {
	t.Parallel()

	path, _ := seedStore(t)
	cmd := showCommand()
	err := cmd.Execute(context.Background(), []string{"--store", path, "9999"}, testLogger())
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown run")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %q, want not-found", err.Error())
	}
}

func TestShowInvalidID(t *testing.T) {
	t.Parallel()

	path, _ := seedStore(t)
	cmd := showCommand()
	err := cmd.Execute(context.Background(), []string{"--store", path, "seventeen"}, testLogger())
	if err == nil {
		t.Fatal("Execute() = nil, want error for non-numeric ID")
	}
	if !strings.Contains(err.Error(), "invalid run ID") {
		t.Errorf("error = %q, want invalid-ID message", err.Error())
	}
}

func TestLogSingleStage(t *testing.T) {
	t.Parallel()

	path, id := seedStore(t)
	cmd := logCommand()
	err := cmd.Execute(context.Background(), []string{"--store", path, formatID(id), "test"}, testLogger())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
}

func TestLogWholeRunSkipsUnexecutedStages(t *testing.T) {
	t.Parallel()

	// The seeded run has a skipped stage with no stored log; printing
	// the whole run must not fail on it.
	path, id := seedStore(t)
	cmd := logCommand()
	err := cmd.Execute(context.Background(), []string{"--store", path, formatID(id)}, testLogger())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
}

func TestLogUnknownStage(t *testing.T) {
	t.Parallel()

	path, id := seedStore(t)
	cmd := logCommand()
	err := cmd.Execute(context.Background(), []string{"--store", path, formatID(id), "no-such-stage"}, testLogger())
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown stage")
	}
}

func TestParseRunID(t *testing.T) {
	t.Parallel()

	if id, err := parseRunID("17"); err != nil || id != 17 {
		t.Errorf("parseRunID(17) = %d, %v; want 17, nil", id, err)
	}
	for _, bad := range []string{"0", "-3", "seventeen", ""} {
		if _, err := parseRunID(bad); err == nil {
			t.Errorf("parseRunID(%q) = nil error, want failure", bad)
		}
	}
}

// formatID renders a run ID the way a user would type it.
func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
