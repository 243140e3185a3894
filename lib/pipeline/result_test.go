// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"strings"
	"testing"
)

func validResult() *RunResult {
	return &RunResult{
		Version:     RunResultVersion,
		Pipeline:    "brainscales-verify",
		Status:      RunSuccess,
		StartedAt:   "2026-02-10T09:00:00Z",
		CompletedAt: "2026-02-10T09:12:30Z",
		DurationMS:  750000,
		Stages: []StageResult{
			{Name: "install-dependencies", Status: StageOK, DurationMS: 420000},
			{Name: "test", Status: StageOK, DurationMS: 330000},
		},
	}
}

func TestRunResultValidate(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		if err := validResult().Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	})

	tests := []struct {
		name    string
		mutate  func(*RunResult)
		wantErr string
	}{
		{
			name:    "zero version",
			mutate:  func(r *RunResult) { r.Version = 0 },
			wantErr: "version",
		},
		{
			name:    "missing pipeline",
			mutate:  func(r *RunResult) { r.Pipeline = "" },
			wantErr: "pipeline is required",
		},
		{
			name:    "missing status",
			mutate:  func(r *RunResult) { r.Status = "" },
			wantErr: "status is required",
		},
		{
			name:    "unknown status",
			mutate:  func(r *RunResult) { r.Status = "crashed" },
			wantErr: "unknown status",
		},
		{
			name:    "missing started_at",
			mutate:  func(r *RunResult) { r.StartedAt = "" },
			wantErr: "started_at is required",
		},
		{
			name:    "missing completed_at",
			mutate:  func(r *RunResult) { r.CompletedAt = "" },
			wantErr: "completed_at is required",
		},
		{
			name:    "stage missing name",
			mutate:  func(r *RunResult) { r.Stages[1].Name = "" },
			wantErr: "stages[1]",
		},
		{
			name:    "stage unknown status",
			mutate:  func(r *RunResult) { r.Stages[0].Status = "exploded" },
			wantErr: "unknown status",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			result := validResult()
			testCase.mutate(result)

			err := result.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), testCase.wantErr) {
				t.Errorf("error = %v, want substring %q", err, testCase.wantErr)
			}
		})
	}

	t.Run("all stage statuses accepted", func(t *testing.T) {
		t.Parallel()

		result := validResult()
		result.Status = RunFailure
		result.FailedStage = "test"
		result.ErrorMessage = `stage "test" failed: exit code 1`
		result.Stages = []StageResult{
			{Name: "a", Status: StageOK},
			{Name: "b", Status: StageFailedOptional, ExitCode: 1, Error: "exit code 1"},
			{Name: "c", Status: StageFailed, ExitCode: 1, Error: "exit code 1"},
			{Name: "d", Status: StageSkipped},
			{Name: "e", Status: StageAborted, ExitCode: -1, Error: "cancelled"},
		}
		if err := result.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	})
}

func TestRunResultExitCode(t *testing.T) {
	t.Parallel()

	t.Run("success is zero", func(t *testing.T) {
		t.Parallel()

		if got := validResult().ExitCode(); got != 0 {
			t.Errorf("ExitCode() = %d, want 0", got)
		}
	})

	t.Run("failure propagates failing stage exit code", func(t *testing.T) {
		t.Parallel()

		result := validResult()
		result.Status = RunFailure
		result.FailedStage = "test"
		result.Stages = []StageResult{
			{Name: "install-dependencies", Status: StageOK},
			{Name: "test", Status: StageFailed, ExitCode: 7},
		}
		if got := result.ExitCode(); got != 7 {
			t.Errorf("ExitCode() = %d, want 7", got)
		}
	})

	t.Run("failure before stages is one", func(t *testing.T) {
		t.Parallel()

		result := validResult()
		result.Status = RunFailure
		result.ErrorMessage = `credential "nmpi-test-token" not found`
		result.Stages = []StageResult{
			{Name: "install-dependencies", Status: StageSkipped},
			{Name: "test", Status: StageSkipped},
		}
		if got := result.ExitCode(); got != 1 {
			t.Errorf("ExitCode() = %d, want 1", got)
		}
	})

	t.Run("signal death maps to one", func(t *testing.T) {
		t.Parallel()

		result := validResult()
		result.Status = RunFailure
		result.FailedStage = "test"
		result.Stages = []StageResult{
			{Name: "test", Status: StageFailed, ExitCode: -1},
		}
		if got := result.ExitCode(); got != 1 {
			t.Errorf("ExitCode() = %d, want 1", got)
		}
	})

	t.Run("aborted is 130", func(t *testing.T) {
		t.Parallel()

		result := validResult()
		result.Status = RunAborted
		if got := result.ExitCode(); got != 130 {
			t.Errorf("ExitCode() = %d, want 130", got)
		}
	})
}
