// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"errors"
	"fmt"
)

// RunResultVersion is the current schema version for RunResult
// documents. Increment when adding fields that existing code must not
// silently drop when reading stored runs.
const RunResultVersion = 1

// Run statuses.
const (
	// RunSuccess means every non-optional stage completed with exit
	// code zero.
	RunSuccess = "success"

	// RunFailure means a non-optional stage failed, or the run
	// failed before any stage started (e.g., an unresolvable
	// credential binding).
	RunFailure = "failure"

	// RunAborted means the run was cancelled while a stage was in
	// flight.
	RunAborted = "aborted"
)

// Stage statuses.
const (
	// StageOK means the stage process exited with code zero.
	StageOK = "ok"

	// StageFailed means the stage process exited non-zero or could
	// not be started.
	StageFailed = "failed"

	// StageFailedOptional means an optional stage failed; the run
	// continued.
	StageFailedOptional = "failed (optional)"

	// StageSkipped means the stage never ran because an earlier
	// stage failed or the run failed before stage one.
	StageSkipped = "skipped"

	// StageAborted means the stage was cancelled while running.
	StageAborted = "aborted"
)

// RunResult records the outcome of one pipeline run. The run store
// persists it as the run document; runs show renders it.
//
// Every declared stage appears in Stages, in declaration order;
// stages that never ran are recorded as skipped, so the result always
// accounts for the whole definition.
type RunResult struct {
	// Version is the document schema version (see RunResultVersion).
	Version int `json:"version"`

	// Pipeline is the pipeline name, derived from the definition
	// file path.
	Pipeline string `json:"pipeline"`

	// Fingerprint is the hex BLAKE3 fingerprint of the raw
	// definition bytes that produced this run. Empty when the run
	// was not recorded.
	Fingerprint string `json:"fingerprint,omitempty"`

	// Status is the terminal outcome: "success", "failure", or
	// "aborted".
	Status string `json:"status"`

	// StartedAt is an ISO 8601 timestamp of when the run began.
	StartedAt string `json:"started_at"`

	// CompletedAt is an ISO 8601 timestamp of when the run finished.
	CompletedAt string `json:"completed_at"`

	// DurationMS is the total wall-clock time in milliseconds.
	DurationMS int64 `json:"duration_ms"`

	// Stages records the outcome of every declared stage, in
	// declaration order.
	Stages []StageResult `json:"stages"`

	// FailedStage is the name of the stage that caused the failure.
	// Empty for successful runs and for runs that failed before any
	// stage started.
	FailedStage string `json:"failed_stage,omitempty"`

	// ErrorMessage is the error text for a failed or aborted run.
	// Empty on success.
	ErrorMessage string `json:"error_message,omitempty"`
}

// StageResult records the outcome of a single stage.
type StageResult struct {
	// Name is the stage's identifier from the definition.
	Name string `json:"name"`

	// Status is the stage outcome: "ok", "failed",
	// "failed (optional)", "skipped", or "aborted".
	Status string `json:"status"`

	// ExitCode is the stage process's exit code. Zero for
	// successful and skipped stages; -1 when the process was killed
	// by a signal or never started.
	ExitCode int `json:"exit_code,omitempty"`

	// DurationMS is the stage's wall-clock time in milliseconds.
	DurationMS int64 `json:"duration_ms"`

	// Error is the error message when the stage failed or aborted.
	// Empty for ok and skipped stages.
	Error string `json:"error,omitempty"`

	// LogBytes is the size of the stage's captured output in bytes,
	// measured after masking and before compression.
	LogBytes int64 `json:"log_bytes,omitempty"`
}

// Validate checks that all required fields are present and well-formed.
// Returns an error describing the first invalid field found, or nil if
// the result is valid. The run store rejects documents that fail
// validation.
func (r *RunResult) Validate() error {
	if r.Version < 1 {
		return fmt.Errorf("run result: version must be >= 1, got %d", r.Version)
	}
	if r.Pipeline == "" {
		return errors.New("run result: pipeline is required")
	}
	switch r.Status {
	case RunSuccess, RunFailure, RunAborted:
		// Valid.
	case "":
		return errors.New("run result: status is required")
	default:
		return fmt.Errorf("run result: unknown status %q", r.Status)
	}
	if r.StartedAt == "" {
		return errors.New("run result: started_at is required")
	}
	if r.CompletedAt == "" {
		return errors.New("run result: completed_at is required")
	}
	for i := range r.Stages {
		if err := r.Stages[i].Validate(); err != nil {
			return fmt.Errorf("run result: stages[%d]: %w", i, err)
		}
	}
	return nil
}

// ExitCode maps the run outcome to a process exit code: 0 for
// success, the failing stage's exit code for failure (1 when the
// failure happened before any stage ran or the stage died without an
// exit code), and 130 for aborted runs, matching the shell convention
// for SIGINT termination.
func (r *RunResult) ExitCode() int {
	switch r.Status {
	case RunSuccess:
		return 0
	case RunAborted:
		return 130
	}
	for _, stage := range r.Stages {
		if stage.Name == r.FailedStage && stage.ExitCode > 0 {
			return stage.ExitCode
		}
	}
	return 1
}

// Validate checks that the stage result has valid required fields.
func (s *StageResult) Validate() error {
	if s.Name == "" {
		return errors.New("stage result: name is required")
	}
	switch s.Status {
	case StageOK, StageFailed, StageFailedOptional, StageSkipped, StageAborted:
		// Valid.
	case "":
		return errors.New("stage result: status is required")
	default:
		return fmt.Errorf("stage result: unknown status %q", s.Status)
	}
	return nil
}
