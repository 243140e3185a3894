// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package runlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// EventLog writes run lifecycle events as JSONL to a file. Each line
// is an independent JSON object, making the log:
//
//   - Crash-safe: a SIGKILL mid-pipeline preserves every completed
//     stage record. A single JSON document would be truncated and
//     unparseable.
//   - Streamable: an external consumer can tail the file for
//     stage-by-stage progress instead of waiting for the run to end.
//
// A nil *EventLog is valid: every method is a no-op. The runner takes
// an optional event log and never has to check for nil itself.
type EventLog struct {
	logger  *slog.Logger
	file    *os.File
	encoder *json.Encoder
}

// NewEventLog creates a JSONL event log at the given path, truncating
// any existing content. Write failures during the run are logged as
// warnings, not returned: a broken event log must not fail the run.
func NewEventLog(path string, logger *slog.Logger) (*EventLog, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating event log %s: %w", path, err)
	}
	return &EventLog{
		logger:  logger,
		file:    file,
		encoder: json.NewEncoder(file),
	}, nil
}

// Close flushes and closes the event log file.
func (l *EventLog) Close() error {
	if l == nil {
		return nil
	}
	return l.file.Close()
}

// RunStart records the beginning of a run.
func (l *EventLog) RunStart(pipelineName string, stageCount int) {
	if l == nil {
		return
	}
	l.write(runStartEntry{
		Type:       "run_start",
		Pipeline:   pipelineName,
		StageCount: stageCount,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}

// StageStart records a stage entering execution.
func (l *EventLog) StageStart(index int, name string) {
	if l == nil {
		return
	}
	l.write(stageStartEntry{
		Type:      "stage_start",
		Index:     index,
		Name:      name,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// StageComplete records the outcome of a stage, including skipped
// stages.
func (l *EventLog) StageComplete(index int, name, status string, exitCode int, durationMS int64, stageError string) {
	if l == nil {
		return
	}
	l.write(stageCompleteEntry{
		Type:       "stage_complete",
		Index:      index,
		Name:       name,
		Status:     status,
		ExitCode:   exitCode,
		DurationMS: durationMS,
		Error:      stageError,
	})
}

// RunComplete records successful run completion.
func (l *EventLog) RunComplete(durationMS int64) {
	if l == nil {
		return
	}
	l.write(runCompleteEntry{
		Type:       "run_complete",
		Status:     "success",
		DurationMS: durationMS,
	})
}

// RunFailed records run failure.
func (l *EventLog) RunFailed(failedStage, errorMessage string, durationMS int64) {
	if l == nil {
		return
	}
	l.write(runFailedEntry{
		Type:        "run_failed",
		Status:      "failure",
		Error:       errorMessage,
		FailedStage: failedStage,
		DurationMS:  durationMS,
	})
}

// RunAborted records a cancelled run. The stage is the one in flight
// when cancellation hit, empty if the run was cancelled between
// stages.
func (l *EventLog) RunAborted(abortedStage string, durationMS int64) {
	if l == nil {
		return
	}
	l.write(runAbortedEntry{
		Type:         "run_aborted",
		Status:       "aborted",
		AbortedStage: abortedStage,
		DurationMS:   durationMS,
	})
}

func (l *EventLog) write(entry any) {
	if err := l.encoder.Encode(entry); err != nil {
		l.logger.Warn("failed to write event log entry", "error", err)
		return
	}
	// Sync after each line so partial progress survives a crash and is
	// visible to readers tailing the file immediately.
	if err := l.file.Sync(); err != nil {
		l.logger.Warn("failed to sync event log", "error", err)
	}
}

// JSONL entry types. Each struct documents exactly which fields appear
// in that line type; separate structs keep the wire format explicit
// instead of one struct with omitempty everywhere.

// runStartEntry is the first line of every run.
type runStartEntry struct {
	Type       string `json:"type"`
	Pipeline   string `json:"pipeline"`
	StageCount int    `json:"stage_count"`
	Timestamp  string `json:"timestamp"`
}

// stageStartEntry is written when a stage's process is about to start.
type stageStartEntry struct {
	Type      string `json:"type"`
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
}

// stageCompleteEntry is written after each stage completes or is
// skipped.
type stageCompleteEntry struct {
	Type       string `json:"type"`
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	ExitCode   int    `json:"exit_code"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// runCompleteEntry is the last line of a successful run.
type runCompleteEntry struct {
	Type       string `json:"type"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
}

// runFailedEntry is the last line of a failed run.
type runFailedEntry struct {
	Type        string `json:"type"`
	Status      string `json:"status"`
	Error       string `json:"error"`
	FailedStage string `json:"failed_stage"`
	DurationMS  int64  `json:"duration_ms"`
}

// runAbortedEntry is the last line of a cancelled run.
type runAbortedEntry struct {
	Type         string `json:"type"`
	Status       string `json:"status"`
	AbortedStage string `json:"aborted_stage,omitempty"`
	DurationMS   int64  `json:"duration_ms"`
}
