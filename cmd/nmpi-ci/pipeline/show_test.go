// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"strings"
	"testing"
)

func TestShowPipeline(t *testing.T) {
	t.Parallel()

	path := writePipeline(t, `{
  // Keep this comment: show prints the file as written.
  "description": "BrainScaleS verification",
  "stages": [
    {"name": "report", "run": "echo hello"}
  ]
}`)

	cmd := showCommand()
	if err := cmd.Execute(context.Background(), []string{path}, testLogger()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
}

func TestShowPipelineJSON(t *testing.T) {
	t.Parallel()

	path := writePipeline(t, `{
  "description": "BrainScaleS verification",
  "stages": [
    {"name": "report", "run": "echo hello"}
  ]
}`)

	cmd := showCommand()
	if err := cmd.Execute(context.Background(), []string{"--json", path}, testLogger()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
}

func TestShowNoArgs(t *testing.T) {
	t.Parallel()

	cmd := showCommand()
	err := cmd.Execute(context.Background(), []string{}, testLogger())
	if err == nil {
		t.Fatal("expected error for no args")
	}
	if !strings.Contains(err.Error(), "usage") {
		t.Errorf("error %q should contain usage hint", err.Error())
	}
}

func TestShowNonexistentFile(t *testing.T) {
	t.Parallel()

	cmd := showCommand()
	if err := cmd.Execute(context.Background(), []string{"/nonexistent/pipeline.jsonc"}, testLogger()); err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestShowUnparseableFile(t *testing.T) {
	t.Parallel()

	path := writePipeline(t, "{broken")

	cmd := showCommand()
	if err := cmd.Execute(context.Background(), []string{path}, testLogger()); err == nil {
		t.Fatal("expected error for unparseable file")
	}
}
