// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("minimal pipeline", func(t *testing.T) {
		t.Parallel()

		definition, err := Parse([]byte(`{
  "stages": [
    {"name": "hello", "run": "echo hello"}
  ]
}`))
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if len(definition.Stages) != 1 {
			t.Fatalf("Stages count = %d, want 1", len(definition.Stages))
		}
		if definition.Stages[0].Name != "hello" {
			t.Errorf("Stages[0].Name = %q, want %q", definition.Stages[0].Name, "hello")
		}
		if definition.Stages[0].Run != "echo hello" {
			t.Errorf("Stages[0].Run = %q, want %q", definition.Stages[0].Run, "echo hello")
		}
	})

	t.Run("full pipeline", func(t *testing.T) {
		t.Parallel()

		definition, err := Parse([]byte(`{
  "description": "BrainScaleS client verification",
  "agent": "any",
  "image": "/containers/stable/latest",
  "app": "nmpi",
  "variables": {
    "QUEUE": {
      "description": "Submission queue",
      "default": "BrainScaleS"
    }
  },
  "environment": {
    "NMPI_TEST_USER": {"value": "nmpi_ci"},
    "NMPI_TEST_TOKEN": {"credential": "nmpi-test-token"},
    "NMPI_TEST_QUEUE": {"value": "${QUEUE}"}
  },
  "stages": [
    {
      "name": "install-dependencies",
      "script": "./ci/install_dependencies_brainscales.sh",
      "timeout": "30m"
    },
    {
      "name": "test",
      "script": "./ci/run_saga_nosetests_brainscales.sh",
      "env": {"NOSE_VERBOSE": "1"},
      "optional": false
    }
  ]
}`))
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}

		if definition.Description != "BrainScaleS client verification" {
			t.Errorf("Description = %q", definition.Description)
		}
		if definition.Agent != "any" {
			t.Errorf("Agent = %q, want %q", definition.Agent, "any")
		}
		if definition.Image != "/containers/stable/latest" {
			t.Errorf("Image = %q, want %q", definition.Image, "/containers/stable/latest")
		}
		if definition.App != "nmpi" {
			t.Errorf("App = %q, want %q", definition.App, "nmpi")
		}

		queue, exists := definition.Variables["QUEUE"]
		if !exists {
			t.Fatal("Variables[QUEUE] missing")
		}
		if queue.Default != "BrainScaleS" {
			t.Errorf("QUEUE default = %q, want %q", queue.Default, "BrainScaleS")
		}

		if len(definition.Environment) != 3 {
			t.Fatalf("Environment count = %d, want 3", len(definition.Environment))
		}
		if definition.Environment["NMPI_TEST_USER"].Value != "nmpi_ci" {
			t.Errorf("NMPI_TEST_USER value = %q", definition.Environment["NMPI_TEST_USER"].Value)
		}
		if definition.Environment["NMPI_TEST_TOKEN"].Credential != "nmpi-test-token" {
			t.Errorf("NMPI_TEST_TOKEN credential = %q", definition.Environment["NMPI_TEST_TOKEN"].Credential)
		}

		if len(definition.Stages) != 2 {
			t.Fatalf("Stages count = %d, want 2", len(definition.Stages))
		}
		if definition.Stages[0].Script != "./ci/install_dependencies_brainscales.sh" {
			t.Errorf("Stages[0].Script = %q", definition.Stages[0].Script)
		}
		if definition.Stages[0].Timeout != "30m" {
			t.Errorf("Stages[0].Timeout = %q, want %q", definition.Stages[0].Timeout, "30m")
		}
		if definition.Stages[1].Env["NOSE_VERBOSE"] != "1" {
			t.Errorf("Stages[1].Env[NOSE_VERBOSE] = %q, want %q", definition.Stages[1].Env["NOSE_VERBOSE"], "1")
		}
	})

	t.Run("comments and trailing commas", func(t *testing.T) {
		t.Parallel()

		definition, err := Parse([]byte(`{
  // Verification pipeline for the platform client.
  "image": "/containers/stable/latest",
  /* Stage list.
     Strictly sequential. */
  "stages": [
    {"name": "install", "script": "./ci/install.sh"},
    {"name": "test", "script": "./ci/test.sh"},  // trailing comma next
  ],
}`))
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if len(definition.Stages) != 2 {
			t.Fatalf("Stages count = %d, want 2", len(definition.Stages))
		}
		if definition.Stages[1].Name != "test" {
			t.Errorf("Stages[1].Name = %q, want %q", definition.Stages[1].Name, "test")
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		t.Parallel()

		_, err := Parse([]byte(`{"stages": [{}`))
		if err == nil {
			t.Fatal("expected error for malformed JSON")
		}
	})

	t.Run("wrong type for stages", func(t *testing.T) {
		t.Parallel()

		_, err := Parse([]byte(`{"stages": "not-a-list"}`))
		if err == nil {
			t.Fatal("expected error for wrong stages type")
		}
	})
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	t.Run("reads and parses", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "pipeline.jsonc")
		content := `{
  // Minimal definition.
  "stages": [{"name": "noop", "run": "true"}]
}`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}

		definition, err := ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		if len(definition.Stages) != 1 {
			t.Fatalf("Stages count = %d, want 1", len(definition.Stages))
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := ReadFile(filepath.Join(t.TempDir(), "does-not-exist.jsonc"))
		if err == nil {
			t.Fatal("expected error for missing file")
		}
	})
}

func TestNameFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"ci/pipeline.jsonc", "pipeline"},
		{"brainscales-verify.jsonc", "brainscales-verify"},
		{"/etc/nmpi-ci/nightly.json", "nightly"},
		{"no-extension", "no-extension"},
	}

	for _, testCase := range tests {
		if got := NameFromPath(testCase.path); got != testCase.want {
			t.Errorf("NameFromPath(%q) = %q, want %q", testCase.path, got, testCase.want)
		}
	}
}
