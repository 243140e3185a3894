// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"strings"
	"testing"
)

func TestParseProfilesConfig(t *testing.T) {
	config, err := ParseProfilesConfig([]byte(`
profiles:
  singularity:
    description: "Singularity image execution"
    runtime: singularity
    exec_command: exec
    app_flag: --app
  site:
    inherit: singularity
    args: ["--cleanenv"]
    setenv:
      SINGULARITYENV_LC_ALL: C
`))
	if err != nil {
		t.Fatalf("ParseProfilesConfig failed: %v", err)
	}

	if len(config.Profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(config.Profiles))
	}

	// Names are filled in from map keys.
	if config.Profiles["singularity"].Name != "singularity" {
		t.Errorf("expected name filled from key, got %q", config.Profiles["singularity"].Name)
	}

	site := config.Profiles["site"]
	if site.Inherit != "singularity" {
		t.Errorf("expected inherit=singularity, got %q", site.Inherit)
	}
	if len(site.Args) != 1 || site.Args[0] != "--cleanenv" {
		t.Errorf("unexpected args: %v", site.Args)
	}
	if site.Setenv["SINGULARITYENV_LC_ALL"] != "C" {
		t.Errorf("unexpected setenv: %v", site.Setenv)
	}
}

func TestParseProfilesConfigInvalid(t *testing.T) {
	if _, err := ParseProfilesConfig([]byte("profiles: [not, a, map]")); err == nil {
		t.Error("expected error for wrong profiles type")
	}

	if _, err := ParseProfilesConfig([]byte("profiles:\n  empty:\n")); err == nil {
		t.Error("expected error for empty profile")
	}
}

func TestMergeProfiles(t *testing.T) {
	parent := &Profile{
		Name:        "singularity",
		Description: "Singularity image execution",
		Runtime:     "singularity",
		ExecCommand: "exec",
		AppFlag:     "--app",
		Args:        []string{"--cleanenv"},
		Setenv:      map[string]string{"A": "parent", "B": "parent"},
	}
	child := &Profile{
		Name:    "apptainer",
		Inherit: "singularity",
		Runtime: "apptainer",
		Setenv:  map[string]string{"B": "child", "C": "child"},
	}

	merged := MergeProfiles(parent, child)

	if merged.Name != "apptainer" {
		t.Errorf("expected child name, got %q", merged.Name)
	}
	if merged.Inherit != "" {
		t.Errorf("expected inherit cleared, got %q", merged.Inherit)
	}
	if merged.Runtime != "apptainer" {
		t.Errorf("expected child runtime, got %q", merged.Runtime)
	}
	if merged.Description != "Singularity image execution" {
		t.Errorf("expected parent description kept, got %q", merged.Description)
	}
	if merged.ExecCommand != "exec" || merged.AppFlag != "--app" {
		t.Errorf("expected parent invocation shape kept, got %q %q", merged.ExecCommand, merged.AppFlag)
	}

	// Args inherited when child doesn't set them.
	if len(merged.Args) != 1 || merged.Args[0] != "--cleanenv" {
		t.Errorf("expected parent args kept, got %v", merged.Args)
	}

	// Setenv merged with child winning.
	if merged.Setenv["A"] != "parent" || merged.Setenv["B"] != "child" || merged.Setenv["C"] != "child" {
		t.Errorf("unexpected merged setenv: %v", merged.Setenv)
	}

	// Parent must not have been modified.
	if parent.Setenv["B"] != "parent" {
		t.Errorf("parent setenv modified: %v", parent.Setenv)
	}
}

func TestMergeProfilesArgsReplace(t *testing.T) {
	parent := &Profile{Name: "base", Runtime: "singularity", Args: []string{"--cleanenv", "--no-home"}}
	child := &Profile{Name: "site", Args: []string{"--contain"}}

	merged := MergeProfiles(parent, child)
	if len(merged.Args) != 1 || merged.Args[0] != "--contain" {
		t.Errorf("expected child args to replace parent's, got %v", merged.Args)
	}
}

func TestProfileClone(t *testing.T) {
	original := &Profile{
		Name:    "singularity",
		Runtime: "singularity",
		Args:    []string{"--cleanenv"},
		Setenv:  map[string]string{"A": "1"},
	}

	clone := original.Clone()
	clone.Args[0] = "--changed"
	clone.Setenv["A"] = "2"

	if original.Args[0] != "--cleanenv" {
		t.Error("clone shares Args slice with original")
	}
	if original.Setenv["A"] != "1" {
		t.Error("clone shares Setenv map with original")
	}
}

func TestProfileValidate(t *testing.T) {
	valid := &Profile{Name: "singularity", Runtime: "singularity"}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	missing := &Profile{Name: "broken"}
	err := missing.Validate()
	if err == nil {
		t.Fatal("expected error for missing runtime")
	}
	if !strings.Contains(err.Error(), "runtime is required") {
		t.Errorf("unexpected error: %v", err)
	}

	badEnv := &Profile{Name: "bad", Runtime: "singularity", Setenv: map[string]string{"A=B": "x"}}
	if err := badEnv.Validate(); err == nil {
		t.Error("expected error for setenv name containing =")
	}
}
