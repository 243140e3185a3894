// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile defines how a container runtime is invoked for script
// stages.
type Profile struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Inherit     string `yaml:"inherit,omitempty"`

	// Runtime is the container runtime binary (e.g., "singularity").
	// Resolved via PATH unless absolute. Required on a resolved
	// profile.
	Runtime string `yaml:"runtime,omitempty"`

	// ExecCommand is the runtime subcommand that executes a program
	// inside an image. Defaults to "exec".
	ExecCommand string `yaml:"exec_command,omitempty"`

	// AppFlag is the flag that selects the application context
	// inside the image. Defaults to "--app".
	AppFlag string `yaml:"app_flag,omitempty"`

	// Args are extra arguments inserted between the exec subcommand
	// and the application flag (e.g., "--cleanenv"). A child profile
	// that sets Args replaces the parent's list entirely.
	Args []string `yaml:"args,omitempty"`

	// Setenv are environment variables the profile contributes to
	// every stage process, underneath the pipeline's own bindings
	// (pipeline and stage values win on conflict). Merged across
	// inheritance; child profile values win.
	Setenv map[string]string `yaml:"setenv,omitempty"`
}

// ProfilesConfig is the on-disk shape of a profile file: a map of
// profile name to definition.
type ProfilesConfig struct {
	Profiles map[string]*Profile `yaml:"profiles"`
}

// ParseProfilesConfig parses a YAML profile file. Each profile's Name
// is filled in from its map key.
func ParseProfilesConfig(data []byte) (*ProfilesConfig, error) {
	var config ProfilesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing profiles: %w", err)
	}
	for name, profile := range config.Profiles {
		if profile == nil {
			return nil, fmt.Errorf("profile %q is empty", name)
		}
		profile.Name = name
	}
	return &config, nil
}

// LoadProfilesConfig reads and parses a YAML profile file from disk.
func LoadProfilesConfig(path string) (*ProfilesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	config, err := ParseProfilesConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// Clone creates a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	clone := &Profile{
		Name:        p.Name,
		Description: p.Description,
		Inherit:     p.Inherit,
		Runtime:     p.Runtime,
		ExecCommand: p.ExecCommand,
		AppFlag:     p.AppFlag,
	}

	if p.Args != nil {
		clone.Args = make([]string, len(p.Args))
		copy(clone.Args, p.Args)
	}
	if p.Setenv != nil {
		clone.Setenv = make(map[string]string)
		for key, value := range p.Setenv {
			clone.Setenv[key] = value
		}
	}

	return clone
}

// MergeProfiles merges child profile settings into parent. Child
// settings override parent settings: scalars replace when non-empty,
// Args replaces entirely when set, Setenv merges with child values
// winning.
func MergeProfiles(parent, child *Profile) *Profile {
	result := parent.Clone()
	result.Name = child.Name
	result.Inherit = ""

	if child.Description != "" {
		result.Description = child.Description
	}
	if child.Runtime != "" {
		result.Runtime = child.Runtime
	}
	if child.ExecCommand != "" {
		result.ExecCommand = child.ExecCommand
	}
	if child.AppFlag != "" {
		result.AppFlag = child.AppFlag
	}

	if len(child.Args) > 0 {
		result.Args = make([]string, len(child.Args))
		copy(result.Args, child.Args)
	}

	if len(child.Setenv) > 0 {
		if result.Setenv == nil {
			result.Setenv = make(map[string]string)
		}
		for key, value := range child.Setenv {
			result.Setenv[key] = value
		}
	}

	return result
}

// Validate checks that a resolved profile is usable for launching
// stages.
func (p *Profile) Validate() error {
	var issues []string

	if p.Runtime == "" {
		issues = append(issues, "runtime is required")
	}
	for name := range p.Setenv {
		if name == "" || strings.Contains(name, "=") {
			issues = append(issues, fmt.Sprintf("setenv name %q is invalid", name))
		}
	}

	if len(issues) > 0 {
		return fmt.Errorf("profile %q validation failed:\n  %s", p.Name, strings.Join(issues, "\n  "))
	}
	return nil
}
