// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"regexp"
	"sort"
	"time"
)

// variableNamePattern matches valid variable and environment binding
// names: a letter or underscore followed by letters, digits, and
// underscores.
var variableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks a Definition for structural issues. Returns a list
// of human-readable issue descriptions. An empty list means the
// definition is valid.
//
// Structural checks include:
//   - At least one stage is required
//   - Each stage must have a non-empty Name; names must be unique
//   - Each stage must set exactly one of Script or Run (not both, not neither)
//   - App overrides are only valid on script stages
//   - Image is required when any stage sets Script
//   - Timeout and GracePeriod (when present) must be parseable by
//     time.ParseDuration
//   - Each environment binding must set exactly one of Value or Credential
//   - Variable and environment binding names must be well-formed
func Validate(definition *Definition) []string {
	var issues []string

	if len(definition.Stages) == 0 {
		issues = append(issues, "pipeline has no stages (at least one stage is required)")
	}

	usesScript := false
	seenNames := make(map[string]bool, len(definition.Stages))

	for index, stage := range definition.Stages {
		prefix := fmt.Sprintf("stages[%d]", index)

		if stage.Name == "" {
			issues = append(issues, fmt.Sprintf("%s: name is required", prefix))
		} else {
			prefix = fmt.Sprintf("stages[%d] %q", index, stage.Name)
			if seenNames[stage.Name] {
				issues = append(issues, fmt.Sprintf("%s: duplicate stage name", prefix))
			}
			seenNames[stage.Name] = true
		}

		hasScript := stage.Script != ""
		hasRun := stage.Run != ""

		switch {
		case hasScript && hasRun:
			issues = append(issues, fmt.Sprintf("%s: script and run are mutually exclusive (set exactly one)", prefix))
		case !hasScript && !hasRun:
			issues = append(issues, fmt.Sprintf("%s: must set either script or run", prefix))
		}
		if hasScript {
			usesScript = true
		}

		// App overrides only make sense for container stages.
		if stage.App != "" && !hasScript {
			issues = append(issues, fmt.Sprintf("%s: app is only valid on script stages", prefix))
		}

		if stage.Timeout != "" {
			if _, err := time.ParseDuration(stage.Timeout); err != nil {
				issues = append(issues, fmt.Sprintf("%s: invalid timeout %q: %v", prefix, stage.Timeout, err))
			}
		}
		if stage.GracePeriod != "" {
			if _, err := time.ParseDuration(stage.GracePeriod); err != nil {
				issues = append(issues, fmt.Sprintf("%s: invalid grace_period %q: %v", prefix, stage.GracePeriod, err))
			}
		}
	}

	// A container stage without an image has nothing to run in. The
	// image may be a ${VARIABLE} reference; only emptiness is checked
	// here.
	if usesScript && definition.Image == "" {
		issues = append(issues, "image is required when any stage uses script")
	}

	for _, name := range sortedKeys(definition.Environment) {
		binding := definition.Environment[name]
		prefix := fmt.Sprintf("environment[%s]", name)

		if !variableNamePattern.MatchString(name) {
			issues = append(issues, fmt.Sprintf("%s: invalid environment variable name", prefix))
		}

		hasValue := binding.Value != ""
		hasCredential := binding.Credential != ""
		switch {
		case hasValue && hasCredential:
			issues = append(issues, fmt.Sprintf("%s: value and credential are mutually exclusive (set exactly one)", prefix))
		case !hasValue && !hasCredential:
			issues = append(issues, fmt.Sprintf("%s: must set either value or credential", prefix))
		}
	}

	for _, name := range sortedKeys(definition.Variables) {
		if !variableNamePattern.MatchString(name) {
			issues = append(issues, fmt.Sprintf("variables[%s]: invalid variable name", name))
		}
	}

	return issues
}

// sortedKeys returns the map's keys in sorted order so validation
// issues come out in a stable order regardless of map iteration.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
