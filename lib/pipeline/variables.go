// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// variablePattern matches ${NAME} references in strings. Only the
// braced form is recognized; bare $NAME is left for shell
// interpretation. Variable names must start with a letter or
// underscore and contain only letters, digits, and underscores.
var variablePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ResolveVariables merges variable sources according to pipeline
// resolution order (lowest to highest priority):
//
//  1. Declared defaults from the definition's variable declarations
//  2. Parameter values passed on the command line (--param)
//  3. Environment lookup via the environ function
//
// Returns the merged variable map. Returns an error if any required
// variable (per its declaration) has no value from any source.
//
// The environ function is typically os.Getenv for production use, or
// a stub for testing. It is only consulted for variables that are
// declared in the pipeline; undeclared environment variables are not
// included in the result.
func ResolveVariables(declarations map[string]Variable, params map[string]string, environ func(string) string) (map[string]string, error) {
	resolved := make(map[string]string, len(declarations)+len(params))

	// Start with declared defaults (lowest priority).
	for name, declaration := range declarations {
		if declaration.Default != "" {
			resolved[name] = declaration.Default
		}
	}

	// Overlay parameter values (medium priority).
	for name, value := range params {
		resolved[name] = value
	}

	// Overlay environment values for declared variables (highest
	// priority). Only declared variables are looked up; the entire
	// process environment is not pulled in.
	if environ != nil {
		for name := range declarations {
			if value := environ(name); value != "" {
				resolved[name] = value
			}
		}
	}

	// Check that all required variables have a value.
	var missing []string
	for name, declaration := range declarations {
		if declaration.Required {
			if _, exists := resolved[name]; !exists {
				missing = append(missing, name)
			}
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("required pipeline variables not set: %s", strings.Join(missing, ", "))
	}

	return resolved, nil
}

// Expand replaces ${NAME} references in input with values from the
// variables map. Only the ${NAME} form is recognized (braces required);
// bare $NAME is left for shell interpretation.
//
// Returns an error listing all referenced variables that have no value
// in the map. This ensures pipeline definitions fail fast on
// unresolvable references rather than producing broken commands.
func Expand(input string, variables map[string]string) (string, error) {
	var unresolved []string

	result := variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		// Extract the variable name from ${NAME}.
		name := match[2 : len(match)-1]
		if value, exists := variables[name]; exists {
			return value
		}
		unresolved = append(unresolved, name)
		return match
	})

	if len(unresolved) > 0 {
		return "", fmt.Errorf("unresolved pipeline variables: %s", strings.Join(unresolved, ", "))
	}

	return result, nil
}

// ExpandStage returns a copy of stage with all string fields expanded
// using Expand. Stage-level Env values are expanded first (against
// pipeline variables only), then merged into the variable map for
// expanding other fields. This means a script path or run command can
// reference stage env variables with ${NAME}, and those values will
// already have their own ${REFERENCES} resolved.
//
// The original stage and variables map are not modified.
func ExpandStage(stage Stage, variables map[string]string) (Stage, error) {
	// First pass: expand stage-level env values against pipeline
	// variables only (not against other stage env values, no
	// cross-referencing between env entries).
	var expandedEnv map[string]string
	if len(stage.Env) > 0 {
		expandedEnv = make(map[string]string, len(stage.Env))
		for name, value := range stage.Env {
			expandedValue, err := Expand(value, variables)
			if err != nil {
				return Stage{}, fmt.Errorf("stage %q env[%s]: %w", stage.Name, name, err)
			}
			expandedEnv[name] = expandedValue
		}
	}

	// Build the merged variable map: pipeline variables as base,
	// expanded stage env on top. Stage env takes precedence.
	merged := make(map[string]string, len(variables)+len(expandedEnv))
	for name, value := range variables {
		merged[name] = value
	}
	for name, value := range expandedEnv {
		merged[name] = value
	}

	var err error

	if stage.Script, err = Expand(stage.Script, merged); err != nil {
		return Stage{}, fmt.Errorf("stage %q script: %w", stage.Name, err)
	}
	if stage.Run, err = Expand(stage.Run, merged); err != nil {
		return Stage{}, fmt.Errorf("stage %q run: %w", stage.Name, err)
	}
	if stage.App, err = Expand(stage.App, merged); err != nil {
		return Stage{}, fmt.Errorf("stage %q app: %w", stage.Name, err)
	}

	stage.Env = expandedEnv
	return stage, nil
}

// ExpandDefinition returns a copy of the definition with every
// substitutable field expanded: the image, the application context,
// environment binding values, and all stage string fields. The
// original definition is not modified. Variable declarations are
// carried over unchanged: they are resolution inputs, not
// substitution targets.
func ExpandDefinition(definition *Definition, variables map[string]string) (*Definition, error) {
	expanded := *definition
	var err error

	if expanded.Image, err = Expand(definition.Image, variables); err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	if expanded.App, err = Expand(definition.App, variables); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	if expanded.Environment, err = ExpandEnvironment(definition.Environment, variables); err != nil {
		return nil, err
	}

	expanded.Stages = make([]Stage, len(definition.Stages))
	for i, stage := range definition.Stages {
		if expanded.Stages[i], err = ExpandStage(stage, variables); err != nil {
			return nil, err
		}
	}
	return &expanded, nil
}

// ExpandEnvironment returns a copy of the environment binding map
// with all Value fields expanded. Credential names are configuration
// identifiers, not shell material, and are left untouched.
func ExpandEnvironment(environment map[string]EnvBinding, variables map[string]string) (map[string]EnvBinding, error) {
	if environment == nil {
		return nil, nil
	}

	expanded := make(map[string]EnvBinding, len(environment))
	for name, binding := range environment {
		value, err := Expand(binding.Value, variables)
		if err != nil {
			return nil, fmt.Errorf("environment[%s]: %w", name, err)
		}
		binding.Value = value
		expanded[name] = binding
	}
	return expanded, nil
}
