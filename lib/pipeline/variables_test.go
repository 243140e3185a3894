// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"strings"
	"testing"
)

func TestResolveVariables(t *testing.T) {
	t.Parallel()

	t.Run("defaults only", func(t *testing.T) {
		t.Parallel()

		declarations := map[string]Variable{
			"QUEUE":    {Default: "BrainScaleS"},
			"PLATFORM": {Default: "hbp"},
		}

		resolved, err := ResolveVariables(declarations, nil, nil)
		if err != nil {
			t.Fatalf("ResolveVariables: %v", err)
		}
		if resolved["QUEUE"] != "BrainScaleS" {
			t.Errorf("QUEUE = %q, want %q", resolved["QUEUE"], "BrainScaleS")
		}
		if resolved["PLATFORM"] != "hbp" {
			t.Errorf("PLATFORM = %q, want %q", resolved["PLATFORM"], "hbp")
		}
	})

	t.Run("params override defaults", func(t *testing.T) {
		t.Parallel()

		declarations := map[string]Variable{
			"QUEUE": {Default: "BrainScaleS"},
		}
		params := map[string]string{"QUEUE": "BrainScaleS-ESS"}

		resolved, err := ResolveVariables(declarations, params, nil)
		if err != nil {
			t.Fatalf("ResolveVariables: %v", err)
		}
		if resolved["QUEUE"] != "BrainScaleS-ESS" {
			t.Errorf("QUEUE = %q, want %q", resolved["QUEUE"], "BrainScaleS-ESS")
		}
	})

	t.Run("environ overrides params", func(t *testing.T) {
		t.Parallel()

		declarations := map[string]Variable{
			"QUEUE": {Default: "BrainScaleS"},
		}
		params := map[string]string{"QUEUE": "BrainScaleS-ESS"}
		environ := func(name string) string {
			if name == "QUEUE" {
				return "env-queue"
			}
			return ""
		}

		resolved, err := ResolveVariables(declarations, params, environ)
		if err != nil {
			t.Fatalf("ResolveVariables: %v", err)
		}
		if resolved["QUEUE"] != "env-queue" {
			t.Errorf("QUEUE = %q, want %q", resolved["QUEUE"], "env-queue")
		}
	})

	t.Run("environ only checks declared variables", func(t *testing.T) {
		t.Parallel()

		declarations := map[string]Variable{
			"DECLARED": {},
		}
		environ := func(name string) string {
			if name == "DECLARED" {
				return "from-env"
			}
			if name == "UNDECLARED" {
				return "should-not-appear"
			}
			return ""
		}

		resolved, err := ResolveVariables(declarations, nil, environ)
		if err != nil {
			t.Fatalf("ResolveVariables: %v", err)
		}
		if resolved["DECLARED"] != "from-env" {
			t.Errorf("DECLARED = %q, want %q", resolved["DECLARED"], "from-env")
		}
		if _, exists := resolved["UNDECLARED"]; exists {
			t.Error("UNDECLARED should not be in resolved map")
		}
	})

	t.Run("params include undeclared variables", func(t *testing.T) {
		t.Parallel()

		declarations := map[string]Variable{}
		params := map[string]string{"EXTRA": "bonus"}

		resolved, err := ResolveVariables(declarations, params, nil)
		if err != nil {
			t.Fatalf("ResolveVariables: %v", err)
		}
		if resolved["EXTRA"] != "bonus" {
			t.Errorf("EXTRA = %q, want %q", resolved["EXTRA"], "bonus")
		}
	})

	t.Run("required variable satisfied by default", func(t *testing.T) {
		t.Parallel()

		declarations := map[string]Variable{
			"QUEUE": {Required: true, Default: "BrainScaleS"},
		}

		resolved, err := ResolveVariables(declarations, nil, nil)
		if err != nil {
			t.Fatalf("ResolveVariables: %v", err)
		}
		if resolved["QUEUE"] != "BrainScaleS" {
			t.Errorf("QUEUE = %q", resolved["QUEUE"])
		}
	})

	t.Run("missing required variables listed sorted", func(t *testing.T) {
		t.Parallel()

		declarations := map[string]Variable{
			"ZULU":  {Required: true},
			"ALPHA": {Required: true},
		}

		_, err := ResolveVariables(declarations, nil, nil)
		if err == nil {
			t.Fatal("expected error for missing required variables")
		}
		if !strings.Contains(err.Error(), "ALPHA, ZULU") {
			t.Errorf("error should list missing variables sorted, got: %v", err)
		}
	})
}

func TestExpand(t *testing.T) {
	t.Parallel()

	variables := map[string]string{
		"QUEUE": "BrainScaleS",
		"USER":  "nmpi_ci",
	}

	t.Run("simple substitution", func(t *testing.T) {
		t.Parallel()

		result, err := Expand("submit to ${QUEUE} as ${USER}", variables)
		if err != nil {
			t.Fatalf("Expand: %v", err)
		}
		if result != "submit to BrainScaleS as nmpi_ci" {
			t.Errorf("result = %q", result)
		}
	})

	t.Run("bare dollar left alone", func(t *testing.T) {
		t.Parallel()

		result, err := Expand("echo $HOME and ${QUEUE}", variables)
		if err != nil {
			t.Fatalf("Expand: %v", err)
		}
		if result != "echo $HOME and BrainScaleS" {
			t.Errorf("result = %q", result)
		}
	})

	t.Run("no references", func(t *testing.T) {
		t.Parallel()

		result, err := Expand("plain text", variables)
		if err != nil {
			t.Fatalf("Expand: %v", err)
		}
		if result != "plain text" {
			t.Errorf("result = %q", result)
		}
	})

	t.Run("unresolved reference", func(t *testing.T) {
		t.Parallel()

		_, err := Expand("token is ${NMPI_TEST_TOKEN}", variables)
		if err == nil {
			t.Fatal("expected error for unresolved variable")
		}
		if !strings.Contains(err.Error(), "NMPI_TEST_TOKEN") {
			t.Errorf("error should name the unresolved variable, got: %v", err)
		}
	})

	t.Run("empty value is a valid substitution", func(t *testing.T) {
		t.Parallel()

		result, err := Expand("x${EMPTY}y", map[string]string{"EMPTY": ""})
		if err != nil {
			t.Fatalf("Expand: %v", err)
		}
		if result != "xy" {
			t.Errorf("result = %q, want %q", result, "xy")
		}
	})
}

func TestExpandStage(t *testing.T) {
	t.Parallel()

	t.Run("script and app expanded", func(t *testing.T) {
		t.Parallel()

		stage := Stage{
			Name:   "install",
			Script: "./ci/install_dependencies_${BACKEND}.sh",
			App:    "${APP}",
		}
		variables := map[string]string{"BACKEND": "brainscales", "APP": "nmpi"}

		expanded, err := ExpandStage(stage, variables)
		if err != nil {
			t.Fatalf("ExpandStage: %v", err)
		}
		if expanded.Script != "./ci/install_dependencies_brainscales.sh" {
			t.Errorf("Script = %q", expanded.Script)
		}
		if expanded.App != "nmpi" {
			t.Errorf("App = %q, want %q", expanded.App, "nmpi")
		}
	})

	t.Run("stage env expanded then available to run", func(t *testing.T) {
		t.Parallel()

		stage := Stage{
			Name: "report",
			Run:  "report --queue ${TARGET}",
			Env:  map[string]string{"TARGET": "${QUEUE}-nightly"},
		}
		variables := map[string]string{"QUEUE": "BrainScaleS"}

		expanded, err := ExpandStage(stage, variables)
		if err != nil {
			t.Fatalf("ExpandStage: %v", err)
		}
		if expanded.Env["TARGET"] != "BrainScaleS-nightly" {
			t.Errorf("Env[TARGET] = %q", expanded.Env["TARGET"])
		}
		if expanded.Run != "report --queue BrainScaleS-nightly" {
			t.Errorf("Run = %q", expanded.Run)
		}
	})

	t.Run("stage env does not cross-reference itself", func(t *testing.T) {
		t.Parallel()

		stage := Stage{
			Name: "cross",
			Run:  "true",
			Env: map[string]string{
				"FIRST":  "one",
				"SECOND": "${FIRST}",
			},
		}

		_, err := ExpandStage(stage, map[string]string{})
		if err == nil {
			t.Fatal("expected error for cross-referencing env entries")
		}
	})

	t.Run("original stage not modified", func(t *testing.T) {
		t.Parallel()

		stage := Stage{
			Name:   "install",
			Script: "${SCRIPT}",
		}
		variables := map[string]string{"SCRIPT": "./ci/install.sh"}

		if _, err := ExpandStage(stage, variables); err != nil {
			t.Fatalf("ExpandStage: %v", err)
		}
		if stage.Script != "${SCRIPT}" {
			t.Errorf("original Script = %q, want unmodified", stage.Script)
		}
	})

	t.Run("unresolved script reference", func(t *testing.T) {
		t.Parallel()

		stage := Stage{Name: "install", Script: "./ci/${MISSING}.sh"}

		_, err := ExpandStage(stage, map[string]string{})
		if err == nil {
			t.Fatal("expected error for unresolved reference")
		}
		if !strings.Contains(err.Error(), `stage "install" script`) {
			t.Errorf("error should name the stage and field, got: %v", err)
		}
	})
}

func TestExpandDefinition(t *testing.T) {
	t.Parallel()

	t.Run("image, app, environment, and stages expanded", func(t *testing.T) {
		t.Parallel()

		definition := &Definition{
			Image: "/containers/${CHANNEL}/latest",
			App:   "${APP}",
			Environment: map[string]EnvBinding{
				"NMPI_TEST_QUEUE": {Value: "${QUEUE}"},
			},
			Stages: []Stage{
				{Name: "install", Script: "./ci/install_dependencies_${BACKEND}.sh"},
				{Name: "test", Script: "./ci/run_saga_nosetests_${BACKEND}.sh"},
			},
		}
		variables := map[string]string{
			"CHANNEL": "stable",
			"APP":     "nmpi",
			"QUEUE":   "BrainScaleS",
			"BACKEND": "brainscales",
		}

		expanded, err := ExpandDefinition(definition, variables)
		if err != nil {
			t.Fatalf("ExpandDefinition: %v", err)
		}
		if expanded.Image != "/containers/stable/latest" {
			t.Errorf("Image = %q", expanded.Image)
		}
		if expanded.App != "nmpi" {
			t.Errorf("App = %q", expanded.App)
		}
		if expanded.Environment["NMPI_TEST_QUEUE"].Value != "BrainScaleS" {
			t.Errorf("NMPI_TEST_QUEUE = %q", expanded.Environment["NMPI_TEST_QUEUE"].Value)
		}
		if expanded.Stages[0].Script != "./ci/install_dependencies_brainscales.sh" {
			t.Errorf("Stages[0].Script = %q", expanded.Stages[0].Script)
		}
		if expanded.Stages[1].Script != "./ci/run_saga_nosetests_brainscales.sh" {
			t.Errorf("Stages[1].Script = %q", expanded.Stages[1].Script)
		}
	})

	t.Run("original definition not modified", func(t *testing.T) {
		t.Parallel()

		definition := &Definition{
			Image:  "/containers/${CHANNEL}/latest",
			Stages: []Stage{{Name: "test", Run: "${COMMAND}"}},
		}
		variables := map[string]string{"CHANNEL": "stable", "COMMAND": "true"}

		if _, err := ExpandDefinition(definition, variables); err != nil {
			t.Fatalf("ExpandDefinition: %v", err)
		}
		if definition.Image != "/containers/${CHANNEL}/latest" {
			t.Errorf("original Image = %q, want unmodified", definition.Image)
		}
		if definition.Stages[0].Run != "${COMMAND}" {
			t.Errorf("original Run = %q, want unmodified", definition.Stages[0].Run)
		}
	})

	t.Run("stage error names the stage", func(t *testing.T) {
		t.Parallel()

		definition := &Definition{
			Stages: []Stage{{Name: "deploy", Run: "push ${MISSING}"}},
		}

		_, err := ExpandDefinition(definition, map[string]string{})
		if err == nil {
			t.Fatal("expected error for unresolved reference")
		}
		if !strings.Contains(err.Error(), `stage "deploy"`) {
			t.Errorf("error should name the stage, got: %v", err)
		}
	})
}

func TestExpandEnvironment(t *testing.T) {
	t.Parallel()

	t.Run("values expanded, credentials untouched", func(t *testing.T) {
		t.Parallel()

		environment := map[string]EnvBinding{
			"NMPI_TEST_QUEUE": {Value: "${QUEUE}"},
			"NMPI_TEST_TOKEN": {Credential: "nmpi-test-token"},
		}
		variables := map[string]string{"QUEUE": "BrainScaleS"}

		expanded, err := ExpandEnvironment(environment, variables)
		if err != nil {
			t.Fatalf("ExpandEnvironment: %v", err)
		}
		if expanded["NMPI_TEST_QUEUE"].Value != "BrainScaleS" {
			t.Errorf("NMPI_TEST_QUEUE = %q", expanded["NMPI_TEST_QUEUE"].Value)
		}
		if expanded["NMPI_TEST_TOKEN"].Credential != "nmpi-test-token" {
			t.Errorf("NMPI_TEST_TOKEN credential = %q", expanded["NMPI_TEST_TOKEN"].Credential)
		}
	})

	t.Run("nil environment", func(t *testing.T) {
		t.Parallel()

		expanded, err := ExpandEnvironment(nil, map[string]string{})
		if err != nil {
			t.Fatalf("ExpandEnvironment: %v", err)
		}
		if expanded != nil {
			t.Errorf("expanded = %v, want nil", expanded)
		}
	})

	t.Run("unresolved value reference", func(t *testing.T) {
		t.Parallel()

		environment := map[string]EnvBinding{
			"NMPI_TEST_QUEUE": {Value: "${MISSING}"},
		}

		_, err := ExpandEnvironment(environment, map[string]string{})
		if err == nil {
			t.Fatal("expected error for unresolved reference")
		}
		if !strings.Contains(err.Error(), "NMPI_TEST_QUEUE") {
			t.Errorf("error should name the binding, got: %v", err)
		}
	})
}
