// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

// Definition is a pipeline definition as authored in a JSONC file. It
// describes a strictly sequential sequence of stages executed against
// a container image: each stage either runs a script inside the
// image's named application context or runs a plain shell command.
//
// Variable substitution (${NAME}) is applied to the image, the
// application name, environment binding values, and stage string
// fields before execution. Variables are resolved from declarations,
// run parameters, and the process environment.
type Definition struct {
	// Description is a human-readable summary of what this pipeline
	// does (e.g., "BrainScaleS client verification").
	Description string `json:"description,omitempty"`

	// Agent names the container profile used to launch stages. The
	// profile supplies the runtime binary and invocation shape.
	// When empty, the default profile ("any") is used.
	Agent string `json:"agent,omitempty"`

	// Image is the container image path handed to the runtime (e.g.,
	// "/containers/stable/latest"). Required when any stage sets
	// Script. Supports variable substitution.
	Image string `json:"image,omitempty"`

	// App is the application context inside the image that scripts
	// run under (the runtime's --app flag). Stages can override it
	// per stage. Supports variable substitution.
	App string `json:"app,omitempty"`

	// Variables declares the variables this pipeline expects, with
	// optional defaults and required flags. The runner validates
	// required variables before starting execution. This is the
	// declaration; actual values come from run parameters and the
	// process environment at runtime.
	Variables map[string]Variable `json:"variables,omitempty"`

	// Environment declares the environment bindings exported to
	// every stage process. Each binding carries either a literal
	// value or the name of a credential resolved from the credential
	// store at run time. Bindings are applied in sorted name order
	// so stage environments are deterministic.
	Environment map[string]EnvBinding `json:"environment,omitempty"`

	// Stages is the ordered list of stages to execute. At least one
	// stage is required. Stages run sequentially; the first
	// non-optional failure stops the run.
	Stages []Stage `json:"stages"`
}

// Variable declares an expected variable for a pipeline. Variables
// are substitution sources for ${NAME} references; they are not
// exported to stage processes unless an environment binding or stage
// env entry references them.
type Variable struct {
	// Description explains what this variable is for (shown by
	// pipeline show).
	Description string `json:"description,omitempty"`

	// Default is the fallback value when the variable is not
	// provided by any source. Empty string is a valid default.
	Default string `json:"default,omitempty"`

	// Required means the runner must fail if this variable has no
	// value from any source (including Default). A variable with
	// both Required and Default set uses the default only when no
	// explicit value is provided.
	Required bool `json:"required,omitempty"`
}

// EnvBinding is a single environment binding exported to stage
// processes. Exactly one of Value or Credential must be set:
//   - Value: a literal string, exported as-is after variable expansion
//   - Credential: the name of an entry in the credential store; the
//     runner resolves it at run start and registers the resolved value
//     with the log masker so it never appears in output in plaintext
type EnvBinding struct {
	// Value is the literal value for this binding. Supports variable
	// substitution. Mutually exclusive with Credential.
	Value string `json:"value,omitempty"`

	// Credential names a credential-store entry whose decrypted
	// value becomes this binding's value. Credential names are not
	// subject to variable substitution. Mutually exclusive with
	// Value.
	Credential string `json:"credential,omitempty"`
}

// Stage is a single stage in a pipeline. Exactly one of Script or Run
// must be set:
//   - Script: a script path executed inside the container image via
//     the profile's runtime (runtime exec --app <app> <image> <script>)
//   - Run: a shell command executed via sh -c on the host
type Stage struct {
	// Name is a human-readable identifier for this stage, used in
	// log output, status lines, and the run store (e.g.,
	// "install-dependencies", "test"). Required; unique within the
	// pipeline.
	Name string `json:"name"`

	// Script is a path to a script executed inside the container
	// image. The path is passed to the runtime unchanged, so
	// relative paths resolve inside the container's working
	// directory. Supports variable substitution. Mutually exclusive
	// with Run.
	Script string `json:"script,omitempty"`

	// Run is a shell command executed via sh -c on the host.
	// Multi-line strings are supported. Supports variable
	// substitution. Mutually exclusive with Script.
	Run string `json:"run,omitempty"`

	// App overrides the pipeline-level application context for this
	// stage. Only meaningful with Script. Supports variable
	// substitution.
	App string `json:"app,omitempty"`

	// Env sets additional environment variables for this stage only.
	// Applied after the pipeline-level environment bindings; stage
	// values take precedence on conflict. Values support variable
	// substitution.
	Env map[string]string `json:"env,omitempty"`

	// Timeout is the maximum duration for this stage (e.g., "30m",
	// "1h"). Parsed by time.ParseDuration. The runner kills the
	// stage process group if it exceeds this duration. When empty,
	// the stage runs without a deadline.
	Timeout string `json:"timeout,omitempty"`

	// GracePeriod is the duration between SIGTERM and SIGKILL when
	// the stage is cancelled or times out. When set, the runner
	// sends SIGTERM to the process group first, waits up to this
	// duration, then escalates to SIGKILL. When empty, SIGKILL is
	// sent immediately.
	GracePeriod string `json:"grace_period,omitempty"`

	// Optional means stage failure doesn't stop the run. The
	// failure is recorded as "failed (optional)" and execution
	// continues with the next stage.
	Optional bool `json:"optional,omitempty"`
}
