// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline provides parsing, validation, and variable expansion
// for pipeline definitions. A pipeline is an ordered sequence of stages
// that run shell scripts inside a container image (or plain shell
// commands) against the neuromorphic platform, with environment
// bindings that supply credentials and queue configuration to the
// invoked scripts.
//
// Definitions are authored on disk as JSONC files (JSON extended with
// comments and trailing commas).
//
// The typical flow:
//
//  1. ReadFile or Parse: JSONC bytes → Definition
//  2. Validate: structural checks (script XOR run, binding XOR, durations)
//  3. ResolveVariables: merge declarations + params + environment → variable map
//  4. Expand / ExpandStage: substitute ${NAME} references before execution
//
// The package also defines the result vocabulary shared by the runner
// and the run store: RunResult, StageResult, and their status values.
package pipeline
