// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

// Package runner executes expanded pipeline definitions.
//
// The runner owns the run lifecycle: it resolves credential bindings
// before the first stage, assembles each stage's environment, launches
// stages strictly in declaration order, and classifies every outcome
// into a RunResult that accounts for all declared stages. Stage output
// is streamed through the masking writer so credential values never
// reach a sink in plaintext.
//
// The runner does not parse, expand, or validate definitions, and it
// does not persist results: callers hand it a validated, expanded
// definition and record the returned result and stage logs themselves.
package runner
