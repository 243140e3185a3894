// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [NewFakeRuntime] builds a recording stand-in for the container
// runtime. Stage execution tests across the runner, the container
// package, and the command tree use it to assert on invocation
// argument vectors and stage environments without a real container
// engine installed.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
