// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

// Package container turns pipeline stages into external processes.
//
// A [Profile] describes a container runtime (Singularity, Apptainer,
// or anything with the same invocation shape): the binary, the exec
// subcommand, the application flag, and extra arguments. Profiles are
// loaded from YAML with single inheritance, so a site can define a
// local profile that adjusts one field of a built-in. The built-in
// profiles cover the platform's Singularity images; "any" is the
// default used when a definition does not pick an agent.
//
// [Profile.ExecArgv] builds the argument vector for a script stage:
//
//	<runtime> exec --app <app> <image> <script>
//
// [Run] executes an argument vector with combined output streaming to
// a writer. The process runs in its own process group; on context
// cancellation the group receives SIGTERM and, after the grace
// period, SIGKILL, so children of the stage script cannot outlive it.
package container
