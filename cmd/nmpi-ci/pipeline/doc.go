// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline implements the "nmpi-ci pipeline" command group:
// validating pipeline definition files, showing them with comments and
// highlighting intact, and running them locally in container
// sandboxes.
package pipeline
