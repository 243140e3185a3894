// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

// Package credential implements the "nmpi-ci credential" command group
// for managing the local encrypted credential store. The commands wrap
// the library functions in lib/credential/, providing CLI flag
// parsing, hidden-input prompting, and output formatting.
package credential
