// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

// Package runs implements the "nmpi-ci runs" command group for
// inspecting the local run history database: listing recorded runs,
// showing a run's result document, and retrieving stage logs.
package runs
