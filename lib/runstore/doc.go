// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

// Package runstore persists pipeline run history in SQLite.
//
// Each run is one row: summary columns for listing plus the full
// RunResult as a deterministic CBOR document. Stage output is stored
// per stage in a second table, compressed (zstd by default) and
// digested with a keyed BLAKE3 hash that is verified on every read.
//
// The definition fingerprint recorded with a run is a keyed BLAKE3
// hash of the raw definition bytes, so a stored result can be matched
// to the exact definition file revision that produced it.
package runstore
