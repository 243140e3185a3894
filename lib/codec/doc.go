// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the standard CBOR encoding configuration.
//
// Two serialization formats are used with a clear boundary:
//
//   - JSON for external interfaces: pipeline definition files (JSONC),
//     CLI --json output, and the JSONL run event log.
//   - CBOR for internal storage: the run document persisted in the run
//     history database and exported by "runs export".
//
// This package provides the shared CBOR encoding and decoding modes so
// that every package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding
// (RFC 8949 §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes.
//
// Usage:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Run documents carry `json` struct tags only: fxamacker/cbor v2 reads
// `json` tags as fallback when `cbor` tags are absent, so one tag set
// controls field naming and omitempty for both formats.
package codec
