// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

// Package runlog handles pipeline run output: masking credential
// values out of stage output before it reaches any sink, and the
// optional JSONL event log that records run lifecycle for external
// consumers.
//
// The Masker sits between the stage process and every output
// destination (terminal, log archive), so a credential value printed
// by a build script never appears in plaintext anywhere. The EventLog
// is one JSON object per line, synced per write, so a crash
// mid-pipeline preserves every completed stage record and a reader can
// tail the file for progress.
package runlog
