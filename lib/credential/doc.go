// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

// Package credential implements the on-disk credential store that
// pipeline environment bindings with a "credential" source resolve
// from.
//
// The store is two files. The bundle file is a small JSON envelope
// (version, age public key, ciphertext, update timestamp) whose
// ciphertext is an age-encrypted JSON object mapping credential names
// to values. The identity file holds the age private key, mode 0600.
// Everything readable without the identity file is metadata; values
// only exist in plaintext inside the process that decrypted them.
//
// Secret hygiene follows lib/secret: decrypted bundles and resolved
// values live in mmap-backed buffers that are zeroed on close. Values
// transit the Go heap briefly during JSON encode/decode (encoding/json
// traffics in strings); the durable in-process copies are the buffers.
//
// A pipeline with no credential bindings never touches the store:
// Resolve of an empty name list succeeds without reading either file.
package credential
