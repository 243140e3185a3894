// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed provides age encryption and decryption for credential
// bundles. It wraps filippo.io/age for the specific operations the
// credential store needs: generate x25519 keypairs, encrypt to one or
// more recipients, and decrypt with a private key.
//
// Ciphertext is base64-encoded for storage inside the JSON store file.
// Callers pass plaintext []byte to [Encrypt] and receive a base64
// string; [Decrypt] accepts a base64 string and returns plaintext.
// Private keys and decrypted plaintext are returned as [secret.Buffer]
// values backed by mmap memory outside the Go heap (locked against
// swap, excluded from core dumps, zeroed on Close).
//
// Key exports:
//
//   - [GenerateKeypair] -- new age x25519 keypair in a secret.Buffer
//   - [Encrypt] -- encrypt to age public key recipients
//   - [Decrypt] -- decrypt with a secret.Buffer key
//   - [ParsePublicKey] / [ParsePrivateKey] -- key validation
//
// Used by lib/credential to seal the token bundle at rest and open it
// at run time.
//
// Depends on lib/secret for secure memory allocation.
package sealed
