// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package runstore

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 digest. Definition fingerprints and stage
// log digests are this size.
type Digest [32]byte

// domainKey is a 32-byte key for BLAKE3 keyed hashing. Domain
// separation ensures the same input bytes produce different digests in
// different contexts.
type domainKey [32]byte

// Domain separation keys. These are fixed constants; changing them
// invalidates every digest in that domain. The byte values are the
// ASCII encoding of the domain name, zero-padded to 32 bytes, so the
// keys are inspectable in hex dumps without sacrificing any
// cryptographic property (BLAKE3 keyed mode treats the key as an
// opaque 32-byte value).
var (
	definitionDomainKey = domainKey{
		'n', 'm', 'p', 'i', '-', 'c', 'i', '.',
		'd', 'e', 'f', 'i', 'n', 'i', 't', 'i', 'o', 'n',
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	stageLogDomainKey = domainKey{
		'n', 'm', 'p', 'i', '-', 'c', 'i', '.',
		's', 't', 'a', 'g', 'e', '-', 'l', 'o', 'g',
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// FingerprintDefinition computes the definition-domain digest of raw
// pipeline definition bytes. Hashed before JSONC stripping, so the
// fingerprint identifies the file as written, comments included.
func FingerprintDefinition(raw []byte) Digest {
	return keyedHash(definitionDomainKey, raw)
}

// HashStageLog computes the stage-log-domain digest of captured stage
// output. Always computed on uncompressed bytes so the digest stays
// valid if the stored compression ever changes.
func HashStageLog(output []byte) Digest {
	return keyedHash(stageLogDomainKey, output)
}

// FormatDigest returns the hex encoding of a digest. This is the
// canonical format in the database, run documents, and CLI output.
func FormatDigest(digest Digest) string {
	return hex.EncodeToString(digest[:])
}

// ParseDigest parses a 64-character hex string into a Digest.
func ParseDigest(hexString string) (Digest, error) {
	var digest Digest
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return digest, fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != 32 {
		return digest, fmt.Errorf("digest is %d bytes, want 32", len(decoded))
	}
	copy(digest[:], decoded)
	return digest, nil
}

// keyedHash computes a BLAKE3 keyed hash with the given domain key.
func keyedHash(key domainKey, data []byte) Digest {
	// NewKeyed only fails for a wrong key length, which domainKey
	// makes impossible.
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("runstore: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}
