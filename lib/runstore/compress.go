// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package runstore

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionTag identifies the compression algorithm used for a
// stored stage log. The tag is stored alongside each log row; these
// values are storage constants, and changing them breaks existing
// databases.
type CompressionTag uint8

const (
	// CompressionNone indicates uncompressed content. Used when the
	// output did not shrink under the configured algorithm (binary
	// noise, already-compressed data).
	CompressionNone CompressionTag = 0

	// CompressionLZ4 indicates LZ4 block compression. Faster than
	// zstd with a lower ratio; worth it for very large logs on weak
	// hardware.
	CompressionLZ4 CompressionTag = 1

	// CompressionZstd indicates zstd at the default level. The right
	// choice for build and test output, which is text.
	CompressionZstd CompressionTag = 2
)

// String returns the human-readable name of a compression tag.
func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

// ParseCompressionTag parses a compression tag from its string
// representation.
func ParseCompressionTag(name string) (CompressionTag, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression tag: %q", name)
	}
}

// zstdEncoder and zstdDecoder are reused across calls; both are safe
// for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("runstore: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("runstore: zstd decoder initialization failed: " + err.Error())
	}
}

// errIncompressible is returned when compressed output would not be
// smaller than the input; the caller stores the content raw.
var errIncompressible = fmt.Errorf("content is incompressible")

// Compress compresses content with the given algorithm. Returns the
// stored bytes and the tag actually used: when the content does not
// shrink, the content is returned unchanged under CompressionNone.
func Compress(content []byte, tag CompressionTag) ([]byte, CompressionTag, error) {
	var compressed []byte
	var err error

	switch tag {
	case CompressionNone:
		return content, CompressionNone, nil
	case CompressionLZ4:
		compressed, err = compressLZ4(content)
	case CompressionZstd:
		compressed, err = compressZstd(content)
	default:
		return nil, 0, fmt.Errorf("unsupported compression tag: %d", tag)
	}

	if err == errIncompressible {
		return content, CompressionNone, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return compressed, tag, nil
}

// Decompress reverses Compress. The uncompressedSize must match the
// original content length exactly; a mismatch is an error, not a
// truncated result.
func Decompress(stored []byte, tag CompressionTag, uncompressedSize int) ([]byte, error) {
	switch tag {
	case CompressionNone:
		if len(stored) != uncompressedSize {
			return nil, fmt.Errorf("uncompressed content: size %d does not match expected %d",
				len(stored), uncompressedSize)
		}
		return stored, nil
	case CompressionLZ4:
		return decompressLZ4(stored, uncompressedSize)
	case CompressionZstd:
		return decompressZstd(stored, uncompressedSize)
	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", tag)
	}
}

func compressLZ4(content []byte) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(content))
	destination := make([]byte, bound)

	written, err := lz4.CompressBlock(content, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 when it judges the content
	// incompressible; a result at least as large as the input is not
	// worth storing either.
	if written == 0 || written >= len(content) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(stored []byte, uncompressedSize int) ([]byte, error) {
	destination := make([]byte, uncompressedSize)
	read, err := lz4.UncompressBlock(stored, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != uncompressedSize {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, uncompressedSize)
	}
	return destination, nil
}

func compressZstd(content []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(content, nil)
	if len(compressed) >= len(content) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressZstd(stored []byte, uncompressedSize int) ([]byte, error) {
	destination := make([]byte, 0, uncompressedSize)
	result, err := zstdDecoder.DecodeAll(stored, destination)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(result) != uncompressedSize {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), uncompressedSize)
	}
	return result, nil
}
