// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package runlog

import (
	"bytes"
	"io"
	"sort"
)

// maskReplacement is what a masked secret occurrence becomes.
var maskReplacement = []byte("***")

// maxBuffered bounds the line buffer. Output that never emits a
// newline (progress bars, binary garbage) is flushed once the buffer
// exceeds this, minus a held-back tail that could still grow into a
// secret occurrence.
const maxBuffered = 1 << 20

// Masker is an io.Writer that replaces every occurrence of the
// registered secrets with "***" before the bytes reach the underlying
// writer.
//
// Masking is line-buffered: bytes are held until a newline arrives, so
// a secret split across Write calls (processes write through stdio
// buffers at arbitrary boundaries) is reassembled and masked before
// anything is forwarded. Close flushes the final unterminated line.
//
// The secret slices are borrowed, not copied: the caller keeps the
// backing memory (normally mmap-backed secret buffers) alive until
// Close returns. Masker is not safe for concurrent use; a command
// whose stdout and stderr share one writer is fine, os/exec serializes
// those writes.
type Masker struct {
	destination io.Writer
	secrets     [][]byte
	longest     int
	buffer      []byte
}

// NewMasker wraps destination with masking for the given secrets.
// Empty secrets are ignored. Longer secrets are masked first, so when
// one secret is a substring of another the longer occurrence masks as
// a whole instead of leaving fragments around a "***".
func NewMasker(destination io.Writer, secrets [][]byte) *Masker {
	kept := make([][]byte, 0, len(secrets))
	longest := 0
	for _, secret := range secrets {
		if len(secret) == 0 {
			continue
		}
		kept = append(kept, secret)
		if len(secret) > longest {
			longest = len(secret)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return len(kept[i]) > len(kept[j]) })
	return &Masker{
		destination: destination,
		secrets:     kept,
		longest:     longest,
	}
}

// Write buffers data and forwards complete, masked lines to the
// destination. The returned count is len(data) whenever the bytes were
// consumed into the buffer, even if flushing the destination failed;
// the error still surfaces.
func (m *Masker) Write(data []byte) (int, error) {
	m.buffer = append(m.buffer, data...)

	flushEnd := bytes.LastIndexByte(m.buffer, '\n') + 1
	if flushEnd == 0 && len(m.buffer) > maxBuffered {
		// No newline in sight. Flush all but a tail that could still
		// be the beginning of a secret occurrence.
		flushEnd = len(m.buffer) - m.holdback()
	}
	if flushEnd <= 0 {
		return len(data), nil
	}

	// Write before compacting: when no secret occurs in the flushed
	// region the masked slice aliases the buffer, and writers must not
	// retain their argument anyway.
	_, err := m.destination.Write(m.mask(m.buffer[:flushEnd]))
	m.buffer = append(m.buffer[:0], m.buffer[flushEnd:]...)
	return len(data), err
}

// Close masks and flushes the final unterminated line. It does not
// close the destination.
func (m *Masker) Close() error {
	if len(m.buffer) == 0 {
		return nil
	}
	masked := m.mask(m.buffer)
	m.buffer = nil
	_, err := m.destination.Write(masked)
	return err
}

// mask returns data with every secret occurrence replaced. The input
// slice is not modified.
func (m *Masker) mask(data []byte) []byte {
	masked := data
	for _, secret := range m.secrets {
		masked = bytes.ReplaceAll(masked, secret, maskReplacement)
	}
	return masked
}

// holdback returns how many trailing buffer bytes must not be flushed
// yet: the longest buffer suffix that is a prefix of some secret. A
// secret occurrence straddling the flush boundary would otherwise leak
// its leading bytes unmasked.
func (m *Masker) holdback() int {
	limit := m.longest - 1
	if limit > len(m.buffer) {
		limit = len(m.buffer)
	}
	for length := limit; length > 0; length-- {
		tail := m.buffer[len(m.buffer)-length:]
		for _, secret := range m.secrets {
			if len(secret) > length && bytes.Equal(secret[:length], tail) {
				return length
			}
		}
	}
	return 0
}
