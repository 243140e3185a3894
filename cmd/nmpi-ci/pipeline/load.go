// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"os"

	"github.com/neuromorphic-platform/nmpi-ci/lib/pipeline"
)

// loadDefinition reads and parses a definition file, returning both
// the parsed form and the raw bytes. The raw bytes feed the
// fingerprint recorded with the run, so they must be exactly what was
// on disk, comments and all.
func loadDefinition(path string) (*pipeline.Definition, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading pipeline definition: %w", err)
	}
	definition, err := pipeline.Parse(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return definition, raw, nil
}
