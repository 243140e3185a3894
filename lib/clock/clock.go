// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the current time for testability. Production code
// injects Real(); tests inject Fake() with deterministic control.
//
// Every production function that reads the wall clock (run timestamps,
// stage durations, recorded-at columns) should accept a Clock parameter
// or be a method on a struct with a Clock field instead of calling
// time.Now directly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
