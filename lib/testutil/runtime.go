// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// FakeRuntime is a stand-in container runtime for tests. It is a shell
// script that records every invocation instead of launching a
// container, so tests can assert on the exact argument vector and
// environment a stage was started with.
//
// Each invocation appends its arguments (tab-separated) to argv.log in
// the record directory and writes its sorted environment to
// env-<base>.log, where <base> is the basename of the last argument
// (the stage script path). Tests steer behavior through control files:
// exit-<base> makes the matching invocation exit with the code it
// contains, stdout-<base> is copied to standard output, and a "hang"
// file makes every invocation sleep until killed, for cancellation
// tests.
type FakeRuntime struct {
	// Path is the executable to configure as the container runtime.
	Path string

	// Dir holds the invocation records and control files.
	Dir string
}

// NewFakeRuntime writes the fake runtime script into a temporary
// directory and returns it. The directory is removed when the test
// completes.
func NewFakeRuntime(t testing.TB) *FakeRuntime {
	t.Helper()

	directory := t.TempDir()
	script := fmt.Sprintf(`#!/bin/sh
record=%q
printf '%%s\t' "$@" >> "$record/argv.log"
printf '\n' >> "$record/argv.log"
for last in "$@"; do :; done
base=$(basename "$last")
env | sort > "$record/env-$base.log"
if [ -f "$record/hang" ]; then
	sleep 60
fi
if [ -f "$record/stdout-$base" ]; then
	cat "$record/stdout-$base"
else
	echo "fake runtime: $base"
fi
if [ -f "$record/exit-$base" ]; then
	exit "$(cat "$record/exit-$base")"
fi
exit 0
`, directory)

	path := filepath.Join(directory, "fake-runtime")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake runtime: %v", err)
	}
	return &FakeRuntime{Path: path, Dir: directory}
}

// Invocations returns the argument vectors recorded so far, one slice
// per invocation in order. It returns nil when the runtime was never
// invoked.
func (f *FakeRuntime) Invocations(t testing.TB) [][]string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(f.Dir, "argv.log"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read argv.log: %v", err)
	}

	var invocations [][]string
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		invocations = append(invocations, strings.Split(strings.TrimRight(line, "\t"), "\t"))
	}
	return invocations
}

// Environment returns the environment recorded for the invocation
// whose script basename is scriptBase, as a name to value map. It
// fails the test when that invocation never happened.
func (f *FakeRuntime) Environment(t testing.TB, scriptBase string) map[string]string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(f.Dir, "env-"+scriptBase+".log"))
	if err != nil {
		t.Fatalf("read environment for %s: %v", scriptBase, err)
	}

	environment := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		name, value, found := strings.Cut(line, "=")
		if found {
			environment[name] = value
		}
	}
	return environment
}

// SetExitCode makes the invocation whose script basename is scriptBase
// exit with the given code.
func (f *FakeRuntime) SetExitCode(t testing.TB, scriptBase string, code int) {
	t.Helper()

	path := filepath.Join(f.Dir, "exit-"+scriptBase)
	if err := os.WriteFile(path, []byte(strconv.Itoa(code)), 0o644); err != nil {
		t.Fatalf("write exit control file: %v", err)
	}
}

// SetStdout makes the invocation whose script basename is scriptBase
// print the given text on standard output instead of the default
// marker line.
func (f *FakeRuntime) SetStdout(t testing.TB, scriptBase string, text string) {
	t.Helper()

	path := filepath.Join(f.Dir, "stdout-"+scriptBase)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("write stdout control file: %v", err)
	}
}

// Hang makes every invocation sleep until killed. Use it to exercise
// cancellation and timeout paths.
func (f *FakeRuntime) Hang(t testing.TB) {
	t.Helper()

	path := filepath.Join(f.Dir, "hang")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write hang control file: %v", err)
	}
}
