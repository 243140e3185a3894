// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"syscall"
	"time"
)

// Command describes one external process: a stage's container
// invocation or a plain shell command.
type Command struct {
	// Argv is the full argument vector. Argv[0] is resolved via
	// PATH unless absolute.
	Argv []string

	// Env is the complete environment for the process. When nil the
	// process inherits the parent environment.
	Env []string

	// Output receives the process's combined stdout and stderr.
	// Both streams share one writer so ordering is preserved and
	// the masker sees every byte. When nil, output is discarded.
	Output io.Writer

	// GracePeriod is the SIGTERM-to-SIGKILL window on cancellation.
	// Zero means SIGKILL immediately.
	GracePeriod time.Duration
}

// Run executes the command and blocks until the process exits.
// Returns the exit code and any error: (code, nil) once the process
// ran, where code is -1 if it died to a signal, and (-1, err) when it
// could not be started at all. Callers distinguish cancellation from
// failure by checking their context, not the return values.
//
// The process runs in its own process group so that cancellation
// reaches the command and all its children (negative PID = all
// processes in the group). Without Setpgid, only the direct child
// receives the signal; grandchildren survive and hold open the
// inherited output descriptors.
//
// When GracePeriod is zero, SIGKILL is sent immediately on context
// cancellation. When positive, SIGTERM is sent first to give the
// process a chance to clean up (flush buffers, release platform
// resources); if the group has not exited after the grace period,
// SIGKILL forces termination.
func Run(ctx context.Context, command Command) (int, error) {
	cmd := exec.CommandContext(ctx, command.Argv[0], command.Argv[1:]...)
	cmd.Env = command.Env

	output := command.Output
	if output == nil {
		output = io.Discard
	}
	// Same writer for both streams: os/exec serializes writes when
	// Stdout == Stderr.
	cmd.Stdout = output
	cmd.Stderr = output

	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if command.GracePeriod > 0 {
		cmd.Cancel = func() error {
			processGroupID := -cmd.Process.Pid
			if err := syscall.Kill(processGroupID, syscall.SIGTERM); err != nil {
				// SIGTERM failed (process group already gone), escalate.
				return syscall.Kill(processGroupID, syscall.SIGKILL)
			}
			go func() {
				time.Sleep(command.GracePeriod)
				// Best-effort: the process group may have already
				// exited. ESRCH from a dead group is harmless.
				_ = syscall.Kill(processGroupID, syscall.SIGKILL)
			}()
			return nil
		}
	} else {
		cmd.Cancel = func() error {
			return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
	}

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitError *exec.ExitError
	if errors.As(err, &exitError) {
		return exitError.ExitCode(), nil
	}

	// Non-exit errors: start failure, context cancellation before
	// the process spawned.
	return -1, err
}

// ShellArgv wraps a shell command string for Run. The shell is
// resolved via PATH, not hardcoded to /bin/sh.
func ShellArgv(commandString string) []string {
	return []string{"sh", "-c", commandString}
}
