// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package container

// defaultExecCommand and defaultAppFlag fill unset profile fields so
// that a minimal profile ("runtime: singularity") still produces the
// full invocation shape.
const (
	defaultExecCommand = "exec"
	defaultAppFlag     = "--app"
)

func (p *Profile) execCommand() string {
	if p.ExecCommand == "" {
		return defaultExecCommand
	}
	return p.ExecCommand
}

func (p *Profile) appFlag() string {
	if p.AppFlag == "" {
		return defaultAppFlag
	}
	return p.AppFlag
}

// ExecArgv builds the argument vector that runs script inside image
// under the given application context:
//
//	<runtime> <exec_command> [args...] <app_flag> <app> <image> <script>
//
// When app is empty the application flag pair is omitted. The script
// path is passed through unchanged; relative paths resolve inside
// the container's working directory.
func (p *Profile) ExecArgv(image, app, script string) []string {
	argv := make([]string, 0, 6+len(p.Args))
	argv = append(argv, p.Runtime, p.execCommand())
	argv = append(argv, p.Args...)
	if app != "" {
		argv = append(argv, p.appFlag(), app)
	}
	argv = append(argv, image, script)
	return argv
}
