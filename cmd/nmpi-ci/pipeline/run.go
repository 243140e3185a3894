// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/neuromorphic-platform/nmpi-ci/cmd/nmpi-ci/cli"
	"github.com/neuromorphic-platform/nmpi-ci/container"
	"github.com/neuromorphic-platform/nmpi-ci/lib/credential"
	"github.com/neuromorphic-platform/nmpi-ci/lib/pipeline"
	"github.com/neuromorphic-platform/nmpi-ci/lib/runlog"
	"github.com/neuromorphic-platform/nmpi-ci/lib/runner"
	"github.com/neuromorphic-platform/nmpi-ci/lib/runstore"
)

// runParams holds the parameters for the pipeline run command.
type runParams struct {
	cli.JSONOutput
	Param       []string `flag:"param,p"     desc:"NAME=VALUE pipeline parameter (repeatable)"`
	Profile     string   `flag:"profile"     desc:"container profile name (overrides the definition's agent)"`
	Profiles    string   `flag:"profiles"    desc:"extra container profile YAML file"`
	Credentials string   `flag:"credentials" desc:"encrypted credential bundle path"`
	Identity    string   `flag:"identity"    desc:"age identity file path"`
	Store       string   `flag:"store"       desc:"run history database path"`
	NoRecord    bool     `flag:"no-record"   desc:"do not record this run in the history database"`
	EventLog    string   `flag:"event-log"   desc:"append structured run events to this JSONL file"`
}

// runCommand returns the "run" subcommand for executing a pipeline
// definition locally.
func runCommand() *cli.Command {
	var params runParams

	return &cli.Command{
		Name:    "run",
		Summary: "Run a pipeline definition",
		Description: `Run a pipeline definition locally.

The definition is validated, its variables resolved (from --param
values, then declaration defaults, then the process environment),
and its stages executed in order. Script stages launch inside the
definition's container image via the resolved container profile;
run stages execute as shell commands on the host.

Environment bindings that reference credentials are resolved from
the encrypted credential store immediately before the first stage,
and the resolved values are masked in all captured and live output.

The run is recorded in the local history database (see "nmpi-ci
runs"). On failure the process exits with the failing stage's exit
code; an interrupted run exits 130.`,
		Usage: "nmpi-ci pipeline run [flags] <file>",
		Examples: []cli.Example{
			{
				Description: "Run the BrainScaleS test pipeline",
				Command:     "nmpi-ci pipeline run ci/pipeline.jsonc",
			},
			{
				Description: "Target the ESS queue without editing the definition",
				Command:     "nmpi-ci pipeline run ci/pipeline.jsonc --param NMPI_TEST_QUEUE=BrainScaleS-ESS",
			},
			{
				Description: "Dry bookkeeping: run but keep the history database untouched",
				Command:     "nmpi-ci pipeline run ci/pipeline.jsonc --no-record",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("run", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: nmpi-ci pipeline run [flags] <file>")
			}
			path := args[0]

			definition, raw, err := loadDefinition(path)
			if err != nil {
				return err
			}

			if issues := pipeline.Validate(definition); len(issues) > 0 {
				for _, issue := range issues {
					fmt.Fprintf(os.Stderr, "  - %s\n", issue)
				}
				return fmt.Errorf("%s: %d validation issue(s) found", path, len(issues))
			}

			runValues, err := parseParamFlags(params.Param)
			if err != nil {
				return err
			}
			variables, err := pipeline.ResolveVariables(definition.Variables, runValues, os.Getenv)
			if err != nil {
				return err
			}
			expanded, err := pipeline.ExpandDefinition(definition, variables)
			if err != nil {
				return err
			}

			profile, err := resolveProfile(params, expanded, logger)
			if err != nil {
				return err
			}
			store, err := credentialStore(params, expanded)
			if err != nil {
				return err
			}

			var events *runlog.EventLog
			if params.EventLog != "" {
				events, err = runlog.NewEventLog(params.EventLog, logger)
				if err != nil {
					return err
				}
				defer events.Close()
			}

			// In JSON mode stdout carries only the result document;
			// live stage output moves to stderr so it stays visible.
			stageOutput := io.Writer(os.Stdout)
			if params.OutputJSON {
				stageOutput = os.Stderr
			}

			pipelineRunner := &runner.Runner{
				Profile:     profile,
				Credentials: store,
				Output:      stageOutput,
				Events:      events,
				Progress:    &progressPrinter{out: os.Stderr},
				Logger:      logger,
			}

			result, logs := pipelineRunner.Run(ctx, runner.Request{
				Name:        pipeline.NameFromPath(path),
				Definition:  expanded,
				Fingerprint: runstore.FormatDigest(runstore.FingerprintDefinition(raw)),
			})

			var runID int64
			if !params.NoRecord {
				runID = recordRun(ctx, params, result, logs, logger)
			}

			if done, err := params.EmitJSON(result); done {
				if err != nil {
					return err
				}
				return exitStatus(result)
			}

			printSummary(os.Stderr, result, runID)
			return exitStatus(result)
		},
	}
}

// parseParamFlags converts repeated --param NAME=VALUE flags into the
// run parameter map.
func parseParamFlags(flags []string) (map[string]string, error) {
	values := make(map[string]string, len(flags))
	for _, flag := range flags {
		name, value, found := strings.Cut(flag, "=")
		if !found {
			return nil, fmt.Errorf("invalid --param %q: expected NAME=VALUE", flag)
		}
		if name == "" {
			return nil, fmt.Errorf("invalid --param %q: empty name", flag)
		}
		values[name] = value
	}
	return values, nil
}

// resolveProfile loads the container profile for script stages. A
// definition whose stages are all run commands needs no container
// runtime, so no profile is resolved and missing runtime
// configuration is not an error.
func resolveProfile(params runParams, definition *pipeline.Definition, logger *slog.Logger) (*container.Profile, error) {
	if !definitionUsesScripts(definition) {
		return nil, nil
	}

	loader, err := container.LoadFromSearchPaths(logger)
	if err != nil {
		return nil, err
	}
	if extra := cli.ProfilesPath(params.Profiles); extra != "" {
		if err := loader.LoadFile(extra); err != nil {
			return nil, err
		}
	}

	name := params.Profile
	if name == "" {
		name = definition.Agent
	}
	if name == "" {
		name = "any"
	}

	profile, err := loader.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %s)", err, strings.Join(loader.List(), ", "))
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}

func definitionUsesScripts(definition *pipeline.Definition) bool {
	for _, stage := range definition.Stages {
		if stage.Script != "" {
			return true
		}
	}
	return false
}

// credentialStore opens the credential store when the definition
// binds credentials. Definitions without credential bindings run
// without a store, so missing store configuration is not an error
// for them.
func credentialStore(params runParams, definition *pipeline.Definition) (*credential.Store, error) {
	if !definitionBindsCredentials(definition) {
		return nil, nil
	}
	bundle, err := cli.CredentialsPath(params.Credentials)
	if err != nil {
		return nil, err
	}
	identity, err := cli.IdentityPath(params.Identity)
	if err != nil {
		return nil, err
	}
	return &credential.Store{BundlePath: bundle, IdentityPath: identity}, nil
}

func definitionBindsCredentials(definition *pipeline.Definition) bool {
	for _, binding := range definition.Environment {
		if binding.Credential != "" {
			return true
		}
	}
	return false
}

// recordRun stores the completed run in the history database. Failure
// to record never fails the run: the pipeline outcome is what the
// exit code reports, and a warning is logged instead.
func recordRun(ctx context.Context, params runParams, result *pipeline.RunResult, logs []runstore.StageLog, logger *slog.Logger) int64 {
	storePath, err := cli.StorePath(params.Store)
	if err != nil {
		logger.Warn("run not recorded", "error", err)
		return 0
	}
	if err := os.MkdirAll(filepath.Dir(storePath), 0o700); err != nil {
		logger.Warn("run not recorded", "error", err)
		return 0
	}

	store, err := runstore.Open(runstore.Config{Path: storePath, Logger: logger})
	if err != nil {
		logger.Warn("run not recorded", "error", err)
		return 0
	}
	defer store.Close()

	// An interrupted run is still recorded: the context is already
	// cancelled when the runner returns an aborted result.
	id, err := store.RecordRun(context.WithoutCancel(ctx), result, logs)
	if err != nil {
		logger.Warn("run not recorded", "error", err)
		return 0
	}
	return id
}

// progressPrinter writes stage progress lines. It implements
// [runner.Progress].
type progressPrinter struct {
	out io.Writer
}

func (p *progressPrinter) StageStart(index, total int, name string) {
	fmt.Fprintf(p.out, "  [%d/%d] %s\n", index+1, total, name)
}

func (p *progressPrinter) StageComplete(index, total int, result pipeline.StageResult) {
	line := fmt.Sprintf("  [%d/%d] %s: %s", index+1, total, result.Name, cli.StatusText(result.Status))
	if result.Status != pipeline.StageSkipped {
		line += fmt.Sprintf(" (%s)", formatDuration(result.DurationMS))
	}
	fmt.Fprintln(p.out, line)
}

// formatDuration renders a millisecond count the way a human scans a
// build log: sub-minute durations keep centisecond detail, longer
// ones round to whole seconds.
func formatDuration(ms int64) string {
	duration := time.Duration(ms) * time.Millisecond
	if duration >= time.Minute {
		return duration.Round(time.Second).String()
	}
	return duration.Round(10 * time.Millisecond).String()
}

// printSummary writes the final outcome line (and the recorded run ID
// when the run was stored) after the stage output.
func printSummary(w io.Writer, result *pipeline.RunResult, runID int64) {
	status := cli.StatusText(result.Status)
	switch {
	case result.Status == pipeline.RunSuccess:
		fmt.Fprintf(w, "\npipeline %s: %s in %s\n", result.Pipeline, status, formatDuration(result.DurationMS))
	case result.FailedStage != "":
		fmt.Fprintf(w, "\npipeline %s: %s at stage %q: %s\n", result.Pipeline, status, result.FailedStage, result.ErrorMessage)
	default:
		fmt.Fprintf(w, "\npipeline %s: %s: %s\n", result.Pipeline, status, result.ErrorMessage)
	}
	if runID > 0 {
		fmt.Fprintf(w, "recorded as run %d\n", runID)
	}
}

// exitStatus converts the run outcome into the command's return
// value: nil on success, otherwise an exit error carrying the code
// the process should exit with (the failing stage's exit code, or
// 130 for an aborted run).
func exitStatus(result *pipeline.RunResult) error {
	if result.Status == pipeline.RunSuccess {
		return nil
	}
	return &cli.ExitError{Code: result.ExitCode()}
}
