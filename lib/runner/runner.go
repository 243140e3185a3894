// Copyright 2026 The NMPI CI Authors
// SPDX-License-Identifier: Apache-2.0

package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/neuromorphic-platform/nmpi-ci/container"
	"github.com/neuromorphic-platform/nmpi-ci/lib/clock"
	"github.com/neuromorphic-platform/nmpi-ci/lib/credential"
	"github.com/neuromorphic-platform/nmpi-ci/lib/pipeline"
	"github.com/neuromorphic-platform/nmpi-ci/lib/runlog"
	"github.com/neuromorphic-platform/nmpi-ci/lib/runstore"
	"github.com/neuromorphic-platform/nmpi-ci/lib/secret"
)

// Progress receives stage lifecycle notifications while a run is in
// flight. The CLI implements it to print live status lines. Methods
// are called from the run goroutine; a nil Progress is silent.
type Progress interface {
	// StageStart is called when a stage begins executing. Stages that
	// are skipped without executing get no StageStart.
	StageStart(index, total int, name string)

	// StageComplete is called with every stage's outcome, including
	// stages recorded as skipped.
	StageComplete(index, total int, result pipeline.StageResult)
}

// Request names one run of an expanded definition.
type Request struct {
	// Name is the pipeline name recorded in the result, normally
	// derived from the definition file path.
	Name string

	// Definition is the fully expanded definition: variables
	// substituted and validation passed. The runner neither expands
	// nor validates.
	Definition *pipeline.Definition

	// Fingerprint is the hex digest of the raw definition bytes,
	// carried into the recorded result. Optional.
	Fingerprint string
}

// Runner executes pipeline runs. Logger is required; every other
// field is optional for definitions that do not need it.
type Runner struct {
	// Profile is the resolved container profile for script stages.
	// A definition whose stages are all run commands never touches
	// it.
	Profile *container.Profile

	// Credentials resolves the definition's credential bindings. A
	// definition without credential bindings never touches it.
	Credentials *credential.Store

	// Output receives the live masked stage output. Nil discards.
	Output io.Writer

	// Events is the structured run event log. Nil disables.
	Events *runlog.EventLog

	// Progress receives stage notifications. Nil is silent.
	Progress Progress

	// Logger receives diagnostics. Required.
	Logger *slog.Logger

	// Clock stamps run and stage times. Nil uses the wall clock.
	Clock clock.Clock

	// Environ is the base process environment for stage processes.
	// Nil uses os.Environ().
	Environ []string
}

// stageOutcome is what executing one stage produced. The run loop
// applies the optional-stage policy and folds it into the result.
type stageOutcome struct {
	status   string
	exitCode int
	duration time.Duration
	err      error
	output   []byte
}

// Run executes the request and returns the complete result plus the
// captured (masked) output of every executed stage, in execution
// order. The result accounts for every declared stage; stages that
// never ran are recorded as skipped. Run itself never fails: every
// failure mode is encoded in the result's status and error message.
func (r *Runner) Run(ctx context.Context, request Request) (*pipeline.RunResult, []runstore.StageLog) {
	definition := request.Definition
	total := len(definition.Stages)
	startedAt := r.now()

	result := &pipeline.RunResult{
		Version:     pipeline.RunResultVersion,
		Pipeline:    request.Name,
		Fingerprint: request.Fingerprint,
		StartedAt:   startedAt.UTC().Format(time.RFC3339),
	}

	r.Events.RunStart(request.Name, total)
	r.Logger.Debug("run starting", "pipeline", request.Name, "stages", total)

	// Credential bindings resolve before stage one: a missing
	// credential fails the run with every stage skipped, rather than
	// failing mid-run after earlier stages did work.
	secrets, err := r.resolveCredentials(definition)
	if err != nil {
		r.failBeforeStages(result, startedAt, definition, err)
		return result, nil
	}
	defer closeSecrets(secrets)

	maskValues := make([][]byte, 0, len(secrets))
	for _, buffer := range secrets {
		maskValues = append(maskValues, buffer.Bytes())
	}

	var logs []runstore.StageLog
	var abortedStage string
	status := pipeline.RunSuccess

	for index := range definition.Stages {
		stage := &definition.Stages[index]

		if status != pipeline.RunSuccess {
			// An earlier stage decided the run; the rest never start.
			skipped := pipeline.StageResult{Name: stage.Name, Status: pipeline.StageSkipped}
			result.Stages = append(result.Stages, skipped)
			r.Events.StageComplete(index, stage.Name, pipeline.StageSkipped, 0, 0, "")
			r.notifyComplete(index, total, skipped)
			continue
		}

		r.Events.StageStart(index, stage.Name)
		r.notifyStart(index, total, stage.Name)

		environment := r.stageEnvironment(definition, stage, secrets)
		outcome := r.executeStage(ctx, definition, stage, environment, maskValues)

		stageStatus := outcome.status
		if stageStatus == pipeline.StageFailed && stage.Optional {
			stageStatus = pipeline.StageFailedOptional
		}
		errorText := ""
		if outcome.err != nil {
			errorText = outcome.err.Error()
		}

		stageResult := pipeline.StageResult{
			Name:       stage.Name,
			Status:     stageStatus,
			ExitCode:   outcome.exitCode,
			DurationMS: outcome.duration.Milliseconds(),
			Error:      errorText,
			LogBytes:   int64(len(outcome.output)),
		}
		result.Stages = append(result.Stages, stageResult)
		logs = append(logs, runstore.StageLog{Stage: stage.Name, Output: outcome.output})

		r.Events.StageComplete(index, stage.Name, stageStatus, outcome.exitCode, stageResult.DurationMS, errorText)
		r.notifyComplete(index, total, stageResult)
		r.Logger.Debug("stage complete",
			"stage", stage.Name,
			"status", stageStatus,
			"exit_code", outcome.exitCode,
			"duration_ms", stageResult.DurationMS)

		switch stageStatus {
		case pipeline.StageFailed:
			status = pipeline.RunFailure
			result.FailedStage = stage.Name
			result.ErrorMessage = fmt.Sprintf("stage %q failed: %s", stage.Name, errorText)
		case pipeline.StageAborted:
			status = pipeline.RunAborted
			abortedStage = stage.Name
		}
	}

	completedAt := r.now()
	result.Status = status
	result.CompletedAt = completedAt.UTC().Format(time.RFC3339)
	result.DurationMS = completedAt.Sub(startedAt).Milliseconds()

	switch status {
	case pipeline.RunSuccess:
		r.Events.RunComplete(result.DurationMS)
	case pipeline.RunFailure:
		r.Events.RunFailed(result.FailedStage, result.ErrorMessage, result.DurationMS)
	case pipeline.RunAborted:
		result.ErrorMessage = fmt.Sprintf("run aborted during stage %q", abortedStage)
		r.Events.RunAborted(abortedStage, result.DurationMS)
	}
	r.Logger.Debug("run finished",
		"pipeline", request.Name,
		"status", status,
		"duration_ms", result.DurationMS)
	return result, logs
}

// executeStage runs one stage to completion: builds the invocation,
// streams masked output, and classifies the exit.
func (r *Runner) executeStage(ctx context.Context, definition *pipeline.Definition, stage *pipeline.Stage, environment []string, maskValues [][]byte) stageOutcome {
	start := r.now()

	done := func(status string, exitCode int, err error, output []byte) stageOutcome {
		return stageOutcome{
			status:   status,
			exitCode: exitCode,
			duration: r.now().Sub(start),
			err:      err,
			output:   output,
		}
	}

	// Validate has already checked that these parse; fail loud if a
	// malformed definition slipped through.
	var timeout time.Duration
	if stage.Timeout != "" {
		parsed, err := time.ParseDuration(stage.Timeout)
		if err != nil {
			return done(pipeline.StageFailed, -1, fmt.Errorf("invalid timeout %q: %w", stage.Timeout, err), nil)
		}
		timeout = parsed
	}
	var gracePeriod time.Duration
	if stage.GracePeriod != "" {
		parsed, err := time.ParseDuration(stage.GracePeriod)
		if err != nil {
			return done(pipeline.StageFailed, -1, fmt.Errorf("invalid grace_period %q: %w", stage.GracePeriod, err), nil)
		}
		gracePeriod = parsed
	}

	var argv []string
	if stage.Script != "" {
		if r.Profile == nil {
			return done(pipeline.StageFailed, -1, fmt.Errorf("stage %q runs a script but no container profile is configured", stage.Name), nil)
		}
		app := stage.App
		if app == "" {
			app = definition.App
		}
		argv = r.Profile.ExecArgv(definition.Image, app, stage.Script)
	} else {
		argv = container.ShellArgv(stage.Run)
	}

	stageCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var capture bytes.Buffer
	sink := io.Writer(&capture)
	if r.Output != nil {
		sink = io.MultiWriter(r.Output, &capture)
	}
	masker := runlog.NewMasker(sink, maskValues)

	exitCode, runErr := container.Run(stageCtx, container.Command{
		Argv:        argv,
		Env:         environment,
		Output:      masker,
		GracePeriod: gracePeriod,
	})
	if err := masker.Close(); err != nil {
		r.Logger.Warn("flushing stage output", "stage", stage.Name, "error", err)
	}
	output := capture.Bytes()

	switch {
	case runErr == nil && exitCode == 0:
		// A stage that finished cleanly is ok even when cancellation
		// arrived during its final moments; the next stage aborts
		// instead.
		return done(pipeline.StageOK, 0, nil, output)
	case ctx.Err() != nil:
		return done(pipeline.StageAborted, exitCode, errors.New("cancelled"), output)
	case stageCtx.Err() == context.DeadlineExceeded:
		return done(pipeline.StageFailed, exitCode, fmt.Errorf("timed out after %s", stage.Timeout), output)
	case runErr != nil:
		return done(pipeline.StageFailed, exitCode, fmt.Errorf("stage process: %w", runErr), output)
	default:
		return done(pipeline.StageFailed, exitCode, fmt.Errorf("exit code %d", exitCode), output)
	}
}

// stageEnvironment assembles the complete child environment: the base
// process environment, the profile's contributions, the pipeline's
// environment bindings, and the stage's own env, in that order. The
// process keeps the last value for a duplicated name, so precedence
// rises left to right and map entries are appended in sorted name
// order for determinism.
func (r *Runner) stageEnvironment(definition *pipeline.Definition, stage *pipeline.Stage, secrets map[string]*secret.Buffer) []string {
	base := r.Environ
	if base == nil {
		base = os.Environ()
	}

	size := len(base) + len(definition.Environment) + len(stage.Env)
	if r.Profile != nil {
		size += len(r.Profile.Setenv)
	}
	environment := make([]string, 0, size)
	environment = append(environment, base...)

	if r.Profile != nil {
		for _, name := range sortedKeys(r.Profile.Setenv) {
			environment = append(environment, name+"="+r.Profile.Setenv[name])
		}
	}
	for _, name := range sortedKeys(definition.Environment) {
		binding := definition.Environment[name]
		if binding.Credential != "" {
			environment = append(environment, name+"="+secrets[binding.Credential].String())
			continue
		}
		environment = append(environment, name+"="+binding.Value)
	}
	for _, name := range sortedKeys(stage.Env) {
		environment = append(environment, name+"="+stage.Env[name])
	}
	return environment
}

// resolveCredentials collects the credential names bound in the
// definition's environment and resolves them in one store call. A
// definition without credential bindings resolves to nothing without
// touching the store.
func (r *Runner) resolveCredentials(definition *pipeline.Definition) (map[string]*secret.Buffer, error) {
	var names []string
	for _, bindingName := range sortedKeys(definition.Environment) {
		if name := definition.Environment[bindingName].Credential; name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, nil
	}
	if r.Credentials == nil {
		return nil, fmt.Errorf("definition binds credentials (%s) but no credential store is configured",
			strings.Join(names, ", "))
	}
	return r.Credentials.Resolve(names)
}

// failBeforeStages records a run that failed before any stage could
// start: every declared stage is skipped and the cause becomes the
// run's error message.
func (r *Runner) failBeforeStages(result *pipeline.RunResult, startedAt time.Time, definition *pipeline.Definition, cause error) {
	total := len(definition.Stages)
	for index := range definition.Stages {
		skipped := pipeline.StageResult{Name: definition.Stages[index].Name, Status: pipeline.StageSkipped}
		result.Stages = append(result.Stages, skipped)
		r.Events.StageComplete(index, skipped.Name, pipeline.StageSkipped, 0, 0, "")
		r.notifyComplete(index, total, skipped)
	}

	completedAt := r.now()
	result.Status = pipeline.RunFailure
	result.ErrorMessage = cause.Error()
	result.CompletedAt = completedAt.UTC().Format(time.RFC3339)
	result.DurationMS = completedAt.Sub(startedAt).Milliseconds()
	r.Events.RunFailed("", cause.Error(), result.DurationMS)
	r.Logger.Error("run failed before any stage started", "pipeline", result.Pipeline, "error", cause)
}

func (r *Runner) now() time.Time {
	if r.Clock != nil {
		return r.Clock.Now()
	}
	return time.Now()
}

func (r *Runner) notifyStart(index, total int, name string) {
	if r.Progress != nil {
		r.Progress.StageStart(index, total, name)
	}
}

func (r *Runner) notifyComplete(index, total int, result pipeline.StageResult) {
	if r.Progress != nil {
		r.Progress.StageComplete(index, total, result)
	}
}

func closeSecrets(secrets map[string]*secret.Buffer) {
	for _, buffer := range secrets {
		buffer.Close()
	}
}

// sortedKeys returns the map's keys in sorted order so environment
// assembly and credential collection are deterministic.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
