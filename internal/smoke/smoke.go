// Package smoke drives the fixed smoke-test protocol against one
// installed version: scaffold a starter project, install its example
// integration requirements, run its pipeline, and capture the run
// history listing. The history listing is the observable state other
// components compare against.
package smoke

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/seqra/migtest/internal/backend"
	"github.com/seqra/migtest/internal/commonerr"
	"github.com/seqra/migtest/internal/config"
	"github.com/seqra/migtest/internal/envpro"
	"github.com/seqra/migtest/internal/gate"
	"github.com/seqra/migtest/internal/shell"
)

// RunRecord is the verbatim run-history listing at a point in time. It
// is only ever compared for exact equality, never parsed.
type RunRecord string

// Protocol step names, used to tag failures.
const (
	StepConnect      = "connect"
	StepScaffold     = "scaffold"
	StepRequirements = "requirements"
	StepPipeline     = "pipeline"
	StepVersion      = "version"
	StepHistory      = "history"
)

// ExampleIntegration is the scaffold's example integration whose
// requirements get installed in step two.
const ExampleIntegration = "sklearn"

// Runner executes the smoke protocol.
type Runner struct {
	sh  shell.Runner
	g   *gate.Gate
	log *zap.Logger
	app config.App
}

// New returns a runner for the configured application.
func New(sh shell.Runner, g *gate.Gate, log *zap.Logger, app config.App) *Runner {
	return &Runner{sh: sh, g: g, log: log, app: app}
}

// Run executes the protocol steps in order and returns the final
// history listing. The first failing step aborts the protocol with a
// SmokeTestError tagged with that step; there is no partial
// continuation.
func (r *Runner) Run(ctx context.Context, env *envpro.Env, b backend.Backend) (RunRecord, error) {
	v := env.Version
	r.log.Info("smoke test", zap.String("version", v.String()), zap.String("backend", b.String()))

	if !b.Embedded() {
		// Client/server backends need the app pointed at the container
		// before anything touches the store.
		if _, err := r.appRun(ctx, env, "connect", "--url", b.URL()); err != nil {
			return "", &commonerr.SmokeTestError{Step: StepConnect, Err: err}
		}
	}
	if err := r.scaffold(ctx, env); err != nil {
		return "", &commonerr.SmokeTestError{Step: StepScaffold, Err: err}
	}
	if err := r.requirements(ctx, env); err != nil {
		return "", &commonerr.SmokeTestError{Step: StepRequirements, Err: err}
	}
	if err := r.pipeline(ctx, env); err != nil {
		return "", &commonerr.SmokeTestError{Step: StepPipeline, Err: err}
	}
	if _, err := r.appRun(ctx, env, "version"); err != nil {
		return "", &commonerr.SmokeTestError{Step: StepVersion, Err: err}
	}
	record, err := r.History(ctx, env)
	if err != nil {
		return "", &commonerr.SmokeTestError{Step: StepHistory, Err: err}
	}
	return record, nil
}

// History captures the current run listing. Exposed separately so the
// backup/restore verifier can re-query state after a restore.
func (r *Runner) History(ctx context.Context, env *envpro.Env) (RunRecord, error) {
	out, err := r.appRun(ctx, env, "pipeline", "runs", "list")
	if err != nil {
		return "", err
	}
	return RunRecord(out), nil
}

// scaffold obtains a clean starter project: the app's own templated
// initializer when the version carries it, else a clone of the fixed
// external template.
func (r *Runner) scaffold(ctx context.Context, env *envpro.Env) error {
	if r.g.Supports(gate.CapTemplatedInit, env.Version) {
		_, err := r.appRun(ctx, env, "init", "--template", "starter", "--template-with-defaults")
		return err
	}
	_, err := r.sh.Run(ctx, shell.Command{
		Name: "git",
		Args: []string{"clone", "--depth=1", r.app.TemplateURL, "."},
		Dir:  env.WorkDir,
		Env:  env.Environ,
	})
	return err
}

// requirements exports and installs the scaffold's example integration
// dependencies into the env.
func (r *Runner) requirements(ctx context.Context, env *envpro.Env) error {
	if _, err := r.appRun(ctx, env,
		"integration", "export-requirements", ExampleIntegration,
		"--output-file", "integration-requirements.txt"); err != nil {
		return err
	}
	_, err := r.sh.Run(ctx, shell.Command{
		Name: env.Tool("pip"),
		Args: []string{"install", "-r", "integration-requirements.txt"},
		Dir:  env.WorkDir,
		Env:  env.Environ,
	})
	return err
}

// pipeline executes the scaffold's entry point. Caching is always off;
// the sub-pipeline selectors only exist on new enough releases.
func (r *Runner) pipeline(ctx context.Context, env *envpro.Env) error {
	args := []string{"run.py"}
	if r.g.Supports(gate.CapPipelineSelectors, env.Version) {
		args = append(args, "--feature-pipeline", "--training-pipeline")
	}
	args = append(args, "--no-cache")
	_, err := r.sh.Run(ctx, shell.Command{
		Name: env.Tool("python"),
		Args: args,
		Dir:  env.WorkDir,
		Env:  env.Environ,
	})
	return err
}

func (r *Runner) appRun(ctx context.Context, env *envpro.Env, args ...string) (string, error) {
	out, err := r.sh.Run(ctx, shell.Command{
		Name: env.Tool(r.app.Command),
		Args: args,
		Dir:  env.WorkDir,
		Env:  env.Environ,
	})
	return strings.TrimRight(out, "\n"), err
}
