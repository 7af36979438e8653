// Package envpro provisions the isolated runtime one version is tested
// in: a fresh virtualenv with the application release (or the working
// copy) and its fixed auxiliary dependencies, plus a clean working
// directory. The application's own state directory is deliberately NOT
// reset here: upgrade testing needs the store to survive from one
// version to the next.
package envpro

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/seqra/migtest/internal/commonerr"
	"github.com/seqra/migtest/internal/config"
	"github.com/seqra/migtest/internal/semver"
	"github.com/seqra/migtest/internal/shell"
)

// Env is one provisioned runtime. Exclusively owned by the orchestrator
// for the duration of a single version's test.
type Env struct {
	Version semver.Version
	// Dir is the virtualenv root, Bin its executable directory.
	Dir string
	Bin string
	// WorkDir is the scratch directory the smoke protocol runs in.
	WorkDir string
	// AppStateDir is the app's persistent state root, shared across
	// versions within one run.
	AppStateDir string
	// Environ is appended to every subprocess of the app under test:
	// PATH pointing into the venv plus the telemetry/debug/state toggles.
	Environ []string
}

// Tool returns the path of an executable inside the env.
func (e *Env) Tool(name string) string {
	return filepath.Join(e.Bin, name)
}

// Provisioner builds and destroys Envs.
type Provisioner struct {
	sh  shell.Runner
	log *zap.Logger
	cfg config.Config
}

// New returns a provisioner for the given run configuration.
func New(sh shell.Runner, log *zap.Logger, cfg config.Config) *Provisioner {
	return &Provisioner{sh: sh, log: log, cfg: cfg}
}

// Provision creates a fresh virtualenv for v, installs the release (the
// working copy for the current sentinel) and the auxiliary dependencies,
// and resets the working directory. Any failure is a ProvisionError.
func (p *Provisioner) Provision(ctx context.Context, v semver.Version) (*Env, error) {
	envDir := filepath.Join(p.cfg.StateDir, "envs", v.String())
	workDir := filepath.Join(p.cfg.StateDir, "work")
	appStateDir := filepath.Join(p.cfg.StateDir, "appstate")

	for _, dir := range []string{envDir, workDir} {
		if err := os.RemoveAll(dir); err != nil {
			return nil, &commonerr.ProvisionError{Target: "environment", Err: fmt.Errorf("reset %s: %w", dir, err)}
		}
	}
	for _, dir := range []string{workDir, appStateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &commonerr.ProvisionError{Target: "environment", Err: fmt.Errorf("mkdir %s: %w", dir, err)}
		}
	}

	if _, err := p.sh.Run(ctx, shell.Command{
		Name: p.cfg.Python,
		Args: []string{"-m", "venv", envDir},
	}); err != nil {
		return nil, &commonerr.ProvisionError{Target: "environment", Err: err}
	}

	env := &Env{
		Version:     v,
		Dir:         envDir,
		Bin:         filepath.Join(envDir, "bin"),
		WorkDir:     workDir,
		AppStateDir: appStateDir,
	}
	env.Environ = p.environ(env)

	installs := [][]string{p.installTarget(v)}
	for _, dep := range p.cfg.App.AuxDeps {
		installs = append(installs, []string{"install", dep})
	}
	for _, args := range installs {
		if _, err := p.sh.Run(ctx, shell.Command{Name: env.Tool("pip"), Args: args}); err != nil {
			return nil, &commonerr.ProvisionError{Target: "environment", Err: err}
		}
	}

	p.log.Info("environment provisioned",
		zap.String("version", v.String()),
		zap.String("env", envDir))
	return env, nil
}

// Teardown removes the env and working directory. Best effort: teardown
// runs on failure paths and must never raise.
func (p *Provisioner) Teardown(env *Env) {
	if env == nil {
		return
	}
	for _, dir := range []string{env.Dir, env.WorkDir} {
		if err := os.RemoveAll(dir); err != nil {
			p.log.Warn("teardown", zap.String("dir", dir), zap.Error(err))
		}
	}
}

func (p *Provisioner) installTarget(v semver.Version) []string {
	if v.IsCurrent() {
		return []string{"install", "-e", p.cfg.App.WorkingCopy}
	}
	return []string{"install", fmt.Sprintf("%s==%s", p.cfg.App.Package, v)}
}

func (p *Provisioner) environ(env *Env) []string {
	app := p.cfg.App
	out := []string{"PATH=" + env.Bin + string(os.PathListSeparator) + os.Getenv("PATH")}
	if app.ConfigVar != "" {
		out = append(out, app.ConfigVar+"="+env.AppStateDir)
	}
	if p.cfg.DisableTelemetry && app.TelemetryVar != "" {
		out = append(out, app.TelemetryVar+"=false")
	}
	if p.cfg.DebugLogs && app.DebugVar != "" {
		out = append(out, app.DebugVar+"=true")
	}
	return out
}
