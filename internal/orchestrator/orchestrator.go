// Package orchestrator sequences the whole migration test run: for each
// backend it walks the filtered version list in order, provisioning,
// smoke-testing and (where supported) backup-verifying each version, and
// halts everything on the first failure. Execution is strictly
// sequential; every stage mutates shared external resources that cannot
// be shared across concurrent instances.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seqra/migtest/internal/backend"
	"github.com/seqra/migtest/internal/commonerr"
	"github.com/seqra/migtest/internal/envpro"
	"github.com/seqra/migtest/internal/gate"
	"github.com/seqra/migtest/internal/semver"
	"github.com/seqra/migtest/internal/smoke"
	"github.com/seqra/migtest/internal/ui"
	"github.com/seqra/migtest/internal/verify"
)

// Stage names a phase of one version's test, used to tag failures.
type Stage string

const (
	StageProvision     Stage = "provision"
	StageSmokeTest     Stage = "smoke-test"
	StageBackupRestore Stage = "backup-restore"
)

// Outcome is the per-version result. Outcomes accumulate append-only
// across the run and are its final artifact.
type Outcome struct {
	Version      semver.Version
	Backend      backend.Kind
	Passed       bool
	FailureStage Stage
	Message      string
}

// Provisioner builds and destroys one version's runtime.
type Provisioner interface {
	Provision(ctx context.Context, v semver.Version) (*envpro.Env, error)
	Teardown(env *envpro.Env)
}

// Lifecycle manages the backend database process for a run.
type Lifecycle interface {
	Start(ctx context.Context, b backend.Backend) error
	Stop(ctx context.Context, b backend.Backend)
}

// SmokeRunner executes the smoke protocol for one provisioned version.
type SmokeRunner interface {
	Run(ctx context.Context, env *envpro.Env, b backend.Backend) (smoke.RunRecord, error)
}

// Verifier runs one backup/restore cycle and checks state equivalence.
type Verifier interface {
	Verify(ctx context.Context, env *envpro.Env, before smoke.RunRecord, b backend.Backend, mode verify.Mode) error
}

// MatrixEntry is one backend with its ordered, filtered version list.
// The list always ends in the current working copy.
type MatrixEntry struct {
	Backend  backend.Backend
	Versions []semver.Version
}

// BuildMatrix filters the version list per backend-support threshold and
// appends the current sentinel as the mandatory final entry of each list.
func BuildMatrix(g *gate.Gate, backends []backend.Backend, versions []semver.Version) []MatrixEntry {
	entries := make([]MatrixEntry, 0, len(backends))
	for _, b := range backends {
		kept := make([]semver.Version, 0, len(versions)+1)
		capability, gated := b.Capability()
		for _, v := range versions {
			if v.IsCurrent() {
				continue // always re-appended last
			}
			if gated && !g.Supports(capability, v) {
				continue
			}
			kept = append(kept, v)
		}
		kept = append(kept, semver.Current)
		entries = append(entries, MatrixEntry{Backend: b, Versions: kept})
	}
	return entries
}

// Orchestrator drives a run.
type Orchestrator struct {
	prov     Provisioner
	lc       Lifecycle
	smoke    SmokeRunner
	verifier Verifier
	g        *gate.Gate
	trace    *ui.Trace
	log      *zap.Logger
	runID    string
}

// Params collects the orchestrator's collaborators.
type Params struct {
	Provisioner Provisioner
	Lifecycle   Lifecycle
	Smoke       SmokeRunner
	Verifier    Verifier
	Gate        *gate.Gate
	Trace       *ui.Trace
	Log         *zap.Logger
}

// New returns an orchestrator with a fresh run ID.
func New(p Params) *Orchestrator {
	return &Orchestrator{
		prov:     p.Provisioner,
		lc:       p.Lifecycle,
		smoke:    p.Smoke,
		verifier: p.Verifier,
		g:        p.Gate,
		trace:    p.Trace,
		log:      p.Log,
		runID:    uuid.NewString(),
	}
}

// RunID identifies this run in the trace and log file.
func (o *Orchestrator) RunID() string { return o.runID }

// Run walks every matrix entry in order. The returned outcomes cover
// everything attempted; the error is non-nil if any version failed, and
// no later version or backend is attempted after a failure — a broken
// upgrade path invalidates confidence in every subsequent combination.
// The database persists across the versions of one entry (upgrade
// testing needs state continuity) and is restarted between entries.
func (o *Orchestrator) Run(ctx context.Context, entries []MatrixEntry) ([]Outcome, error) {
	o.trace.Run(o.runID)
	o.log.Info("run started", zap.String("run_id", o.runID))

	var outcomes []Outcome
	for _, entry := range entries {
		kind := entry.Backend.Kind
		o.trace.Backend(string(kind), len(entry.Versions))

		if err := o.lc.Start(ctx, entry.Backend); err != nil {
			out := Outcome{
				Version:      entry.Versions[0],
				Backend:      kind,
				FailureStage: StageProvision,
				Message:      err.Error(),
			}
			outcomes = append(outcomes, out)
			o.trace.Fail(string(kind), out.Version.String(), string(out.FailureStage), out.Message)
			return outcomes, fmt.Errorf("backend %s: %w", kind, err)
		}

		for _, v := range entry.Versions {
			out := o.testVersion(ctx, entry.Backend, v)
			outcomes = append(outcomes, out)
			if !out.Passed {
				o.trace.Fail(string(kind), v.String(), string(out.FailureStage), out.Message)
				o.lc.Stop(ctx, entry.Backend)
				return outcomes, fmt.Errorf("halted: %s on %s failed at %s stage", v, kind, out.FailureStage)
			}
			o.trace.Pass(string(kind), v.String())
		}

		o.lc.Stop(ctx, entry.Backend)
	}
	o.log.Info("run passed", zap.String("run_id", o.runID), zap.Int("outcomes", len(outcomes)))
	return outcomes, nil
}

// testVersion runs the per-version state machine:
// provision -> smoke-test -> (backup-restore) -> teardown.
// Teardown always runs, pass or fail.
func (o *Orchestrator) testVersion(ctx context.Context, b backend.Backend, v semver.Version) Outcome {
	out := Outcome{Version: v, Backend: b.Kind}

	o.trace.Stage(string(b.Kind), v.String(), string(StageProvision))
	env, err := o.prov.Provision(ctx, v)
	if err != nil {
		out.FailureStage = StageProvision
		out.Message = err.Error()
		return out
	}
	defer o.prov.Teardown(env)

	o.trace.Stage(string(b.Kind), v.String(), string(StageSmokeTest))
	record, err := o.smoke.Run(ctx, env, b)
	if err != nil {
		out.FailureStage = StageSmokeTest
		out.Message = err.Error()
		return out
	}

	if o.g.Supports(gate.CapBackupRestore, v) {
		o.trace.Stage(string(b.Kind), v.String(), string(StageBackupRestore))
		for _, mode := range verify.ModesFor(b) {
			if err := o.verifier.Verify(ctx, env, record, b, mode); err != nil {
				var ce *commonerr.ConsistencyError
				if errors.As(err, &ce) {
					o.trace.Snapshot("run history before "+ce.Mode+" backup", ce.Before)
					o.trace.Snapshot("run history after "+ce.Mode+" restore", ce.After)
				}
				out.FailureStage = StageBackupRestore
				out.Message = err.Error()
				return out
			}
		}
	}

	out.Passed = true
	return out
}
