// Package verify exercises the backup/restore cycle of one installed
// version and asserts that the observable run history is unchanged by
// it.
package verify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/seqra/migtest/internal/backend"
	"github.com/seqra/migtest/internal/commonerr"
	"github.com/seqra/migtest/internal/config"
	"github.com/seqra/migtest/internal/envpro"
	"github.com/seqra/migtest/internal/shell"
	"github.com/seqra/migtest/internal/smoke"
)

// Mode selects the backup strategy passed to the app.
type Mode string

const (
	// ModeFileDump writes a single portable dump file.
	ModeFileDump Mode = "dump-file"
	// ModeDatabaseNative uses the engine's own backup mechanism and a
	// directory-style artifact.
	ModeDatabaseNative Mode = "database"
)

// ModesFor lists the modes a backend must independently pass. Engines
// with a native mechanism are exercised through it in addition to the
// portable dump.
func ModesFor(b backend.Backend) []Mode {
	if b.Embedded() {
		return []Mode{ModeFileDump}
	}
	return []Mode{ModeFileDump, ModeDatabaseNative}
}

// HistoryFunc re-queries the run listing; wired to the smoke runner.
type HistoryFunc func(ctx context.Context, env *envpro.Env) (smoke.RunRecord, error)

// Verifier runs backup/restore cycles.
type Verifier struct {
	sh       shell.Runner
	history  HistoryFunc
	log      *zap.Logger
	app      config.App
	stateDir string
}

// New returns a verifier storing artifacts under stateDir.
func New(sh shell.Runner, history HistoryFunc, log *zap.Logger, app config.App, stateDir string) *Verifier {
	return &Verifier{sh: sh, history: history, log: log, app: app, stateDir: stateDir}
}

// Verify removes any stale artifact, backs the store up in the given
// mode, restores from the artifact, and requires the re-queried run
// history to equal before byte for byte. A mismatch is a
// ConsistencyError carrying both snapshots; command failures surface as
// plain errors. No retries: restore is deterministic given identical
// input, so a second attempt could only mask a regression.
func (v *Verifier) Verify(ctx context.Context, env *envpro.Env, before smoke.RunRecord, b backend.Backend, mode Mode) error {
	artifact := v.artifact(mode)
	if err := os.RemoveAll(artifact); err != nil {
		return fmt.Errorf("remove stale artifact %s: %w", artifact, err)
	}
	if err := os.MkdirAll(filepath.Dir(artifact), 0o755); err != nil {
		return fmt.Errorf("mkdir backup dir: %w", err)
	}

	v.log.Info("backup/restore cycle",
		zap.String("version", env.Version.String()),
		zap.String("backend", b.String()),
		zap.String("mode", string(mode)))

	for _, sub := range []string{"backup-database", "restore-database"} {
		if _, err := v.sh.Run(ctx, shell.Command{
			Name: env.Tool(v.app.Command),
			Args: []string{sub, "--strategy", string(mode), "--location", artifact},
			Dir:  env.WorkDir,
			Env:  env.Environ,
		}); err != nil {
			return fmt.Errorf("%s (%s): %w", sub, mode, err)
		}
	}

	after, err := v.history(ctx, env)
	if err != nil {
		return fmt.Errorf("re-query run history: %w", err)
	}
	if after != before {
		return &commonerr.ConsistencyError{
			Mode:   string(mode),
			Before: string(before),
			After:  string(after),
			Diff:   cmp.Diff(string(before), string(after)),
		}
	}
	return nil
}

// artifact returns the fixed backup location for a mode: a single dump
// file for the portable strategy, a directory for the native one.
func (v *Verifier) artifact(mode Mode) string {
	if mode == ModeDatabaseNative {
		return filepath.Join(v.stateDir, "backups", "native")
	}
	return filepath.Join(v.stateDir, "backups", "backup.sql")
}
