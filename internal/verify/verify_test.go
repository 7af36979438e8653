package verify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/seqra/migtest/internal/backend"
	"github.com/seqra/migtest/internal/commonerr"
	"github.com/seqra/migtest/internal/config"
	"github.com/seqra/migtest/internal/envpro"
	"github.com/seqra/migtest/internal/semver"
	"github.com/seqra/migtest/internal/shell"
	"github.com/seqra/migtest/internal/smoke"
)

type scriptRunner struct {
	commands []string
	failOn   string
}

func (s *scriptRunner) Run(_ context.Context, c shell.Command) (string, error) {
	line := c.String()
	s.commands = append(s.commands, line)
	if s.failOn != "" && strings.Contains(line, s.failOn) {
		return "", errors.New("exit status 1")
	}
	return "", nil
}

func testEnv() *envpro.Env {
	return &envpro.Env{
		Version: semver.MustParse("0.56.4"),
		Bin:     "/state/envs/0.56.4/bin",
		WorkDir: "/state/work",
	}
}

func historyReturning(records ...smoke.RunRecord) HistoryFunc {
	i := 0
	return func(context.Context, *envpro.Env) (smoke.RunRecord, error) {
		r := records[i]
		if i < len(records)-1 {
			i++
		}
		return r, nil
	}
}

func newVerifier(t *testing.T, sh shell.Runner, history HistoryFunc) *Verifier {
	return New(sh, history, zap.NewNop(), config.Default().App, t.TempDir())
}

func TestVerifyEqualSnapshots(t *testing.T) {
	sh := &scriptRunner{}
	v := newVerifier(t, sh, historyReturning("run 1 completed"))

	err := v.Verify(context.Background(), testEnv(), "run 1 completed", backend.Backend{Kind: backend.Embedded}, ModeFileDump)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	joined := strings.Join(sh.commands, "\n")
	if !strings.Contains(joined, "backup-database --strategy dump-file") {
		t.Errorf("backup not invoked:\n%s", joined)
	}
	if !strings.Contains(joined, "restore-database --strategy dump-file") {
		t.Errorf("restore not invoked:\n%s", joined)
	}
	backupIdx := strings.Index(joined, "backup-database")
	restoreIdx := strings.Index(joined, "restore-database")
	if backupIdx > restoreIdx {
		t.Error("backup must precede restore")
	}
}

func TestVerifyDivergenceIsConsistencyError(t *testing.T) {
	sh := &scriptRunner{}
	v := newVerifier(t, sh, historyReturning("run 1 completed\nrun 2 completed"))

	err := v.Verify(context.Background(), testEnv(), "run 1 completed", backend.Backend{Kind: backend.Embedded}, ModeFileDump)
	if err == nil {
		t.Fatal("expected consistency error")
	}
	var ce *commonerr.ConsistencyError
	if !errors.As(err, &ce) {
		t.Fatalf("error type = %T, want *ConsistencyError", err)
	}
	if ce.Before != "run 1 completed" {
		t.Errorf("before = %q", ce.Before)
	}
	if !strings.Contains(ce.After, "run 2") {
		t.Errorf("after = %q", ce.After)
	}
	if ce.Diff == "" {
		t.Error("diff should be populated")
	}
}

func TestVerifyCommandFailureIsNotConsistencyError(t *testing.T) {
	sh := &scriptRunner{failOn: "restore-database"}
	v := newVerifier(t, sh, historyReturning("x"))

	err := v.Verify(context.Background(), testEnv(), "x", backend.Backend{Kind: backend.Embedded}, ModeFileDump)
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *commonerr.ConsistencyError
	if errors.As(err, &ce) {
		t.Fatal("a failed restore command is not a consistency divergence")
	}
}

func TestVerifyIdempotent(t *testing.T) {
	sh := &scriptRunner{}
	v := newVerifier(t, sh, historyReturning("stable listing"))
	env := testEnv()

	for i := 0; i < 2; i++ {
		if err := v.Verify(context.Background(), env, "stable listing", backend.Backend{Kind: backend.Embedded}, ModeFileDump); err != nil {
			t.Fatalf("Verify #%d: %v", i+1, err)
		}
	}
}

func TestModesFor(t *testing.T) {
	embedded := ModesFor(backend.Backend{Kind: backend.Embedded})
	if len(embedded) != 1 || embedded[0] != ModeFileDump {
		t.Errorf("embedded modes = %v", embedded)
	}
	mysql := ModesFor(backend.Backend{Kind: backend.MySQL})
	if len(mysql) != 2 || mysql[0] != ModeFileDump || mysql[1] != ModeDatabaseNative {
		t.Errorf("mysql modes = %v", mysql)
	}
}

func TestArtifactNamingPerMode(t *testing.T) {
	v := newVerifier(t, &scriptRunner{}, historyReturning("x"))
	dump := v.artifact(ModeFileDump)
	native := v.artifact(ModeDatabaseNative)
	if dump == native {
		t.Error("modes must use distinct artifact locations")
	}
	if !strings.HasSuffix(dump, "backup.sql") {
		t.Errorf("dump artifact = %q", dump)
	}
}
