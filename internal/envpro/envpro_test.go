package envpro

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/seqra/migtest/internal/commonerr"
	"github.com/seqra/migtest/internal/config"
	"github.com/seqra/migtest/internal/semver"
	"github.com/seqra/migtest/internal/shell"
)

// fakeRunner records commands and fails those matching failOn.
type fakeRunner struct {
	commands []string
	failOn   string
}

func (f *fakeRunner) Run(_ context.Context, c shell.Command) (string, error) {
	line := c.String()
	f.commands = append(f.commands, line)
	if f.failOn != "" && strings.Contains(line, f.failOn) {
		return "", errors.New("exit status 1")
	}
	return "", nil
}

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.StateDir = t.TempDir()
	return cfg
}

func TestProvisionRelease(t *testing.T) {
	cfg := testConfig(t)
	sh := &fakeRunner{}
	p := New(sh, zap.NewNop(), cfg)

	env, err := p.Provision(context.Background(), semver.MustParse("0.55.2"))
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}

	if env.Dir != filepath.Join(cfg.StateDir, "envs", "0.55.2") {
		t.Errorf("env dir = %q", env.Dir)
	}
	if _, err := os.Stat(env.WorkDir); err != nil {
		t.Errorf("workdir missing: %v", err)
	}
	if _, err := os.Stat(env.AppStateDir); err != nil {
		t.Errorf("app state dir missing: %v", err)
	}

	joined := strings.Join(sh.commands, "\n")
	if !strings.Contains(joined, "-m venv") {
		t.Errorf("no venv creation in:\n%s", joined)
	}
	if !strings.Contains(joined, "install mlpipe==0.55.2") {
		t.Errorf("no pinned install in:\n%s", joined)
	}
	if !strings.Contains(joined, "install typing-extensions>=4.7") {
		t.Errorf("aux deps not installed in:\n%s", joined)
	}
}

func TestProvisionCurrentInstallsWorkingCopy(t *testing.T) {
	cfg := testConfig(t)
	cfg.App.WorkingCopy = "/src/mlpipe"
	sh := &fakeRunner{}
	p := New(sh, zap.NewNop(), cfg)

	if _, err := p.Provision(context.Background(), semver.Current); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	joined := strings.Join(sh.commands, "\n")
	if !strings.Contains(joined, "install -e /src/mlpipe") {
		t.Errorf("working copy not installed editable in:\n%s", joined)
	}
	if strings.Contains(joined, "mlpipe==current") {
		t.Errorf("current must not be pip-pinned:\n%s", joined)
	}
}

func TestProvisionEnviron(t *testing.T) {
	cfg := testConfig(t)
	p := New(&fakeRunner{}, zap.NewNop(), cfg)

	env, err := p.Provision(context.Background(), semver.MustParse("0.56.4"))
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	joined := strings.Join(env.Environ, "\n")
	if !strings.Contains(joined, "MLPIPE_ANALYTICS_OPT_IN=false") {
		t.Errorf("telemetry toggle missing: %v", env.Environ)
	}
	if !strings.Contains(joined, "MLPIPE_DEBUG=true") {
		t.Errorf("debug toggle missing: %v", env.Environ)
	}
	if !strings.Contains(joined, "MLPIPE_CONFIG_PATH="+env.AppStateDir) {
		t.Errorf("state dir toggle missing: %v", env.Environ)
	}
	if !strings.HasPrefix(env.Environ[0], "PATH="+env.Bin) {
		t.Errorf("venv bin not first on PATH: %v", env.Environ[0])
	}
}

func TestProvisionFailureIsProvisionError(t *testing.T) {
	cfg := testConfig(t)
	sh := &fakeRunner{failOn: "install mlpipe=="}
	p := New(sh, zap.NewNop(), cfg)

	_, err := p.Provision(context.Background(), semver.MustParse("0.55.2"))
	if err == nil {
		t.Fatal("expected error")
	}
	var pe *commonerr.ProvisionError
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T, want *ProvisionError", err)
	}
}

func TestTeardownKeepsAppState(t *testing.T) {
	cfg := testConfig(t)
	p := New(&fakeRunner{}, zap.NewNop(), cfg)

	env, err := p.Provision(context.Background(), semver.MustParse("0.55.2"))
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	marker := filepath.Join(env.AppStateDir, "store.db")
	if err := os.WriteFile(marker, []byte("state"), 0o644); err != nil {
		t.Fatal(err)
	}

	p.Teardown(env)

	if _, err := os.Stat(env.WorkDir); !os.IsNotExist(err) {
		t.Error("workdir should be removed")
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("app state must survive teardown: %v", err)
	}
	p.Teardown(nil) // must not panic
}
