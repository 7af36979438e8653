package cmd

import (
	"fmt"
	"os"

	"github.com/docker/docker/client"
	"github.com/spf13/cobra"

	"github.com/seqra/migtest/internal/backend"
	"github.com/seqra/migtest/internal/envpro"
	"github.com/seqra/migtest/internal/gate"
	"github.com/seqra/migtest/internal/logging"
	"github.com/seqra/migtest/internal/orchestrator"
	"github.com/seqra/migtest/internal/semver"
	"github.com/seqra/migtest/internal/shell"
	"github.com/seqra/migtest/internal/smoke"
	"github.com/seqra/migtest/internal/ui"
	"github.com/seqra/migtest/internal/verify"
)

var (
	runDatabase string
	runVersions []string
	runStateDir string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the full migration test for the configured backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if runDatabase != "" {
			cfg.Database = runDatabase
		}
		if len(runVersions) > 0 {
			cfg.Versions = runVersions
		}
		if runStateDir != "" {
			cfg.StateDir = runStateDir
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		versions, err := semver.ParseList(cfg.Versions)
		if err != nil {
			return err
		}
		b, err := backend.FromConfig(cfg)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}

		log := logging.New(cfg.ResolvedLogPath(), verbose)
		defer log.Sync()

		var api backend.ContainerAPI
		if !b.Embedded() {
			cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
			if err != nil {
				return fmt.Errorf("connect to container runtime: %w", err)
			}
			defer cli.Close()
			api = cli
		}

		g := gate.Default()
		sh := shell.NewExec(log)
		smokeRunner := smoke.New(sh, g, log, cfg.App)
		trace := ui.NewTrace(os.Stdout, quiet)

		orch := orchestrator.New(orchestrator.Params{
			Provisioner: envpro.New(sh, log, cfg),
			Lifecycle:   backend.NewLifecycle(api, log),
			Smoke:       smokeRunner,
			Verifier:    verify.New(sh, smokeRunner.History, log, cfg.App, cfg.StateDir),
			Gate:        g,
			Trace:       trace,
			Log:         log,
		})

		entries := orchestrator.BuildMatrix(g, []backend.Backend{b}, versions)
		outcomes, runErr := orch.Run(cmd.Context(), entries)

		passed := 0
		for _, out := range outcomes {
			if out.Passed {
				passed++
			}
		}
		trace.Summary(passed, len(outcomes))
		return runErr
	},
}

func init() {
	runCmd.Flags().StringVar(&runDatabase, "backend", "", "database kind override (sqlite, mysql, mariadb)")
	runCmd.Flags().StringSliceVar(&runVersions, "versions", nil, "historical version list override")
	runCmd.Flags().StringVar(&runStateDir, "state-dir", "", "root state directory override")
	rootCmd.AddCommand(runCmd)
}
