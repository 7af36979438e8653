package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seqra/migtest/internal/backend"
	"github.com/seqra/migtest/internal/config"
	"github.com/seqra/migtest/internal/gate"
	"github.com/seqra/migtest/internal/orchestrator"
	"github.com/seqra/migtest/internal/semver"
)

var matrixAll bool

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Print the filtered backend/version matrix without executing it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		versions, err := semver.ParseList(cfg.Versions)
		if err != nil {
			return err
		}

		var backends []backend.Backend
		if matrixAll {
			for _, kind := range []string{config.DatabaseSQLite, config.DatabaseMySQL, config.DatabaseMariaDB} {
				c := cfg
				c.Database = kind
				b, err := backend.FromConfig(c)
				if err != nil {
					return err
				}
				backends = append(backends, b)
			}
		} else {
			b, err := backend.FromConfig(cfg)
			if err != nil {
				return err
			}
			backends = append(backends, b)
		}

		for _, entry := range orchestrator.BuildMatrix(gate.Default(), backends, versions) {
			fmt.Printf("%s:\n", entry.Backend.Kind)
			for _, v := range entry.Versions {
				fmt.Printf("  %s\n", v)
			}
		}
		return nil
	},
}

func init() {
	matrixCmd.Flags().BoolVar(&matrixAll, "all", false, "show every backend, not just the configured one")
	rootCmd.AddCommand(matrixCmd)
}
