package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seqra/migtest/internal/config"
)

var (
	cfgFile string
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:          "migtest",
	Short:        "Upgrade-path verifier for the application's database migrations",
	Long:         "migtest -- walks an ordered list of historical releases against a database backend,\nsmoke-testing each one and verifying backup/restore round-trips, to catch upgrade regressions.",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults plus MIGTEST_* env)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-essential output")
}

// loadConfig resolves the layered run configuration.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "migtest: "+format+"\n", args...)
}
