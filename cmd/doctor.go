package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/docker/docker/client"
	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"

	"github.com/seqra/migtest/internal/backend"
)

var doctorPingDB bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the harness's external collaborators are reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		failed := false
		report := func(name string, err error) {
			if err != nil {
				failed = true
				errorf("%s: %v", name, err)
				return
			}
			if !quiet {
				fmt.Printf("%-20s ok\n", name)
			}
		}

		report("python", lookPath(cfg.Python))
		report("git", lookPath("git"))
		report("state dir", writable(cfg.StateDir))

		b, err := backend.FromConfig(cfg)
		if err != nil {
			return err
		}
		if !b.Embedded() {
			report("container runtime", pingDocker(cmd))
			if doctorPingDB {
				report("database", pingDatabase(b))
			}
		}

		if failed {
			return fmt.Errorf("environment not ready")
		}
		return nil
	},
}

func lookPath(name string) error {
	_, err := exec.LookPath(name)
	return err
}

func writable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}

func pingDocker(cmd *cobra.Command) error {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return err
	}
	defer cli.Close()
	_, err = cli.Ping(cmd.Context())
	return err
}

// pingDatabase opens a short-lived connection against a running backend
// container. Opt-in: the run path itself never polls the database.
func pingDatabase(b backend.Backend) error {
	db, err := sql.Open("mysql", b.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetConnMaxLifetime(time.Minute)
	return db.Ping()
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorPingDB, "ping-db", false, "also open a connection against the configured database backend")
	rootCmd.AddCommand(doctorCmd)
}
