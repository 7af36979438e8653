// Package config holds the run configuration for the migration test
// harness: which database kind to exercise, which historical versions to
// walk, and how to reach the application under test. Values come from
// built-in defaults, an optional yaml file, and environment overrides,
// in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Database kinds accepted by the harness.
const (
	DatabaseSQLite  = "sqlite"
	DatabaseMySQL   = "mysql"
	DatabaseMariaDB = "mariadb"
)

// App describes the application under test: how to install it and which
// environment toggles it honors.
type App struct {
	// Command is the CLI binary name inside the provisioned environment.
	Command string `yaml:"command"`
	// Package is the name pip-installed as package==version.
	Package string `yaml:"package"`
	// WorkingCopy is the checkout installed for the "current" sentinel.
	WorkingCopy string `yaml:"working_copy"`
	// TemplateURL is the fixed external starter template cloned when a
	// release predates templated init.
	TemplateURL string `yaml:"template_url"`
	// AuxDeps are auxiliary packages installed alongside every version.
	AuxDeps []string `yaml:"aux_deps"`

	// TelemetryVar and DebugVar are the app's boolean env toggles for
	// disabling analytics and enabling verbose internal logging.
	TelemetryVar string `yaml:"telemetry_var"`
	DebugVar     string `yaml:"debug_var"`
	// ConfigVar points the app at its per-run state directory.
	ConfigVar string `yaml:"config_var"`
}

// Backend holds the container parameters for one client/server engine.
type Backend struct {
	Image         string `yaml:"image"`
	Port          int    `yaml:"port"`
	RootUser      string `yaml:"root_user"`
	RootPassword  string `yaml:"root_password"`
	Database      string `yaml:"database"`
	ContainerName string `yaml:"container_name"`
}

// Config is the full harness configuration.
type Config struct {
	// Database selects the backend kind for this run.
	Database string `yaml:"database"`
	// StateDir is the root directory owning every env, workdir and
	// backup artifact the harness creates.
	StateDir string `yaml:"state_dir"`
	// Versions is the ordered historical version list. The working copy
	// is always appended by the orchestrator; it does not appear here.
	Versions []string `yaml:"versions"`

	// DisableTelemetry and DebugLogs are forwarded to every subprocess
	// of the app under test through its env toggles.
	DisableTelemetry bool `yaml:"disable_telemetry"`
	DebugLogs        bool `yaml:"debug_logs"`

	// LogPath is the harness's own rotating log file.
	LogPath string `yaml:"log_path"`
	// Python is the interpreter used to build virtualenvs.
	Python string `yaml:"python"`

	App     App     `yaml:"app"`
	MySQL   Backend `yaml:"mysql"`
	MariaDB Backend `yaml:"mariadb"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DatabaseSQLite,
		StateDir: ".migtest",
		Versions: []string{
			"0.43.0",
			"0.44.3",
			"0.45.6",
			"0.52.0",
			"0.54.1",
			"0.55.2",
			"0.56.3",
			"0.56.4",
			"0.57.1",
		},
		DisableTelemetry: true,
		DebugLogs:        true,
		LogPath:          "",
		Python:           "python3",
		App: App{
			Command:      "mlpipe",
			Package:      "mlpipe",
			WorkingCopy:  ".",
			TemplateURL:  "https://github.com/mlpipe-io/template-starter.git",
			AuxDeps:      []string{"typing-extensions>=4.7"},
			TelemetryVar: "MLPIPE_ANALYTICS_OPT_IN",
			DebugVar:     "MLPIPE_DEBUG",
			ConfigVar:    "MLPIPE_CONFIG_PATH",
		},
		MySQL: Backend{
			Image:         "mysql:8.0",
			Port:          3306,
			RootUser:      "root",
			RootPassword:  "password",
			Database:      "mlpipe",
			ContainerName: "migtest-mysql",
		},
		MariaDB: Backend{
			Image:         "mariadb:10.6",
			Port:          3306,
			RootUser:      "root",
			RootPassword:  "password",
			Database:      "mlpipe",
			ContainerName: "migtest-mariadb",
		},
	}
}

// Load builds the configuration from defaults, the optional yaml file at
// path, and environment overrides. An empty path skips the file layer.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field consistency.
func (c Config) Validate() error {
	switch c.Database {
	case DatabaseSQLite, DatabaseMySQL, DatabaseMariaDB:
	default:
		return fmt.Errorf("unknown database kind %q: must be one of %s, %s, %s",
			c.Database, DatabaseSQLite, DatabaseMySQL, DatabaseMariaDB)
	}
	if len(c.Versions) == 0 {
		return fmt.Errorf("version list is empty")
	}
	if c.StateDir == "" {
		return fmt.Errorf("state_dir must not be empty")
	}
	return nil
}

// ResolvedLogPath returns the harness log file, defaulting into the
// state directory.
func (c Config) ResolvedLogPath() string {
	if c.LogPath != "" {
		return c.LogPath
	}
	return filepath.Join(c.StateDir, "migtest.log")
}

func applyEnv(cfg *Config) {
	cfg.Database = getEnv("MIGTEST_DATABASE", cfg.Database)
	cfg.StateDir = getEnv("MIGTEST_STATE_DIR", cfg.StateDir)
	cfg.LogPath = getEnv("MIGTEST_LOG_PATH", cfg.LogPath)
	if raw := os.Getenv("MIGTEST_VERSIONS"); raw != "" {
		parts := strings.Split(raw, ",")
		versions := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				versions = append(versions, p)
			}
		}
		cfg.Versions = versions
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
