// Package backend models the database engines the upgrade path is
// verified against and manages their container lifecycle.
package backend

import (
	"fmt"

	"github.com/seqra/migtest/internal/config"
	"github.com/seqra/migtest/internal/gate"
)

// Kind enumerates the supported engine variants.
type Kind string

const (
	Embedded Kind = "sqlite"
	MySQL    Kind = "mysql"
	MariaDB  Kind = "mariadb"
)

// Backend is one engine under test. Container fields are zero for the
// embedded store.
type Backend struct {
	Kind          Kind
	Image         string
	Port          int
	RootUser      string
	RootPassword  string
	Database      string
	ContainerName string
}

// FromConfig resolves the configured database kind into a Backend.
func FromConfig(cfg config.Config) (Backend, error) {
	switch cfg.Database {
	case config.DatabaseSQLite:
		return Backend{Kind: Embedded}, nil
	case config.DatabaseMySQL:
		return fromBackendConfig(MySQL, cfg.MySQL), nil
	case config.DatabaseMariaDB:
		return fromBackendConfig(MariaDB, cfg.MariaDB), nil
	default:
		return Backend{}, fmt.Errorf("unknown database kind %q", cfg.Database)
	}
}

func fromBackendConfig(kind Kind, bc config.Backend) Backend {
	return Backend{
		Kind:          kind,
		Image:         bc.Image,
		Port:          bc.Port,
		RootUser:      bc.RootUser,
		RootPassword:  bc.RootPassword,
		Database:      bc.Database,
		ContainerName: bc.ContainerName,
	}
}

// Embedded reports whether b is the file-backed store.
func (b Backend) Embedded() bool { return b.Kind == Embedded }

// Capability returns the feature-gate capability that marks a release as
// able to run against this backend. The embedded store has no gate: every
// release supports it.
func (b Backend) Capability() (gate.Capability, bool) {
	switch b.Kind {
	case MySQL:
		return gate.CapMySQL, true
	case MariaDB:
		return gate.CapMariaDB, true
	default:
		return "", false
	}
}

// DSN returns the driver connection string for a running container
// backend.
func (b Backend) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(127.0.0.1:%d)/%s", b.RootUser, b.RootPassword, b.Port, b.Database)
}

// URL returns the connection URL handed to the app's connect command.
func (b Backend) URL() string {
	return fmt.Sprintf("mysql://%s:%s@127.0.0.1:%d/%s", b.RootUser, b.RootPassword, b.Port, b.Database)
}

func (b Backend) String() string { return string(b.Kind) }
