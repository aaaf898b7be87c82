// Package backend opens a runlog.Logger by name, for the command-line tools.
package backend

import (
	"errors"
	"fmt"
	"os"

	"github.com/banshee-data/sweep-logger/internal/runlog"
	"github.com/banshee-data/sweep-logger/internal/runlog/hasura"
	"github.com/banshee-data/sweep-logger/internal/runlog/sqlite"
)

// Backend names.
const (
	Hasura = "hasura"
	SQLite = "sqlite"
)

// Environment variables consulted for flag defaults.
const (
	EndpointEnv    = "GRAPHQL_ENDPOINT"
	AdminSecretEnv = "HASURA_GRAPHQL_ADMIN_SECRET"
)

// DefaultDBPath is the SQLite file used when none is given.
const DefaultDBPath = "sweeps.db"

// Config selects and configures a backend.
type Config struct {
	Kind        string
	Endpoint    string
	AdminSecret string
	DBPath      string
}

// FromEnv returns a hasura Config populated from the environment.
func FromEnv() Config {
	return Config{
		Kind:        Hasura,
		Endpoint:    os.Getenv(EndpointEnv),
		AdminSecret: os.Getenv(AdminSecretEnv),
		DBPath:      DefaultDBPath,
	}
}

// Open opens the configured backend.
func Open(cfg Config) (runlog.Logger, error) {
	switch cfg.Kind {
	case Hasura, "":
		if cfg.Endpoint == "" {
			return nil, errors.New("a GraphQL endpoint is required (-graphql-endpoint or $" + EndpointEnv + ")")
		}
		return hasura.New(hasura.Config{Endpoint: cfg.Endpoint, AdminSecret: cfg.AdminSecret})
	case SQLite:
		path := cfg.DBPath
		if path == "" {
			path = DefaultDBPath
		}
		return sqlite.Open(path)
	}
	return nil, fmt.Errorf("unknown logger %q (want %s or %s)", cfg.Kind, Hasura, SQLite)
}
