package storage

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Store types accepted by Open
const (
	TypeBolt     = "bolt"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeMemory   = "memory"
)

// Options selects and locates the store for one index
type Options struct {
	Type    string
	BaseDir string
	DSN     string
}

// Open creates the TableStore described by opts
func Open(opts Options, logger *logrus.Logger) (TableStore, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	switch opts.Type {
	case "", TypeBolt:
		if opts.BaseDir == "" {
			return nil, fmt.Errorf("bolt store requires base_dir")
		}
		return NewBoltStore(opts.BaseDir, logger)
	case TypeSQLite:
		path := opts.DSN
		if path == "" {
			if opts.BaseDir == "" {
				return nil, fmt.Errorf("sqlite store requires base_dir or dsn")
			}
			path = filepath.Join(opts.BaseDir, "output.sqlite")
		}
		return NewSQLiteStore(path, logger)
	case TypePostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("postgres store requires dsn")
		}
		return NewPostgresStore(opts.DSN, logger)
	case TypeMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q (must be bolt, sqlite, postgres or memory)", opts.Type)
	}
}
