package storageutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/ssetap/pkg/storage"
	"github.com/papercomputeco/ssetap/pkg/storage/inmemory"
	"github.com/papercomputeco/ssetap/pkg/storage/postgres"
	"github.com/papercomputeco/ssetap/pkg/storage/sqlite"
)

type NewDriverOpts struct {
	SQLitePath  string
	PostgresDSN string

	// InMemory selects the in-memory driver when no database is configured.
	InMemory bool

	Logger *slog.Logger
}

// NewDriver opens the configured storage driver. PostgreSQL wins over SQLite.
// It returns nil, nil when nothing is configured and InMemory is false.
func NewDriver(ctx context.Context, o *NewDriverOpts) (storage.Driver, error) {
	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch {
	case o.PostgresDSN != "":
		driver, err := postgres.NewDriver(ctx, o.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL storer: %w", err)
		}
		logger.Info("using PostgreSQL storage")
		return driver, nil

	case o.SQLitePath != "":
		driver, err := sqlite.NewSQLiteDriver(o.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storer: %w", err)
		}
		logger.Info("using SQLite storage", "path", o.SQLitePath)
		return driver, nil

	case o.InMemory:
		logger.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	default:
		return nil, nil
	}
}
