// Package sqlite provides a SQLite-backed storage driver using ent's SQL
// dialect layer.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/ssetap/pkg/storage/sqldriver"
)

// SQLiteDriver implements storage.Driver using SQLite via the sql driver.
type SQLiteDriver struct {
	*sqldriver.Driver
}

// NewSQLiteDriver creates a new SQLite-backed driver.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDriver(dbPath string) (*SQLiteDriver, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite-specific pragmas
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	d, err := sqldriver.Open(context.Background(), db, dialect.SQLite)
	if err != nil {
		return nil, err
	}

	// A single writer avoids SQLITE_BUSY from concurrent workers.
	db.SetMaxOpenConns(1)

	return &SQLiteDriver{Driver: d}, nil
}

// dsn turns dbPath into a go-sqlite3 DSN with foreign keys enabled on every
// connection. ":memory:" becomes a named shared-cache database so all
// connections in the pool see the same tables.
func dsn(dbPath string) string {
	if dbPath == ":memory:" {
		return "file:" + uuid.NewString() + "?mode=memory&cache=shared&_fk=1"
	}

	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_fk=1"
}
