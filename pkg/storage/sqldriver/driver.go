// Package sqldriver implements storage.Driver on top of ent's SQL dialect
// layer. It is database-agnostic and is embedded by the sqlite and postgres
// drivers, which supply the connection and the dialect name.
package sqldriver

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"github.com/google/uuid"

	"github.com/papercomputeco/ssetap/pkg/storage"
)

// Driver provides storage operations using an ent SQL driver.
type Driver struct {
	drv *entsql.Driver
}

// Open wraps db with ent's SQL driver for the given dialect (dialect.SQLite
// or dialect.Postgres) and migrates the schema. db is closed if the schema
// cannot be created.
func Open(ctx context.Context, db *sql.DB, dialectName string) (*Driver, error) {
	drv := entsql.OpenDB(dialectName, db)

	migrate, err := schema.NewMigrate(drv)
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("failed to create schema migrator: %w", err)
	}

	// Auto-migration is append-only: new tables, columns and indexes.
	if err := migrate.Create(ctx, Tables...); err != nil {
		drv.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Driver{drv: drv}, nil
}

// DB returns the underlying database handle.
func (d *Driver) DB() *sql.DB {
	return d.drv.DB()
}

// PutSession stores a new session.
func (d *Driver) PutSession(ctx context.Context, session *storage.Session) error {
	if session == nil {
		return storage.ErrNilSession
	}

	insert := d.builder().Insert(sessionsTable).
		Columns("id", "source", "started_at").
		Values(session.ID.String(), session.Source, session.StartedAt.UTC())

	if err := exec(ctx, d.drv, insert); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// Append stores a record after checking that its session exists.
func (d *Driver) Append(ctx context.Context, record *storage.Record) error {
	if record == nil {
		return storage.ErrNilRecord
	}

	tx, err := d.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := d.sessionExists(ctx, tx, record.SessionID); err != nil {
		return err
	}

	insert := d.builder().Insert(recordsTable).
		Columns("session_id", "seq", "event_id", "event_type", "data", "retry", "received_at").
		Values(
			record.SessionID.String(),
			record.Seq,
			record.Event.ID,
			record.Event.Type,
			record.Event.Data,
			record.Event.Retry,
			record.ReceivedAt.UTC(),
		)

	if err := exec(ctx, tx, insert); err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit record: %w", err)
	}

	return nil
}

// Records returns a session's records ordered by seq.
func (d *Driver) Records(ctx context.Context, sessionID uuid.UUID) ([]*storage.Record, error) {
	tx, err := d.drv.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // nothing to commit

	if err := d.sessionExists(ctx, tx, sessionID); err != nil {
		return nil, err
	}

	selector := d.builder().
		Select("seq", "event_id", "event_type", "data", "retry", "received_at").
		From(entsql.Table(recordsTable)).
		Where(entsql.EQ("session_id", sessionID.String())).
		OrderBy("seq")

	rows, err := query(ctx, tx, selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var result []*storage.Record
	for rows.Next() {
		r := &storage.Record{SessionID: sessionID}
		if err := rows.Scan(
			&r.Seq,
			&r.Event.ID,
			&r.Event.Type,
			&r.Event.Data,
			&r.Event.Retry,
			(*timestamp)(&r.ReceivedAt),
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	return result, nil
}

// Sessions returns all sessions with their event counts, oldest first.
func (d *Driver) Sessions(ctx context.Context) ([]*storage.Session, error) {
	s := entsql.Table(sessionsTable).As("s")
	r := entsql.Table(recordsTable).As("r")

	selector := d.builder().
		Select(s.C("id"), s.C("source"), s.C("started_at"), entsql.Count(r.C("seq"))).
		From(s).
		LeftJoin(r).
		On(s.C("id"), r.C("session_id")).
		GroupBy(s.C("id"), s.C("source"), s.C("started_at")).
		OrderBy(s.C("started_at"), s.C("id"))

	rows, err := query(ctx, d.drv, selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var result []*storage.Session
	for rows.Next() {
		var (
			id      string
			session storage.Session
		)
		if err := rows.Scan(&id, &session.Source, (*timestamp)(&session.StartedAt), &session.EventCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if session.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid session id %q: %w", id, err)
		}
		result = append(result, &session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}

	return result, nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.drv.Close()
}

func (d *Driver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(d.drv.Dialect())
}

func (d *Driver) sessionExists(ctx context.Context, tx dialect.Tx, id uuid.UUID) error {
	selector := d.builder().
		Select("id").
		From(entsql.Table(sessionsTable)).
		Where(entsql.EQ("id", id.String()))

	rows, err := query(ctx, tx, selector)
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to check session: %w", err)
		}
		return storage.NotFoundError{SessionID: id}
	}

	return nil
}

func exec(ctx context.Context, conn dialect.ExecQuerier, b entsql.Querier) error {
	stmt, args := b.Query()
	return conn.Exec(ctx, stmt, args, nil)
}

func query(ctx context.Context, conn dialect.ExecQuerier, b entsql.Querier) (*entsql.Rows, error) {
	stmt, args := b.Query()
	rows := &entsql.Rows{}
	if err := conn.Query(ctx, stmt, args, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// timestamp scans time columns from drivers that return time.Time as well as
// from those that hand back the stored text.
type timestamp time.Time

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
}

func (t *timestamp) Scan(src any) error {
	var text string
	switch v := src.(type) {
	case time.Time:
		*t = timestamp(v)
		return nil
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			*t = timestamp(parsed)
			return nil
		}
	}
	return fmt.Errorf("cannot parse timestamp %q", text)
}
