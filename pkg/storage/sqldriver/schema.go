package sqldriver

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	sessionsTable = "sessions"
	recordsTable  = "records"
)

var (
	// SessionsColumns holds the columns for the "sessions" table.
	SessionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "source", Type: field.TypeString, Size: 2048},
		{Name: "started_at", Type: field.TypeTime},
	}
	// SessionsTable holds the schema information for the "sessions" table.
	SessionsTable = &schema.Table{
		Name:       sessionsTable,
		Columns:    SessionsColumns,
		PrimaryKey: []*schema.Column{SessionsColumns[0]},
	}

	// RecordsColumns holds the columns for the "records" table.
	RecordsColumns = []*schema.Column{
		{Name: "session_id", Type: field.TypeString, Size: 36},
		{Name: "seq", Type: field.TypeInt64},
		{Name: "event_id", Type: field.TypeString, Default: ""},
		{Name: "event_type", Type: field.TypeString},
		{Name: "data", Type: field.TypeString, Size: 2147483647},
		{Name: "retry", Type: field.TypeString, Default: ""},
		{Name: "received_at", Type: field.TypeTime},
	}
	// RecordsTable holds the schema information for the "records" table.
	RecordsTable = &schema.Table{
		Name:       recordsTable,
		Columns:    RecordsColumns,
		PrimaryKey: []*schema.Column{RecordsColumns[0], RecordsColumns[1]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "records_sessions_records",
				Columns:    []*schema.Column{RecordsColumns[0]},
				RefColumns: []*schema.Column{SessionsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	// Tables holds all the tables in the schema, in creation order.
	Tables = []*schema.Table{
		SessionsTable,
		RecordsTable,
	}
)

func init() {
	RecordsTable.ForeignKeys[0].RefTable = SessionsTable
}
