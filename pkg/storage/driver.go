// Package storage records received server-sent events, grouped into sessions.
// A session is one connection to one stream source.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/ssetap/pkg/sse"
)

// Session is one recorded connection.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Source    string    `json:"source"`
	StartedAt time.Time `json:"started_at"`

	// EventCount is filled in by Sessions and ignored by PutSession.
	EventCount int `json:"event_count"`
}

// NewSession returns a session with a fresh random id.
func NewSession(source string, startedAt time.Time) *Session {
	return &Session{
		ID:        uuid.New(),
		Source:    source,
		StartedAt: startedAt,
	}
}

// Record is one event received within a session. Seq starts at 1 and
// follows the order in which the stream produced events.
type Record struct {
	SessionID  uuid.UUID
	Seq        int64
	Event      sse.Event
	ReceivedAt time.Time
}

// Driver defines the interface for persisting and retrieving recorded
// sessions in a storage backend.
type Driver interface {
	// PutSession stores a new session. Storing an id twice is an error.
	PutSession(ctx context.Context, session *Session) error

	// Append stores a record. The session must exist and (SessionID, Seq)
	// must be unused.
	Append(ctx context.Context, record *Record) error

	// Records returns every record of a session ordered by Seq. Returns a
	// NotFoundError if the session does not exist.
	Records(ctx context.Context, sessionID uuid.UUID) ([]*Record, error)

	// Sessions returns all sessions, oldest first.
	Sessions(ctx context.Context) ([]*Session, error)

	// Close closes the store and releases any resources.
	Close() error
}
