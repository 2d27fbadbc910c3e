// Package inmemory provides a map-backed storage.Driver for tests and
// for "ssetap listen" runs that record nothing to disk.
package inmemory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/papercomputeco/ssetap/pkg/storage"
)

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	// mu is a read write sync mutex guarding sessions and records
	mu sync.RWMutex

	sessions map[uuid.UUID]*storage.Session

	// records holds each session's records keyed by seq
	records map[uuid.UUID]map[int64]*storage.Record
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		sessions: make(map[uuid.UUID]*storage.Session),
		records:  make(map[uuid.UUID]map[int64]*storage.Record),
	}
}

// PutSession stores a copy of session.
func (d *Driver) PutSession(_ context.Context, session *storage.Session) error {
	if session == nil {
		return storage.ErrNilSession
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.sessions[session.ID]; ok {
		return fmt.Errorf("session %s already exists", session.ID)
	}

	s := *session
	s.EventCount = 0
	d.sessions[s.ID] = &s
	d.records[s.ID] = make(map[int64]*storage.Record)

	return nil
}

// Append stores a copy of record.
func (d *Driver) Append(_ context.Context, record *storage.Record) error {
	if record == nil {
		return storage.ErrNilRecord
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	records, ok := d.records[record.SessionID]
	if !ok {
		return storage.NotFoundError{SessionID: record.SessionID}
	}
	if _, dup := records[record.Seq]; dup {
		return fmt.Errorf("record %d of session %s already exists", record.Seq, record.SessionID)
	}

	r := *record
	records[r.Seq] = &r

	return nil
}

// Records returns copies of a session's records ordered by seq.
func (d *Driver) Records(_ context.Context, sessionID uuid.UUID) ([]*storage.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	records, ok := d.records[sessionID]
	if !ok {
		return nil, storage.NotFoundError{SessionID: sessionID}
	}

	result := make([]*storage.Record, 0, len(records))
	for _, r := range records {
		c := *r
		result = append(result, &c)
	}
	slices.SortFunc(result, func(a, b *storage.Record) int {
		return cmp.Compare(a.Seq, b.Seq)
	})

	return result, nil
}

// Sessions returns copies of all sessions ordered by start time.
func (d *Driver) Sessions(_ context.Context) ([]*storage.Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*storage.Session, 0, len(d.sessions))
	for id, s := range d.sessions {
		c := *s
		c.EventCount = len(d.records[id])
		result = append(result, &c)
	}
	slices.SortFunc(result, func(a, b *storage.Session) int {
		if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	return result, nil
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}
