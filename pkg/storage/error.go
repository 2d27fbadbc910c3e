package storage

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNilSession and ErrNilRecord reject nil arguments to a Driver.
var (
	ErrNilSession = errors.New("cannot store nil session")
	ErrNilRecord  = errors.New("cannot store nil record")
)

// NotFoundError is returned when a session doesn't exist in the store.
type NotFoundError struct {
	SessionID uuid.UUID
}

func (e NotFoundError) Error() string {
	if e.SessionID == uuid.Nil {
		return "session not found"
	}

	return "session not found: " + e.SessionID.String()
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
