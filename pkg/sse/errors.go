package sse

import "fmt"

// TransportError is returned when the underlying chunk source fails.
// It terminates the event sequence.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("sse transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a line of a frame cannot be decoded with the
// configured text encoding. Line is the zero-based line index in the frame.
type DecodeError struct {
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("sse decode: line %d: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
