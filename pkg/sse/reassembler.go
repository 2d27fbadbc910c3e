package sse

import (
	"bytes"
	"errors"
	"io"
)

const (
	// defaultReadSize is the transport read buffer size. Each Read result is
	// one chunk.
	defaultReadSize = 4096

	// maxEmptyReads bounds consecutive zero-byte, nil-error reads before the
	// transport is considered stuck (same limit as bufio).
	maxEmptyReads = 100
)

// frameTerminators are the byte sequences that end a frame: two consecutive
// line breaks in any of the SSE line ending styles.
var frameTerminators = [][]byte{
	[]byte("\r\r"),
	[]byte("\n\n"),
	[]byte("\r\n\r\n"),
}

// Reassembler re-segments an arbitrarily chunked byte stream into frames.
// A frame is the raw bytes of one event including its blank-line terminator.
//
// The carry buffer is checked after every appended line rather than scanned
// for a delimiter, so a terminator split across two chunks is still found.
//
// A Reassembler is single-pass: once Next has returned an error (including
// io.EOF) every later call returns that same error.
type Reassembler struct {
	src io.Reader
	buf []byte

	// carry holds bytes received since the last emitted frame.
	carry []byte

	// pending holds frames completed by the last chunk but not yet returned.
	pending [][]byte

	err error
}

// NewReassembler returns a Reassembler reading chunks from src. readSize is
// the maximum chunk size per Read; values <= 0 select the default.
func NewReassembler(src io.Reader, readSize int) *Reassembler {
	if readSize <= 0 {
		readSize = defaultReadSize
	}

	return &Reassembler{
		src: src,
		buf: make([]byte, readSize),
	}
}

// Next returns the next complete frame, reading from the transport only as
// much as needed. When the transport is exhausted any leftover carry is
// returned as a final frame, then io.EOF. Transport failures are returned
// as *TransportError.
func (r *Reassembler) Next() ([]byte, error) {
	emptyReads := 0

	for len(r.pending) == 0 {
		if r.err != nil {
			return nil, r.err
		}

		n, err := r.src.Read(r.buf)
		if n > 0 {
			emptyReads = 0
			r.feed(r.buf[:n])
		}

		switch {
		case err == nil && n == 0:
			emptyReads++
			if emptyReads >= maxEmptyReads {
				r.err = &TransportError{Err: io.ErrNoProgress}
			}
		case errors.Is(err, io.EOF):
			if len(r.carry) > 0 {
				r.pending = append(r.pending, r.carry)
				r.carry = nil
			}
			r.err = io.EOF
		case err != nil:
			r.err = &TransportError{Err: err}
		}
	}

	frame := r.pending[0]
	r.pending[0] = nil
	r.pending = r.pending[1:]

	return frame, nil
}

// Buffered returns the number of carried bytes not yet part of a frame.
func (r *Reassembler) Buffered() int {
	return len(r.carry)
}

// feed splits chunk into lines, keeping their terminators, and appends them
// to the carry one at a time.
func (r *Reassembler) feed(chunk []byte) {
	for len(chunk) > 0 {
		n := lineLen(chunk)
		r.carry = append(r.carry, chunk[:n]...)
		chunk = chunk[n:]

		if endsFrame(r.carry) {
			r.pending = append(r.pending, r.carry)
			// A fresh carry keeps emitted frames from sharing a backing array.
			r.carry = nil
		}
	}
}

// lineLen returns the length of the first line in b including its
// terminator. "\r\n" counts as one terminator only when both bytes are in b.
func lineLen(b []byte) int {
	i := bytes.IndexAny(b, "\r\n")
	if i < 0 {
		return len(b)
	}

	if b[i] == '\r' && i+1 < len(b) && b[i+1] == '\n' {
		return i + 2
	}

	return i + 1
}

func endsFrame(b []byte) bool {
	for _, t := range frameTerminators {
		if bytes.HasSuffix(b, t) {
			return true
		}
	}
	return false
}
