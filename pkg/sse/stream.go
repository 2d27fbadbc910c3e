package sse

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"
	"sync/atomic"
)

// Stream reads Events from a transport. It pulls bytes only when the caller
// asks for the next event, holds one carry buffer, and owns the transport
// exclusively.
//
// ┌────────────────────┐
// │ transport (chunks) │
// └────────────────────┘
// │
// ▼
// ┌────────────────────┐   ┌──────────────────┐
// │    Reassembler     │──▶│ tee io.Writer    │
// └────────────────────┘   └──────────────────┘
// │ frames
// ▼
// ┌────────────────────┐
// │      Decoder       │
// └────────────────────┘
// │
// ▼
// ┌────────────────────┐
// │       Event        │
// └────────────────────┘
//
// A Stream is single-pass. Reading it again requires a fresh transport and a
// fresh Stream.
type Stream struct {
	transport io.ReadCloser
	frames    *Reassembler
	decoder   *Decoder
	tee       io.Writer

	// done is set once the sequence has ended, cleanly or not. Only the
	// goroutine calling Next touches it.
	done bool

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewStream returns a Stream decoding events from transport.
func NewStream(transport io.ReadCloser, opts ...Option) *Stream {
	o := newOptions(opts)

	return &Stream{
		transport: transport,
		frames:    NewReassembler(transport, o.readSize),
		decoder: &Decoder{
			enc:    o.encoding,
			logger: o.logger,
		},
		tee: o.tee,
	}
}

// Events returns a lazy sequence of the events on transport. The transport
// is closed when the sequence ends, fails, or the caller stops iterating.
func Events(transport io.ReadCloser, opts ...Option) iter.Seq2[*Event, error] {
	return NewStream(transport, opts...).All()
}

// Next returns the next event. It blocks until a complete event is
// available or the transport ends.
//
// Next returns nil, nil once the stream is exhausted or closed. A
// *TransportError or *DecodeError ends the sequence: it is returned once and
// every later call returns nil, nil. The transport is released as soon as
// the sequence ends.
func (s *Stream) Next() (*Event, error) {
	for {
		if s.done || s.closed.Load() {
			return nil, nil
		}

		frame, err := s.frames.Next()
		if err != nil {
			// Closing the transport mid-read surfaces as a read error;
			// that is a requested stop, not a failure. Sample before
			// finish, which closes the transport itself.
			wasClosed := s.closed.Load()
			s.finish()
			if errors.Is(err, io.EOF) || wasClosed {
				return nil, nil
			}
			return nil, err
		}

		if s.tee != nil {
			if _, err := s.tee.Write(frame); err != nil {
				s.finish()
				return nil, fmt.Errorf("writing sse tee: %w", err)
			}
		}

		ev, err := s.decoder.Decode(frame)
		if err != nil {
			s.finish()
			return nil, err
		}

		if ev == nil {
			continue
		}

		if s.closed.Load() {
			return nil, nil
		}

		return ev, nil
	}
}

// All returns the remaining events as an iterator. Iteration stops at the
// end of the stream, after yielding an error, or when the loop body breaks;
// in every case the transport is closed.
func (s *Stream) All() iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		defer s.Close()

		for {
			ev, err := s.Next()
			if err != nil {
				yield(nil, err)
				return
			}

			if ev == nil {
				return
			}

			if !yield(ev, nil) {
				return
			}
		}
	}
}

// Close releases the transport. It is safe to call more than once and from
// another goroutine while Next is blocked; Next then returns nil, nil.
// Only the first call can return an error.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		err = s.transport.Close()
	})
	return err
}

// Buffered returns the number of bytes received but not yet part of a
// complete frame.
func (s *Stream) Buffered() int {
	return s.frames.Buffered()
}

// finish ends the sequence and releases the transport.
func (s *Stream) finish() {
	s.done = true
	_ = s.Close()
}
