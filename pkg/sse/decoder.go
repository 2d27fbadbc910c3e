package sse

import (
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
)

// ErrInvalidUTF8 is wrapped by a DecodeError when a line is not valid UTF-8
// under the default encoding.
var ErrInvalidUTF8 = errors.New("invalid UTF-8")

// field is an SSE field name. Only the four names below are recognized;
// matching is exact and case-sensitive.
type field string

const (
	fieldID    field = "id"
	fieldEvent field = "event"
	fieldData  field = "data"
	fieldRetry field = "retry"
)

// Decoder parses a single frame into an Event.
// A Decoder holds no state between frames and may be reused.
type Decoder struct {
	enc    encoding.Encoding
	logger *slog.Logger
}

// NewDecoder returns a Decoder. Only WithEncoding and WithLogger apply.
func NewDecoder(opts ...Option) *Decoder {
	o := newOptions(opts)
	return &Decoder{
		enc:    o.encoding,
		logger: o.logger,
	}
}

// Decode parses frame into an Event.
//
// Decode returns nil, nil when the frame produces no data (comment-only
// frames, keep-alives, or frames carrying only id/event/retry). Callers must
// treat that as a skip. Lines that cannot be decoded under the configured
// encoding produce a *DecodeError; every other malformation is tolerated.
func (d *Decoder) Decode(frame []byte) (*Event, error) {
	var (
		ev   Event
		data strings.Builder
	)

	for i, raw := range splitLines(frame) {
		line, err := d.decodeLine(raw)
		if err != nil {
			return nil, &DecodeError{Line: i, Err: err}
		}

		// Blank lines and lines starting with ':' are comments.
		if line == "" || line[0] == ':' {
			continue
		}

		// A line without ':' is a field name with an empty value.
		name, value, _ := strings.Cut(line, ":")

		// Only a single leading space is stripped.
		value = strings.TrimPrefix(value, " ")

		switch field(name) {
		case fieldData:
			data.WriteString(value)
			data.WriteByte('\n')
		case fieldEvent:
			ev.Type = value
		case fieldID:
			ev.ID = value
		case fieldRetry:
			ev.Retry = value
		default:
			d.logger.Debug("ignoring unknown sse field",
				"field", name,
				"line", i,
			)
		}
	}

	ev.Data = strings.TrimSuffix(data.String(), "\n")
	if ev.Data == "" {
		return nil, nil
	}

	if ev.Type == "" {
		ev.Type = DefaultEventType
	}

	return &ev, nil
}

func (d *Decoder) decodeLine(raw []byte) (string, error) {
	if d.enc == nil {
		if !utf8.Valid(raw) {
			return "", ErrInvalidUTF8
		}
		return string(raw), nil
	}

	decoded, err := d.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// splitLines splits frame on "\r\n", "\r" and "\n", dropping the
// terminators. A trailing line without a terminator is kept.
func splitLines(frame []byte) [][]byte {
	var lines [][]byte

	for len(frame) > 0 {
		n := lineLen(frame)
		line := frame[:n]
		switch {
		case len(line) >= 2 && line[n-2] == '\r' && line[n-1] == '\n':
			line = line[:n-2]
		case line[n-1] == '\r' || line[n-1] == '\n':
			line = line[:n-1]
		}

		lines = append(lines, line)
		frame = frame[n:]
	}

	return lines
}
