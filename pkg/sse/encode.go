package sse

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnencodable is returned when an event value contains bytes that cannot
// survive the wire format: a line break in ID, Type or Retry, or a carriage
// return in Data.
var ErrUnencodable = errors.New("value cannot be encoded as sse")

// Marshal returns the SSE wire form of ev, terminated by a blank line.
// Decoding the result yields an Event equal to ev (with Type defaulted).
func Marshal(ev *Event) ([]byte, error) {
	singleLine := []struct {
		name  field
		value string
	}{
		{fieldID, ev.ID},
		{fieldEvent, ev.Type},
		{fieldRetry, ev.Retry},
	}
	for _, f := range singleLine {
		if strings.ContainsAny(f.value, "\r\n") {
			return nil, fmt.Errorf("%w: line break in %s", ErrUnencodable, f.name)
		}
	}

	if strings.ContainsRune(ev.Data, '\r') {
		return nil, fmt.Errorf("%w: carriage return in data", ErrUnencodable)
	}

	var b strings.Builder
	if ev.ID != "" {
		writeField(&b, fieldID, ev.ID)
	}
	if ev.Type != "" && ev.Type != DefaultEventType {
		writeField(&b, fieldEvent, ev.Type)
	}
	if ev.Retry != "" {
		writeField(&b, fieldRetry, ev.Retry)
	}
	for line := range strings.SplitSeq(ev.Data, "\n") {
		writeField(&b, fieldData, line)
	}
	b.WriteByte('\n')

	return []byte(b.String()), nil
}

// Encode writes the SSE wire form of ev to w.
func Encode(w io.Writer, ev *Event) error {
	b, err := Marshal(ev)
	if err != nil {
		return err
	}

	_, err = w.Write(b)
	return err
}

// writeField always puts a space after the colon so values that start with
// a space keep it after decoding.
func writeField(b *strings.Builder, name field, value string) {
	b.WriteString(string(name))
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteByte('\n')
}
