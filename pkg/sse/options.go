package sse

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// Option configures a Decoder or Stream.
type Option func(*options)

type options struct {
	encoding encoding.Encoding
	logger   *slog.Logger
	readSize int
	tee      io.Writer
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	return o
}

// WithEncoding sets the text encoding used to decode frame lines.
// A nil encoding selects strict UTF-8, which is the default.
func WithEncoding(enc encoding.Encoding) Option {
	return func(o *options) {
		o.encoding = enc
	}
}

// WithLogger sets the logger used for diagnostics such as unknown fields.
// Defaults to a logger that discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithReadSize sets the size of the buffer used for each transport Read.
func WithReadSize(n int) Option {
	return func(o *options) {
		o.readSize = n
	}
}

// WithTee writes every frame, verbatim, to w before it is decoded.
// Concatenated, the frames are an exact copy of the transport bytes.
func WithTee(w io.Writer) Option {
	return func(o *options) {
		o.tee = w
	}
}

// ParseEncoding resolves a WHATWG encoding label such as "utf-8", "latin1" or
// "windows-1252". UTF-8 labels resolve to nil, which selects the strict UTF-8
// decoder: invalid bytes are reported instead of replaced.
func ParseEncoding(name string) (encoding.Encoding, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown text encoding %q: %w", name, err)
	}

	canonical, err := htmlindex.Name(enc)
	if err == nil && canonical == "utf-8" {
		return nil, nil
	}

	return enc, nil
}
