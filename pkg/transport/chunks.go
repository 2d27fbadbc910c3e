// Package transport provides byte-chunk sources for sse.Stream: an HTTP
// response opener, a file follower that waits for new writes, and a fixed
// in-memory chunk source.
//
// Every source is an io.ReadCloser. Each Read result is one chunk; sources
// make no attempt to align chunks with event boundaries.
package transport

import (
	"io"
	"slices"
	"sync/atomic"
)

// ChunkReader replays a fixed sequence of chunks, at most one chunk per
// Read. It is the in-memory counterpart of a streaming HTTP body.
type ChunkReader struct {
	chunks [][]byte
	closed atomic.Bool
	closes atomic.Int32
}

// Chunks returns a ChunkReader over the given chunks. Empty chunks are
// skipped. The outer slice is copied so reading never mutates the caller's
// slice; the chunk bytes are shared and never written.
func Chunks(chunks ...[]byte) *ChunkReader {
	return &ChunkReader{chunks: slices.Clone(chunks)}
}

// StringChunks is Chunks for string literals.
func StringChunks(chunks ...string) *ChunkReader {
	b := make([][]byte, len(chunks))
	for i, c := range chunks {
		b[i] = []byte(c)
	}
	return Chunks(b...)
}

// Read copies from the current chunk. A chunk larger than p is delivered
// over several reads.
func (c *ChunkReader) Read(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, io.ErrClosedPipe
	}

	for len(c.chunks) > 0 && len(c.chunks[0]) == 0 {
		c.chunks = c.chunks[1:]
	}

	if len(c.chunks) == 0 {
		return 0, io.EOF
	}

	n := copy(p, c.chunks[0])
	c.chunks[0] = c.chunks[0][n:]

	return n, nil
}

// Close marks the reader closed. Later reads fail.
func (c *ChunkReader) Close() error {
	c.closed.Store(true)
	c.closes.Add(1)
	return nil
}

// Closes reports how many times Close was called.
func (c *ChunkReader) Closes() int {
	return int(c.closes.Load())
}
