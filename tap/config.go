package tap

import (
	"time"

	"github.com/papercomputeco/ssetap/pkg/eventstream"
	"github.com/papercomputeco/ssetap/pkg/sse"
	"github.com/papercomputeco/ssetap/pkg/storage"
)

// Config is the tap configuration.
type Config struct {
	// Source describes where the stream comes from (a URL or a file path).
	// It is stored with the session and on published envelopes.
	Source string

	// Driver is an optional storage backend. If nil, nothing is recorded.
	Driver storage.Driver

	// Publisher is an optional event publisher. If nil, nothing is published.
	Publisher eventstream.Publisher

	// StreamOptions are passed to sse.NewStream after the tap's own logger
	// option, so they may override it.
	StreamOptions []sse.Option

	// NumWorkers and QueueSize size the worker pool. Zero uses the pool
	// defaults.
	NumWorkers uint
	QueueSize  uint

	// Now is the clock used for timestamps. Defaults to time.Now.
	Now func() time.Time
}
