// Package tap drives an sse.Stream end to end: it numbers each event, hands
// it to a caller supplied handler, and queues it for recording and
// publishing on a worker pool.
package tap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/ssetap/pkg/sse"
	"github.com/papercomputeco/ssetap/pkg/storage"
	"github.com/papercomputeco/ssetap/tap/worker"
)

// Handler is called synchronously for every event in stream order. seq
// starts at 1. Returning an error stops the tap.
type Handler func(seq int64, ev *sse.Event) error

// Summary describes a finished Run.
type Summary struct {
	SessionID uuid.UUID `json:"session_id"`
	Source    string    `json:"source"`
	StartedAt time.Time `json:"started_at"`

	Events int64 `json:"events"`

	// FirstEvent is the time from Run start to the first decoded event.
	// Zero when the stream produced no events.
	FirstEvent time.Duration `json:"first_event_ns"`
	Duration   time.Duration `json:"duration_ns"`

	// Dropped counts events that did not fit in the worker queue.
	Dropped   int64  `json:"dropped"`
	Stored    uint64 `json:"stored"`
	Published uint64 `json:"published"`
	Failed    uint64 `json:"failed"`

	// Recorded is true when the session was written to a storage driver.
	Recorded bool `json:"recorded"`
}

// Tap reads event streams. A Tap may Run any number of streams, one session
// each.
type Tap struct {
	config Config
	logger *slog.Logger
}

// New creates a new Tap.
func New(config Config, logger *slog.Logger) *Tap {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Tap{
		config: config,
		logger: logger,
	}
}

// Run reads events from transport until the stream ends, fails, handle
// returns an error, or ctx is cancelled. Run owns transport and always
// closes it.
//
// The returned Summary is non-nil whenever the session was started, even when
// an error is returned. A cancelled ctx yields ctx.Err().
func (t *Tap) Run(ctx context.Context, transport io.ReadCloser, handle Handler) (*Summary, error) {
	start := t.config.Now()
	session := storage.NewSession(t.config.Source, start)

	summary := &Summary{
		SessionID: session.ID,
		Source:    session.Source,
		StartedAt: start,
	}

	if t.config.Driver != nil {
		if err := t.config.Driver.PutSession(ctx, session); err != nil {
			transport.Close()
			return nil, fmt.Errorf("creating session: %w", err)
		}
		summary.Recorded = true
	}

	var pool *worker.Pool
	if t.config.Driver != nil || t.config.Publisher != nil {
		var err error
		pool, err = worker.NewPool(&worker.Config{
			Driver:     t.config.Driver,
			Publisher:  t.config.Publisher,
			NumWorkers: t.config.NumWorkers,
			QueueSize:  t.config.QueueSize,
			Logger:     t.logger,
		})
		if err != nil {
			transport.Close()
			return nil, fmt.Errorf("creating worker pool: %w", err)
		}
	}

	opts := append([]sse.Option{sse.WithLogger(t.logger)}, t.config.StreamOptions...)
	stream := sse.NewStream(transport, opts...)

	// Cancelling ctx closes the stream, which ends a blocked Next.
	stop := context.AfterFunc(ctx, func() { stream.Close() })

	t.logger.Debug("tap started",
		"session_id", session.ID,
		"source", session.Source,
	)

	runErr := t.drain(stream, session, summary, pool, handle)

	if !stop() && runErr == nil {
		runErr = ctx.Err()
	}
	if err := stream.Close(); err != nil {
		t.logger.Debug("closing transport", "error", err)
	}

	if pool != nil {
		pool.Close()
		stats := pool.Stats()
		summary.Stored = stats.Stored
		summary.Published = stats.Published
		summary.Failed = stats.Failed
	}

	summary.Duration = t.config.Now().Sub(start)

	t.logger.Debug("tap finished",
		"session_id", session.ID,
		"events", summary.Events,
		"dropped", summary.Dropped,
		"duration", summary.Duration,
	)

	return summary, runErr
}

func (t *Tap) drain(stream *sse.Stream, session *storage.Session, summary *Summary, pool *worker.Pool, handle Handler) error {
	for {
		ev, err := stream.Next()
		if err != nil {
			return err
		}
		if ev == nil {
			return nil
		}

		received := t.config.Now()
		summary.Events++
		seq := summary.Events
		if seq == 1 {
			summary.FirstEvent = received.Sub(summary.StartedAt)
		}

		if pool != nil {
			ok := pool.Enqueue(worker.Job{
				Source: session.Source,
				Record: &storage.Record{
					SessionID:  session.ID,
					Seq:        seq,
					Event:      *ev,
					ReceivedAt: received,
				},
			})
			if !ok {
				summary.Dropped++
			}
		}

		if handle != nil {
			if err := handle(seq, ev); err != nil {
				return err
			}
		}
	}
}
