// Package worker provides an asynchronous worker pool that records received
// events with the provided storage.Driver and publishes them with the
// provided eventstream.Publisher.
//
// The pool decouples persistence from the tap's read loop so a slow database
// or broker never stalls the stream.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/papercomputeco/ssetap/pkg/eventstream"
	"github.com/papercomputeco/ssetap/pkg/storage"
)

var (
	// A single worker keeps publish order equal to stream order.
	defaultNumWorkers   uint = 1
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	// Source is the stream source recorded on the published envelope.
	Source string

	Record *storage.Record
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the optional storage backend for recorded events.
	Driver storage.Driver

	// Publisher is the optional event stream publisher.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool (defaults to 1).
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Stats counts job outcomes.
type Stats struct {
	Stored    uint64
	Published uint64
	Failed    uint64
}

// Pool processes record and publish jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	stored    atomic.Uint64
	published atomic.Uint64
	failed    atomic.Uint64
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"session_id", job.Record.SessionID,
			"seq", job.Record.Seq,
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"session_id", job.Record.SessionID,
			"seq", job.Record.Seq,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Enqueue must not be called after Close.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// Stats returns the job outcome counters. Call after Close for final values.
func (p *Pool) Stats() Stats {
	return Stats{
		Stored:    p.stored.Load(),
		Published: p.published.Load(),
		Failed:    p.failed.Load(),
	}
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

// processJob stores the record and then publishes it. A storage failure does
// not prevent publishing.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()
	r := job.Record

	if p.config.Driver != nil {
		if err := p.config.Driver.Append(ctx, r); err != nil {
			p.failed.Add(1)
			p.logger.Error("recording event failed",
				"session_id", r.SessionID,
				"seq", r.Seq,
				"error", err,
			)
		} else {
			p.stored.Add(1)
			p.logger.Debug("recorded event",
				"session_id", r.SessionID,
				"seq", r.Seq,
				"type", r.Event.Type,
			)
		}
	}

	if p.config.Publisher != nil {
		env := eventstream.NewEnvelope(r.SessionID.String(), job.Source, r.Seq, r.ReceivedAt, r.Event)
		if err := p.config.Publisher.Publish(ctx, env); err != nil {
			p.failed.Add(1)
			p.logger.Error("publishing event failed",
				"session_id", r.SessionID,
				"seq", r.Seq,
				"error", err,
			)
		} else {
			p.published.Add(1)
		}
	}
}
