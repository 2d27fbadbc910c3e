// Package eventstream publishes received events to an event stream backend.
package eventstream

import "context"

// Publisher publishes event envelopes to an event stream backend.
type Publisher interface {
	Publish(ctx context.Context, event *EventEnvelope) error
	Close() error
}
