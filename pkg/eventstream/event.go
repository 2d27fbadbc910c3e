package eventstream

import (
	"time"

	"github.com/papercomputeco/ssetap/pkg/sse"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeReceived is emitted for every event decoded from a stream.
	EventTypeReceived = "ssetap.event.received"
)

// EventEnvelope is a transport-neutral payload for one received event.
type EventEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	SessionID     string       `json:"session_id"`
	Source        string       `json:"source"`
	Seq           int64        `json:"seq"`
	ReceivedAt    time.Time    `json:"received_at"`
	Event         EventPayload `json:"event"`
}

// EventPayload mirrors sse.Event.
type EventPayload struct {
	ID    string `json:"id,omitempty"`
	Type  string `json:"type"`
	Data  string `json:"data"`
	Retry string `json:"retry,omitempty"`
}

// NewEnvelope wraps ev for publishing.
func NewEnvelope(sessionID, source string, seq int64, receivedAt time.Time, ev sse.Event) *EventEnvelope {
	return &EventEnvelope{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeReceived,
		SessionID:     sessionID,
		Source:        source,
		Seq:           seq,
		ReceivedAt:    receivedAt,
		Event: EventPayload{
			ID:    ev.ID,
			Type:  ev.Type,
			Data:  ev.Data,
			Retry: ev.Retry,
		},
	}
}
