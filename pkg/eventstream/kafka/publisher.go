// Package kafka publishes event envelopes to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/ssetap/pkg/eventstream"
)

const defaultBatchTimeout = 50 * time.Millisecond

// Config configures a Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string

	// BatchTimeout bounds how long the writer waits to fill a batch.
	// Defaults to 50ms; kafka-go's own default of 1s delays live taps.
	BatchTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes each envelope as one JSON message keyed by session id,
// so all events of a session land on the same partition in order.
type Publisher struct {
	writer messageWriter
	topic  string
}

// NewPublisher creates a publisher backed by a kafka-go Writer.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka publisher requires a topic")
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = defaultBatchTimeout
	}

	return newPublisher(&kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           batchTimeout,
	}, cfg.Topic), nil
}

func newPublisher(w messageWriter, topic string) *Publisher {
	return &Publisher{writer: w, topic: topic}
}

// Publish marshals event and writes it synchronously.
func (p *Publisher) Publish(ctx context.Context, event *eventstream.EventEnvelope) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event envelope: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.SessionID),
		Value: value,
		Time:  event.ReceivedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_version", Value: []byte(strconv.Itoa(event.SchemaVersion))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing to kafka topic %s: %w", p.topic, err)
	}

	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
