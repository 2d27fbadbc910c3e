package eventstreamutils

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/ssetap/pkg/config"
	"github.com/papercomputeco/ssetap/pkg/eventstream"
	"github.com/papercomputeco/ssetap/pkg/eventstream/kafka"
	"github.com/papercomputeco/ssetap/pkg/eventstream/nop"
)

type NewPublisherOpts struct {
	ProviderType string
	Brokers      []string
	Topic        string
	Logger       *slog.Logger
}

// NewPublisher builds the configured publisher. Brokers without a provider
// imply Kafka. It returns nil, nil when publishing is off.
func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	provider := o.ProviderType
	if provider == "" && len(o.Brokers) > 0 {
		provider = config.ProviderKafka
	}

	switch provider {
	case "":
		return nil, nil

	case config.ProviderNop:
		logger.Info("using nop publisher")
		return nop.NewPublisher(), nil

	case config.ProviderKafka:
		publisher, err := kafka.NewPublisher(kafka.Config{
			Brokers: o.Brokers,
			Topic:   o.Topic,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
		}
		logger.Info("publishing to Kafka",
			"brokers", strings.Join(o.Brokers, ","),
			"topic", o.Topic,
		)
		return publisher, nil

	default:
		return nil, fmt.Errorf("unsupported publisher %q (supported: %s)",
			provider, strings.Join(config.PublishProviders, ", "))
	}
}
