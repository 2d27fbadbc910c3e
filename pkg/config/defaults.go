package config

// publish.provider values.
const (
	// ProviderKafka publishes every event to a Kafka topic.
	ProviderKafka = "kafka"

	// ProviderNop runs the publish path without sending anything.
	ProviderNop = "nop"
)

// PublishProviders lists the supported publish.provider values.
var PublishProviders = []string{ProviderKafka, ProviderNop}

const (
	defaultStreamMethod      = "POST"
	defaultStreamContentType = "application/vnd.api+json"
	defaultStreamEncoding    = "utf-8"

	defaultPublishTopic = "ssetap.events"

	defaultReplayListen = ":8082"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Stream: StreamConfig{
			Method:      defaultStreamMethod,
			ContentType: defaultStreamContentType,
			Encoding:    defaultStreamEncoding,
		},
		Publish: PublishConfig{
			Topic: defaultPublishTopic,
		},
		Replay: ReplayConfig{
			Listen: defaultReplayListen,
		},
	}
}
