package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent ssetap configuration stored as config.toml
// in the .ssetap/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int           `toml:"version"`
	Stream  StreamConfig  `toml:"stream"`
	Storage StorageConfig `toml:"storage"`
	Publish PublishConfig `toml:"publish"`
	Replay  ReplayConfig  `toml:"replay"`
}

// StreamConfig describes the request that opens an event stream for
// "ssetap listen".
type StreamConfig struct {
	URL            string `toml:"url,omitempty"`
	Method         string `toml:"method,omitempty"`
	ContentType    string `toml:"content_type,omitempty"`
	Body           string `toml:"body,omitempty"`
	Encoding       string `toml:"encoding,omitempty"`
	FollowRedirect bool   `toml:"follow_redirects,omitempty"`
}

// StorageConfig selects where received events are recorded. When both are
// empty nothing is recorded.
type StorageConfig struct {
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// PublishConfig configures the event publisher.
type PublishConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// ReplayConfig holds replay server settings.
type ReplayConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"stream.url": {
		get: func(c *Config) string { return c.Stream.URL },
		set: func(c *Config, v string) error { c.Stream.URL = v; return nil },
	},
	"stream.method": {
		get: func(c *Config) string { return c.Stream.Method },
		set: func(c *Config, v string) error { c.Stream.Method = strings.ToUpper(v); return nil },
	},
	"stream.content_type": {
		get: func(c *Config) string { return c.Stream.ContentType },
		set: func(c *Config, v string) error { c.Stream.ContentType = v; return nil },
	},
	"stream.body": {
		get: func(c *Config) string { return c.Stream.Body },
		set: func(c *Config, v string) error { c.Stream.Body = v; return nil },
	},
	"stream.encoding": {
		get: func(c *Config) string { return c.Stream.Encoding },
		set: func(c *Config, v string) error { c.Stream.Encoding = v; return nil },
	},
	"stream.follow_redirects": {
		get: func(c *Config) string { return strconv.FormatBool(c.Stream.FollowRedirect) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for stream.follow_redirects: %w", err)
			}
			c.Stream.FollowRedirect = b
			return nil
		},
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"publish.provider": {
		get: func(c *Config) string { return c.Publish.Provider },
		set: func(c *Config, v string) error {
			switch v {
			case "", ProviderKafka, ProviderNop:
				c.Publish.Provider = v
				return nil
			default:
				return fmt.Errorf("invalid value for publish.provider: %q (available: %s)", v, strings.Join(PublishProviders, ", "))
			}
		},
	},
	"publish.brokers": {
		get: func(c *Config) string { return strings.Join(c.Publish.Brokers, ",") },
		set: func(c *Config, v string) error { c.Publish.Brokers = SplitList(v); return nil },
	},
	"publish.topic": {
		get: func(c *Config) string { return c.Publish.Topic },
		set: func(c *Config, v string) error { c.Publish.Topic = v; return nil },
	},
	"replay.listen": {
		get: func(c *Config) string { return c.Replay.Listen },
		set: func(c *Config, v string) error { c.Replay.Listen = v; return nil },
	},
}

// SplitList splits a comma separated value, trimming spaces and dropping
// empty entries.
func SplitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
