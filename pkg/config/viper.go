package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/ssetap/pkg/dotdir"
)

// EnvPrefix prefixes every environment variable read by InitViper.
const EnvPrefix = "SSETAP"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the SSETAP_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (SSETAP_STREAM_URL, SSETAP_REPLAY_LISTEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper builds a Config from the resolved viper values.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Stream: StreamConfig{
			URL:            v.GetString("stream.url"),
			Method:         strings.ToUpper(v.GetString("stream.method")),
			ContentType:    v.GetString("stream.content_type"),
			Body:           v.GetString("stream.body"),
			Encoding:       v.GetString("stream.encoding"),
			FollowRedirect: v.GetBool("stream.follow_redirects"),
		},
		Storage: StorageConfig{
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		Publish: PublishConfig{
			Provider: v.GetString("publish.provider"),
			// Env values arrive whitespace split, flags and TOML arrays
			// arrive as lists; both may still hold commas.
			Brokers: SplitList(strings.Join(v.GetStringSlice("publish.brokers"), ",")),
			Topic:   v.GetString("publish.topic"),
		},
		Replay: ReplayConfig{
			Listen: v.GetString("replay.listen"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("stream.url", d.Stream.URL)
	v.SetDefault("stream.method", d.Stream.Method)
	v.SetDefault("stream.content_type", d.Stream.ContentType)
	v.SetDefault("stream.body", d.Stream.Body)
	v.SetDefault("stream.encoding", d.Stream.Encoding)
	v.SetDefault("stream.follow_redirects", d.Stream.FollowRedirect)

	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	v.SetDefault("publish.provider", d.Publish.Provider)
	v.SetDefault("publish.brokers", d.Publish.Brokers)
	v.SetDefault("publish.topic", d.Publish.Topic)

	v.SetDefault("replay.listen", d.Replay.Listen)
}
