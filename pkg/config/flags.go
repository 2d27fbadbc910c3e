package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline, so --sqlite means the same
// thing on "ssetap listen" and "ssetap replay".
type Flag struct {
	// Name is the long flag name (e.g. "sqlite").
	Name string

	// Shorthand is the one-letter short flag (e.g. "s"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "storage.sqlite_path").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling the Add*Flag helpers and
// BindRegisteredFlags to avoid drift from one command to another.
const (
	FlagMethod          = "method"
	FlagContentType     = "content-type"
	FlagBody            = "body"
	FlagEncoding        = "encoding"
	FlagFollowRedirects = "follow-redirects"
	FlagSQLite          = "sqlite"
	FlagPostgres        = "postgres"
	FlagPublisher       = "publisher"
	FlagKafkaBrokers    = "kafka-brokers"
	FlagKafkaTopic      = "kafka-topic"
	FlagReplayListen    = "listen"
)

// Flags is the registry shared by every ssetap command.
var Flags = FlagSet{
	FlagMethod: {
		Name:        "method",
		Shorthand:   "X",
		ViperKey:    "stream.method",
		Description: "HTTP method used to open the stream",
	},
	FlagContentType: {
		Name:        "content-type",
		ViperKey:    "stream.content_type",
		Description: "Content-Type sent with a request body",
	},
	FlagBody: {
		Name:        "body",
		Shorthand:   "b",
		ViperKey:    "stream.body",
		Description: "Request body sent when opening the stream",
	},
	FlagEncoding: {
		Name:        "encoding",
		ViperKey:    "stream.encoding",
		Description: "Text encoding of the stream (WHATWG label, e.g. utf-8, latin1)",
	},
	FlagFollowRedirects: {
		Name:        "follow-redirects",
		ViperKey:    "stream.follow_redirects",
		Description: "Follow HTTP redirects when opening the stream",
	},
	FlagSQLite: {
		Name:        "sqlite",
		Shorthand:   "s",
		ViperKey:    "storage.sqlite_path",
		Description: "Path to SQLite database for recorded sessions",
	},
	FlagPostgres: {
		Name:        "postgres",
		ViperKey:    "storage.postgres_dsn",
		Description: "PostgreSQL connection string for recorded sessions",
	},
	FlagPublisher: {
		Name:        "publisher",
		ViperKey:    "publish.provider",
		Description: "Event publisher (kafka, nop)",
	},
	FlagKafkaBrokers: {
		Name:        "kafka-brokers",
		ViperKey:    "publish.brokers",
		Description: "Kafka broker addresses",
	},
	FlagKafkaTopic: {
		Name:        "kafka-topic",
		ViperKey:    "publish.topic",
		Description: "Kafka topic for published events",
	},
	FlagReplayListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "replay.listen",
		Description: "Address for the replay server to listen on",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, key string, target *bool) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddStringSliceFlag registers a comma separated list flag on cmd from the
// given FlagSet.
func AddStringSliceFlag(cmd *cobra.Command, fs FlagSet, key string, target *[]string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetStringSlice(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringSliceVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringSliceVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaults returns a viper instance holding only NewDefaultConfig values.
func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}
