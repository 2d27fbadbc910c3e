// Package ssetapcmder
package ssetapcmder

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/ssetap/cmd/ssetap/cmdlog"
	configcmder "github.com/papercomputeco/ssetap/cmd/ssetap/config"
	listencmder "github.com/papercomputeco/ssetap/cmd/ssetap/listen"
	parsecmder "github.com/papercomputeco/ssetap/cmd/ssetap/parse"
	replaycmder "github.com/papercomputeco/ssetap/cmd/ssetap/replay"
	versioncmder "github.com/papercomputeco/ssetap/cmd/version"
)

const ssetapLongDesc string = `ssetap taps Server-Sent Event streams.

It opens a text/event-stream, prints every event as it arrives, and can
record sessions to SQLite or PostgreSQL and publish events to Kafka.

  ssetap listen <url>     Open an HTTP stream and print its events
  ssetap parse <file>     Decode a captured stream from a file or stdin
  ssetap replay           Serve recorded sessions as event streams
  ssetap config           Manage persistent configuration`

const ssetapShortDesc string = "ssetap - Server-Sent Events tap"

func NewSSETapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ssetap",
		Short:         ssetapShortDesc,
		Long:          ssetapLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .ssetap/ config directory")
	cmd.PersistentFlags().String(cmdlog.FlagName, "", "Also append JSON logs to this file")

	// Add subcommands
	cmd.AddCommand(listencmder.NewListenCmd())
	cmd.AddCommand(parsecmder.NewParseCmd())
	cmd.AddCommand(replaycmder.NewReplayCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
