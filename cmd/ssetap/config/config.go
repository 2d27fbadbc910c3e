// Package configcmder provides the config command for managing persistent
// ssetap configuration stored in the .ssetap/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ssetap/pkg/cliui"
	"github.com/papercomputeco/ssetap/pkg/config"
)

const configLongDesc string = `Manage persistent ssetap configuration.

Configuration is stored as config.toml in the .ssetap/ directory and provides
default values for command flags. CLI flags and SSETAP_ environment variables
take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  stream.url, stream.method, stream.content_type, stream.body,
  stream.encoding, stream.follow_redirects,
  storage.sqlite_path, storage.postgres_dsn,
  publish.provider, publish.brokers, publish.topic,
  replay.listen

Use subcommands to get, set, or list configuration values:
  ssetap config set <key> <value>    Set a configuration value
  ssetap config get <key>            Get a configuration value
  ssetap config list                 List all configuration values

Examples:
  ssetap config set stream.url http://localhost:5000/stream
  ssetap config set publish.brokers localhost:9092,localhost:9093
  ssetap config get stream.method
  ssetap config list`

const configShortDesc string = "Manage persistent ssetap configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func unknownKeyError(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

func printTarget(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
