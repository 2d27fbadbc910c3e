// Package parsecmder provides the parse command, which decodes a captured
// event stream from a file or stdin.
package parsecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ssetap/cmd/ssetap/cmdlog"
	"github.com/papercomputeco/ssetap/cmd/ssetap/eventprint"
	"github.com/papercomputeco/ssetap/cmd/ssetap/sqlitepath"
	"github.com/papercomputeco/ssetap/pkg/cliui"
	"github.com/papercomputeco/ssetap/pkg/config"
	"github.com/papercomputeco/ssetap/pkg/sse"
	storageutils "github.com/papercomputeco/ssetap/pkg/storage/utils"
	"github.com/papercomputeco/ssetap/pkg/transport"
	"github.com/papercomputeco/ssetap/tap"
)

const stdinSource = "-"

type parseCommander struct {
	configDir string
	debug     bool
	logFile   string

	encoding    string
	sqlitePath  string
	postgresDSN string

	follow  bool
	record  bool
	jsonOut bool
	md      bool
	summary bool

	cfg    *config.Config
	logger *slog.Logger
}

const parseLongDesc string = `Decode a captured Server-Sent Events stream.

Reads the stream from a file, or from stdin when the file is "-" or omitted,
and prints every event. With --follow the file is tailed and new events are
printed as they are written, until interrupted.

Captures written by "ssetap listen --capture" or by curl -N can be parsed
directly. Parsed sessions can be recorded like live ones.

Examples:
  ssetap parse stream.txt
  curl -sN http://localhost:5000/stream | ssetap parse --json
  ssetap parse -f stream.txt --record`

const parseShortDesc string = "Decode a captured event stream from a file or stdin"

var parseFlags = []string{
	config.FlagEncoding,
	config.FlagSQLite,
	config.FlagPostgres,
}

func NewParseCmd() *cobra.Command {
	cmder := &parseCommander{}

	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: parseShortDesc,
		Long:  parseLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, parseFlags)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.logFile, _ = cmd.Flags().GetString(cmdlog.FlagName)

			path := stdinSource
			if len(args) == 1 {
				path = args[0]
			}
			if path == stdinSource && cmder.follow {
				return errors.New("--follow needs a file, not stdin")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx, path, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagEncoding, &cmder.encoding)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &cmder.postgresDSN)

	cmd.Flags().BoolVarP(&cmder.follow, "follow", "f", false, "Keep reading as the file grows")
	cmd.Flags().BoolVar(&cmder.record, "record", false, "Record to the default SQLite database in the .ssetap/ directory")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print one JSON object per event")
	cmd.Flags().BoolVar(&cmder.md, "markdown", false, "Join event data and render it as markdown at the end")
	cmd.Flags().BoolVar(&cmder.summary, "summary", false, "Print an event count and duration summary to stderr")

	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

func (c *parseCommander) run(ctx context.Context, path string, stdin io.Reader, stdout, stderr io.Writer) error {
	log, closeLog, err := cmdlog.Open(c.debug, c.logFile, stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	c.logger = log

	enc, err := sse.ParseEncoding(c.cfg.Stream.Encoding)
	if err != nil {
		return err
	}

	src, source, err := c.open(ctx, path, stdin)
	if err != nil {
		return err
	}

	sqlitePath := c.cfg.Storage.SQLitePath
	if sqlitePath == "" && c.record {
		sqlitePath, err = sqlitepath.DefaultPath(c.configDir)
		if err != nil {
			src.Close()
			return err
		}
	}

	driver, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
		SQLitePath:  sqlitePath,
		PostgresDSN: c.cfg.Storage.PostgresDSN,
		Logger:      c.logger,
	})
	if err != nil {
		src.Close()
		return err
	}
	if driver != nil {
		defer driver.Close()
	}

	printer := eventprint.New(eventprint.ModeFromFlags(c.jsonOut, false, c.md), stdout, c.logger)

	t := tap.New(tap.Config{
		Source:        source,
		Driver:        driver,
		StreamOptions: []sse.Option{sse.WithEncoding(enc)},
	}, c.logger)

	summary, err := t.Run(ctx, src, printer.Handle)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	if flushErr := printer.Flush(); flushErr != nil && err == nil {
		err = flushErr
	}

	if summary != nil && (c.summary || summary.Recorded) {
		fmt.Fprintln(stderr)
		fmt.Fprint(stderr, cliui.SummaryLine("Events:", fmt.Sprintf("%d", summary.Events)))
		fmt.Fprint(stderr, cliui.SummaryLine("Duration:", cliui.FormatDuration(summary.Duration)))
		if summary.Recorded {
			fmt.Fprint(stderr, cliui.SummaryLine("Session:", summary.SessionID.String()))
		}
	}

	return err
}

// open returns the chunk source for path and the source name recorded with
// the session.
func (c *parseCommander) open(ctx context.Context, path string, stdin io.Reader) (io.ReadCloser, string, error) {
	if path == stdinSource {
		if rc, ok := stdin.(io.ReadCloser); ok {
			return rc, "stdin", nil
		}
		return io.NopCloser(stdin), "stdin", nil
	}

	if c.follow {
		f, err := transport.Follow(ctx, path)
		if err != nil {
			return nil, "", err
		}
		return f, path, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening %s: %w", path, err)
	}
	return f, path, nil
}
