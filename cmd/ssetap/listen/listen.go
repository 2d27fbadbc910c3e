// Package listencmder provides the listen command, which opens an HTTP event
// stream and prints, records and publishes its events.
package listencmder

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
	"github.com/spf13/viper"

	"github.com/papercomputeco/ssetap/cmd/ssetap/cmdlog"
	"github.com/papercomputeco/ssetap/cmd/ssetap/eventprint"
	"github.com/papercomputeco/ssetap/cmd/ssetap/sqlitepath"
	"github.com/papercomputeco/ssetap/pkg/cliui"
	"github.com/papercomputeco/ssetap/pkg/config"
	"github.com/papercomputeco/ssetap/pkg/dotdir"
	eventstreamutils "github.com/papercomputeco/ssetap/pkg/eventstream/utils"
	"github.com/papercomputeco/ssetap/pkg/logger"
	"github.com/papercomputeco/ssetap/pkg/sse"
	"github.com/papercomputeco/ssetap/pkg/storage"
	storageutils "github.com/papercomputeco/ssetap/pkg/storage/utils"
	"github.com/papercomputeco/ssetap/pkg/transport"
	"github.com/papercomputeco/ssetap/tap"
)

type listenCommander struct {
	configDir string
	debug     bool
	logFile   string

	// Flag targets. Resolved values are read back from viper in PreRunE.
	method          string
	contentType     string
	body            string
	encoding        string
	followRedirects bool
	sqlitePath      string
	postgresDSN     string
	publisher       string
	kafkaBrokers    []string
	kafkaTopic      string

	headers []string
	record  bool
	jsonOut bool
	raw     bool
	md      bool
	capture string

	cfg    *config.Config
	logger *slog.Logger
}

const listenLongDesc string = `Open a Server-Sent Events stream over HTTP and print every event.

The request is sent with the configured method, body and content type and an
"Accept: text/event-stream" header. Events are printed as they arrive until
the stream ends or the command is interrupted.

Sessions are recorded with --sqlite, --postgres or --record, and every event
is published to Kafka when --publisher kafka or --kafka-brokers is set.
--publisher nop runs the publish path without a broker.

Examples:
  ssetap listen http://localhost:5000/stream
  ssetap listen -X GET https://example.com/events --json
  ssetap listen http://localhost:5000/stream -b '{"prompt":"hi"}' --markdown
  ssetap listen http://localhost:5000/stream --record --capture stream.txt`

const listenShortDesc string = "Open an HTTP event stream and print its events"

var listenFlags = []string{
	config.FlagMethod,
	config.FlagContentType,
	config.FlagBody,
	config.FlagEncoding,
	config.FlagFollowRedirects,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagPublisher,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

func NewListenCmd() *cobra.Command {
	cmder := &listenCommander{}

	cmd := &cobra.Command{
		Use:   "listen [url]",
		Short: listenShortDesc,
		Long:  listenLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, listenFlags)

			return cmder.resolve(v, args)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.logFile, _ = cmd.Flags().GetString(cmdlog.FlagName)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagMethod, &cmder.method)
	config.AddStringFlag(cmd, config.Flags, config.FlagContentType, &cmder.contentType)
	config.AddStringFlag(cmd, config.Flags, config.FlagBody, &cmder.body)
	config.AddStringFlag(cmd, config.Flags, config.FlagEncoding, &cmder.encoding)
	config.AddBoolFlag(cmd, config.Flags, config.FlagFollowRedirects, &cmder.followRedirects)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagPublisher, &cmder.publisher)
	config.AddStringSliceFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &cmder.kafkaTopic)

	cmd.Flags().StringArrayVarP(&cmder.headers, "header", "H", nil, `Extra request header ("Key: Value"), repeatable`)
	cmd.Flags().BoolVar(&cmder.record, "record", false, "Record to the default SQLite database in the .ssetap/ directory")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print one JSON object per event")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the raw stream bytes instead of decoded events")
	cmd.Flags().BoolVar(&cmder.md, "markdown", false, "Join event data and render it as markdown when the stream ends")
	cmd.Flags().StringVar(&cmder.capture, "capture", "", "Write the raw stream bytes to this file")

	cmd.MarkFlagsMutuallyExclusive("json", "raw", "markdown")

	return cmd
}

// resolve reads the effective configuration from v. A positional URL wins
// over stream.url.
func (c *listenCommander) resolve(v *viper.Viper, args []string) error {
	c.cfg = config.FromViper(v)
	if len(args) == 1 {
		c.cfg.Stream.URL = args[0]
	}

	if c.cfg.Stream.URL == "" {
		return errors.New("stream URL is required: pass it as an argument or set stream.url")
	}

	return nil
}

func (c *listenCommander) run(ctx context.Context, stdout, stderr io.Writer) error {
	interactive := logger.IsTerminal(os.Stderr)
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

	header, err := transport.ParseHeaders(c.headers)
	if err != nil {
		return err
	}

	driver, err := c.newStorageDriver(ctx)
	if err != nil {
		return err
	}
	if driver != nil {
		defer driver.Close()
	}

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: c.cfg.Publish.Provider,
		Brokers:      c.cfg.Publish.Brokers,
		Topic:        c.cfg.Publish.Topic,
		Logger:       c.logger,
	})
	if err != nil {
		return err
	}
	if publisher != nil {
		defer publisher.Close()
	}

	opts := []sse.Option{sse.WithEncoding(enc)}
	var tees []io.Writer
	if c.raw {
		tees = append(tees, stdout)
	}
	if c.capture != "" {
		f, err := os.Create(c.capture)
		if err != nil {
			return fmt.Errorf("creating capture file: %w", err)
		}
		defer f.Close()
		tees = append(tees, f)
	}
	switch len(tees) {
	case 0:
	case 1:
		opts = append(opts, sse.WithTee(tees[0]))
	default:
		opts = append(opts, sse.WithTee(io.MultiWriter(tees...)))
	}

	step := cliui.PlainStep
	if interactive {
		step = cliui.Step
	}

	var body io.ReadCloser
	err = step(stderr, "Connecting to "+c.cfg.Stream.URL, func() error {
		var openErr error
		body, openErr = transport.OpenHTTP(ctx, nil, transport.Request{
			Method:          c.cfg.Stream.Method,
			URL:             c.cfg.Stream.URL,
			ContentType:     c.cfg.Stream.ContentType,
			Body:            []byte(c.cfg.Stream.Body),
			Header:          header,
			FollowRedirects: c.cfg.Stream.FollowRedirect,
		})
		return openErr
	})
	if err != nil {
		return err
	}

	printer := eventprint.New(eventprint.ModeFromFlags(c.jsonOut, c.raw, c.md), stdout, c.logger)

	t := tap.New(tap.Config{
		Source:        c.cfg.Stream.URL,
		Driver:        driver,
		Publisher:     publisher,
		StreamOptions: opts,
	}, c.logger)

	summary, err := t.Run(ctx, body, printer.Handle)
	if errors.Is(err, context.Canceled) {
		c.logger.Debug("listen interrupted")
		err = nil
	}

	if flushErr := printer.Flush(); flushErr != nil && err == nil {
		err = flushErr
	}

	if summary != nil {
		printSummary(stderr, summary)
		if summary.Recorded {
			c.saveLastSession(summary)
		}
	}

	return err
}

// newStorageDriver opens the configured database. Without one, --record
// falls back to the default database in the .ssetap/ directory.
func (c *listenCommander) newStorageDriver(ctx context.Context) (storage.Driver, error) {
	sqlitePath := c.cfg.Storage.SQLitePath
	if sqlitePath == "" && c.record {
		var err error
		sqlitePath, err = sqlitepath.DefaultPath(c.configDir)
		if err != nil {
			return nil, err
		}
	}

	return storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
		SQLitePath:  sqlitePath,
		PostgresDSN: c.cfg.Storage.PostgresDSN,
		Logger:      c.logger,
	})
}

func (c *listenCommander) saveLastSession(summary *tap.Summary) {
	err := dotdir.NewManager().SaveLastSession(&dotdir.LastSession{
		ID:        summary.SessionID.String(),
		Source:    summary.Source,
		StartedAt: summary.StartedAt,
	}, c.configDir)
	if err != nil {
		c.logger.Warn("could not save last session", "error", err)
	}
}

func printSummary(w io.Writer, s *tap.Summary) {
	fmt.Fprintln(w)
	fmt.Fprint(w, cliui.SummaryLine("Events:", fmt.Sprintf("%d", s.Events)))
	if s.Events > 0 {
		fmt.Fprint(w, cliui.SummaryLine("First event:", cliui.FormatDuration(s.FirstEvent)))
	}
	fmt.Fprint(w, cliui.SummaryLine("Duration:", cliui.FormatDuration(s.Duration)))
	if s.Recorded {
		fmt.Fprint(w, cliui.SummaryLine("Session:", s.SessionID.String()))
		fmt.Fprint(w, cliui.SummaryLine("Stored:", fmt.Sprintf("%d", s.Stored)))
	}
	if s.Published > 0 {
		fmt.Fprint(w, cliui.SummaryLine("Published:", fmt.Sprintf("%d", s.Published)))
	}
	if s.Failed > 0 || s.Dropped > 0 {
		fmt.Fprint(w, cliui.SummaryLine("Failed:", fmt.Sprintf("%d failed, %d dropped", s.Failed, s.Dropped)))
	}
}
