// Package replaycmder provides the replay server command.
package replaycmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ssetap/cmd/ssetap/sqlitepath"
	"github.com/papercomputeco/ssetap/pkg/cliui"
	"github.com/papercomputeco/ssetap/pkg/config"
	"github.com/papercomputeco/ssetap/pkg/dotdir"
	"github.com/papercomputeco/ssetap/cmd/ssetap/cmdlog"
	storageutils "github.com/papercomputeco/ssetap/pkg/storage/utils"
	"github.com/papercomputeco/ssetap/replay"
)

type replayCommander struct {
	configDir string
	debug     bool
	logFile   string

	listen      string
	sqlitePath  string
	postgresDSN string

	cfg    *config.Config
	logger *slog.Logger
}

const replayLongDesc string = `Serve recorded sessions over HTTP.

Routes:
  GET /ping                     Health check
  GET /sessions                 List recorded sessions
  GET /sessions/:id             Show one session
  GET /sessions/:id/events      Replay a session as text/event-stream

The events route honors Last-Event-ID to resume a replay and ?speed=N to pace
events by their original arrival times (speed=1 is real time, 0 is instant).

Without --sqlite or --postgres the default database written by
"ssetap listen --record" is used.`

const replayShortDesc string = "Serve recorded sessions as event streams"

var replayFlags = []string{
	config.FlagReplayListen,
	config.FlagSQLite,
	config.FlagPostgres,
}

func NewReplayCmd() *cobra.Command {
	cmder := &replayCommander{}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: replayShortDesc,
		Long:  replayLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, replayFlags)
			cmder.cfg = config.FromViper(v)
			return nil
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

	config.AddStringFlag(cmd, config.Flags, config.FlagReplayListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &cmder.postgresDSN)

	return cmd
}

func (c *replayCommander) run(ctx context.Context, stdout, stderr io.Writer) error {
	log, closeLog, err := cmdlog.Open(c.debug, c.logFile, stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	c.logger = log

	opts := &storageutils.NewDriverOpts{
		PostgresDSN: c.cfg.Storage.PostgresDSN,
		Logger:      c.logger,
	}
	if opts.PostgresDSN == "" {
		path, err := sqlitepath.ResolveSQLitePath(c.cfg.Storage.SQLitePath, c.configDir)
		if err != nil {
			return err
		}
		opts.SQLitePath = path
	}

	driver, err := storageutils.NewDriver(ctx, opts)
	if err != nil {
		return err
	}
	defer driver.Close()

	listener, err := net.Listen("tcp", c.cfg.Replay.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", c.cfg.Replay.Listen, err)
	}

	server := replay.NewServer(replay.Config{
		ListenAddr: listener.Addr().String(),
	}, driver, c.logger)

	base := "http://" + listener.Addr().String()
	fmt.Fprint(stdout, cliui.SummaryLine("Replay server:", base))
	c.printLastSession(stdout, base)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.RunWithListener(listener)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	c.logger.Debug("shutting down replay server")
	if err := server.Shutdown(); err != nil {
		return fmt.Errorf("shutting down replay server: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (c *replayCommander) printLastSession(w io.Writer, base string) {
	last, err := dotdir.NewManager().LoadLastSession(c.configDir)
	if err != nil {
		c.logger.Debug("could not load last session", "error", err)
		return
	}
	if last == nil {
		return
	}

	fmt.Fprint(w, cliui.SummaryLine("Last session:", base+"/sessions/"+last.ID+"/events"))
}
