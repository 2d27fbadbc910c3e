package replay

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/ssetap/pkg/storage"
)

// Server serves recorded sessions from a storage.Driver.
type Server struct {
	config Config
	driver storage.Driver
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new replay server.
func NewServer(config Config, driver storage.Driver, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		driver: driver,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/sessions", s.handleListSessions)
	app.Get("/sessions/:id", s.handleGetSession)
	app.Get("/sessions/:id/events", s.handleSessionEvents)

	return s
}

// Run starts the replay server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting replay server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the replay server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting replay server",
		"listen", listener.Addr().String(),
	)
	return s.app.Listener(listener)
}

// Handler exposes the non-streaming routes as a net/http handler so they can
// be mounted on another mux. Event streams are buffered whole by the
// conversion, so serve /sessions/:id/events with Run instead.
func (s *Server) Handler() http.Handler {
	return adaptor.FiberApp(s.app)
}

// Shutdown gracefully shuts down the replay server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
