package daemon

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	recoverer "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jamesainslie/memtrim/pkg/daemon/broadcaster"
	"github.com/jamesainslie/memtrim/pkg/memtrim/journal"
	"github.com/jamesainslie/memtrim/pkg/memtrim/logging"
	"github.com/jamesainslie/memtrim/pkg/memtrim/monitor"
)

// Config holds daemon server configuration.
type Config struct {
	SocketPath string
	StateDir   string
}

// Server is the memtrimd HTTP server. It listens on a unix socket and
// exposes the controller to the CLI and the TUI.
type Server struct {
	cfg      Config
	app      *fiber.App
	listener net.Listener
	ctrl     *monitor.Controller
	journal  *journal.Journal
	events   *broadcaster.Broadcaster
	logger   *logging.Logger

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewServer creates a daemon server bound to the configured unix socket.
// ctrl is required; jrnl and events may be nil, disabling the history
// and event-stream endpoints respectively.
func NewServer(cfg Config, ctrl *monitor.Controller, jrnl *journal.Journal, events *broadcaster.Broadcaster) (*Server, error) {
	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return nil, err
	}

	// Remove a stale socket from a previous run.
	if err := os.RemoveAll(cfg.SocketPath); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.SocketPath), 0o755); err != nil {
		return nil, err
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(context.Background(), "unix", cfg.SocketPath)
	if err != nil {
		return nil, err
	}

	srv := &Server{
		cfg:        cfg,
		ctrl:       ctrl,
		journal:    jrnl,
		events:     events,
		logger:     logging.Get("daemon"),
		listener:   listener,
		shutdownCh: make(chan struct{}),
	}
	srv.app = srv.newApp()

	return srv, nil
}

// newApp builds the fiber application and its routes.
func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "memtrimd",
		DisableStartupMessage: true,
	})

	app.Use(recoverer.New())

	api := app.Group("/api/v1")
	api.Get("/status", s.handleStatus)
	api.Put("/config", s.handleUpdateConfig)
	api.Post("/clean", s.handleClean)
	api.Get("/history", s.handleHistory)
	api.Post("/shutdown", s.handleShutdown)

	if s.events != nil {
		s.registerEvents(api)
	}

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return app
}

// Serve runs the HTTP server. Blocks until Close or a listener error.
func (s *Server) Serve() error {
	s.logger.Info("listening", "socket", s.cfg.SocketPath)
	return s.app.Listener(s.listener)
}

// ShutdownRequested is closed when a client calls the shutdown endpoint.
func (s *Server) ShutdownRequested() <-chan struct{} {
	return s.shutdownCh
}

// Close shuts the server down and removes the socket.
func (s *Server) Close() error {
	if err := s.app.Shutdown(); err != nil {
		s.logger.Warn("server shutdown", "error", err)
	}
	return os.RemoveAll(s.cfg.SocketPath)
}
