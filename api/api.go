package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"go.uber.org/zap"

	"github.com/papercomputeco/apoteker/pkg/chat"
	"github.com/papercomputeco/apoteker/pkg/metrics"
	"github.com/papercomputeco/apoteker/pkg/session"
	"github.com/papercomputeco/apoteker/web"
)

// Server is the HTTP server behind the browser chat widget.
type Server struct {
	config   Config
	sender   chat.Sender
	sessions *session.Store
	metrics  *metrics.Metrics
	logger   *zap.Logger
	app      *fiber.App
}

// NewServer creates a new chat server.
// The sender is injected so the same gateway can back other front-ends
// (e.g. the terminal chat) and so tests can substitute a fake.
func NewServer(config Config, sender chat.Sender, m *metrics.Metrics, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:   config,
		sender:   sender,
		sessions: session.NewStore(),
		metrics:  m,
		logger:   logger,
		app:      app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/api/session", s.handleGetSession)
	app.Post("/api/messages", s.handlePostMessage)

	if m != nil {
		app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	app.Use("/", filesystem.New(filesystem.Config{
		Root:  http.FS(web.Static()),
		Index: "index.html",
	}))

	return s
}

// RunWithListener starts the chat server on an existing listener.
func (s *Server) RunWithListener(ln net.Listener) error {
	s.logger.Info("starting chat server",
		zap.String("listen", ln.Addr().String()),
		zap.String("model", s.config.Model),
	)
	return s.app.Listener(ln)
}

// Shutdown gracefully shuts down the chat server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// SweepSessions drops idle browser sessions every interval until ctx is done.
// It is a no-op when Config.SessionIdle is zero.
func (s *Server) SweepSessions(ctx context.Context, interval time.Duration) {
	if s.config.SessionIdle <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.Sweep(s.config.SessionIdle); n > 0 {
				s.logger.Debug("dropped idle sessions", zap.Int("count", n))
			}
			s.metrics.SetActiveSessions(s.sessions.Len())
		}
	}
}
