// Package web exposes the voice pipeline over HTTP and WebSocket.
package web

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/voxstore/voxstore/internal/config"
	"github.com/voxstore/voxstore/internal/log"
	"github.com/voxstore/voxstore/pkg/hub"
	"github.com/voxstore/voxstore/pkg/store"
)

// Server serves the voice session endpoint, the transcript observer
// endpoint, and the health check.
type Server struct {
	app    *fiber.App
	cfg    config.Config
	store  *store.Store
	hub    *hub.Hub
	logger *slog.Logger
}

// NewServer builds the Fiber app and wires all routes.
func NewServer(cfg config.Config, st *store.Store, h *hub.Hub) *Server {
	s := &Server{
		cfg:    cfg,
		store:  st,
		hub:    h,
		logger: log.With("component", "web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Voxstore",
		DisableStartupMessage: true,
	})

	// CORS for browser clients
	app.Use(cors.New())

	app.Get("/", s.handleRoot)
	app.Get("/health", s.handleHealth)

	// WebSocket upgrade middleware
	app.Use("/api", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/api/ws", websocket.New(s.handleVoiceWS))
	app.Get("/api/transcription", websocket.New(s.handleTranscriptionWS))

	s.app = app
	return s
}

// Start listens on the configured address and blocks until shutdown.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.cfg.Addr)
	return s.app.Listen(s.cfg.Addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// handleRoot reports that the service is up.
func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Voice Model Service is running"})
}

// handleHealth re-checks the backing snapshot on every call so that an
// operator sees file problems as soon as they happen.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(s.store.CheckHealth())
}
