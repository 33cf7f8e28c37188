// Package devserver is a local stand-in for the Flat, Agora RTM history and
// Netless conversion APIs. Point every base URL of the client at it.
package devserver

import (
	"context"
	"net"

	"github.com/birbparty/flat-client/internal/telemetry"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
)

// Server wraps the fiber app and its state
type Server struct {
	app   *fiber.App
	cfg   *Config
	state *state
}

// New builds a dev server with its own metrics registry
func New(cfg *Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)

	app := fiber.New(fiber.Config{
		AppName:               "flat-devserver",
		DisableStartupMessage: true,
	})
	app.Use(requestid.New())
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, token, region, x-agora-token, x-agora-uid",
	}))
	app.Use(telemetry.FiberMetricsMiddleware(metrics))
	app.Use(telemetry.FiberLoggingMiddleware())

	st := newState(cfg)
	SetupRoutes(app, newHandler(cfg, st), registry)

	return &Server{app: app, cfg: cfg, state: st}, nil
}

// App exposes the fiber app, mainly for app.Test
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on the configured address until Shutdown
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Serve serves on ln until Shutdown
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// ExpireToken makes token answer with an expired-session code from now on
func (s *Server) ExpireToken(token string) { s.state.expire(token) }

// ExpireAll expires every issued token
func (s *Server) ExpireAll() { s.state.expireAll() }
