package httpserver

import (
	"context"
	"time"

	"github.com/cristianortiz/auctionBidder/internal/shared/logger"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Server struct {
	app *fiber.App
}

var log = logger.GetLogger() // Instancia logger para el pakg

// NewServer builds the fiber app with request logging and a health check,
// then lets every route group register itself.
func NewServer(routes ...func(app *fiber.App)) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "auction-bidder",
		DisableStartupMessage: true,
	})

	// Middleware de logging
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Info("HTTP request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("remote_addr", c.IP()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
		)
		return err
	})

	// Endpoint de health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	for _, register := range routes {
		register(app)
	}

	return &Server{app: app}
}

// App exposes the underlying fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server started", zap.String("addr", addr))
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(shutdownCtx)
}
