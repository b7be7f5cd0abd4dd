// Package server exposes the HTTP + WebSocket API over the cached quotes,
// detected opportunities, and trade execution.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmelo/crossarb/internal/server/handler"
	"github.com/dmelo/crossarb/internal/server/middleware"
	"github.com/dmelo/crossarb/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIToken    string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server registers.
type Handlers struct {
	Health *handler.HealthHandler
	Prices *handler.PriceHandler
	Arb    *handler.ArbHandler
	Trades *handler.TradeHandler
	Status *handler.StatusHandler
}

// Server is the headless HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered and the middleware
// chain (logging, CORS, auth) wired up.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)
	mux.HandleFunc("GET /api/prices", handlers.Prices.ListQuotes)
	mux.HandleFunc("GET /api/opportunities", handlers.Arb.ListRecent)
	mux.HandleFunc("POST /api/trade", handlers.Trades.ExecuteTrade)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIToken)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
