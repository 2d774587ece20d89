// Package handlers serves the explorer's HTTP/JSON interface, bridging
// query parameters to the service layer and mapping its errors to status
// codes and response bodies.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gartstein/visaexplorer/internal/explorer/auth"
	"go.uber.org/zap"
)

// MaintenancePaths lists the routes that require a bearer token when a
// JWT secret is configured.
var MaintenancePaths = []string{"/api/employer/autocomplete_update"}

// Server wraps the HTTP server of the explorer.
type Server struct {
	httpServer   *http.Server
	logger       *zap.Logger
	httpEndpoint string
}

// NewServer builds the route tree around h: request logging first, then
// the maintenance auth check.
func NewServer(httpPort int, h *HTTPHandler, jwtSecret string, logger *zap.Logger) *Server {
	endpoint := fmt.Sprintf(":%d", httpPort)
	handler := RequestLogger(auth.HTTPMiddleware(h.Routes(), jwtSecret, MaintenancePaths...), logger)
	return &Server{
		httpServer: &http.Server{
			Addr:              endpoint,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:       logger,
		httpEndpoint: endpoint,
	}
}

// Start serves until Stop is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("endpoint", s.httpEndpoint))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP serve error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	s.logger.Info("Server stopped")
}
