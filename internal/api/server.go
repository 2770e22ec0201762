package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/gosoularr/internal/api/handlers"
	"github.com/amaumene/gosoularr/internal/api/middleware"
	"github.com/amaumene/gosoularr/internal/config"
	"github.com/amaumene/gosoularr/internal/controllers"
	"github.com/amaumene/gosoularr/internal/models"
	"github.com/amaumene/gosoularr/internal/services/slskd"
)

// Server is the daemon-mode HTTP server exposing health and sweep status
type Server struct {
	server *http.Server
	logger *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, db *models.Database, slskdClient *slskd.Client, stats *controllers.RunStats, logger *logrus.Logger) *Server {
	s := &Server{logger: logger}

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(slskdClient, logger)
	mux.HandleFunc("/health", healthHandler.ServeHTTP)

	statusHandler := handlers.NewStatusHandler(db, stats, logger)
	mux.HandleFunc("/status", statusHandler.ServeHTTP)

	s.server = &http.Server{
		Addr:         ":" + cfg.Daemon.ServerPort,
		Handler:      middleware.Logging(mux, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server and blocks until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("addr", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
