// Package server exposes the shipments service over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tournevent/shipments/internal/service"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Server is the HTTP server for the shipments service.
type Server struct {
	port       int
	cronSecret string
	svc        *service.Shipments
	logger     *otelzap.Logger
}

// Config holds server configuration.
type Config struct {
	Port       int
	CronSecret string
}

// New creates a new server instance.
func New(cfg Config, svc *service.Shipments, logger *otelzap.Logger) *Server {
	return &Server{
		port:       cfg.Port,
		cronSecret: cfg.CronSecret,
		svc:        svc,
		logger:     logger,
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", s.handleHealth)

	// Prometheus metrics
	mux.Handle("GET /metrics", promhttp.Handler())

	// Shipments: reads need an identity, mutations need the admin role.
	mux.HandleFunc("POST /shipments", s.requireAdmin(s.handleCreateShipment))
	mux.HandleFunc("GET /shipments", s.requireUser(s.handleListShipments))
	mux.HandleFunc("GET /shipments/{id}", s.requireUser(s.handleGetShipment))
	mux.HandleFunc("PATCH /shipments/{id}", s.requireAdmin(s.handleUpdateShipment))
	mux.HandleFunc("DELETE /shipments/{id}", s.requireAdmin(s.handleDeleteShipment))

	// Courier accounts (admin)
	mux.HandleFunc("POST /couriers", s.requireAdmin(s.handleCreateCourier))
	mux.HandleFunc("GET /couriers", s.requireAdmin(s.handleListCouriers))
	mux.HandleFunc("GET /couriers/{id}", s.requireAdmin(s.handleGetCourier))
	mux.HandleFunc("PATCH /couriers/{id}", s.requireAdmin(s.handleUpdateCourier))

	// Public tracking
	mux.HandleFunc("GET /track/{trackingNumber}", s.handleTrack)

	// Scheduler-triggered reconciliation, shared-secret gated
	mux.HandleFunc("GET /cron/sync-shipments", s.handleSyncShipments)

	return mux
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
