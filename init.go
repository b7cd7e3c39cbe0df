package main

import (
	"context"

	"github.com/tournevent/shipments/internal/config"
	"github.com/tournevent/shipments/internal/service"
	"github.com/tournevent/shipments/internal/store"
	"github.com/tournevent/shipments/internal/telemetry"
	"github.com/tournevent/shipments/pkg/courier"
	"github.com/tournevent/shipments/pkg/courier/mock"
	"github.com/tournevent/shipments/pkg/courier/pathao"
	"github.com/tournevent/shipments/pkg/courier/redx"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
	return shutdown, err
}

func initStore(cfg *config.Config) (*store.Postgres, error) {
	return store.NewPostgres(store.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
}

// initCache returns a nil Cache when no Redis address is configured.
// The service treats a nil cache as a no-op.
func initCache(cfg *config.Config) (service.Cache, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}

	cache, err := store.NewTrackingCache(store.TrackingCacheConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.TrackingCacheTTL,
	})
	if err != nil {
		return nil, err
	}
	return cache, nil
}

func initCourierRegistry(cfg *config.Config, logger *otelzap.Logger) *courier.Registry {
	registry := courier.NewRegistry()

	// Get tracer for adapters
	var tracer trace.Tracer
	// tracer would be initialized from otel.GetTracerProvider().Tracer(cfg.ServiceName)

	registry.Register(pathao.New(pathao.Config{
		Timeout: cfg.CourierTimeout,
		UseMock: cfg.PathaoUseMock,
	}, logger, tracer))

	registry.Register(redx.New(redx.Config{
		Timeout: cfg.CourierTimeout,
		UseMock: cfg.RedxUseMock,
	}, logger, tracer))

	registry.Register(mock.New("mock"))

	return registry
}

func initMetrics() *telemetry.Metrics {
	return telemetry.NewMetrics()
}
