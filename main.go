package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tournevent/shipments/internal/server"
	"github.com/tournevent/shipments/internal/service"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "shipments",
	Short:   "Delivro Shipments - multi-courier shipment lifecycle service",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize telemetry
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(ctx)
	}

	// Storage
	st, err := initStore(cfg)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer st.Close()

	cache, err := initCache(cfg)
	if err != nil {
		logger.Warn("Tracking cache disabled", zap.Error(err))
	}

	// Courier adapters
	registry := initCourierRegistry(cfg, logger)

	metrics := initMetrics()

	svc := service.NewShipments(service.Config{
		SyncBatchSize: cfg.SyncBatchSize,
	}, st, cache, registry, logger, metrics)

	if cfg.SyncInterval > 0 {
		go svc.RunSyncLoop(ctx, cfg.SyncInterval)
	}

	logger.Info("Starting Delivro Shipments",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.Strings("couriers", registry.Names()),
	)

	// Start HTTP server
	srv := server.New(server.Config{
		Port:       cfg.Port,
		CronSecret: cfg.CronSecret,
	}, svc, logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
