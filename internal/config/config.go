package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Postgres
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"shipments"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	// Redis tracking cache; empty addr disables caching
	RedisAddr        string        `envconfig:"REDIS_ADDR"`
	RedisPassword    string        `envconfig:"REDIS_PASSWORD"`
	RedisDB          int           `envconfig:"REDIS_DB" default:"0"`
	TrackingCacheTTL time.Duration `envconfig:"TRACKING_CACHE_TTL" default:"60s"`

	// Reconciliation
	CronSecret    string        `envconfig:"CRON_SECRET"`
	SyncInterval  time.Duration `envconfig:"SYNC_INTERVAL" default:"0"` // 0 disables the in-process loop
	SyncBatchSize int           `envconfig:"SYNC_BATCH_SIZE" default:"200"`

	// Courier adapters
	CourierTimeout time.Duration `envconfig:"COURIER_TIMEOUT" default:"30s"`
	PathaoUseMock  bool          `envconfig:"PATHAO_USE_MOCK" default:"false"`
	RedxUseMock    bool          `envconfig:"REDX_USE_MOCK" default:"false"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"delivro-shipments"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Int("sync.batch_size", c.SyncBatchSize),
		attribute.Bool("cache.enabled", c.RedisAddr != ""),
	}
}
