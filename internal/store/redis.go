package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/tournevent/shipments/internal/model"
)

// TrackingCache is a short-TTL Redis cache for public tracking lookups.
// It shields vendor APIs from repeated public polling of the same tracking
// number; every shipment write invalidates the entry.
type TrackingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// TrackingCacheConfig holds Redis connection settings.
type TrackingCacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewTrackingCache connects and pings Redis.
func NewTrackingCache(cfg TrackingCacheConfig) (*TrackingCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("error connecting to redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = time.Minute
	}

	return &TrackingCache{client: client, ttl: ttl}, nil
}

// Close closes the Redis connection.
func (c *TrackingCache) Close() error {
	return c.client.Close()
}

// Get returns the cached view for a tracking number, or nil on a miss.
func (c *TrackingCache) Get(ctx context.Context, trackingNumber string) (*model.TrackingView, error) {
	data, err := c.client.Get(ctx, trackingKey(trackingNumber)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var view model.TrackingView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Set caches the view under the tracking number for the configured TTL.
func (c *TrackingCache) Set(ctx context.Context, trackingNumber string, view *model.TrackingView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, trackingKey(trackingNumber), data, c.ttl).Err()
}

// Invalidate drops the cached view for a tracking number.
func (c *TrackingCache) Invalidate(ctx context.Context, trackingNumber string) error {
	if trackingNumber == "" {
		return nil
	}
	return c.client.Del(ctx, trackingKey(trackingNumber)).Err()
}

func trackingKey(trackingNumber string) string {
	return "tracking:" + trackingNumber
}
