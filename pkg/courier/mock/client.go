// Package mock provides a stub courier provider for testing and for
// manually-tracked courier accounts with no real API behind them.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tournevent/shipments/pkg/courier"
)

// Client is a stub courier provider. Responses can be overridden per call
// via the On* hooks; calls are counted so tests can assert that a code path
// never reached the vendor.
type Client struct {
	name string

	OnCreate func(ctx context.Context, acct courier.Account, req *courier.CreateRequest) (*courier.CreateResponse, error)
	OnTrack  func(ctx context.Context, acct courier.Account, req *courier.TrackingRequest) (*courier.TrackingResponse, error)

	mu          sync.Mutex
	createCalls int
	trackCalls  int
}

// New creates a new stub provider registered under the given type tag.
func New(name string) *Client {
	return &Client{name: name}
}

// Name returns the courier type tag.
func (c *Client) Name() string {
	return c.name
}

// CreateCalls returns how many times CreateShipment was invoked.
func (c *Client) CreateCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createCalls
}

// TrackCalls returns how many times GetTracking was invoked.
func (c *Client) TrackCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trackCalls
}

// CreateShipment books a stub consignment.
func (c *Client) CreateShipment(ctx context.Context, acct courier.Account, req *courier.CreateRequest) (*courier.CreateResponse, error) {
	c.mu.Lock()
	c.createCalls++
	c.mu.Unlock()

	if c.OnCreate != nil {
		return c.OnCreate(ctx, acct, req)
	}

	token := fmt.Sprintf("%s-%d", c.name, time.Now().UnixNano())
	return &courier.CreateResponse{
		ExternalID:     token,
		TrackingNumber: token,
		CourierStatus:  "created",
		Status:         courier.StatusPending,
	}, nil
}

// GetTracking returns stub tracking state.
func (c *Client) GetTracking(ctx context.Context, acct courier.Account, req *courier.TrackingRequest) (*courier.TrackingResponse, error) {
	c.mu.Lock()
	c.trackCalls++
	c.mu.Unlock()

	if c.OnTrack != nil {
		return c.OnTrack(ctx, acct, req)
	}

	token := req.TrackingNumber
	if token == "" {
		token = req.ExternalID
	}
	if token == "" {
		return nil, courier.NewProviderError(c.name, "MISSING_TOKEN",
			"tracking token required").WithCause(courier.ErrMissingTrackingToken)
	}

	return &courier.TrackingResponse{
		ExternalID:     token,
		TrackingNumber: token,
		CourierStatus:  "pending",
		Status:         courier.StatusPending,
	}, nil
}

var _ courier.Provider = (*Client)(nil)
