package pathao

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/shipments/pkg/courier"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCreateOrder func(ctx context.Context, acct courier.Account, req *OrderRequest) (*OrderResponse, error)
	OnTrackOrder  func(ctx context.Context, acct courier.Account, token string) (*TrackResponse, error)

	mu          sync.Mutex
	createCalls int
	trackCalls  int
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// CreateCalls returns how many times CreateOrder was invoked.
func (m *MockAPIClient) CreateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCalls
}

// TrackCalls returns how many times TrackOrder was invoked.
func (m *MockAPIClient) TrackCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trackCalls
}

// CreateOrder books a mock consignment.
func (m *MockAPIClient) CreateOrder(ctx context.Context, acct courier.Account, req *OrderRequest) (*OrderResponse, error) {
	m.mu.Lock()
	m.createCalls++
	m.mu.Unlock()

	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Message: "Simulated API error", StatusCode: 500}
	}

	if m.OnCreateOrder != nil {
		return m.OnCreateOrder(ctx, acct, req)
	}

	trackingNumber := "PTH-" + uuid.New().String()[:8]

	return &OrderResponse{
		ConsignmentID:   "DL-" + uuid.New().String()[:10],
		MerchantOrderID: req.MerchantOrderID,
		TrackingNumber:  trackingNumber,
		TrackingURL:     fmt.Sprintf("https://merchant.pathao.example/tracking/%s", trackingNumber),
		Status:          "created",
		DeliveryFee:     60,
	}, nil
}

// TrackOrder returns mock tracking state.
func (m *MockAPIClient) TrackOrder(ctx context.Context, acct courier.Account, token string) (*TrackResponse, error) {
	m.mu.Lock()
	m.trackCalls++
	m.mu.Unlock()

	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Message: "Simulated API error", StatusCode: 500}
	}

	if m.OnTrackOrder != nil {
		return m.OnTrackOrder(ctx, acct, token)
	}

	return &TrackResponse{
		TrackingNumber: token,
		Status:         "in_transit",
		UpdatedAt:      time.Now().Add(-2 * time.Hour).Format(time.RFC3339),
	}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
