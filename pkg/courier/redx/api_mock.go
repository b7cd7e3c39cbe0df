package redx

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

	OnCreateParcel  func(ctx context.Context, acct courier.Account, req *ParcelRequest) (*ParcelResponse, error)
	OnGetParcelInfo func(ctx context.Context, acct courier.Account, trackingID string) (*ParcelInfoResponse, error)

	mu          sync.Mutex
	createCalls int
	trackCalls  int
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// CreateCalls returns how many times CreateParcel was invoked.
func (m *MockAPIClient) CreateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCalls
}

// TrackCalls returns how many times GetParcelInfo was invoked.
func (m *MockAPIClient) TrackCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trackCalls
}

// CreateParcel books a mock parcel.
func (m *MockAPIClient) CreateParcel(ctx context.Context, acct courier.Account, req *ParcelRequest) (*ParcelResponse, error) {
	m.mu.Lock()
	m.createCalls++
	m.mu.Unlock()

	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Message: "Simulated API error", StatusCode: 500}
	}

	if m.OnCreateParcel != nil {
		return m.OnCreateParcel(ctx, acct, req)
	}

	trackingID := "RDX" + uuid.New().String()[:10]

	return &ParcelResponse{
		TrackingID:  trackingID,
		Status:      "pending",
		TrackingURL: fmt.Sprintf("https://redx.example/track/%s", trackingID),
	}, nil
}

// GetParcelInfo returns mock parcel state.
func (m *MockAPIClient) GetParcelInfo(ctx context.Context, acct courier.Account, trackingID string) (*ParcelInfoResponse, error) {
	m.mu.Lock()
	m.trackCalls++
	m.mu.Unlock()

	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: "MOCK_ERROR", Message: "Simulated API error", StatusCode: 500}
	}

	if m.OnGetParcelInfo != nil {
		return m.OnGetParcelInfo(ctx, acct, trackingID)
	}

	return &ParcelInfoResponse{
		Parcel: ParcelInfo{
			TrackingID: trackingID,
			Status:     "on_the_way",
			UpdatedAt:  time.Now().Add(-4 * time.Hour).Format(time.RFC3339),
		},
	}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
