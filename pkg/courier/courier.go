// Package courier provides an abstraction layer for delivery courier vendors.
package courier

import (
	"context"
)

// Provider defines the interface that all courier vendors must implement.
type Provider interface {
	// Name returns the courier type tag (e.g., "pathao", "redx", "mock").
	Name() string

	// CreateShipment books a new consignment with the vendor.
	CreateShipment(ctx context.Context, acct Account, req *CreateRequest) (*CreateResponse, error)

	// GetTracking fetches the current vendor-side state of a consignment.
	// Each provider documents which identifying token it requires; a missing
	// usable token is a ProviderError, not a network call.
	GetTracking(ctx context.Context, acct Account, req *TrackingRequest) (*TrackingResponse, error)
}

// Account carries the credentials and endpoint of one configured courier
// account. Credentials are long-lived API keys set up by an administrator;
// which fields a provider reads is vendor-specific.
type Account struct {
	Name      string
	BaseURL   string
	APIKey    string
	SecretKey string
	ClientID  string
}
