package pathao

import (
	"context"

	"github.com/tournevent/shipments/pkg/courier"
)

// APIClient defines the interface for Pathao merchant API operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// CreateOrder books a new consignment with Pathao.
	CreateOrder(ctx context.Context, acct courier.Account, req *OrderRequest) (*OrderResponse, error)

	// TrackOrder fetches the current state of a consignment by tracking
	// number or consignment id.
	TrackOrder(ctx context.Context, acct courier.Account, token string) (*TrackResponse, error)
}

// ============================================================================
// API Request/Response Types (match Pathao merchant REST API structure)
// ============================================================================

// OrderRequest represents a Pathao consignment creation request.
// POST /orders endpoint
type OrderRequest struct {
	MerchantOrderID    string  `json:"merchant_order_id"`
	RecipientName      string  `json:"recipient_name"`
	RecipientPhone     string  `json:"recipient_phone"`
	RecipientAddress   string  `json:"recipient_address"`
	RecipientArea      string  `json:"recipient_area,omitempty"`
	RecipientCity      string  `json:"recipient_city,omitempty"`
	DeliveryType       int     `json:"delivery_type"`      // 48 = normal, 12 = on-demand
	ItemType           int     `json:"item_type"`          // 2 = parcel
	ItemQuantity       int     `json:"item_quantity"`
	ItemDescription    string  `json:"item_description,omitempty"`
	AmountToCollect    float64 `json:"amount_to_collect"`
	SpecialInstruction string  `json:"special_instruction,omitempty"`
}

// OrderResponse represents the Pathao consignment creation response.
type OrderResponse struct {
	ConsignmentID   string  `json:"consignment_id"`
	MerchantOrderID string  `json:"merchant_order_id,omitempty"`
	TrackingNumber  string  `json:"tracking_number"`
	TrackingURL     string  `json:"tracking_url,omitempty"`
	Status          string  `json:"status"`
	DeliveryFee     float64 `json:"delivery_fee,omitempty"`
}

// TrackResponse represents the Pathao tracking response.
// GET /orders/{token}/status endpoint
type TrackResponse struct {
	ConsignmentID  string `json:"consignment_id,omitempty"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	TrackingURL    string `json:"tracking_url,omitempty"`
	Status         string `json:"status"`
	UpdatedAt      string `json:"updated_at,omitempty"` // RFC 3339
}

// APIError represents an error from the Pathao API.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Body       string `json:"-"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}
