package redx

import (
	"context"

	"github.com/tournevent/shipments/pkg/courier"
)

// APIClient defines the interface for RedX merchant API operations.
type APIClient interface {
	// CreateParcel books a new parcel with RedX.
	CreateParcel(ctx context.Context, acct courier.Account, req *ParcelRequest) (*ParcelResponse, error)

	// GetParcelInfo fetches the current state of a parcel by tracking id.
	GetParcelInfo(ctx context.Context, acct courier.Account, trackingID string) (*ParcelInfoResponse, error)
}

// ============================================================================
// API Request/Response Types (match RedX merchant REST API structure)
// ============================================================================

// ParcelItem is one declared line item inside a parcel.
type ParcelItem struct {
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Value    float64 `json:"value"`
	Quantity int     `json:"quantity"`
}

// ParcelRequest represents a RedX parcel creation request.
// POST /parcel endpoint
type ParcelRequest struct {
	CustomerName         string       `json:"customer_name"`
	CustomerPhone        string       `json:"customer_phone"`
	CustomerAddress      string       `json:"customer_address"`
	DeliveryArea         string       `json:"delivery_area,omitempty"`
	MerchantInvoiceID    string       `json:"merchant_invoice_id"`
	CashCollectionAmount float64      `json:"cash_collection_amount"`
	ParcelValue          float64      `json:"value"`
	Instruction          string       `json:"instruction,omitempty"`
	ParcelDetails        []ParcelItem `json:"parcel_details_json,omitempty"`
}

// ParcelResponse represents the RedX parcel creation response.
type ParcelResponse struct {
	TrackingID  string `json:"tracking_id"`
	Status      string `json:"status,omitempty"`
	TrackingURL string `json:"tracking_url,omitempty"`
}

// ParcelInfoResponse represents the RedX parcel state response.
// GET /parcel/info/{trackingId} endpoint - RedX nests the parcel record
// under a "parcel" envelope.
type ParcelInfoResponse struct {
	Parcel ParcelInfo `json:"parcel"`
}

// ParcelInfo is the nested parcel record.
type ParcelInfo struct {
	TrackingID  string `json:"tracking_id"`
	Status      string `json:"status"`
	TrackingURL string `json:"tracking_url,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"` // RFC 3339
}

// APIError represents an error from the RedX API.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Body       string `json:"-"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}
