// Package pathao provides integration with the Pathao merchant delivery API.
package pathao

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tournevent/shipments/pkg/courier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const courierType = "pathao"

// Config holds Pathao provider configuration.
type Config struct {
	Timeout time.Duration
	UseMock bool // When true, uses mock API client
}

// Client is the Pathao courier provider.
// It implements the courier.Provider interface and delegates
// API calls to the underlying APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new Pathao provider.
// If cfg.UseMock is true, it uses a mock API client for testing.
// Otherwise, it uses the real HTTP API client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			Timeout: cfg.Timeout,
		})
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// NewWithAPIClient creates a new Pathao provider with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// Name returns the courier type tag.
func (c *Client) Name() string {
	return courierType
}

// CreateShipment books a consignment with Pathao.
// The vendor acknowledging the order does not mean the parcel is moving,
// so the canonical status of a fresh booking is always PENDING.
func (c *Client) CreateShipment(ctx context.Context, acct courier.Account, req *courier.CreateRequest) (*courier.CreateResponse, error) {
	c.logger.Info("Creating Pathao consignment",
		zap.String("order_id", req.OrderID),
		zap.String("recipient", req.Recipient.Name),
		zap.Bool("cod", req.CashOnDelivery),
	)

	collect := 0.0
	if req.CashOnDelivery {
		collect = req.Amount
	}

	apiReq := &OrderRequest{
		MerchantOrderID:    req.OrderID,
		RecipientName:      req.Recipient.Name,
		RecipientPhone:     req.Recipient.Phone,
		RecipientAddress:   req.Recipient.Address,
		RecipientArea:      req.Recipient.Area,
		RecipientCity:      req.Recipient.City,
		DeliveryType:       48,
		ItemType:           2,
		ItemQuantity:       totalQuantity(req.Items),
		ItemDescription:    describeItems(req.Items),
		AmountToCollect:    collect,
		SpecialInstruction: req.Note,
	}

	apiResp, err := c.apiClient.CreateOrder(ctx, acct, apiReq)
	if err != nil {
		c.logger.Error("Pathao API error", zap.Error(err))
		return nil, c.providerError(err)
	}

	trackingNumber := apiResp.TrackingNumber
	if trackingNumber == "" {
		trackingNumber = apiResp.ConsignmentID
	}
	externalID := apiResp.ConsignmentID
	if externalID == "" {
		externalID = apiResp.TrackingNumber
	}

	return &courier.CreateResponse{
		ExternalID:     externalID,
		TrackingNumber: trackingNumber,
		TrackingURL:    apiResp.TrackingURL,
		CourierStatus:  apiResp.Status,
		Status:         courier.StatusPending,
	}, nil
}

// GetTracking fetches consignment state from Pathao.
// Token precedence: tracking number first, consignment id as fallback.
func (c *Client) GetTracking(ctx context.Context, acct courier.Account, req *courier.TrackingRequest) (*courier.TrackingResponse, error) {
	token := req.TrackingNumber
	if token == "" {
		token = req.ExternalID
	}
	if token == "" {
		return nil, courier.NewProviderError(courierType, "MISSING_TOKEN",
			"tracking number or consignment id required").WithCause(courier.ErrMissingTrackingToken)
	}

	c.logger.Info("Tracking Pathao consignment", zap.String("token", token))

	apiResp, err := c.apiClient.TrackOrder(ctx, acct, token)
	if err != nil {
		c.logger.Error("Pathao API error", zap.Error(err))
		return nil, c.providerError(err)
	}

	var lastEventAt *time.Time
	if apiResp.UpdatedAt != "" {
		if t, err := time.Parse(time.RFC3339, apiResp.UpdatedAt); err == nil {
			lastEventAt = &t
		}
	}

	return &courier.TrackingResponse{
		ExternalID:     apiResp.ConsignmentID,
		TrackingNumber: apiResp.TrackingNumber,
		TrackingURL:    apiResp.TrackingURL,
		CourierStatus:  apiResp.Status,
		Status:         mapStatus(apiResp.Status),
		LastEventAt:    lastEventAt,
	}, nil
}

// providerError wraps an API-level failure into a courier.ProviderError,
// preserving the vendor's HTTP status and raw body for diagnostics.
func (c *Client) providerError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return courier.NewProviderError(courierType, apiErr.Code, apiErr.Message).
			WithStatusCode(apiErr.StatusCode).
			WithRawBody(apiErr.Body).
			WithCause(err)
	}
	return courier.NewProviderError(courierType, "REQUEST_FAILED", err.Error()).WithCause(err)
}

// mapStatus normalizes Pathao's status vocabulary into the canonical enum.
// Check order matters: the specific terms (delivered, return) are tested
// ahead of the generic transit terms so compound strings resolve correctly.
func mapStatus(raw string) courier.Status {
	s := strings.ToLower(raw)
	switch {
	case strings.Contains(s, "delivered"):
		return courier.StatusDelivered
	case strings.Contains(s, "return"):
		return courier.StatusReturned
	case strings.Contains(s, "out_for_delivery"):
		return courier.StatusOutForDelivery
	case strings.Contains(s, "in_transit"), strings.Contains(s, "picked"):
		return courier.StatusInTransit
	case strings.Contains(s, "cancel"):
		return courier.StatusCancelled
	default:
		return courier.StatusPending
	}
}

func totalQuantity(items []courier.Item) int {
	total := 0
	for _, it := range items {
		total += it.Quantity
	}
	if total == 0 {
		total = 1
	}
	return total
}

func describeItems(items []courier.Item) string {
	if len(items) == 0 {
		return ""
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = strings.TrimSpace(it.Name)
	}
	return strings.Join(parts, ", ")
}

var _ courier.Provider = (*Client)(nil)
