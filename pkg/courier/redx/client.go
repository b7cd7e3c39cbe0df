// Package redx provides integration with the RedX merchant delivery API.
package redx

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

const courierType = "redx"

// Config holds RedX provider configuration.
type Config struct {
	Timeout time.Duration
	UseMock bool
}

// Client is the RedX courier provider.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new RedX provider.
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

// NewWithAPIClient creates a new RedX provider with a custom API client.
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

// CreateShipment books a parcel with RedX. The canonical status of a fresh
// booking is always PENDING regardless of the vendor's reply.
func (c *Client) CreateShipment(ctx context.Context, acct courier.Account, req *courier.CreateRequest) (*courier.CreateResponse, error) {
	c.logger.Info("Creating RedX parcel",
		zap.String("order_id", req.OrderID),
		zap.String("recipient", req.Recipient.Name),
		zap.Bool("cod", req.CashOnDelivery),
	)

	collect := 0.0
	if req.CashOnDelivery {
		collect = req.Amount
	}

	apiReq := &ParcelRequest{
		CustomerName:         req.Recipient.Name,
		CustomerPhone:        req.Recipient.Phone,
		CustomerAddress:      req.Recipient.Address,
		DeliveryArea:         deliveryArea(req.Recipient),
		MerchantInvoiceID:    req.OrderID,
		CashCollectionAmount: collect,
		ParcelValue:          req.Amount,
		Instruction:          req.Note,
		ParcelDetails:        itemsToAPI(req.Items),
	}

	apiResp, err := c.apiClient.CreateParcel(ctx, acct, apiReq)
	if err != nil {
		c.logger.Error("RedX API error", zap.Error(err))
		return nil, c.providerError(err)
	}

	return &courier.CreateResponse{
		// RedX exposes a single token serving as both the vendor reference
		// and the human-facing tracking number.
		ExternalID:     apiResp.TrackingID,
		TrackingNumber: apiResp.TrackingID,
		TrackingURL:    apiResp.TrackingURL,
		CourierStatus:  apiResp.Status,
		Status:         courier.StatusPending,
	}, nil
}

// GetTracking fetches parcel state from RedX.
// RedX lookups are keyed by tracking id only; there is no secondary
// reference to fall back to.
func (c *Client) GetTracking(ctx context.Context, acct courier.Account, req *courier.TrackingRequest) (*courier.TrackingResponse, error) {
	if req.TrackingNumber == "" {
		return nil, courier.NewProviderError(courierType, "MISSING_TOKEN",
			"tracking id required").WithCause(courier.ErrMissingTrackingToken)
	}

	c.logger.Info("Tracking RedX parcel", zap.String("tracking_id", req.TrackingNumber))

	apiResp, err := c.apiClient.GetParcelInfo(ctx, acct, req.TrackingNumber)
	if err != nil {
		c.logger.Error("RedX API error", zap.Error(err))
		return nil, c.providerError(err)
	}

	info := apiResp.Parcel

	var lastEventAt *time.Time
	if info.UpdatedAt != "" {
		if t, err := time.Parse(time.RFC3339, info.UpdatedAt); err == nil {
			lastEventAt = &t
		}
	}

	return &courier.TrackingResponse{
		ExternalID:     info.TrackingID,
		TrackingNumber: info.TrackingID,
		TrackingURL:    info.TrackingURL,
		CourierStatus:  info.Status,
		Status:         mapStatus(info.Status),
		LastEventAt:    lastEventAt,
	}, nil
}

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

// mapStatus normalizes RedX's status vocabulary into the canonical enum.
// Same check order as the other providers, with RedX's own transit terms;
// the specific terms must stay ahead of the generic ones.
func mapStatus(raw string) courier.Status {
	s := strings.ToLower(raw)
	switch {
	case strings.Contains(s, "delivered"):
		return courier.StatusDelivered
	case strings.Contains(s, "return"):
		return courier.StatusReturned
	case strings.Contains(s, "out_for_delivery"):
		return courier.StatusOutForDelivery
	case strings.Contains(s, "on_the_way"), strings.Contains(s, "in_transit"):
		return courier.StatusInTransit
	case strings.Contains(s, "cancel"):
		return courier.StatusCancelled
	default:
		return courier.StatusPending
	}
}

func deliveryArea(r courier.Recipient) string {
	if r.Area != "" {
		return r.Area
	}
	return r.City
}

func itemsToAPI(items []courier.Item) []ParcelItem {
	if len(items) == 0 {
		return nil
	}
	result := make([]ParcelItem, len(items))
	for i, it := range items {
		result[i] = ParcelItem{
			Name:     it.Name,
			Value:    it.UnitPrice * float64(it.Quantity),
			Quantity: it.Quantity,
		}
	}
	return result
}

var _ courier.Provider = (*Client)(nil)
