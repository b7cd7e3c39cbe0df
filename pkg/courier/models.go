package courier

import (
	"fmt"
	"strings"
	"time"
)

// Status is the canonical shipment status, independent of any vendor's
// status vocabulary.
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusInTransit      Status = "IN_TRANSIT"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusReturned       Status = "RETURNED"
	StatusCancelled      Status = "CANCELLED"
)

// Terminal reports whether no further vendor-side progress is expected.
func (s Status) Terminal() bool {
	switch s {
	case StatusDelivered, StatusReturned, StatusCancelled:
		return true
	}
	return false
}

// TerminalStatuses returns the set of statuses after which reconciliation stops.
func TerminalStatuses() []Status {
	return []Status{StatusDelivered, StatusReturned, StatusCancelled}
}

// ParseStatus validates a caller-supplied status string against the enum.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(s)) {
	case StatusPending:
		return StatusPending, nil
	case StatusInTransit:
		return StatusInTransit, nil
	case StatusOutForDelivery:
		return StatusOutForDelivery, nil
	case StatusDelivered:
		return StatusDelivered, nil
	case StatusReturned:
		return StatusReturned, nil
	case StatusCancelled:
		return StatusCancelled, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Recipient is the delivery destination block passed to vendors.
type Recipient struct {
	Name    string
	Phone   string
	Address string // free-text, vendor-side parsing
	Area    string
	City    string
	Country string
}

// Item is one order line item declared to the vendor.
type Item struct {
	Name      string
	Quantity  int
	UnitPrice float64
}

// CreateRequest is the vendor-agnostic input for booking a consignment.
type CreateRequest struct {
	ShipmentID     string
	OrderID        string
	Amount         float64
	CashOnDelivery bool
	Recipient      Recipient
	Items          []Item
	Note           string
}

// CreateResponse is the normalized result of a successful booking.
// ExternalID is the vendor's own reference and may differ from the
// human-facing TrackingNumber.
type CreateResponse struct {
	ExternalID     string
	TrackingNumber string
	TrackingURL    string
	CourierStatus  string // raw vendor status, kept verbatim
	Status         Status
}

// TrackingRequest carries whichever identifying tokens are available.
type TrackingRequest struct {
	TrackingNumber string
	ExternalID     string
}

// TrackingResponse is the normalized result of a tracking lookup.
type TrackingResponse struct {
	ExternalID     string
	TrackingNumber string
	TrackingURL    string
	CourierStatus  string
	Status         Status
	LastEventAt    *time.Time
}
