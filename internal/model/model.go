// Package model holds the persisted domain entities of the shipments service.
package model

import (
	"time"

	"github.com/tournevent/shipments/pkg/courier"
)

// Courier is a configured logistics vendor account. Created by an
// administrator and read-mostly afterwards; deactivating an account never
// invalidates shipments already booked through it.
type Courier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"` // selects the provider adapter
	BaseURL   string    `json:"baseUrl"`
	APIKey    string    `json:"-"`
	SecretKey string    `json:"-"`
	ClientID  string    `json:"-"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Account converts the stored credentials into the adapter-facing form.
func (c *Courier) Account() courier.Account {
	return courier.Account{
		Name:      c.Name,
		BaseURL:   c.BaseURL,
		APIKey:    c.APIKey,
		SecretKey: c.SecretKey,
		ClientID:  c.ClientID,
	}
}

// Shipment is one delivery attempt tied to exactly one order. The row is
// created in PENDING before any vendor call so a failed booking stays
// inspectable; CourierStatus keeps the vendor's raw vocabulary verbatim.
type Shipment struct {
	ID                 string         `json:"id"`
	OrderID            string         `json:"orderId"`
	CourierID          *string        `json:"courierId,omitempty"`
	CourierName        string         `json:"courierName,omitempty"` // snapshot, survives courier edits
	WarehouseID        *string        `json:"warehouseId,omitempty"`
	ExternalID         string         `json:"externalId,omitempty"`
	TrackingNumber     string         `json:"trackingNumber,omitempty"`
	TrackingURL        string         `json:"trackingUrl,omitempty"`
	Status             courier.Status `json:"status"`
	CourierStatus      string         `json:"courierStatus,omitempty"`
	Note               string         `json:"note,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	LastSyncedAt       *time.Time     `json:"lastSyncedAt,omitempty"`
	DispatchedAt       *time.Time     `json:"dispatchedAt,omitempty"`
	ExpectedDeliveryAt *time.Time     `json:"expectedDeliveryAt,omitempty"`
	DeliveredAt        *time.Time     `json:"deliveredAt,omitempty"`
}

// OrderItem is one line item of an order.
type OrderItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// Order is the read-only collaborator record shipments are booked against.
type Order struct {
	ID               string      `json:"id"`
	UserID           string      `json:"userId"`
	Amount           float64     `json:"amount"`
	CashOnDelivery   bool        `json:"cashOnDelivery"`
	RecipientName    string      `json:"recipientName"`
	RecipientPhone   string      `json:"recipientPhone"`
	RecipientAddress string      `json:"recipientAddress"`
	RecipientArea    string      `json:"recipientArea,omitempty"`
	RecipientCity    string      `json:"recipientCity,omitempty"`
	RecipientCountry string      `json:"recipientCountry,omitempty"`
	Items            []OrderItem `json:"items,omitempty"`
}

// Warehouse is the read-only dispatch origin record.
type Warehouse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// OrderSummary is the slim order view returned alongside shipment reads.
type OrderSummary struct {
	ID            string  `json:"id"`
	Amount        float64 `json:"amount"`
	RecipientName string  `json:"recipientName,omitempty"`
}

// CourierSummary is the slim courier view returned alongside shipment reads.
type CourierSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

// Summary returns the order's slim view.
func (o *Order) Summary() *OrderSummary {
	return &OrderSummary{ID: o.ID, Amount: o.Amount, RecipientName: o.RecipientName}
}

// Summary returns the courier's slim view.
func (c *Courier) Summary() *CourierSummary {
	return &CourierSummary{ID: c.ID, Name: c.Name, Type: c.Type, Active: c.Active}
}

// TrackingView is the merged result of a public tracking lookup.
type TrackingView struct {
	Shipment *Shipment     `json:"shipment"`
	Order    *OrderSummary `json:"order,omitempty"`
}

// ShipmentDetail is the single-shipment read view with its relations.
type ShipmentDetail struct {
	Shipment *Shipment       `json:"shipment"`
	Order    *OrderSummary   `json:"order,omitempty"`
	Courier  *CourierSummary `json:"courier,omitempty"`
}
