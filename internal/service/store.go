package service

import (
	"context"

	"github.com/tournevent/shipments/internal/model"
	"github.com/tournevent/shipments/internal/store"
)

// Store is the persistence surface the service consumes. *store.Postgres
// satisfies it; tests substitute an in-memory fake.
type Store interface {
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	GetWarehouse(ctx context.Context, id string) (*model.Warehouse, error)

	CreateCourier(ctx context.Context, c *model.Courier) error
	GetCourier(ctx context.Context, id string) (*model.Courier, error)
	GetCourierByName(ctx context.Context, name string) (*model.Courier, error)
	ListCouriers(ctx context.Context) ([]*model.Courier, error)
	UpdateCourier(ctx context.Context, c *model.Courier) error

	CreateShipment(ctx context.Context, sh *model.Shipment) error
	GetShipment(ctx context.Context, id string) (*model.Shipment, error)
	GetShipmentByOrder(ctx context.Context, orderID string) (*model.Shipment, error)
	GetShipmentByTracking(ctx context.Context, trackingNumber string) (*model.Shipment, error)
	ListShipments(ctx context.Context, f store.ShipmentFilter) ([]*model.Shipment, int, error)
	ListSyncable(ctx context.Context, limit int) ([]*model.Shipment, error)
	UpdateShipment(ctx context.Context, sh *model.Shipment) error
	DeleteShipment(ctx context.Context, id string) error
}

// Cache is the optional tracking-view cache. *store.TrackingCache satisfies it.
type Cache interface {
	Get(ctx context.Context, trackingNumber string) (*model.TrackingView, error)
	Set(ctx context.Context, trackingNumber string, view *model.TrackingView) error
	Invalidate(ctx context.Context, trackingNumber string) error
}
