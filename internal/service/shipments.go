// Package service implements the shipment lifecycle: creation orchestration,
// reconciliation against courier vendors, and the public tracking read path.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tournevent/shipments/internal/model"
	"github.com/tournevent/shipments/internal/store"
	"github.com/tournevent/shipments/internal/telemetry"
	"github.com/tournevent/shipments/pkg/courier"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// createFailedPrefix marks the raw-status field of a shipment whose vendor
// booking failed. The row stays PENDING and keeps no vendor tokens, which
// also keeps it out of reconciliation passes.
const createFailedPrefix = "CREATE_FAILED: "

const defaultSyncBatchSize = 200

// Config holds service tunables.
type Config struct {
	SyncBatchSize int
}

// Shipments is the shipment lifecycle service.
type Shipments struct {
	store     Store
	cache     Cache
	registry  *courier.Registry
	logger    *otelzap.Logger
	metrics   *telemetry.Metrics
	batchSize int
	now       func() time.Time
}

// NewShipments creates the service. cache and metrics may be nil.
func NewShipments(cfg Config, st Store, cache Cache, registry *courier.Registry, logger *otelzap.Logger, metrics *telemetry.Metrics) *Shipments {
	batchSize := cfg.SyncBatchSize
	if batchSize <= 0 {
		batchSize = defaultSyncBatchSize
	}

	return &Shipments{
		store:     st,
		cache:     cache,
		registry:  registry,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Identity is the caller identity extracted from the trusted gateway headers.
type Identity struct {
	UserID string
	Role   string
}

// Admin reports whether the caller holds the admin role.
func (i Identity) Admin() bool {
	return i.Role == "admin"
}

// CreateInput is the creation request. The courier is selected either by id
// or by display name (case-insensitive); exactly one is required.
type CreateInput struct {
	OrderID     string `json:"orderId"`
	CourierID   string `json:"courierId"`
	Courier     string `json:"courier"`
	WarehouseID string `json:"warehouseId"`
	Note        string `json:"note"`
}

// Create books a shipment for an order. The row is inserted in PENDING
// before the vendor call so a failed booking stays inspectable and the
// caller receives the marked row alongside the provider error.
func (s *Shipments) Create(ctx context.Context, in CreateInput) (*model.Shipment, error) {
	if in.OrderID == "" {
		return nil, Errf(KindValidation, "orderId is required")
	}
	if in.CourierID == "" && in.Courier == "" {
		return nil, Errf(KindValidation, "courierId or courier is required")
	}

	var (
		order *model.Order
		acct  *model.Courier
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		o, err := s.store.GetOrder(gctx, in.OrderID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return Errf(KindNotFound, "order %s not found", in.OrderID)
			}
			return err
		}
		order = o
		return nil
	})
	g.Go(func() error {
		c, err := s.lookupCourier(gctx, in.CourierID, in.Courier)
		if err != nil {
			return err
		}
		acct = c
		return nil
	})
	if in.WarehouseID != "" {
		g.Go(func() error {
			if _, err := s.store.GetWarehouse(gctx, in.WarehouseID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return Errf(KindNotFound, "warehouse %s not found", in.WarehouseID)
				}
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !acct.Active {
		return nil, Errf(KindValidation, "courier %s is not active", acct.Name)
	}

	// Conflict resolves before any durable write or network call.
	if _, err := s.store.GetShipmentByOrder(ctx, in.OrderID); err == nil {
		return nil, Errf(KindConflict, "order %s already has a shipment", in.OrderID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	sh := &model.Shipment{
		OrderID:     order.ID,
		CourierID:   &acct.ID,
		CourierName: acct.Name,
		Status:      courier.StatusPending,
		Note:        in.Note,
	}
	if in.WarehouseID != "" {
		w := in.WarehouseID
		sh.WarehouseID = &w
	}

	// Durability checkpoint: the intent is persisted before the vendor call.
	if err := s.store.CreateShipment(ctx, sh); err != nil {
		if errors.Is(err, store.ErrDuplicateOrder) {
			return nil, Errf(KindConflict, "order %s already has a shipment", in.OrderID)
		}
		return nil, err
	}

	provider, err := s.registry.Resolve(acct.Type)
	if err != nil {
		return nil, s.markCreateFailed(ctx, sh, err)
	}

	start := s.now()
	resp, err := provider.CreateShipment(ctx, acct.Account(), &courier.CreateRequest{
		ShipmentID:     sh.ID,
		OrderID:        order.ID,
		Amount:         order.Amount,
		CashOnDelivery: order.CashOnDelivery,
		Recipient: courier.Recipient{
			Name:    order.RecipientName,
			Phone:   order.RecipientPhone,
			Address: order.RecipientAddress,
			Area:    order.RecipientArea,
			City:    order.RecipientCity,
			Country: order.RecipientCountry,
		},
		Items: orderItems(order),
		Note:  in.Note,
	})
	s.recordCourierCall("create", acct.Type, start, err)
	if err != nil {
		return nil, s.markCreateFailed(ctx, sh, err)
	}

	now := s.now()
	sh.ExternalID = resp.ExternalID
	sh.TrackingNumber = resp.TrackingNumber
	sh.TrackingURL = resp.TrackingURL
	sh.CourierStatus = resp.CourierStatus
	sh.Status = resp.Status
	sh.LastSyncedAt = &now
	sh.DispatchedAt = &now

	if err := s.store.UpdateShipment(ctx, sh); err != nil {
		return nil, err
	}

	s.logger.Info("Shipment created",
		zap.String("shipment_id", sh.ID),
		zap.String("order_id", sh.OrderID),
		zap.String("courier", acct.Name),
		zap.String("tracking_number", sh.TrackingNumber),
	)
	return sh, nil
}

// markCreateFailed stamps the failure marker onto the already-persisted row.
// The canonical status stays PENDING; only the raw-status field and the sync
// timestamp record the failed dispatch.
func (s *Shipments) markCreateFailed(ctx context.Context, sh *model.Shipment, cause error) error {
	now := s.now()
	sh.CourierStatus = createFailedPrefix + cause.Error()
	sh.LastSyncedAt = &now

	if err := s.store.UpdateShipment(ctx, sh); err != nil {
		s.logger.Error("Failed to mark shipment after create failure",
			zap.String("shipment_id", sh.ID), zap.Error(err))
	}

	s.logger.Error("Courier rejected shipment creation",
		zap.String("shipment_id", sh.ID),
		zap.String("order_id", sh.OrderID),
		zap.Error(cause),
	)

	return &Error{
		Kind:     KindProvider,
		Message:  "courier shipment creation failed",
		Shipment: sh,
		Cause:    cause,
	}
}

// Get returns a shipment with its order and courier detail. Non-admin
// callers may only read shipments of their own orders.
func (s *Shipments) Get(ctx context.Context, actor Identity, id string) (*model.ShipmentDetail, error) {
	sh, err := s.store.GetShipment(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, Errf(KindNotFound, "shipment %s not found", id)
		}
		return nil, err
	}

	detail := &model.ShipmentDetail{Shipment: sh}

	order, err := s.store.GetOrder(ctx, sh.OrderID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if order != nil {
		if !actor.Admin() && order.UserID != actor.UserID {
			return nil, Errf(KindForbidden, "shipment %s belongs to another user", id)
		}
		detail.Order = order.Summary()
	} else if !actor.Admin() {
		return nil, Errf(KindForbidden, "shipment %s belongs to another user", id)
	}

	if sh.CourierID != nil {
		if c, err := s.store.GetCourier(ctx, *sh.CourierID); err == nil {
			detail.Courier = c.Summary()
		}
	}
	return detail, nil
}

// ListInput narrows a shipment listing.
type ListInput struct {
	Page      int
	Limit     int
	Status    string
	OrderID   string
	CourierID string
}

// List returns a page of shipments. Non-admin callers are implicitly scoped
// to their own orders.
func (s *Shipments) List(ctx context.Context, actor Identity, in ListInput) ([]*model.Shipment, int, error) {
	if in.Status != "" {
		if _, err := courier.ParseStatus(in.Status); err != nil {
			return nil, 0, Errf(KindValidation, "invalid status filter %q", in.Status)
		}
	}

	f := store.ShipmentFilter{
		Status:    in.Status,
		OrderID:   in.OrderID,
		CourierID: in.CourierID,
		Page:      in.Page,
		Limit:     in.Limit,
	}
	if !actor.Admin() {
		f.UserID = actor.UserID
	}

	return s.store.ListShipments(ctx, f)
}

// UpdateInput is the admin partial update. Nil fields are left untouched.
type UpdateInput struct {
	CourierID          *string    `json:"courierId"`
	TrackingNumber     *string    `json:"trackingNumber"`
	Status             *string    `json:"status"`
	DispatchedAt       *time.Time `json:"dispatchedAt"`
	ExpectedDeliveryAt *time.Time `json:"expectedDeliveryAt"`
	DeliveredAt        *time.Time `json:"deliveredAt"`
}

// Update applies a manual administrative override to a shipment.
func (s *Shipments) Update(ctx context.Context, id string, in UpdateInput) (*model.Shipment, error) {
	sh, err := s.store.GetShipment(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, Errf(KindNotFound, "shipment %s not found", id)
		}
		return nil, err
	}
	prevTracking := sh.TrackingNumber

	if in.CourierID != nil {
		acct, err := s.store.GetCourier(ctx, *in.CourierID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, Errf(KindNotFound, "courier %s not found", *in.CourierID)
			}
			return nil, err
		}
		if !acct.Active {
			return nil, Errf(KindValidation, "courier %s is not active", acct.Name)
		}
		sh.CourierID = &acct.ID
		sh.CourierName = acct.Name
	}
	if in.TrackingNumber != nil {
		sh.TrackingNumber = *in.TrackingNumber
	}
	if in.Status != nil {
		st, err := courier.ParseStatus(*in.Status)
		if err != nil {
			return nil, Errf(KindValidation, "invalid status %q", *in.Status)
		}
		sh.Status = st
	}
	if in.DispatchedAt != nil {
		sh.DispatchedAt = in.DispatchedAt
	}
	if in.ExpectedDeliveryAt != nil {
		sh.ExpectedDeliveryAt = in.ExpectedDeliveryAt
	}
	if in.DeliveredAt != nil {
		sh.DeliveredAt = in.DeliveredAt
	}

	if err := s.store.UpdateShipment(ctx, sh); err != nil {
		return nil, err
	}

	s.invalidateTracking(ctx, prevTracking, sh.TrackingNumber)
	return sh, nil
}

// Delete hard-deletes a shipment. Vendor-side state is untouched.
func (s *Shipments) Delete(ctx context.Context, id string) error {
	sh, err := s.store.GetShipment(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Errf(KindNotFound, "shipment %s not found", id)
		}
		return err
	}

	if err := s.store.DeleteShipment(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Errf(KindNotFound, "shipment %s not found", id)
		}
		return err
	}

	s.invalidateTracking(ctx, sh.TrackingNumber)
	s.logger.Info("Shipment deleted",
		zap.String("shipment_id", id), zap.String("order_id", sh.OrderID))
	return nil
}

func (s *Shipments) lookupCourier(ctx context.Context, id, name string) (*model.Courier, error) {
	var (
		c   *model.Courier
		err error
	)
	if id != "" {
		c, err = s.store.GetCourier(ctx, id)
	} else {
		c, err = s.store.GetCourierByName(ctx, name)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sel := id
			if sel == "" {
				sel = name
			}
			return nil, Errf(KindNotFound, "courier %s not found", sel)
		}
		return nil, err
	}
	return c, nil
}

func (s *Shipments) invalidateTracking(ctx context.Context, trackingNumbers ...string) {
	if s.cache == nil {
		return
	}
	for _, tn := range trackingNumbers {
		if tn == "" {
			continue
		}
		if err := s.cache.Invalidate(ctx, tn); err != nil {
			s.logger.Warn("Failed to invalidate tracking cache",
				zap.String("tracking_number", tn), zap.Error(err))
		}
	}
}

func (s *Shipments) recordCourierCall(operation, courierType string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		s.metrics.RecordCourierError(courierType, errorType(err))
	}
	s.metrics.RecordCourierRequest(operation, courierType, status, time.Since(start).Seconds())
}

func errorType(err error) string {
	if pe, ok := courier.IsProviderError(err); ok {
		if pe.StatusCode > 0 {
			return fmt.Sprintf("http_%d", pe.StatusCode)
		}
		return pe.Code
	}
	return "internal"
}

func orderItems(o *model.Order) []courier.Item {
	if len(o.Items) == 0 {
		return nil
	}
	items := make([]courier.Item, len(o.Items))
	for i, it := range o.Items {
		items[i] = courier.Item{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
	}
	return items
}
