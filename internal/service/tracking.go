package service

import (
	"context"
	"errors"

	"github.com/tournevent/shipments/internal/model"
	"github.com/tournevent/shipments/internal/store"
	"go.uber.org/zap"
)

// Track is the public, read-triggered live refresh keyed by tracking number.
// Shipments without a courier attached resolve from the stored snapshot with
// no vendor call, so manually-tracked shipments still work. Integrated
// shipments are refreshed synchronously; a vendor failure fails the lookup.
// When the tracking cache is enabled a hit serves the cached view without a
// vendor call, so the response may lag the vendor by up to the cache TTL.
func (s *Shipments) Track(ctx context.Context, trackingNumber string) (*model.TrackingView, error) {
	if trackingNumber == "" {
		return nil, Errf(KindValidation, "tracking number is required")
	}

	if s.cache != nil {
		view, err := s.cache.Get(ctx, trackingNumber)
		if err != nil {
			s.logger.Warn("Tracking cache read failed",
				zap.String("tracking_number", trackingNumber), zap.Error(err))
		} else if view != nil {
			return view, nil
		}
	}

	sh, err := s.store.GetShipmentByTracking(ctx, trackingNumber)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, Errf(KindNotFound, "shipment with tracking number %s not found", trackingNumber)
		}
		return nil, err
	}

	if sh.CourierID != nil {
		if err := s.refresh(ctx, sh); err != nil {
			return nil, &Error{
				Kind:    KindProvider,
				Message: "courier tracking lookup failed",
				Cause:   err,
			}
		}
	}

	view := &model.TrackingView{Shipment: sh}
	if order, err := s.store.GetOrder(ctx, sh.OrderID); err == nil {
		view.Order = order.Summary()
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, trackingNumber, view); err != nil {
			s.logger.Warn("Tracking cache write failed",
				zap.String("tracking_number", trackingNumber), zap.Error(err))
		}
	}
	return view, nil
}
