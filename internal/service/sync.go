package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tournevent/shipments/internal/model"
	"github.com/tournevent/shipments/pkg/courier"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SyncReport is the aggregate result of one reconciliation pass.
type SyncReport struct {
	Scanned int      `json:"scanned"`
	Synced  int      `json:"synced"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// SyncAll runs one reconciliation pass: it selects up to the configured
// batch of non-terminal shipments with a courier attached, oldest-synced
// first, and refreshes each concurrently. Each shipment settles on its own;
// one vendor failure never aborts the rest of the batch.
func (s *Shipments) SyncAll(ctx context.Context) (*SyncReport, error) {
	shipments, err := s.store.ListSyncable(ctx, s.batchSize)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{Scanned: len(shipments)}
	if len(shipments) == 0 {
		return report, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, sh := range shipments {
		sh := sh
		g.Go(func() error {
			err := s.refresh(gctx, sh)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", sh.ID, err))
				return nil // settle-all: keep the rest of the batch going
			}
			report.Synced++
			return nil
		})
	}
	g.Wait()

	if s.metrics != nil {
		s.metrics.RecordSyncRun(report.Synced, report.Failed)
	}
	s.logger.Info("Reconciliation pass finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("synced", report.Synced),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// RunSyncLoop reconciles on a fixed interval until the context is cancelled.
// The cron endpoint drives the same pass externally; the loop is for
// deployments without an external scheduler.
func (s *Shipments) RunSyncLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Starting reconciliation loop", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SyncAll(ctx); err != nil {
				s.logger.Error("Reconciliation pass failed", zap.Error(err))
			}
		}
	}
}

// refresh polls the vendor for one shipment and persists the result.
// Vendor data is treated as ground truth: the canonical status is
// recomputed from the raw reply with no monotonicity guard.
func (s *Shipments) refresh(ctx context.Context, sh *model.Shipment) error {
	if sh.CourierID == nil {
		return errors.New("shipment has no courier")
	}

	acct, err := s.store.GetCourier(ctx, *sh.CourierID)
	if err != nil {
		return fmt.Errorf("loading courier: %w", err)
	}

	provider, err := s.registry.Resolve(acct.Type)
	if err != nil {
		return err
	}

	start := s.now()
	tr, err := provider.GetTracking(ctx, acct.Account(), &courier.TrackingRequest{
		TrackingNumber: sh.TrackingNumber,
		ExternalID:     sh.ExternalID,
	})
	s.recordCourierCall("track", acct.Type, start, err)
	if err != nil {
		return err
	}

	now := s.now()
	sh.CourierStatus = tr.CourierStatus
	sh.Status = tr.Status
	if tr.ExternalID != "" {
		sh.ExternalID = tr.ExternalID
	}
	if tr.TrackingNumber != "" {
		sh.TrackingNumber = tr.TrackingNumber
	}
	if tr.TrackingURL != "" {
		sh.TrackingURL = tr.TrackingURL
	}
	sh.LastSyncedAt = &now
	if sh.Status == courier.StatusDelivered && sh.DeliveredAt == nil {
		sh.DeliveredAt = &now
	}

	if err := s.store.UpdateShipment(ctx, sh); err != nil {
		return err
	}

	s.invalidateTracking(ctx, sh.TrackingNumber)
	return nil
}
