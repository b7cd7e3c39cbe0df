package service_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tournevent/shipments/internal/model"
	"github.com/tournevent/shipments/internal/service"
	"github.com/tournevent/shipments/internal/store"
	"github.com/tournevent/shipments/pkg/courier"
	"github.com/tournevent/shipments/pkg/courier/mock"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	mu         sync.Mutex
	orders     map[string]*model.Order
	warehouses map[string]*model.Warehouse
	couriers   map[string]*model.Courier
	shipments  map[string]*model.Shipment
	seq        int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:     make(map[string]*model.Order),
		warehouses: make(map[string]*model.Warehouse),
		couriers:   make(map[string]*model.Courier),
		shipments:  make(map[string]*model.Shipment),
	}
}

func (f *fakeStore) addOrder(o *model.Order) *model.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.ID] = o
	return o
}

func (f *fakeStore) addCourier(c *model.Courier) *model.Courier {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == "" {
		f.seq++
		c.ID = fmt.Sprintf("courier-%d", f.seq)
	}
	f.couriers[c.ID] = c
	return c
}

func (f *fakeStore) addShipment(sh *model.Shipment) *model.Shipment {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sh.ID == "" {
		f.seq++
		sh.ID = fmt.Sprintf("shipment-%d", f.seq)
	}
	snap := *sh
	f.shipments[sh.ID] = &snap
	return sh
}

func (f *fakeStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[id]; ok {
		return o, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetWarehouse(ctx context.Context, id string) (*model.Warehouse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.warehouses[id]; ok {
		return w, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateCourier(ctx context.Context, c *model.Courier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == "" {
		f.seq++
		c.ID = fmt.Sprintf("courier-%d", f.seq)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	snap := *c
	f.couriers[c.ID] = &snap
	return nil
}

func (f *fakeStore) GetCourier(ctx context.Context, id string) (*model.Courier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.couriers[id]; ok {
		snap := *c
		return &snap, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetCourierByName(ctx context.Context, name string) (*model.Courier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.couriers {
		if strings.EqualFold(c.Name, name) {
			snap := *c
			return &snap, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListCouriers(ctx context.Context) ([]*model.Courier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Courier, 0, len(f.couriers))
	for _, c := range f.couriers {
		snap := *c
		out = append(out, &snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdateCourier(ctx context.Context, c *model.Courier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.couriers[c.ID]; !ok {
		return store.ErrNotFound
	}
	snap := *c
	f.couriers[c.ID] = &snap
	return nil
}

func (f *fakeStore) CreateShipment(ctx context.Context, sh *model.Shipment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.shipments {
		if existing.OrderID == sh.OrderID {
			return store.ErrDuplicateOrder
		}
	}
	if sh.ID == "" {
		f.seq++
		sh.ID = fmt.Sprintf("shipment-%d", f.seq)
	}
	if sh.CreatedAt.IsZero() {
		sh.CreatedAt = time.Now()
	}
	snap := *sh
	f.shipments[sh.ID] = &snap
	return nil
}

func (f *fakeStore) GetShipment(ctx context.Context, id string) (*model.Shipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sh, ok := f.shipments[id]; ok {
		snap := *sh
		return &snap, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetShipmentByOrder(ctx context.Context, orderID string) (*model.Shipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sh := range f.shipments {
		if sh.OrderID == orderID {
			snap := *sh
			return &snap, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetShipmentByTracking(ctx context.Context, trackingNumber string) (*model.Shipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sh := range f.shipments {
		if sh.TrackingNumber == trackingNumber {
			snap := *sh
			return &snap, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListShipments(ctx context.Context, filter store.ShipmentFilter) ([]*model.Shipment, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []*model.Shipment
	for _, sh := range f.shipments {
		if filter.Status != "" && string(sh.Status) != filter.Status {
			continue
		}
		if filter.OrderID != "" && sh.OrderID != filter.OrderID {
			continue
		}
		if filter.CourierID != "" && (sh.CourierID == nil || *sh.CourierID != filter.CourierID) {
			continue
		}
		if filter.UserID != "" {
			o, ok := f.orders[sh.OrderID]
			if !ok || o.UserID != filter.UserID {
				continue
			}
		}
		snap := *sh
		matched = append(matched, &snap)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= total {
		return []*model.Shipment{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (f *fakeStore) ListSyncable(ctx context.Context, limit int) ([]*model.Shipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var eligible []*model.Shipment
	for _, sh := range f.shipments {
		if sh.CourierID == nil {
			continue
		}
		if sh.Status.Terminal() {
			continue
		}
		if sh.TrackingNumber == "" && sh.ExternalID == "" {
			continue
		}
		snap := *sh
		eligible = append(eligible, &snap)
	}
	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i].LastSyncedAt, eligible[j].LastSyncedAt
		if a == nil {
			return true
		}
		if b == nil {
			return false
		}
		return a.Before(*b)
	})
	if len(eligible) > limit {
		eligible = eligible[:limit]
	}
	return eligible, nil
}

func (f *fakeStore) UpdateShipment(ctx context.Context, sh *model.Shipment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.shipments[sh.ID]; !ok {
		return store.ErrNotFound
	}
	snap := *sh
	f.shipments[sh.ID] = &snap
	return nil
}

func (f *fakeStore) DeleteShipment(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.shipments[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.shipments, id)
	return nil
}

// fakeCache is an in-memory tracking cache for service tests.
type fakeCache struct {
	mu     sync.Mutex
	views  map[string]*model.TrackingView
	hits   int
	misses int
}

func newFakeCache() *fakeCache {
	return &fakeCache{views: make(map[string]*model.TrackingView)}
}

func (f *fakeCache) Get(ctx context.Context, trackingNumber string) (*model.TrackingView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.views[trackingNumber]; ok {
		f.hits++
		return v, nil
	}
	f.misses++
	return nil, nil
}

func (f *fakeCache) Set(ctx context.Context, trackingNumber string, view *model.TrackingView) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views[trackingNumber] = view
	return nil
}

func (f *fakeCache) Invalidate(ctx context.Context, trackingNumber string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.views, trackingNumber)
	return nil
}

// newTestService wires the service with an in-memory store and a stub
// provider registered as type "mock".
func newTestService(st *fakeStore) (*service.Shipments, *mock.Client) {
	registry := courier.NewRegistry()
	provider := mock.New("mock")
	registry.Register(provider)

	logger := otelzap.New(zap.NewNop())
	svc := service.NewShipments(service.Config{}, st, nil, registry, logger, nil)
	return svc, provider
}

func activeCourier(name string) *model.Courier {
	return &model.Courier{
		Name:    name,
		Type:    "mock",
		BaseURL: "https://vendor.example",
		APIKey:  "key",
		Active:  true,
	}
}

func testOrder(id, userID string) *model.Order {
	return &model.Order{
		ID:             id,
		UserID:         userID,
		Amount:         120,
		CashOnDelivery: true,
		RecipientName:  "Asha",
		RecipientPhone: "01711111111",
	}
}
