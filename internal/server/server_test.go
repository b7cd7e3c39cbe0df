package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipments/internal/model"
	"github.com/tournevent/shipments/internal/server"
	"github.com/tournevent/shipments/internal/service"
	"github.com/tournevent/shipments/internal/store"
	"github.com/tournevent/shipments/pkg/courier"
	"github.com/tournevent/shipments/pkg/courier/mock"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// memStore is a minimal in-memory Store backing handler tests.
type memStore struct {
	orders    map[string]*model.Order
	couriers  map[string]*model.Courier
	shipments map[string]*model.Shipment
	seq       int
}

func newMemStore() *memStore {
	return &memStore{
		orders:    make(map[string]*model.Order),
		couriers:  make(map[string]*model.Courier),
		shipments: make(map[string]*model.Shipment),
	}
}

func (m *memStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	if o, ok := m.orders[id]; ok {
		return o, nil
	}
	return nil, store.ErrNotFound
}

func (m *memStore) GetWarehouse(ctx context.Context, id string) (*model.Warehouse, error) {
	return nil, store.ErrNotFound
}

func (m *memStore) CreateCourier(ctx context.Context, c *model.Courier) error {
	if c.ID == "" {
		m.seq++
		c.ID = fmt.Sprintf("courier-%d", m.seq)
	}
	m.couriers[c.ID] = c
	return nil
}

func (m *memStore) GetCourier(ctx context.Context, id string) (*model.Courier, error) {
	if c, ok := m.couriers[id]; ok {
		return c, nil
	}
	return nil, store.ErrNotFound
}

func (m *memStore) GetCourierByName(ctx context.Context, name string) (*model.Courier, error) {
	for _, c := range m.couriers {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) ListCouriers(ctx context.Context) ([]*model.Courier, error) {
	out := make([]*model.Courier, 0, len(m.couriers))
	for _, c := range m.couriers {
		out = append(out, c)
	}
	return out, nil
}

func (m *memStore) UpdateCourier(ctx context.Context, c *model.Courier) error {
	if _, ok := m.couriers[c.ID]; !ok {
		return store.ErrNotFound
	}
	m.couriers[c.ID] = c
	return nil
}

func (m *memStore) CreateShipment(ctx context.Context, sh *model.Shipment) error {
	for _, existing := range m.shipments {
		if existing.OrderID == sh.OrderID {
			return store.ErrDuplicateOrder
		}
	}
	if sh.ID == "" {
		sh.ID = "shipment-" + sh.OrderID
	}
	snap := *sh
	m.shipments[sh.ID] = &snap
	return nil
}

func (m *memStore) GetShipment(ctx context.Context, id string) (*model.Shipment, error) {
	if sh, ok := m.shipments[id]; ok {
		snap := *sh
		return &snap, nil
	}
	return nil, store.ErrNotFound
}

func (m *memStore) GetShipmentByOrder(ctx context.Context, orderID string) (*model.Shipment, error) {
	for _, sh := range m.shipments {
		if sh.OrderID == orderID {
			snap := *sh
			return &snap, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) GetShipmentByTracking(ctx context.Context, trackingNumber string) (*model.Shipment, error) {
	for _, sh := range m.shipments {
		if sh.TrackingNumber == trackingNumber {
			snap := *sh
			return &snap, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) ListShipments(ctx context.Context, f store.ShipmentFilter) ([]*model.Shipment, int, error) {
	var out []*model.Shipment
	for _, sh := range m.shipments {
		if f.UserID != "" {
			o, ok := m.orders[sh.OrderID]
			if !ok || o.UserID != f.UserID {
				continue
			}
		}
		snap := *sh
		out = append(out, &snap)
	}
	return out, len(out), nil
}

func (m *memStore) ListSyncable(ctx context.Context, limit int) ([]*model.Shipment, error) {
	var out []*model.Shipment
	for _, sh := range m.shipments {
		if sh.CourierID == nil || sh.Status.Terminal() {
			continue
		}
		if sh.TrackingNumber == "" && sh.ExternalID == "" {
			continue
		}
		snap := *sh
		out = append(out, &snap)
	}
	return out, nil
}

func (m *memStore) UpdateShipment(ctx context.Context, sh *model.Shipment) error {
	if _, ok := m.shipments[sh.ID]; !ok {
		return store.ErrNotFound
	}
	snap := *sh
	m.shipments[sh.ID] = &snap
	return nil
}

func (m *memStore) DeleteShipment(ctx context.Context, id string) error {
	if _, ok := m.shipments[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.shipments, id)
	return nil
}

const testCronSecret = "cron-secret"

func newTestHandler(t *testing.T, st *memStore) (http.Handler, *mock.Client) {
	t.Helper()

	logger := otelzap.New(zap.NewNop())
	registry := courier.NewRegistry()
	provider := mock.New("mock")
	registry.Register(provider)

	svc := service.NewShipments(service.Config{}, st, nil, registry, logger, nil)
	srv := server.New(server.Config{Port: 8080, CronSecret: testCronSecret}, svc, logger)
	return srv.Handler(), provider
}

func asAdmin(req *http.Request) *http.Request {
	req.Header.Set("X-User-Id", "admin-1")
	req.Header.Set("X-User-Role", "admin")
	return req
}

func asUser(req *http.Request, userID string) *http.Request {
	req.Header.Set("X-User-Id", userID)
	req.Header.Set("X-User-Role", "user")
	return req
}

func TestServer_Health(t *testing.T) {
	handler, _ := newTestHandler(t, newMemStore())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServer_CreateShipment(t *testing.T) {
	st := newMemStore()
	st.orders["order-1"] = &model.Order{ID: "order-1", UserID: "user-1", Amount: 100}
	st.couriers["courier-1"] = &model.Courier{ID: "courier-1", Name: "Pathao BD", Type: "mock", Active: true}
	handler, provider := newTestHandler(t, st)

	provider.OnCreate = func(ctx context.Context, acct courier.Account, req *courier.CreateRequest) (*courier.CreateResponse, error) {
		return &courier.CreateResponse{
			TrackingNumber: "PTH-55",
			ExternalID:     "DL-1",
			CourierStatus:  "created",
			Status:         courier.StatusPending,
		}, nil
	}

	body := strings.NewReader(`{"orderId":"order-1","courierId":"courier-1"}`)
	req := asAdmin(httptest.NewRequest(http.MethodPost, "/shipments", body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sh model.Shipment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sh))
	assert.Equal(t, "PTH-55", sh.TrackingNumber)
	assert.Equal(t, courier.StatusPending, sh.Status)
}

func TestServer_CreateShipment_Conflict(t *testing.T) {
	st := newMemStore()
	st.orders["order-1"] = &model.Order{ID: "order-1", UserID: "user-1"}
	st.couriers["courier-1"] = &model.Courier{ID: "courier-1", Name: "Pathao BD", Type: "mock", Active: true}
	st.shipments["shipment-1"] = &model.Shipment{ID: "shipment-1", OrderID: "order-1", Status: courier.StatusPending}
	handler, _ := newTestHandler(t, st)

	body := strings.NewReader(`{"orderId":"order-1","courierId":"courier-1"}`)
	req := asAdmin(httptest.NewRequest(http.MethodPost, "/shipments", body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_CreateShipment_ProviderFailure(t *testing.T) {
	st := newMemStore()
	st.orders["order-1"] = &model.Order{ID: "order-1", UserID: "user-1"}
	st.couriers["courier-1"] = &model.Courier{ID: "courier-1", Name: "Pathao BD", Type: "mock", Active: true}
	handler, provider := newTestHandler(t, st)

	provider.OnCreate = func(ctx context.Context, acct courier.Account, req *courier.CreateRequest) (*courier.CreateResponse, error) {
		return nil, courier.NewProviderError("mock", "HTTP_500", "vendor down").WithStatusCode(500)
	}

	body := strings.NewReader(`{"orderId":"order-1","courierId":"courier-1"}`)
	req := asAdmin(httptest.NewRequest(http.MethodPost, "/shipments", body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)

	// The error body carries the persisted, marked row
	var resp struct {
		Error    string          `json:"error"`
		Shipment *model.Shipment `json:"shipment"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Shipment)
	assert.Equal(t, courier.StatusPending, resp.Shipment.Status)
	assert.True(t, strings.HasPrefix(resp.Shipment.CourierStatus, "CREATE_FAILED: "))
}

func TestServer_CreateShipment_BadJSON(t *testing.T) {
	handler, _ := newTestHandler(t, newMemStore())

	req := asAdmin(httptest.NewRequest(http.MethodPost, "/shipments", strings.NewReader("{")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_RoleGating(t *testing.T) {
	handler, _ := newTestHandler(t, newMemStore())

	// No identity at all
	req := httptest.NewRequest(http.MethodGet, "/shipments", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Plain user cannot mutate
	req = asUser(httptest.NewRequest(http.MethodPost, "/shipments", strings.NewReader(`{}`)), "user-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = asUser(httptest.NewRequest(http.MethodDelete, "/shipments/shipment-1", nil), "user-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Courier account admin surface is equally gated
	req = asUser(httptest.NewRequest(http.MethodGet, "/couriers", nil), "user-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServer_GetShipment_NotFound(t *testing.T) {
	handler, _ := newTestHandler(t, newMemStore())

	req := asAdmin(httptest.NewRequest(http.MethodGet, "/shipments/missing", nil))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_GetShipment_ForeignUser(t *testing.T) {
	st := newMemStore()
	st.orders["order-1"] = &model.Order{ID: "order-1", UserID: "user-1"}
	st.shipments["shipment-1"] = &model.Shipment{ID: "shipment-1", OrderID: "order-1", Status: courier.StatusPending}
	handler, _ := newTestHandler(t, st)

	req := asUser(httptest.NewRequest(http.MethodGet, "/shipments/shipment-1", nil), "user-2")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServer_Track_Public(t *testing.T) {
	st := newMemStore()
	st.orders["order-1"] = &model.Order{ID: "order-1", UserID: "user-1", Amount: 100}
	st.shipments["shipment-1"] = &model.Shipment{
		ID: "shipment-1", OrderID: "order-1",
		TrackingNumber: "MANUAL-1", Status: courier.StatusInTransit,
	}
	handler, _ := newTestHandler(t, st)

	// No identity headers: tracking is public
	req := httptest.NewRequest(http.MethodGet, "/track/MANUAL-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var view model.TrackingView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, courier.StatusInTransit, view.Shipment.Status)
	require.NotNil(t, view.Order)
	assert.Equal(t, "order-1", view.Order.ID)
}

func TestServer_Track_NotFound(t *testing.T) {
	handler, _ := newTestHandler(t, newMemStore())

	req := httptest.NewRequest(http.MethodGet, "/track/UNKNOWN-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CronSync_Secret(t *testing.T) {
	st := newMemStore()
	handler, _ := newTestHandler(t, st)

	// No secret
	req := httptest.NewRequest(http.MethodGet, "/cron/sync-shipments", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong secret
	req = httptest.NewRequest(http.MethodGet, "/cron/sync-shipments", nil)
	req.Header.Set("X-Cron-Secret", "wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Header secret
	req = httptest.NewRequest(http.MethodGet, "/cron/sync-shipments", nil)
	req.Header.Set("X-Cron-Secret", testCronSecret)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Bearer form works too
	req = httptest.NewRequest(http.MethodGet, "/cron/sync-shipments", nil)
	req.Header.Set("Authorization", "Bearer "+testCronSecret)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_CronSync_Report(t *testing.T) {
	st := newMemStore()
	courierID := "courier-1"
	st.couriers[courierID] = &model.Courier{ID: courierID, Name: "Pathao BD", Type: "mock", Active: true}
	st.shipments["shipment-1"] = &model.Shipment{
		ID: "shipment-1", OrderID: "order-1", CourierID: &courierID,
		TrackingNumber: "PTH-1", Status: courier.StatusPending,
	}
	handler, provider := newTestHandler(t, st)

	provider.OnTrack = func(ctx context.Context, acct courier.Account, req *courier.TrackingRequest) (*courier.TrackingResponse, error) {
		return &courier.TrackingResponse{
			TrackingNumber: req.TrackingNumber,
			CourierStatus:  "delivered",
			Status:         courier.StatusDelivered,
		}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/cron/sync-shipments", nil)
	req.Header.Set("X-Cron-Secret", testCronSecret)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var report service.SyncReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Synced)
	assert.Equal(t, 0, report.Failed)
}

func TestServer_UpdateShipment(t *testing.T) {
	st := newMemStore()
	st.shipments["shipment-1"] = &model.Shipment{
		ID: "shipment-1", OrderID: "order-1", Status: courier.StatusPending,
	}
	handler, _ := newTestHandler(t, st)

	body := strings.NewReader(`{"status":"CANCELLED"}`)
	req := asAdmin(httptest.NewRequest(http.MethodPatch, "/shipments/shipment-1", body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var sh model.Shipment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sh))
	assert.Equal(t, courier.StatusCancelled, sh.Status)
}

func TestServer_DeleteShipment(t *testing.T) {
	st := newMemStore()
	st.shipments["shipment-1"] = &model.Shipment{
		ID: "shipment-1", OrderID: "order-1", Status: courier.StatusPending,
	}
	handler, _ := newTestHandler(t, st)

	req := asAdmin(httptest.NewRequest(http.MethodDelete, "/shipments/shipment-1", nil))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = asAdmin(httptest.NewRequest(http.MethodDelete, "/shipments/shipment-1", nil))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Couriers_AdminCRUD(t *testing.T) {
	handler, _ := newTestHandler(t, newMemStore())

	body := strings.NewReader(`{"name":"Pathao BD","type":"mock","baseUrl":"https://vendor.example","apiKey":"key"}`)
	req := asAdmin(httptest.NewRequest(http.MethodPost, "/couriers", body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created model.Courier
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	// The ID must be usable verbatim as a request path segment.
	assert.Equal(t, url.PathEscape(created.ID), created.ID)

	// Credentials never serialize
	assert.NotContains(t, rec.Body.String(), `"apiKey"`)

	req = asAdmin(httptest.NewRequest(http.MethodGet, "/couriers/"+created.ID, nil))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	body = strings.NewReader(`{"active":false}`)
	req = asAdmin(httptest.NewRequest(http.MethodPatch, "/couriers/"+created.ID, body))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated model.Courier
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.False(t, updated.Active)
}
