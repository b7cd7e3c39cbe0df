// Package store provides the Postgres-backed persistence layer and the
// Redis tracking cache.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/tournevent/shipments/internal/model"
)

// Sentinel errors returned by the store.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateOrder = errors.New("order already has a shipment")
)

// Config holds Postgres connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Postgres is the relational store for couriers, shipments, and the
// read-only order/warehouse collaborator records.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens and pings a Postgres connection.
func NewPostgres(cfg Config) (*Postgres, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &Postgres{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Postgres) Close() error {
	return s.db.Close()
}

// ============================================================================
// Couriers
// ============================================================================

const courierColumns = `id, name, type, base_url, api_key, secret_key, client_id, active, created_at`

// CreateCourier inserts a new courier account.
func (s *Postgres) CreateCourier(ctx context.Context, c *model.Courier) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now()

	query := `
		INSERT INTO couriers (` + courierColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Name, c.Type, c.BaseURL, c.APIKey, c.SecretKey, c.ClientID, c.Active, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error creating courier: %w", err)
	}
	return nil
}

// GetCourier fetches a courier by id.
func (s *Postgres) GetCourier(ctx context.Context, id string) (*model.Courier, error) {
	query := `SELECT ` + courierColumns + ` FROM couriers WHERE id = $1`
	return s.scanCourier(s.db.QueryRowContext(ctx, query, id))
}

// GetCourierByName fetches a courier by display name, case-insensitively.
func (s *Postgres) GetCourierByName(ctx context.Context, name string) (*model.Courier, error) {
	query := `SELECT ` + courierColumns + ` FROM couriers WHERE LOWER(name) = LOWER($1)`
	return s.scanCourier(s.db.QueryRowContext(ctx, query, name))
}

// ListCouriers returns all configured courier accounts.
func (s *Postgres) ListCouriers(ctx context.Context) ([]*model.Courier, error) {
	query := `SELECT ` + courierColumns + ` FROM couriers ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var couriers []*model.Courier
	for rows.Next() {
		var c model.Courier
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.BaseURL, &c.APIKey,
			&c.SecretKey, &c.ClientID, &c.Active, &c.CreatedAt); err != nil {
			return nil, err
		}
		couriers = append(couriers, &c)
	}
	return couriers, rows.Err()
}

// UpdateCourier persists the mutable courier fields.
func (s *Postgres) UpdateCourier(ctx context.Context, c *model.Courier) error {
	query := `
		UPDATE couriers
		SET name = $2, type = $3, base_url = $4, api_key = $5,
		    secret_key = $6, client_id = $7, active = $8
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query,
		c.ID, c.Name, c.Type, c.BaseURL, c.APIKey, c.SecretKey, c.ClientID, c.Active,
	)
	if err != nil {
		return fmt.Errorf("error updating courier: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) scanCourier(row *sql.Row) (*model.Courier, error) {
	var c model.Courier
	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.BaseURL, &c.APIKey,
		&c.SecretKey, &c.ClientID, &c.Active, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ============================================================================
// Orders and warehouses (read-only collaborator records)
// ============================================================================

// GetOrder fetches an order by id.
func (s *Postgres) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	query := `
		SELECT id, user_id, amount, cash_on_delivery,
		       recipient_name, recipient_phone, recipient_address,
		       recipient_area, recipient_city, recipient_country, items
		FROM orders WHERE id = $1`

	var o model.Order
	var items []byte

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&o.ID, &o.UserID, &o.Amount, &o.CashOnDelivery,
		&o.RecipientName, &o.RecipientPhone, &o.RecipientAddress,
		&o.RecipientArea, &o.RecipientCity, &o.RecipientCountry, &items,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, fmt.Errorf("error decoding order items: %w", err)
		}
	}
	return &o, nil
}

// GetWarehouse fetches a warehouse by id.
func (s *Postgres) GetWarehouse(ctx context.Context, id string) (*model.Warehouse, error) {
	query := `SELECT id, name, address FROM warehouses WHERE id = $1`

	var w model.Warehouse
	err := s.db.QueryRowContext(ctx, query, id).Scan(&w.ID, &w.Name, &w.Address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

// ============================================================================
// Shipments
// ============================================================================

const shipmentColumns = `id, order_id, courier_id, courier_name, warehouse_id,
	external_id, tracking_number, tracking_url, status, courier_status, note,
	created_at, last_synced_at, dispatched_at, expected_delivery_at, delivered_at`

// CreateShipment inserts a new shipment row. A second shipment for the same
// order violates the unique order index and maps to ErrDuplicateOrder.
func (s *Postgres) CreateShipment(ctx context.Context, sh *model.Shipment) error {
	if sh.ID == "" {
		sh.ID = uuid.New().String()
	}
	if sh.CreatedAt.IsZero() {
		sh.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO shipments (` + shipmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := s.db.ExecContext(ctx, query,
		sh.ID, sh.OrderID, sh.CourierID, sh.CourierName, sh.WarehouseID,
		sh.ExternalID, sh.TrackingNumber, sh.TrackingURL, sh.Status, sh.CourierStatus, sh.Note,
		sh.CreatedAt, sh.LastSyncedAt, sh.DispatchedAt, sh.ExpectedDeliveryAt, sh.DeliveredAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("error creating shipment: %w", err)
	}
	return nil
}

// GetShipment fetches a shipment by id.
func (s *Postgres) GetShipment(ctx context.Context, id string) (*model.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE id = $1`
	return s.scanShipmentRow(s.db.QueryRowContext(ctx, query, id))
}

// GetShipmentByOrder fetches the shipment belonging to an order, if any.
func (s *Postgres) GetShipmentByOrder(ctx context.Context, orderID string) (*model.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE order_id = $1`
	return s.scanShipmentRow(s.db.QueryRowContext(ctx, query, orderID))
}

// GetShipmentByTracking fetches a shipment by its human-facing tracking number.
func (s *Postgres) GetShipmentByTracking(ctx context.Context, trackingNumber string) (*model.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE tracking_number = $1`
	return s.scanShipmentRow(s.db.QueryRowContext(ctx, query, trackingNumber))
}

// ShipmentFilter narrows a shipment listing. Empty fields are ignored;
// UserID scopes results to shipments of that user's orders.
type ShipmentFilter struct {
	Status    string
	OrderID   string
	CourierID string
	UserID    string
	Page      int
	Limit     int
}

// ListShipments returns a page of shipments plus the unpaged total.
func (s *Postgres) ListShipments(ctx context.Context, f ShipmentFilter) ([]*model.Shipment, int, error) {
	where := `
		WHERE ($1 = '' OR s.status = $1)
		  AND ($2 = '' OR s.order_id = $2)
		  AND ($3 = '' OR s.courier_id = $3)
		  AND ($4 = '' OR EXISTS (
		      SELECT 1 FROM orders o WHERE o.id = s.order_id AND o.user_id = $4))`

	countQuery := `SELECT COUNT(*) FROM shipments s` + where

	var total int
	if err := s.db.QueryRowContext(ctx, countQuery,
		f.Status, f.OrderID, f.CourierID, f.UserID).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []*model.Shipment{}, 0, nil
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := `SELECT ` + prefixColumns("s.") + ` FROM shipments s` + where + `
		ORDER BY s.created_at DESC
		LIMIT $5 OFFSET $6`

	rows, err := s.db.QueryContext(ctx, query,
		f.Status, f.OrderID, f.CourierID, f.UserID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	shipments, err := s.scanShipments(rows)
	if err != nil {
		return nil, 0, err
	}
	return shipments, total, nil
}

// ListSyncable selects shipments eligible for a reconciliation pass:
// courier attached, non-terminal status, and at least one vendor token
// (a booking the vendor never accepted has nothing to poll), oldest
// synced first so starved rows catch up.
func (s *Postgres) ListSyncable(ctx context.Context, limit int) ([]*model.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments
		WHERE courier_id IS NOT NULL
		  AND status NOT IN ('DELIVERED', 'RETURNED', 'CANCELLED')
		  AND (tracking_number <> '' OR external_id <> '')
		ORDER BY last_synced_at ASC NULLS FIRST
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanShipments(rows)
}

// UpdateShipment persists all mutable shipment fields.
func (s *Postgres) UpdateShipment(ctx context.Context, sh *model.Shipment) error {
	query := `
		UPDATE shipments
		SET courier_id = $2, courier_name = $3, warehouse_id = $4,
		    external_id = $5, tracking_number = $6, tracking_url = $7,
		    status = $8, courier_status = $9, note = $10,
		    last_synced_at = $11, dispatched_at = $12,
		    expected_delivery_at = $13, delivered_at = $14
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query,
		sh.ID, sh.CourierID, sh.CourierName, sh.WarehouseID,
		sh.ExternalID, sh.TrackingNumber, sh.TrackingURL,
		sh.Status, sh.CourierStatus, sh.Note,
		sh.LastSyncedAt, sh.DispatchedAt, sh.ExpectedDeliveryAt, sh.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("error updating shipment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteShipment hard-deletes a shipment row.
func (s *Postgres) DeleteShipment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shipments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ============================================================================
// Scan helpers
// ============================================================================

func (s *Postgres) scanShipmentRow(row *sql.Row) (*model.Shipment, error) {
	sh, err := scanShipment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sh, nil
}

func (s *Postgres) scanShipments(rows *sql.Rows) ([]*model.Shipment, error) {
	var shipments []*model.Shipment
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		shipments = append(shipments, sh)
	}
	return shipments, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanShipment(row scanner) (*model.Shipment, error) {
	var sh model.Shipment
	var courierID, warehouseID sql.NullString
	var lastSyncedAt, dispatchedAt, expectedDeliveryAt, deliveredAt sql.NullTime

	err := row.Scan(
		&sh.ID, &sh.OrderID, &courierID, &sh.CourierName, &warehouseID,
		&sh.ExternalID, &sh.TrackingNumber, &sh.TrackingURL,
		&sh.Status, &sh.CourierStatus, &sh.Note,
		&sh.CreatedAt, &lastSyncedAt, &dispatchedAt, &expectedDeliveryAt, &deliveredAt,
	)
	if err != nil {
		return nil, err
	}

	if courierID.Valid {
		v := courierID.String
		sh.CourierID = &v
	}
	if warehouseID.Valid {
		v := warehouseID.String
		sh.WarehouseID = &v
	}
	if lastSyncedAt.Valid {
		t := lastSyncedAt.Time
		sh.LastSyncedAt = &t
	}
	if dispatchedAt.Valid {
		t := dispatchedAt.Time
		sh.DispatchedAt = &t
	}
	if expectedDeliveryAt.Valid {
		t := expectedDeliveryAt.Time
		sh.ExpectedDeliveryAt = &t
	}
	if deliveredAt.Valid {
		t := deliveredAt.Time
		sh.DeliveredAt = &t
	}
	return &sh, nil
}

func prefixColumns(prefix string) string {
	cols := []string{
		"id", "order_id", "courier_id", "courier_name", "warehouse_id",
		"external_id", "tracking_number", "tracking_url", "status", "courier_status", "note",
		"created_at", "last_synced_at", "dispatched_at", "expected_delivery_at", "delivered_at",
	}
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += prefix + c
	}
	return out
}
