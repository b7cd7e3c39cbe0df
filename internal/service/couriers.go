package service

import (
	"context"
	"errors"

	"github.com/tournevent/shipments/internal/model"
	"github.com/tournevent/shipments/internal/store"
	"go.uber.org/zap"
)

// CourierInput is the admin request for configuring a courier account.
type CourierInput struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	BaseURL   string `json:"baseUrl"`
	APIKey    string `json:"apiKey"`
	SecretKey string `json:"secretKey"`
	ClientID  string `json:"clientId"`
	Active    *bool  `json:"active"`
}

// CreateCourier configures a new courier account. The type tag must have a
// registered provider adapter.
func (s *Shipments) CreateCourier(ctx context.Context, in CourierInput) (*model.Courier, error) {
	if in.Name == "" {
		return nil, Errf(KindValidation, "name is required")
	}
	if in.Type == "" {
		return nil, Errf(KindValidation, "type is required")
	}
	if _, err := s.registry.Resolve(in.Type); err != nil {
		return nil, Errf(KindValidation, "unknown courier type %q", in.Type)
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}

	c := &model.Courier{
		Name:      in.Name,
		Type:      in.Type,
		BaseURL:   in.BaseURL,
		APIKey:    in.APIKey,
		SecretKey: in.SecretKey,
		ClientID:  in.ClientID,
		Active:    active,
	}
	if err := s.store.CreateCourier(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("Courier configured",
		zap.String("courier_id", c.ID),
		zap.String("name", c.Name),
		zap.String("type", c.Type),
	)
	return c, nil
}

// ListCouriers returns all configured courier accounts.
func (s *Shipments) ListCouriers(ctx context.Context) ([]*model.Courier, error) {
	return s.store.ListCouriers(ctx)
}

// GetCourierAccount returns one configured courier account.
func (s *Shipments) GetCourierAccount(ctx context.Context, id string) (*model.Courier, error) {
	c, err := s.store.GetCourier(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, Errf(KindNotFound, "courier %s not found", id)
		}
		return nil, err
	}
	return c, nil
}

// UpdateCourier applies a partial update to a courier account. Deactivation
// does not touch existing shipments; their snapshots stay as booked.
func (s *Shipments) UpdateCourier(ctx context.Context, id string, in CourierInput) (*model.Courier, error) {
	c, err := s.GetCourierAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		c.Name = in.Name
	}
	if in.Type != "" {
		if _, err := s.registry.Resolve(in.Type); err != nil {
			return nil, Errf(KindValidation, "unknown courier type %q", in.Type)
		}
		c.Type = in.Type
	}
	if in.BaseURL != "" {
		c.BaseURL = in.BaseURL
	}
	if in.APIKey != "" {
		c.APIKey = in.APIKey
	}
	if in.SecretKey != "" {
		c.SecretKey = in.SecretKey
	}
	if in.ClientID != "" {
		c.ClientID = in.ClientID
	}
	if in.Active != nil {
		c.Active = *in.Active
	}

	if err := s.store.UpdateCourier(ctx, c); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, Errf(KindNotFound, "courier %s not found", id)
		}
		return nil, err
	}
	return c, nil
}
