// Package orders wraps the order-history endpoint. Order creation lives in
// the checkout orchestrator, which owns its gating rules.
package orders

import (
	"context"
	"encoding/json"

	"storefront-client/internal/api"
	"storefront-client/internal/domain"
	"storefront-client/internal/session"
)

// Service issues authenticated order calls through the session manager.
type Service struct {
	api     *api.Client
	session *session.Manager
}

// New builds a Service.
func New(client *api.Client, sess *session.Manager) *Service {
	return &Service{api: client, session: sess}
}

// List returns the customer's orders, newest first per the server's ordering.
func (s *Service) List(ctx context.Context) ([]domain.Order, error) {
	var out struct {
		Orders []domain.Order `json:"orders"`
	}
	err := s.session.AuthedCall(ctx, func(ctx context.Context, token string) error {
		data, err := s.api.Get(ctx, "/customer/orders", api.Options{Token: token})
		if err != nil {
			return err
		}
		if len(data) > 0 {
			return json.Unmarshal(data, &out)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out.Orders, nil
}
