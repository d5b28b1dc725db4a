// Package address wraps the saved-address endpoints.
package address

import (
	"context"
	"encoding/json"
	"strings"

	"storefront-client/internal/api"
	"storefront-client/internal/domain"
	"storefront-client/internal/session"
)

// Input carries the writable address fields.
type Input struct {
	Label string `json:"label,omitempty"`
	Line1 string `json:"line1"`
	Line2 string `json:"line2,omitempty"`
}

// Service issues authenticated address calls through the session manager.
type Service struct {
	api     *api.Client
	session *session.Manager
}

// New builds a Service.
func New(client *api.Client, sess *session.Manager) *Service {
	return &Service{api: client, session: sess}
}

// List returns the customer's saved addresses.
func (s *Service) List(ctx context.Context) ([]domain.Address, error) {
	var out struct {
		Addresses []domain.Address `json:"addresses"`
	}
	err := s.session.AuthedCall(ctx, func(ctx context.Context, token string) error {
		data, err := s.api.Get(ctx, "/customer/addresses", api.Options{Token: token})
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
	return out.Addresses, nil
}

// Create saves a new address.
func (s *Service) Create(ctx context.Context, in Input) error {
	return s.session.AuthedCall(ctx, func(ctx context.Context, token string) error {
		_, err := s.api.Post(ctx, "/customer/addresses", api.Options{Token: token, Body: in})
		return err
	})
}

// Update modifies an existing address.
func (s *Service) Update(ctx context.Context, addressID string, in Input) error {
	addressID = strings.TrimSpace(addressID)
	if addressID == "" {
		return domain.NewAPIError(domain.CodeAddressIDRequired, 0)
	}
	return s.session.AuthedCall(ctx, func(ctx context.Context, token string) error {
		_, err := s.api.Patch(ctx, "/customer/addresses/"+addressID, api.Options{Token: token, Body: in})
		return err
	})
}

// Delete removes a saved address.
func (s *Service) Delete(ctx context.Context, addressID string) error {
	addressID = strings.TrimSpace(addressID)
	if addressID == "" {
		return domain.NewAPIError(domain.CodeAddressIDRequired, 0)
	}
	return s.session.AuthedCall(ctx, func(ctx context.Context, token string) error {
		_, err := s.api.Delete(ctx, "/customer/addresses/"+addressID, api.Options{Token: token})
		return err
	})
}
