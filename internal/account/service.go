// Package account wraps the current-customer profile and status endpoints.
package account

import (
	"context"
	"encoding/json"

	"storefront-client/internal/api"
	"storefront-client/internal/domain"
	"storefront-client/internal/session"
)

// UpdateInput carries the editable profile fields. Zero-value fields are
// omitted from the patch.
type UpdateInput struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Service issues authenticated profile calls through the session manager.
type Service struct {
	api     *api.Client
	session *session.Manager
}

// New builds a Service.
func New(client *api.Client, sess *session.Manager) *Service {
	return &Service{api: client, session: sess}
}

// Me fetches the current customer and refreshes the session's stored profile
// under the existing token.
func (s *Service) Me(ctx context.Context) (*domain.Customer, error) {
	customer, err := s.fetchCustomer(ctx, func(ctx context.Context, token string) (json.RawMessage, error) {
		return s.api.Get(ctx, "/customer/me", api.Options{Token: token})
	}, domain.CodeCustomerNotFound)
	if err != nil {
		return nil, err
	}
	return customer, nil
}

// Update patches the profile and refreshes the session's stored profile.
func (s *Service) Update(ctx context.Context, in UpdateInput) (*domain.Customer, error) {
	return s.fetchCustomer(ctx, func(ctx context.Context, token string) (json.RawMessage, error) {
		return s.api.Patch(ctx, "/customer/me", api.Options{Token: token, Body: in})
	}, domain.CodeRequestFailed)
}

// Status returns the account whitelist status.
func (s *Service) Status(ctx context.Context) (*domain.AccountStatus, error) {
	var out domain.AccountStatus
	err := s.session.AuthedCall(ctx, func(ctx context.Context, token string) error {
		data, err := s.api.Get(ctx, "/customer/me/status", api.Options{Token: token})
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
	return &out, nil
}

func (s *Service) fetchCustomer(ctx context.Context, call func(context.Context, string) (json.RawMessage, error), missingCode string) (*domain.Customer, error) {
	var customer *domain.Customer
	var token string
	err := s.session.AuthedCall(ctx, func(ctx context.Context, tok string) error {
		token = tok
		data, err := call(ctx, tok)
		if err != nil {
			return err
		}
		var out struct {
			Customer *domain.Customer `json:"customer"`
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &out); err != nil {
				return err
			}
		}
		customer = out.Customer
		return nil
	})
	if err != nil {
		return nil, err
	}
	// A 2xx body without a customer is a malformed response, not a server
	// credential rejection; it must not cascade into a logout.
	if customer == nil {
		return nil, domain.NewAPIError(missingCode, 0)
	}
	// Same token, fresh profile.
	s.session.CompleteLogin(ctx, token, customer)
	return customer, nil
}
