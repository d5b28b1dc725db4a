// Package catalog wraps the item browsing and search endpoints.
package catalog

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"storefront-client/internal/api"
	"storefront-client/internal/domain"
	"storefront-client/internal/session"
)

// Service issues authenticated catalog calls through the session manager.
type Service struct {
	api     *api.Client
	session *session.Manager
}

// New builds a Service.
func New(client *api.Client, sess *session.Manager) *Service {
	return &Service{api: client, session: sess}
}

// ListItems returns the full catalog.
func (s *Service) ListItems(ctx context.Context) ([]domain.Product, error) {
	return s.fetchItems(ctx, "/customer/items", nil)
}

// Search returns items matching q. A blank query fails client-side with
// QUERY_REQUIRED before any network call.
func (s *Service) Search(ctx context.Context, q string) ([]domain.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, domain.NewAPIError(domain.CodeQueryRequired, 0)
	}
	return s.fetchItems(ctx, "/customer/items/search", url.Values{"q": {q}})
}

// Categories returns the category listing with per-category counts.
func (s *Service) Categories(ctx context.Context) ([]domain.CategorySummary, error) {
	var out struct {
		Categories []domain.CategorySummary `json:"categories"`
	}
	err := s.session.AuthedCall(ctx, func(ctx context.Context, token string) error {
		data, err := s.api.Get(ctx, "/customer/categories", api.Options{Token: token})
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
	return out.Categories, nil
}

// CategoryItems returns the items of one category.
func (s *Service) CategoryItems(ctx context.Context, category string) ([]domain.Product, error) {
	return s.fetchItems(ctx, "/customer/categories/"+url.PathEscape(category)+"/items", nil)
}

func (s *Service) fetchItems(ctx context.Context, path string, query url.Values) ([]domain.Product, error) {
	var out struct {
		Items []domain.Product `json:"items"`
	}
	err := s.session.AuthedCall(ctx, func(ctx context.Context, token string) error {
		data, err := s.api.Get(ctx, path, api.Options{Token: token, Query: query})
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
	return out.Items, nil
}
