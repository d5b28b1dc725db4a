package stubserver

import (
	"crypto/rand"
	"encoding/base64"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront-client/internal/domain"
)

// otpCode is the fixed code the stub accepts for every phone number.
const otpCode = "123456"

// state is the in-memory backing store for the stub API. It exists to
// exercise the client, not to model a real backend.
type state struct {
	mu          sync.Mutex
	otps        map[string]string // phone -> pending code
	tokens      map[string]string // token -> customer id
	revoked     map[string]struct{}
	customers   map[string]*domain.Customer // customer id -> profile
	byPhone     map[string]string           // phone -> customer id
	addresses   map[string][]domain.Address // customer id -> saved addresses
	orders      map[string][]domain.Order   // customer id -> placed orders
	items       []domain.Product
	deliveryFee string
}

func newState() *state {
	return &state{
		otps:        make(map[string]string),
		tokens:      make(map[string]string),
		revoked:     make(map[string]struct{}),
		customers:   make(map[string]*domain.Customer),
		byPhone:     make(map[string]string),
		addresses:   make(map[string][]domain.Address),
		orders:      make(map[string][]domain.Order),
		items:       seedItems(),
		deliveryFee: "10",
	}
}

// issueToken mints an opaque bearer token for the customer with the given
// phone, creating the customer record on first login.
func (s *state) issueToken(phone string) (string, *domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byPhone[phone]
	if !ok {
		id = uuid.NewString()
		s.byPhone[phone] = id
		s.customers[id] = &domain.Customer{
			ID:        id,
			Phone:     phone,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		}
	}

	token, err := randomToken()
	if err != nil {
		return "", nil, err
	}
	s.tokens[token] = id
	customer := *s.customers[id]
	return token, &customer, nil
}

// resolveToken maps a bearer token to a customer id, reporting the precise
// failure code the client's auth-invalidation set distinguishes.
func (s *state) resolveToken(token string) (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.revoked[token]; ok {
		return "", domain.CodeTokenRevoked
	}
	id, ok := s.tokens[token]
	if !ok {
		return "", domain.CodeTokenInvalid
	}
	if _, ok := s.customers[id]; !ok {
		return "", domain.CodeCustomerNotFound
	}
	return id, ""
}

func (s *state) revokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	s.revoked[token] = struct{}{}
}

// RevokeAllTokens revokes every outstanding token. Tests use it to simulate
// server-side credential invalidation.
func (s *state) RevokeAllTokens(customerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, id := range s.tokens {
		if customerID == "" || id == customerID {
			delete(s.tokens, token)
			s.revoked[token] = struct{}{}
		}
	}
}

func (s *state) priceOf(productID string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.ID == productID {
			price, err := strconv.ParseFloat(it.SellingPrice, 64)
			if err != nil {
				return 0, false
			}
			return price, true
		}
	}
	return 0, false
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// seedItems provides a small catalog for manual testing.
func seedItems() []domain.Product {
	return []domain.Product{
		{
			ID:              "item-basmati-rice",
			Name:            "Basmati Rice 5kg",
			Description:     "Long-grain aged basmati",
			SellingPrice:    "450",
			DiscountPercent: "5",
			Quantity:        40,
			Category:        "grocery",
		},
		{
			ID:              "item-sunflower-oil",
			Name:            "Sunflower Oil 1L",
			SellingPrice:    "140",
			DiscountPercent: "0",
			Quantity:        25,
			Category:        "grocery",
		},
		{
			ID:              "item-green-tea",
			Name:            "Green Tea 100g",
			Description:     "Loose leaf",
			SellingPrice:    "220",
			DiscountPercent: "10",
			Quantity:        0,
			Category:        "beverages",
		},
		{
			ID:              "item-filter-coffee",
			Name:            "Filter Coffee 250g",
			SellingPrice:    "310",
			DiscountPercent: "0",
			Quantity:        12,
			Category:        "beverages",
		},
	}
}

func matchesQuery(p domain.Product, q string) bool {
	q = strings.ToLower(q)
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Description), q) ||
		strings.Contains(strings.ToLower(p.Category), q)
}
