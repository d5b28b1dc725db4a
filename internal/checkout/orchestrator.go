// Package checkout derives an order submission from the cart and session
// state, gates it, and clears the cart once the server accepts the order.
package checkout

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"sync"

	"storefront-client/internal/address"
	"storefront-client/internal/api"
	"storefront-client/internal/cart"
	"storefront-client/internal/domain"
	"storefront-client/internal/session"
)

// defaultDeliveryFee is a client-side default; the server owns final pricing.
const defaultDeliveryFee = "10"

// Orchestrator holds the checkout selection (address, fee) and performs the
// order submission. At most one submission is in flight at a time.
type Orchestrator struct {
	api       *api.Client
	session   *session.Manager
	cart      *cart.Manager
	addresses *address.Service
	logger    *log.Logger

	mu          sync.Mutex
	submitting  bool
	addressID   string
	deliveryFee string
}

// New builds an Orchestrator with the default delivery fee.
func New(client *api.Client, sess *session.Manager, cartMgr *cart.Manager, addrs *address.Service, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		api:         client,
		session:     sess,
		cart:        cartMgr,
		addresses:   addrs,
		logger:      logger,
		deliveryFee: defaultDeliveryFee,
	}
}

// LoadAddresses fetches the saved addresses and selects the first one (or
// none when the list is empty).
func (o *Orchestrator) LoadAddresses(ctx context.Context) ([]domain.Address, error) {
	list, err := o.addresses.List(ctx)
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	if len(list) > 0 {
		o.addressID = list[0].ID
	} else {
		o.addressID = ""
	}
	o.mu.Unlock()
	return list, nil
}

// LoadDeliveryFee reads the admin-configured fee from the settings endpoint.
// Failure keeps the current fee; the estimate only has to be plausible.
func (o *Orchestrator) LoadDeliveryFee(ctx context.Context) {
	err := o.session.AuthedCall(ctx, func(ctx context.Context, token string) error {
		data, err := o.api.Get(ctx, "/customer/settings", api.Options{Token: token})
		if err != nil {
			return err
		}
		var out struct {
			DeliveryFee string `json:"deliveryFee"`
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &out); err != nil {
				return err
			}
		}
		if strings.TrimSpace(out.DeliveryFee) != "" {
			o.SetDeliveryFee(out.DeliveryFee)
		}
		return nil
	})
	if err != nil {
		o.logger.Printf("load delivery fee: %v", err)
	}
}

// SelectAddress records the delivery address for the next submission.
func (o *Orchestrator) SelectAddress(addressID string) {
	o.mu.Lock()
	o.addressID = strings.TrimSpace(addressID)
	o.mu.Unlock()
}

// AddressID returns the currently selected address id.
func (o *Orchestrator) AddressID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.addressID
}

// SetDeliveryFee overrides the delivery fee sent with the submission.
func (o *Orchestrator) SetDeliveryFee(fee string) {
	o.mu.Lock()
	o.deliveryFee = strings.TrimSpace(fee)
	o.mu.Unlock()
}

// DeliveryFee returns the fee that will accompany the next submission.
func (o *Orchestrator) DeliveryFee() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.deliveryFee
}

// EstimatedSubtotal sums snapshot prices times quantities. Prices were frozen
// when the items were added, so this is an estimate only; the server is the
// source of truth for the final amount.
func (o *Orchestrator) EstimatedSubtotal() float64 {
	var sum float64
	for _, it := range o.cart.Items() {
		price, err := strconv.ParseFloat(strings.TrimSpace(it.SellingPrice), 64)
		if err != nil {
			continue
		}
		sum += price * float64(it.Quantity)
	}
	return sum
}

// EstimatedTotal is the subtotal plus the delivery fee estimate.
func (o *Orchestrator) EstimatedTotal() float64 {
	fee, err := strconv.ParseFloat(o.DeliveryFee(), 64)
	if err != nil {
		fee = 0
	}
	return o.EstimatedSubtotal() + fee
}

// CanPlaceOrder reports whether a submission would be attempted right now:
// nothing in flight, at least one normalized item, and an address selected.
func (o *Orchestrator) CanPlaceOrder() bool {
	o.mu.Lock()
	submitting := o.submitting
	addressID := o.addressID
	o.mu.Unlock()
	if submitting {
		return false
	}
	if len(normalizeItems(o.cart.Items())) == 0 {
		return false
	}
	return addressID != ""
}

// PlaceOrder submits the cart as an order. On success the cart is cleared and
// the created order returned. The response must contain an order object;
// anything else fails with ORDER_CREATE_FAILED.
func (o *Orchestrator) PlaceOrder(ctx context.Context) (*domain.Order, error) {
	o.mu.Lock()
	if o.submitting {
		o.mu.Unlock()
		return nil, domain.NewAPIError(domain.CodeOrderCreateFailed, 0)
	}
	addressID := o.addressID
	fee := o.deliveryFee
	o.submitting = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.submitting = false
		o.mu.Unlock()
	}()

	items := normalizeItems(o.cart.Items())
	if len(items) == 0 {
		return nil, domain.NewAPIError(domain.CodeOrderCreateFailed, 0)
	}
	if addressID == "" {
		return nil, domain.NewAPIError(domain.CodeAddressIDRequired, 0)
	}

	payload := struct {
		Items       []domain.OrderItem `json:"items"`
		DeliveryFee string             `json:"deliveryFee"`
		AddressID   string             `json:"addressId"`
	}{Items: items, DeliveryFee: fee, AddressID: addressID}

	var order *domain.Order
	err := o.session.AuthedCall(ctx, func(ctx context.Context, token string) error {
		data, err := o.api.Post(ctx, "/customer/orders", api.Options{Token: token, Body: payload})
		if err != nil {
			return err
		}
		var out struct {
			Order *domain.Order `json:"order"`
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &out); err != nil {
				return err
			}
		}
		order = out.Order
		return nil
	})
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.NewAPIError(domain.CodeOrderCreateFailed, 0)
	}

	o.cart.Clear(ctx)
	return order, nil
}

// normalizeItems drops lines with a blank product id or non-positive
// quantity. The cart invariant makes the latter unreachable in practice, but
// the submission gate re-checks rather than trusting it.
func normalizeItems(items []domain.CartLineItem) []domain.OrderItem {
	out := make([]domain.OrderItem, 0, len(items))
	for _, it := range items {
		id := strings.TrimSpace(it.ProductID)
		if id == "" || it.Quantity <= 0 {
			continue
		}
		out = append(out, domain.OrderItem{ProductID: id, Quantity: it.Quantity})
	}
	return out
}
