// Package cart owns the locally persisted shopping cart: one line item per
// product, write-through persistence after every mutation, and a forced clear
// whenever the session settles unauthenticated.
package cart

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"storefront-client/internal/domain"
	"storefront-client/internal/session"
	"storefront-client/internal/storage"
)

const cartKey = "customerCart"

// Snapshot is a consistent read of the cart state.
type Snapshot struct {
	Bootstrapping bool
	Items         []domain.CartLineItem
}

// Manager holds the in-memory cart and mirrors every mutation to the
// persistent store. Mutations are serialized behind the manager's mutex, and
// the write-through happens before the mutation is considered complete.
type Manager struct {
	store  storage.Store
	logger *log.Logger

	mu             sync.Mutex
	bootstrapping  bool
	started        bool
	gen            uint64
	items          []domain.CartLineItem
	subs           map[int]func(Snapshot)
	nextSub        int
	sessionSettled bool
	sessionAuthed  bool
}

// New builds a Manager in the bootstrapping state.
func New(store storage.Store, logger *log.Logger) *Manager {
	return &Manager{
		store:         store,
		logger:        logger,
		bootstrapping: true,
		subs:          make(map[int]func(Snapshot)),
	}
}

// BindSession couples the cart lifecycle to the session: once both subsystems
// have settled, an unauthenticated session empties the cart, in memory and in
// storage. Returns an unbind function.
func (m *Manager) BindSession(ctx context.Context, s *session.Manager) func() {
	m.handleSession(ctx, s.Snapshot())
	return s.Subscribe(func(snap session.Snapshot) {
		m.handleSession(ctx, snap)
	})
}

func (m *Manager) handleSession(ctx context.Context, snap session.Snapshot) {
	m.mu.Lock()
	m.sessionSettled = !snap.Bootstrapping
	m.sessionAuthed = snap.Authed()
	if !m.enforceSessionLocked() {
		m.mu.Unlock()
		return
	}
	m.clearLocked(ctx)
	snapOut, subs := m.snapshotLocked()
	m.mu.Unlock()
	notify(subs, snapOut)
}

// enforceSessionLocked reports whether the session-linkage rule demands a
// clear right now.
func (m *Manager) enforceSessionLocked() bool {
	return m.sessionSettled && !m.sessionAuthed && !m.bootstrapping
}

// Bootstrap loads the persisted cart. A missing or malformed value degrades
// to an empty cart. Runs at most once; a mutation that lands while the read
// is in flight wins over the loaded value.
func (m *Manager) Bootstrap(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	startGen := m.gen
	m.mu.Unlock()

	items := m.loadStored(ctx)

	m.mu.Lock()
	if m.gen == startGen && len(items) > 0 {
		m.items = items
	}
	m.bootstrapping = false
	if m.enforceSessionLocked() {
		m.clearLocked(ctx)
	}
	snap, subs := m.snapshotLocked()
	m.mu.Unlock()
	notify(subs, snap)
}

func (m *Manager) loadStored(ctx context.Context) []domain.CartLineItem {
	raw, ok, err := m.store.Get(ctx, cartKey)
	if err != nil {
		m.logger.Printf("load stored cart: %v", err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}
	var items []domain.CartLineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		m.logger.Printf("decode stored cart: %v", err)
		return nil
	}
	return items
}

// AddItem puts quantity units of product into the cart. A blank product id or
// non-positive quantity is ignored. When the product is already present its
// quantity is incremented and the display snapshot from the first add is
// kept; otherwise a new line is appended with a snapshot of the product's
// display fields.
func (m *Manager) AddItem(ctx context.Context, product domain.Product, quantity int) {
	productID := strings.TrimSpace(product.ID)
	if productID == "" || quantity <= 0 {
		return
	}

	m.mu.Lock()
	m.gen++
	found := false
	for i := range m.items {
		if m.items[i].ProductID == productID {
			m.items[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		m.items = append(m.items, domain.CartLineItem{
			ProductID:       productID,
			Name:            product.Name,
			SellingPrice:    product.SellingPrice,
			DiscountPercent: product.DiscountPercent,
			Quantity:        quantity,
		})
	}
	m.persistLocked(ctx)
	snap, subs := m.snapshotLocked()
	m.mu.Unlock()
	notify(subs, snap)
}

// SetQuantity replaces the quantity of the matching line item, then drops
// every line whose quantity is not positive. A blank product id is ignored.
func (m *Manager) SetQuantity(ctx context.Context, productID string, quantity int) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return
	}

	m.mu.Lock()
	m.gen++
	next := make([]domain.CartLineItem, 0, len(m.items))
	for _, it := range m.items {
		if it.ProductID == productID {
			it.Quantity = quantity
		}
		if it.Quantity > 0 {
			next = append(next, it)
		}
	}
	m.items = next
	m.persistLocked(ctx)
	snap, subs := m.snapshotLocked()
	m.mu.Unlock()
	notify(subs, snap)
}

// RemoveItem drops the matching line item; no-op when absent.
func (m *Manager) RemoveItem(ctx context.Context, productID string) {
	productID = strings.TrimSpace(productID)

	m.mu.Lock()
	m.gen++
	next := m.items[:0]
	for _, it := range m.items {
		if it.ProductID != productID {
			next = append(next, it)
		}
	}
	m.items = next
	m.persistLocked(ctx)
	snap, subs := m.snapshotLocked()
	m.mu.Unlock()
	notify(subs, snap)
}

// Clear empties the cart and removes the persisted value.
func (m *Manager) Clear(ctx context.Context) {
	m.mu.Lock()
	m.gen++
	m.clearLocked(ctx)
	snap, subs := m.snapshotLocked()
	m.mu.Unlock()
	notify(subs, snap)
}

func (m *Manager) clearLocked(ctx context.Context) {
	m.items = nil
	if err := m.store.Delete(ctx, cartKey); err != nil {
		m.logger.Printf("clear stored cart: %v", err)
	}
}

// Items returns a copy of the cart lines in insertion order.
func (m *Manager) Items() []domain.CartLineItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CartLineItem(nil), m.items...)
}

// TotalCount is the sum of all line quantities, recomputed on every call.
func (m *Manager) TotalCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, it := range m.items {
		total += it.Quantity
	}
	return total
}

// Snapshot returns the current cart state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, _ := m.snapshotLocked()
	return snap
}

// Subscribe registers fn for change notifications and returns an unsubscribe
// function.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// persistLocked mirrors the in-memory cart to storage, replacing the whole
// value. The mutation stands even if the write fails; the failure is logged.
func (m *Manager) persistLocked(ctx context.Context) {
	items := m.items
	if items == nil {
		items = []domain.CartLineItem{}
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		m.logger.Printf("encode cart: %v", err)
		return
	}
	if err := m.store.Set(ctx, cartKey, string(encoded)); err != nil {
		m.logger.Printf("persist cart: %v", err)
	}
}

func (m *Manager) snapshotLocked() (Snapshot, []func(Snapshot)) {
	snap := Snapshot{
		Bootstrapping: m.bootstrapping,
		Items:         append([]domain.CartLineItem(nil), m.items...),
	}
	subs := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	return snap, subs
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
