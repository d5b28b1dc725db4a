package cart

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-client/internal/api"
	"storefront-client/internal/domain"
	"storefront-client/internal/session"
	"storefront-client/internal/storage"
)

const cartStorageKey = "customerCart"

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newBootstrapped(t *testing.T, store storage.Store) *Manager {
	t.Helper()
	m := New(store, discardLogger())
	m.Bootstrap(context.Background())
	return m
}

func rice() domain.Product {
	return domain.Product{
		ID:              "item-rice",
		Name:            "Basmati Rice",
		SellingPrice:    "450",
		DiscountPercent: "5",
	}
}

func oil() domain.Product {
	return domain.Product{ID: "item-oil", Name: "Sunflower Oil", SellingPrice: "140"}
}

func TestAddItemMergesByProduct(t *testing.T) {
	ctx := context.Background()
	m := newBootstrapped(t, storage.NewMemory())

	m.AddItem(ctx, rice(), 1)

	// The second add carries different display fields; the first snapshot wins.
	changed := rice()
	changed.Name = "Basmati Rice (new pack)"
	changed.SellingPrice = "999"
	m.AddItem(ctx, changed, 2)

	items := m.Items()
	if len(items) != 1 {
		t.Fatalf("expected one merged line, got %d", len(items))
	}
	line := items[0]
	if line.Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", line.Quantity)
	}
	if line.Name != "Basmati Rice" || line.SellingPrice != "450" {
		t.Fatalf("first-add display fields must be preserved, got %+v", line)
	}
	if m.TotalCount() != 3 {
		t.Fatalf("expected total count 3, got %d", m.TotalCount())
	}
}

func TestAddItemIgnoresInvalidInput(t *testing.T) {
	ctx := context.Background()
	m := newBootstrapped(t, storage.NewMemory())

	m.AddItem(ctx, domain.Product{ID: "   "}, 1)
	m.AddItem(ctx, rice(), 0)
	m.AddItem(ctx, rice(), -3)

	if len(m.Items()) != 0 {
		t.Fatalf("expected empty cart, got %+v", m.Items())
	}
}

func TestSetQuantityRemovesAtZero(t *testing.T) {
	ctx := context.Background()
	m := newBootstrapped(t, storage.NewMemory())
	m.AddItem(ctx, rice(), 2)
	m.AddItem(ctx, oil(), 1)

	m.SetQuantity(ctx, "item-rice", 5)
	if items := m.Items(); items[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %+v", items)
	}

	m.SetQuantity(ctx, "item-rice", 0)
	items := m.Items()
	if len(items) != 1 || items[0].ProductID != "item-oil" {
		t.Fatalf("expected only oil to remain, got %+v", items)
	}

	m.SetQuantity(ctx, "item-oil", -1)
	if len(m.Items()) != 0 {
		t.Fatal("negative quantity must remove the line")
	}
}

func TestInsertionOrderSurvivesMerge(t *testing.T) {
	ctx := context.Background()
	m := newBootstrapped(t, storage.NewMemory())
	m.AddItem(ctx, rice(), 1)
	m.AddItem(ctx, oil(), 1)
	m.AddItem(ctx, rice(), 1)

	items := m.Items()
	if len(items) != 2 || items[0].ProductID != "item-rice" || items[1].ProductID != "item-oil" {
		t.Fatalf("expected rice then oil, got %+v", items)
	}
}

func TestRemoveItem(t *testing.T) {
	ctx := context.Background()
	m := newBootstrapped(t, storage.NewMemory())
	m.AddItem(ctx, rice(), 2)

	m.RemoveItem(ctx, "item-rice")
	if len(m.Items()) != 0 {
		t.Fatal("expected empty cart")
	}

	// Removing an absent line is a silent no-op.
	m.RemoveItem(ctx, "item-rice")
}

func TestCartPersistsAcrossManagers(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()

	first := newBootstrapped(t, store)
	first.AddItem(ctx, rice(), 2)
	first.AddItem(ctx, oil(), 1)

	second := newBootstrapped(t, store)
	items := second.Items()
	if len(items) != 2 || items[0].ProductID != "item-rice" || items[0].Quantity != 2 {
		t.Fatalf("expected restored cart, got %+v", items)
	}
	if second.TotalCount() != 3 {
		t.Fatalf("expected total count 3, got %d", second.TotalCount())
	}
}

func TestMalformedStoredCartIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	store.Set(ctx, cartStorageKey, "{definitely not a list")

	m := newBootstrapped(t, store)
	if len(m.Items()) != 0 {
		t.Fatalf("expected empty cart, got %+v", m.Items())
	}
}

func TestClearDeletesStoredCart(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	m := newBootstrapped(t, store)
	m.AddItem(ctx, rice(), 1)

	m.Clear(ctx)
	if len(m.Items()) != 0 {
		t.Fatal("expected empty cart")
	}
	if _, ok, _ := store.Get(ctx, cartStorageKey); ok {
		t.Fatal("expected stored cart deleted")
	}
}

func TestSubscribeNotifies(t *testing.T) {
	ctx := context.Background()
	m := newBootstrapped(t, storage.NewMemory())

	var count int
	unsubscribe := m.Subscribe(func(Snapshot) { count++ })

	m.AddItem(ctx, rice(), 1)
	if count != 1 {
		t.Fatalf("expected one notification, got %d", count)
	}

	unsubscribe()
	m.Clear(ctx)
	if count != 1 {
		t.Fatalf("expected no notification after unsubscribe, got %d", count)
	}
}

func newSession(t *testing.T, store storage.Store) *session.Manager {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(ts.Close)
	client := api.New(ts.URL, 5*time.Second, discardLogger())
	return session.New(client, store, discardLogger())
}

func TestLogoutClearsBoundCart(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()

	sess := newSession(t, store)
	sess.Bootstrap(ctx)
	sess.CompleteLogin(ctx, "tok-1", &domain.Customer{ID: "c1"})

	m := New(store, discardLogger())
	unbind := m.BindSession(ctx, sess)
	defer unbind()
	m.Bootstrap(ctx)
	m.AddItem(ctx, rice(), 2)

	sess.Logout(ctx)

	if len(m.Items()) != 0 {
		t.Fatalf("logout must clear the cart, got %+v", m.Items())
	}
	if _, ok, _ := store.Get(ctx, cartStorageKey); ok {
		t.Fatal("expected stored cart deleted on logout")
	}
}

func TestBindAfterAnonymousSettleClears(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	store.Set(ctx, cartStorageKey, `[{"productId":"item-rice","quantity":2}]`)

	sess := newSession(t, storage.NewMemory())
	sess.Bootstrap(ctx) // settles anonymous

	m := New(store, discardLogger())
	unbind := m.BindSession(ctx, sess)
	defer unbind()
	m.Bootstrap(ctx)

	if len(m.Items()) != 0 {
		t.Fatalf("anonymous settled session must clear the cart, got %+v", m.Items())
	}
}

func TestAuthedSessionKeepsStoredCart(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	store.Set(ctx, cartStorageKey, `[{"productId":"item-rice","name":"Basmati Rice","quantity":2}]`)

	sess := newSession(t, store)
	sess.Bootstrap(ctx)
	sess.CompleteLogin(ctx, "tok-1", &domain.Customer{ID: "c1"})

	m := New(store, discardLogger())
	unbind := m.BindSession(ctx, sess)
	defer unbind()
	m.Bootstrap(ctx)

	items := m.Items()
	if len(items) != 1 || items[0].Quantity != 2 {
		t.Fatalf("expected restored cart, got %+v", items)
	}
}
