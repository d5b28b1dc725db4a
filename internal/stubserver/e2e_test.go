package stubserver_test

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-client/internal/account"
	"storefront-client/internal/address"
	"storefront-client/internal/api"
	"storefront-client/internal/cart"
	"storefront-client/internal/catalog"
	"storefront-client/internal/checkout"
	"storefront-client/internal/domain"
	"storefront-client/internal/orders"
	"storefront-client/internal/session"
	"storefront-client/internal/storage"
	"storefront-client/internal/stubserver"
)

// env is the full client stack wired against one stub server instance, the
// way cmd/shopctl wires it.
type env struct {
	stub      *stubserver.Server
	store     storage.Store
	sess      *session.Manager
	cart      *cart.Manager
	catalog   *catalog.Service
	account   *account.Service
	addresses *address.Service
	orders    *orders.Service
	checkout  *checkout.Orchestrator
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := log.New(io.Discard, "", 0)

	stub := stubserver.New(":0", logger)
	ts := httptest.NewServer(stub.Handler())
	t.Cleanup(ts.Close)

	store := storage.NewMemory()
	client := api.New(ts.URL, 5*time.Second, logger)

	ctx := context.Background()
	sess := session.New(client, store, logger)
	sess.Bootstrap(ctx)

	cartMgr := cart.New(store, logger)
	t.Cleanup(cartMgr.BindSession(ctx, sess))
	cartMgr.Bootstrap(ctx)

	addrSvc := address.New(client, sess)
	return &env{
		stub:      stub,
		store:     store,
		sess:      sess,
		cart:      cartMgr,
		catalog:   catalog.New(client, sess),
		account:   account.New(client, sess),
		addresses: addrSvc,
		orders:    orders.New(client, sess),
		checkout:  checkout.New(client, sess, cartMgr, addrSvc, logger),
	}
}

func login(t *testing.T, e *env, phone string) *domain.Customer {
	t.Helper()
	ctx := context.Background()
	if err := e.sess.SendOTP(ctx, phone); err != nil {
		t.Fatalf("send otp: %v", err)
	}
	customer, err := e.sess.VerifyOTP(ctx, phone, "123456")
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	return customer
}

func TestFullShoppingFlow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	if snap := e.sess.Snapshot(); snap.Bootstrapping || snap.Authed() {
		t.Fatalf("expected settled anonymous session, got %+v", snap)
	}
	if len(e.cart.Items()) != 0 {
		t.Fatal("expected empty cart")
	}

	// Wrong code is rejected before anything else works.
	if err := e.sess.SendOTP(ctx, "5550001"); err != nil {
		t.Fatalf("send otp: %v", err)
	}
	if _, err := e.sess.VerifyOTP(ctx, "5550001", "000000"); domain.ErrorCode(err) != domain.CodeOTPInvalid {
		t.Fatalf("expected OTP_INVALID, got %v", err)
	}

	customer := login(t, e, "5550001")
	if customer.Phone != "5550001" {
		t.Fatalf("unexpected customer: %+v", customer)
	}
	if !e.sess.Snapshot().Authed() {
		t.Fatal("expected authenticated session")
	}

	items, err := e.catalog.ListItems(ctx)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("expected seeded catalog")
	}

	found, err := e.catalog.Search(ctx, "rice")
	if err != nil || len(found) == 0 {
		t.Fatalf("search: %v %+v", err, found)
	}
	product := found[0]

	// Adding the same product twice merges into one line.
	e.cart.AddItem(ctx, product, 1)
	e.cart.AddItem(ctx, product, 2)
	if lines := e.cart.Items(); len(lines) != 1 || lines[0].Quantity != 3 {
		t.Fatalf("expected one merged line with quantity 3, got %+v", lines)
	}
	if e.cart.TotalCount() != 3 {
		t.Fatalf("expected total count 3, got %d", e.cart.TotalCount())
	}

	if _, err := e.checkout.LoadAddresses(ctx); err != nil {
		t.Fatalf("load addresses: %v", err)
	}
	if e.checkout.CanPlaceOrder() {
		t.Fatal("no address yet, must not be submittable")
	}

	if err := e.addresses.Create(ctx, address.Input{Label: "Home", Line1: "12 Main St"}); err != nil {
		t.Fatalf("create address: %v", err)
	}
	list, err := e.checkout.LoadAddresses(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one address, got %v %+v", err, list)
	}
	if !e.checkout.CanPlaceOrder() {
		t.Fatal("expected submittable state")
	}

	order, err := e.checkout.PlaceOrder(ctx)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if order.Status != domain.OrderStatusCreated {
		t.Fatalf("expected CREATED order, got %+v", order)
	}
	if len(e.cart.Items()) != 0 {
		t.Fatal("expected cart cleared after checkout")
	}

	placed, err := e.orders.List(ctx)
	if err != nil || len(placed) != 1 || placed[0].ID != order.ID {
		t.Fatalf("expected the placed order listed, got %v %+v", err, placed)
	}

	e.sess.Logout(ctx)
	if e.sess.Snapshot().Authed() {
		t.Fatal("expected anonymous session after logout")
	}
	if len(e.cart.Items()) != 0 {
		t.Fatal("expected cart empty after logout")
	}
	if _, ok, _ := e.store.Get(ctx, "customerCart"); ok {
		t.Fatal("expected stored cart deleted after logout")
	}
}

func TestRevokedTokenForcesLogout(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	login(t, e, "5550002")
	e.cart.AddItem(ctx, domain.Product{ID: "item-basmati-rice", SellingPrice: "450"}, 1)

	if _, err := e.account.Me(ctx); err != nil {
		t.Fatalf("me: %v", err)
	}

	e.stub.RevokeTokens("")

	_, err := e.account.Me(ctx)
	if domain.ErrorCode(err) != domain.CodeTokenRevoked {
		t.Fatalf("expected TOKEN_REVOKED, got %v", err)
	}
	if e.sess.Snapshot().Authed() {
		t.Fatal("expected forced local logout after revocation")
	}
	if len(e.cart.Items()) != 0 {
		t.Fatal("expected cart cleared after forced logout")
	}
}

func TestProfileAndStatus(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	login(t, e, "5550003")

	updated, err := e.account.Update(ctx, account.UpdateInput{Name: "Asha"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Asha" {
		t.Fatalf("expected updated name, got %+v", updated)
	}
	// The session snapshot is refreshed from the server response.
	if snap := e.sess.Snapshot(); snap.Customer == nil || snap.Customer.Name != "Asha" {
		t.Fatalf("expected session customer refreshed, got %+v", snap.Customer)
	}

	status, err := e.account.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Customer == nil || status.Customer.Name != "Asha" {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestSessionPersistsAcrossRestart(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	login(t, e, "5550004")
	e.cart.AddItem(ctx, domain.Product{ID: "item-basmati-rice", Name: "Basmati Rice", SellingPrice: "450"}, 2)

	// A fresh manager pair over the same store models an app restart.
	logger := log.New(io.Discard, "", 0)
	ts := httptest.NewServer(e.stub.Handler())
	t.Cleanup(ts.Close)
	client := api.New(ts.URL, 5*time.Second, logger)

	sess2 := session.New(client, e.store, logger)
	sess2.Bootstrap(ctx)
	cart2 := cart.New(e.store, logger)
	t.Cleanup(cart2.BindSession(ctx, sess2))
	cart2.Bootstrap(ctx)

	if !sess2.Snapshot().Authed() {
		t.Fatal("expected restored session")
	}
	if lines := cart2.Items(); len(lines) != 1 || lines[0].Quantity != 2 {
		t.Fatalf("expected restored cart, got %+v", lines)
	}
}
