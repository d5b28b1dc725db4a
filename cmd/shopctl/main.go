// Command shopctl drives the storefront client from the terminal: OTP login,
// catalog browsing, the locally persisted cart, and order placement.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"storefront-client/internal/account"
	"storefront-client/internal/address"
	"storefront-client/internal/api"
	"storefront-client/internal/cart"
	"storefront-client/internal/catalog"
	"storefront-client/internal/checkout"
	"storefront-client/internal/config"
	"storefront-client/internal/domain"
	"storefront-client/internal/orders"
	"storefront-client/internal/session"
	"storefront-client/internal/storage"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stderr, "[shopctl] ", log.LstdFlags|log.LUTC)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	store, err := storage.OpenSQLite(cfg.StatePath)
	if err != nil {
		logger.Fatalf("open state store: %v", err)
	}
	defer store.Close()

	client := api.New(cfg.APIBaseURL, cfg.RequestTimeout, logger)
	sess := session.New(client, store, logger)
	cartMgr := cart.New(store, logger)

	ctx := context.Background()
	sess.Bootstrap(ctx)
	unbind := cartMgr.BindSession(ctx, sess)
	defer unbind()
	cartMgr.Bootstrap(ctx)

	addrSvc := address.New(client, sess)
	app := &app{
		session:  sess,
		cart:     cartMgr,
		catalog:  catalog.New(client, sess),
		address:  addrSvc,
		account:  account.New(client, sess),
		orders:   orders.New(client, sess),
		checkout: checkout.New(client, sess, cartMgr, addrSvc, logger),
	}

	if err := app.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", domain.ErrorCode(err))
		os.Exit(1)
	}
}

type app struct {
	session  *session.Manager
	cart     *cart.Manager
	catalog  *catalog.Service
	address  *address.Service
	account  *account.Service
	orders   *orders.Service
	checkout *checkout.Orchestrator
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		if len(args) < 1 {
			return domain.NewAPIError(domain.CodePhoneRequired, 0)
		}
		if err := a.session.SendOTP(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("otp sent, run: shopctl verify <phone> <otp>")
		return nil

	case "verify":
		if len(args) < 2 {
			return domain.NewAPIError(domain.CodeOTPRequired, 0)
		}
		customer, err := a.session.VerifyOTP(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("logged in as %s (%s)\n", customer.Phone, customer.ID)
		return nil

	case "whoami":
		snap := a.session.Snapshot()
		if !snap.Authed() {
			fmt.Println("not logged in")
			return nil
		}
		fmt.Printf("%s %s %s\n", snap.Customer.ID, snap.Customer.Phone, snap.Customer.Name)
		return nil

	case "logout":
		a.session.Logout(ctx)
		fmt.Println("logged out")
		return nil

	case "items":
		items, err := a.catalog.ListItems(ctx)
		if err != nil {
			return err
		}
		printItems(items)
		return nil

	case "search":
		q := strings.Join(args, " ")
		items, err := a.catalog.Search(ctx, q)
		if err != nil {
			return err
		}
		printItems(items)
		return nil

	case "categories":
		categories, err := a.catalog.Categories(ctx)
		if err != nil {
			return err
		}
		for _, cat := range categories {
			fmt.Printf("%-20s %d items, %d in stock\n", cat.Category, cat.ProductCount, cat.InStockCount)
		}
		return nil

	case "category":
		if len(args) < 1 {
			return domain.NewAPIError(domain.CodeQueryRequired, 0)
		}
		items, err := a.catalog.CategoryItems(ctx, args[0])
		if err != nil {
			return err
		}
		printItems(items)
		return nil

	case "cart":
		return a.runCart(ctx, args)

	case "addresses":
		return a.runAddresses(ctx, args)

	case "profile":
		return a.runProfile(ctx, args)

	case "checkout":
		return a.runCheckout(ctx, args)

	case "orders":
		list, err := a.orders.List(ctx)
		if err != nil {
			return err
		}
		for _, o := range list {
			fmt.Printf("%s %-10s total=%s %s\n", o.ID, o.Status, o.TotalAmount, o.CreatedAt)
		}
		return nil

	case "status":
		status, err := a.account.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("whitelisted=%v\n", status.IsWhitelisted)
		return nil

	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) runCart(ctx context.Context, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
		args = args[1:]
	}
	switch sub {
	case "list":
		items := a.cart.Items()
		if len(items) == 0 {
			fmt.Println("cart is empty")
			return nil
		}
		for _, it := range items {
			fmt.Printf("%-24s x%-3d %s (%s)\n", it.ProductID, it.Quantity, it.SellingPrice, it.Name)
		}
		fmt.Printf("total items: %d\n", a.cart.TotalCount())
		return nil

	case "add":
		if len(args) < 1 {
			return fmt.Errorf("usage: shopctl cart add <productId> [quantity]")
		}
		quantity := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantity must be an integer")
			}
			quantity = n
		}
		// Look the product up so the cart line snapshots its display fields.
		items, err := a.catalog.ListItems(ctx)
		if err != nil {
			return err
		}
		for _, it := range items {
			if it.ID == args[0] {
				a.cart.AddItem(ctx, it, quantity)
				fmt.Printf("added %s x%d\n", it.Name, quantity)
				return nil
			}
		}
		return fmt.Errorf("unknown product %q", args[0])

	case "set":
		if len(args) < 2 {
			return fmt.Errorf("usage: shopctl cart set <productId> <quantity>")
		}
		quantity, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("quantity must be an integer")
		}
		a.cart.SetQuantity(ctx, args[0], quantity)
		return nil

	case "remove":
		if len(args) < 1 {
			return fmt.Errorf("usage: shopctl cart remove <productId>")
		}
		a.cart.RemoveItem(ctx, args[0])
		return nil

	case "clear":
		a.cart.Clear(ctx)
		return nil

	default:
		return fmt.Errorf("unknown cart command %q", sub)
	}
}

func (a *app) runAddresses(ctx context.Context, args []string) error {
	if len(args) > 0 && args[0] == "add" {
		fs := flag.NewFlagSet("addresses add", flag.ContinueOnError)
		label := fs.String("label", "", "address label")
		line1 := fs.String("line1", "", "address line 1")
		line2 := fs.String("line2", "", "address line 2")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		return a.address.Create(ctx, address.Input{Label: *label, Line1: *line1, Line2: *line2})
	}
	if len(args) > 0 && args[0] == "remove" {
		if len(args) < 2 {
			return domain.NewAPIError(domain.CodeAddressIDRequired, 0)
		}
		return a.address.Delete(ctx, args[1])
	}
	list, err := a.address.List(ctx)
	if err != nil {
		return err
	}
	for _, addr := range list {
		fmt.Printf("%s %-12s %s %s\n", addr.ID, addr.Label, addr.Line1, addr.Line2)
	}
	return nil
}

func (a *app) runProfile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	name := fs.String("name", "", "set profile name")
	email := fs.String("email", "", "set profile email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" && *email == "" {
		customer, err := a.account.Me(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s %s %s\n", customer.ID, customer.Phone, customer.Name, customer.Email)
		return nil
	}
	customer, err := a.account.Update(ctx, account.UpdateInput{Name: *name, Email: *email})
	if err != nil {
		return err
	}
	fmt.Printf("updated: %s %s\n", customer.Name, customer.Email)
	return nil
}

func (a *app) runCheckout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	addressID := fs.String("address", "", "delivery address id (defaults to first saved address)")
	fee := fs.String("fee", "", "delivery fee override")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := a.checkout.LoadAddresses(ctx); err != nil {
		return err
	}
	a.checkout.LoadDeliveryFee(ctx)
	if *addressID != "" {
		a.checkout.SelectAddress(*addressID)
	}
	if *fee != "" {
		a.checkout.SetDeliveryFee(*fee)
	}

	if !a.checkout.CanPlaceOrder() {
		if a.checkout.AddressID() == "" {
			return domain.NewAPIError(domain.CodeAddressIDRequired, 0)
		}
		return domain.NewAPIError(domain.CodeOrderCreateFailed, 0)
	}

	fmt.Printf("estimated total: %.2f (subtotal %.2f + fee %s)\n",
		a.checkout.EstimatedTotal(), a.checkout.EstimatedSubtotal(), a.checkout.DeliveryFee())

	order, err := a.checkout.PlaceOrder(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("order %s placed, status %s, total %s\n", order.ID, order.Status, order.TotalAmount)
	return nil
}

func printItems(items []domain.Product) {
	for _, it := range items {
		fmt.Printf("%-24s %-10s stock=%-4d %s\n", it.ID, it.SellingPrice, it.Quantity, it.Name)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: shopctl <command> [args]

commands:
  login <phone>            request a login code
  verify <phone> <otp>     complete the login
  whoami                   show the current session
  logout                   revoke and clear the session
  items                    list catalog items
  search <query>           search catalog items
  categories               list categories
  category <name>          list items of one category
  cart [list]              show the cart
  cart add <id> [qty]      add a product to the cart
  cart set <id> <qty>      set a line quantity (<=0 removes it)
  cart remove <id>         remove a line
  cart clear               empty the cart
  addresses [add|remove]   manage saved addresses
  profile [-name -email]   show or update the profile
  checkout [-address -fee] place an order from the cart
  orders                   list past orders
  status                   show account status`)
}
