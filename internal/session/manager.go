// Package session owns the authentication state of the storefront client:
// the bearer token and customer profile, their persistence, and the wrapper
// that turns server-side credential rejection into a local logout.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"

	"storefront-client/internal/api"
	"storefront-client/internal/domain"
	"storefront-client/internal/storage"
)

const (
	tokenKey    = "customerAuthToken"
	customerKey = "customerProfile"
)

// authInvalidationCodes are the server error codes that mean the held
// credential is no longer usable. Any authenticated call failing with one of
// these forces a local logout before the error reaches the caller.
var authInvalidationCodes = map[string]struct{}{
	domain.CodeTokenRequired:    {},
	domain.CodeTokenInvalid:     {},
	domain.CodeTokenRevoked:     {},
	domain.CodeCustomerNotFound: {},
}

func isAuthInvalidation(err error) bool {
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	_, ok := authInvalidationCodes[apiErr.Code]
	return ok
}

// Snapshot is a consistent read of the session state.
type Snapshot struct {
	Bootstrapping bool
	Token         string
	Customer      *domain.Customer
}

// Authed reports whether a credential is held.
func (s Snapshot) Authed() bool {
	return s.Token != ""
}

// Manager is the session state machine: Bootstrapping until the stored
// credential has been loaded, then Anonymous or Authenticated for the life of
// the process. All mutations are serialized behind the manager's mutex.
type Manager struct {
	api    *api.Client
	store  storage.Store
	logger *log.Logger

	mu            sync.Mutex
	bootstrapping bool
	started       bool
	gen           uint64
	token         string
	customer      *domain.Customer
	subs          map[int]func(Snapshot)
	nextSub       int
}

// New builds a Manager in the Bootstrapping state.
func New(client *api.Client, store storage.Store, logger *log.Logger) *Manager {
	return &Manager{
		api:           client,
		store:         store,
		logger:        logger,
		bootstrapping: true,
		subs:          make(map[int]func(Snapshot)),
	}
}

// Bootstrap loads the persisted credential. It runs at most once, always
// leaves the Bootstrapping state exactly once, and treats any storage failure
// or malformed record as an anonymous session. A login or logout that lands
// while the read is in flight wins over the loaded values.
func (m *Manager) Bootstrap(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	startGen := m.gen
	m.mu.Unlock()

	token, customer := m.loadStored(ctx)

	m.mu.Lock()
	if m.gen == startGen && token != "" && customer != nil {
		m.token = token
		m.customer = customer
	}
	m.bootstrapping = false
	snap, subs := m.snapshotLocked()
	m.mu.Unlock()
	notify(subs, snap)
}

func (m *Manager) loadStored(ctx context.Context) (string, *domain.Customer) {
	token, ok, err := m.store.Get(ctx, tokenKey)
	if err != nil {
		m.logger.Printf("load stored token: %v", err)
		return "", nil
	}
	if !ok || token == "" {
		return "", nil
	}
	raw, ok, err := m.store.Get(ctx, customerKey)
	if err != nil || !ok || raw == "" {
		if err != nil {
			m.logger.Printf("load stored customer: %v", err)
		}
		return "", nil
	}
	var customer domain.Customer
	if err := json.Unmarshal([]byte(raw), &customer); err != nil {
		// A token without a readable profile never restores an
		// authenticated session.
		m.logger.Printf("decode stored customer: %v", err)
		return "", nil
	}
	return token, &customer
}

// Snapshot returns the current session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{Bootstrapping: m.bootstrapping, Token: m.token, Customer: m.customer}
}

// Subscribe registers fn for change notifications and returns an unsubscribe
// function. fn is invoked after every settled state change, outside the
// manager's lock.
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

// CompleteLogin installs a fresh credential and persists it. The in-memory
// state advances even if persistence fails; in that case the session is
// usable for this run but will not survive a restart, and the failure is
// logged rather than surfaced.
func (m *Manager) CompleteLogin(ctx context.Context, token string, customer *domain.Customer) {
	m.mu.Lock()
	m.gen++
	m.token = token
	m.customer = customer
	snap, subs := m.snapshotLocked()
	m.mu.Unlock()
	notify(subs, snap)

	if err := m.store.Set(ctx, tokenKey, token); err != nil {
		m.logger.Printf("persist token: %v", err)
		return
	}
	encoded, err := json.Marshal(customer)
	if err != nil {
		m.logger.Printf("encode customer: %v", err)
		return
	}
	if err := m.store.Set(ctx, customerKey, string(encoded)); err != nil {
		m.logger.Printf("persist customer: %v", err)
	}
}

// Logout tells the server to revoke the token when one is held, then clears
// local state. Server or network failure never prevents the local logout.
func (m *Manager) Logout(ctx context.Context) {
	snap := m.Snapshot()
	if snap.Token != "" {
		if _, err := m.api.Post(ctx, "/customer/auth/logout", api.Options{Token: snap.Token}); err != nil {
			m.logger.Printf("remote logout: %v", err)
		}
	}
	m.ForceLogoutLocal(ctx)
}

// ForceLogoutLocal clears the in-memory credential and deletes the persisted
// record. It is idempotent; storage failures are logged and absorbed.
func (m *Manager) ForceLogoutLocal(ctx context.Context) {
	m.mu.Lock()
	m.gen++
	changed := m.token != "" || m.customer != nil
	m.token = ""
	m.customer = nil
	snap, subs := m.snapshotLocked()
	m.mu.Unlock()
	if changed {
		notify(subs, snap)
	}

	if err := m.store.Delete(ctx, tokenKey); err != nil {
		m.logger.Printf("delete stored token: %v", err)
	}
	if err := m.store.Delete(ctx, customerKey); err != nil {
		m.logger.Printf("delete stored customer: %v", err)
	}
}

// AuthedCall runs fn with the held token. It fails with TOKEN_REQUIRED when
// no token is held, without invoking fn. When fn fails with a code from the
// auth-invalidation set, the session is force-logged-out locally before the
// original error is returned.
func (m *Manager) AuthedCall(ctx context.Context, fn func(ctx context.Context, token string) error) error {
	snap := m.Snapshot()
	if snap.Token == "" {
		return domain.NewAPIError(domain.CodeTokenRequired, 401)
	}
	err := fn(ctx, snap.Token)
	if err != nil && isAuthInvalidation(err) {
		m.ForceLogoutLocal(ctx)
	}
	return err
}

// SendOTP requests a login code for the given phone number.
func (m *Manager) SendOTP(ctx context.Context, phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return domain.NewAPIError(domain.CodePhoneRequired, 0)
	}
	_, err := m.api.Post(ctx, "/customer/auth/send-otp", api.Options{
		Body: map[string]string{"phone": phone},
	})
	return err
}

// VerifyOTP exchanges a phone+code pair for a credential and completes the
// login. The response must carry both token and customer.
func (m *Manager) VerifyOTP(ctx context.Context, phone, otp string) (*domain.Customer, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, domain.NewAPIError(domain.CodePhoneRequired, 0)
	}
	otp = strings.TrimSpace(otp)
	if otp == "" {
		return nil, domain.NewAPIError(domain.CodeOTPRequired, 0)
	}

	data, err := m.api.Post(ctx, "/customer/auth/verify-otp", api.Options{
		Body: map[string]string{"phone": phone, "otp": otp},
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		Token    string           `json:"token"`
		Customer *domain.Customer `json:"customer"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, domain.NewAPIError(domain.CodeTokenCreateFailed, 0)
		}
	}
	if out.Token == "" || out.Customer == nil {
		return nil, domain.NewAPIError(domain.CodeTokenCreateFailed, 0)
	}

	m.CompleteLogin(ctx, out.Token, out.Customer)
	return out.Customer, nil
}

func (m *Manager) snapshotLocked() (Snapshot, []func(Snapshot)) {
	snap := Snapshot{Bootstrapping: m.bootstrapping, Token: m.token, Customer: m.customer}
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
