// Package testutil provides in-memory repositories and fixtures for tests.
package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/marketplace-platform/webhook-service/internal/domain"
)

// ErrInjected is returned by fakes configured to fail.
var ErrInjected = errors.New("injected failure")

// clone copies a value through its struct so callers never share state with the store.
func clone[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// IntegrationRepo is an in-memory domain.IntegrationRepository
type IntegrationRepo struct {
	mu    sync.Mutex
	items map[string]*domain.Integration
	Err   error
	Calls int
}

func NewIntegrationRepo(items ...*domain.Integration) *IntegrationRepo {
	r := &IntegrationRepo{items: make(map[string]*domain.Integration)}
	for _, i := range items {
		r.items[i.IntegrationID] = clone(i)
	}
	return r
}

func (r *IntegrationRepo) Save(_ context.Context, i *domain.Integration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.items[i.IntegrationID] = clone(i)
	return nil
}

func (r *IntegrationRepo) FindByID(_ context.Context, id string) (*domain.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	return clone(r.items[id]), nil
}

func (r *IntegrationRepo) FindByProvider(_ context.Context, provider string) (*domain.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls++
	if r.Err != nil {
		return nil, r.Err
	}
	for _, i := range r.items {
		if i.Provider == provider {
			return clone(i), nil
		}
	}
	return nil, nil
}

// SellerIntegrationRepo is an in-memory domain.SellerIntegrationRepository
type SellerIntegrationRepo struct {
	mu    sync.Mutex
	items map[string]*domain.SellerIntegration
	Err   error
}

func NewSellerIntegrationRepo(items ...*domain.SellerIntegration) *SellerIntegrationRepo {
	r := &SellerIntegrationRepo{items: make(map[string]*domain.SellerIntegration)}
	for _, si := range items {
		r.items[si.SellerIntegrationID] = clone(si)
	}
	return r
}

func (r *SellerIntegrationRepo) Save(_ context.Context, si *domain.SellerIntegration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.items[si.SellerIntegrationID] = clone(si)
	return nil
}

func (r *SellerIntegrationRepo) FindByID(_ context.Context, id string) (*domain.SellerIntegration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clone(r.items[id]), r.Err
}

func (r *SellerIntegrationRepo) FindActiveByIntegration(_ context.Context, integrationID string, sandbox bool) ([]*domain.SellerIntegration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var out []*domain.SellerIntegration
	for _, si := range r.items {
		if si.IntegrationID == integrationID && si.Sandbox == sandbox && si.Active {
			out = append(out, clone(si))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].SellerIntegrationID < out[j].SellerIntegrationID
		}
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out, nil
}

func (r *SellerIntegrationRepo) FindBySellerAndIntegration(_ context.Context, sellerID, integrationID string, sandbox bool) (*domain.SellerIntegration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, si := range r.items {
		if si.SellerID == sellerID && si.IntegrationID == integrationID && si.Sandbox == sandbox {
			return clone(si), nil
		}
	}
	return nil, r.Err
}

// SellerRepo is an in-memory domain.SellerRepository
type SellerRepo struct {
	mu      sync.Mutex
	items   map[string]*domain.Seller
	Err     error
	SaveErr error
}

func NewSellerRepo(items ...*domain.Seller) *SellerRepo {
	r := &SellerRepo{items: make(map[string]*domain.Seller)}
	for _, s := range items {
		r.items[s.SellerID] = cloneSeller(s)
	}
	return r
}

func cloneSeller(s *domain.Seller) *domain.Seller {
	if s == nil {
		return nil
	}
	c := *s
	c.IntegrationErrors = append([]domain.IntegrationError(nil), s.IntegrationErrors...)
	c.Ledger = append([]domain.LedgerEntry(nil), s.Ledger...)
	if s.TaxSettings != nil {
		c.TaxSettings = make(map[string]domain.TaxSetting, len(s.TaxSettings))
		for k, v := range s.TaxSettings {
			c.TaxSettings[k] = v
		}
	}
	if s.Connections != nil {
		c.Connections = make(map[string]domain.ProviderConnection, len(s.Connections))
		for k, v := range s.Connections {
			c.Connections[k] = v
		}
	}
	return &c
}

func (r *SellerRepo) FindByID(_ context.Context, id string) (*domain.Seller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	return cloneSeller(r.items[id]), nil
}

// Save keeps the stored error log, matching the Mongo implementation.
func (r *SellerRepo) Save(_ context.Context, s *domain.Seller) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	c := cloneSeller(s)
	if existing, ok := r.items[s.SellerID]; ok {
		c.IntegrationErrors = existing.IntegrationErrors
	}
	r.items[s.SellerID] = c
	return nil
}

func (r *SellerRepo) AppendIntegrationError(_ context.Context, sellerID string, entry domain.IntegrationError, limit int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[sellerID]
	if !ok {
		return domain.ErrSellerNotFound
	}
	s.IntegrationErrors = append(s.IntegrationErrors, entry)
	if over := len(s.IntegrationErrors) - limit; limit > 0 && over > 0 {
		s.IntegrationErrors = s.IntegrationErrors[over:]
	}
	return nil
}

// Get returns the stored seller
func (r *SellerRepo) Get(id string) *domain.Seller {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneSeller(r.items[id])
}

// OrderRepo is an in-memory domain.OrderRepository
type OrderRepo struct {
	mu      sync.Mutex
	items   map[string]*domain.Order
	SaveErr error
	Saves   int
}

func NewOrderRepo(items ...*domain.Order) *OrderRepo {
	r := &OrderRepo{items: make(map[string]*domain.Order)}
	for _, o := range items {
		r.items[o.OrderID] = cloneOrder(o)
	}
	return r
}

func cloneOrder(o *domain.Order) *domain.Order {
	if o == nil {
		return nil
	}
	c := *o
	c.IntegrationLog = append([]domain.IntegrationLogEntry(nil), o.IntegrationLog...)
	c.Tracking = clone(o.Tracking)
	c.Escrow = clone(o.Escrow)
	c.Tax = clone(o.Tax)
	return &c
}

func (r *OrderRepo) Save(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.Saves++
	r.items[o.OrderID] = cloneOrder(o)
	return nil
}

func (r *OrderRepo) FindBySellerAndReference(_ context.Context, sellerID, ref string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.items {
		if o.SellerID == sellerID && (o.OrderID == ref || o.ExternalOrderID == ref) {
			return cloneOrder(o), nil
		}
	}
	return nil, nil
}

// All returns every stored order
func (r *OrderRepo) All() []*domain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Order, 0, len(r.items))
	for _, o := range r.items {
		out = append(out, cloneOrder(o))
	}
	return out
}

// ProductRepo is an in-memory domain.ProductRepository
type ProductRepo struct {
	mu      sync.Mutex
	items   map[string]*domain.Product
	SaveErr error
}

func NewProductRepo(items ...*domain.Product) *ProductRepo {
	r := &ProductRepo{items: make(map[string]*domain.Product)}
	for _, p := range items {
		r.items[p.ProductID] = cloneProduct(p)
	}
	return r
}

func cloneProduct(p *domain.Product) *domain.Product {
	if p == nil {
		return nil
	}
	c := *p
	c.Warehouses = append([]domain.WarehouseStock(nil), p.Warehouses...)
	c.WebhookEvents = append([]domain.ProductWebhookEvent(nil), p.WebhookEvents...)
	return &c
}

func (r *ProductRepo) Save(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.items[p.ProductID] = cloneProduct(p)
	return nil
}

func (r *ProductRepo) FindBySellerAndReference(_ context.Context, sellerID, ref string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.items {
		if p.SellerID == sellerID && (p.ProductID == ref || p.ExternalProductID == ref) {
			return cloneProduct(p), nil
		}
	}
	return nil, nil
}

func (r *ProductRepo) CountOutOfStock(_ context.Context, sellerID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.items {
		if p.SellerID == sellerID && p.Status != domain.ProductStatusArchived && p.IsOutOfStock() {
			n++
		}
	}
	return n, nil
}

// All returns every stored product
func (r *ProductRepo) All() []*domain.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Product, 0, len(r.items))
	for _, p := range r.items {
		out = append(out, cloneProduct(p))
	}
	return out
}

// Dispatched is one recorded Dispatch call
type Dispatched struct {
	SellerID string
	Event    domain.EventName
	Data     map[string]any
}

// DispatcherSpy records dispatches and optionally fails them
type DispatcherSpy struct {
	mu    sync.Mutex
	Calls []Dispatched
	Err   error
}

func (d *DispatcherSpy) Dispatch(_ context.Context, sellerID string, event domain.EventName, data map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.Calls = append(d.Calls, Dispatched{SellerID: sellerID, Event: event, Data: data})
	return nil
}

// Recorded returns a copy of the recorded calls
func (d *DispatcherSpy) Recorded() []Dispatched {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Dispatched(nil), d.Calls...)
}

// NewSeller returns a seller fixture
func NewSeller(id string) *domain.Seller {
	now := time.Now().UTC()
	return &domain.Seller{SellerID: id, Name: "Seller " + id, CreatedAt: now, UpdatedAt: now}
}
