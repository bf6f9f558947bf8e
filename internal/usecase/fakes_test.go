package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	domain "github.com/hykura1501/e-commerce/internal/entity"
	"github.com/shopspring/decimal"
)

var errBoom = errors.New("boom")

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func product(id, price, discount string) domain.Product {
	return domain.Product{
		ID:       id,
		Name:     "product " + id,
		Price:    decimal.RequireFromString(price),
		Discount: decimal.RequireFromString(discount),
		Images:   []string{"https://cdn.example.com/" + id + ".jpg"},
	}
}

type memStore struct {
	mu        sync.Mutex
	items     []domain.CartItem
	writes    int
	failRead  bool
	failWrite bool
	cleared   bool
}

func (s *memStore) Read(context.Context) ([]domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRead {
		return nil, errBoom
	}
	return append([]domain.CartItem(nil), s.items...), nil
}

func (s *memStore) Write(_ context.Context, items []domain.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite {
		return errBoom
	}
	s.writes++
	s.items = append([]domain.CartItem(nil), items...)
	return nil
}

func (s *memStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.cleared = true
	return nil
}

func (s *memStore) snapshot() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CartItem(nil), s.items...)
}

// fakeRemote keeps a server-side cart and answers with the configured status.
type fakeRemote struct {
	mu       sync.Mutex
	items    []domain.CartItem
	catalog  map[string]domain.Product
	status   int
	message  string
	failAt   int // fail the n-th AddItem call (1-based); 0 never
	adds     int
	calls    []string
	fetchErr error
}

func newFakeRemote(items ...domain.CartItem) *fakeRemote {
	r := &fakeRemote{status: http.StatusOK, catalog: map[string]domain.Product{}}
	r.items = append(r.items, items...)
	return r
}

func (r *fakeRemote) Fetch(context.Context) ([]domain.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "fetch")
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	return append([]domain.CartItem(nil), r.items...), nil
}

func (r *fakeRemote) AddItem(_ context.Context, id string, qty int) (RemoteStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "add:"+id)
	r.adds++
	if r.failAt > 0 && r.adds == r.failAt {
		return RemoteStatus{Code: http.StatusConflict, Message: "out of stock"}, nil
	}
	if r.status != http.StatusOK {
		return RemoteStatus{Code: r.status, Message: r.message}, nil
	}
	c := domain.Cart{Items: r.items}
	p, ok := r.catalog[id]
	if !ok {
		p = domain.Product{ID: id}
	}
	r.items = c.Merged(p, qty)
	return RemoteStatus{Code: http.StatusOK}, nil
}

func (r *fakeRemote) UpdateQuantity(_ context.Context, id string, qty int) (RemoteStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "update:"+id)
	if r.status != http.StatusOK {
		return RemoteStatus{Code: r.status, Message: r.message}, nil
	}
	r.items = domain.Cart{Items: r.items}.WithQuantity(id, qty)
	return RemoteStatus{Code: http.StatusOK}, nil
}

func (r *fakeRemote) Delete(_ context.Context, id string) (RemoteStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "delete:"+id)
	if r.status != http.StatusOK {
		return RemoteStatus{Code: r.status, Message: r.message}, nil
	}
	r.items = domain.Cart{Items: r.items}.Without(id)
	return RemoteStatus{Code: http.StatusOK}, nil
}

type fakeOrders struct {
	mu     sync.Mutex
	result OrderResult
	err    error
	calls  int
	drafts []domain.OrderDraft
}

func (o *fakeOrders) Create(_ context.Context, _ domain.User, d domain.OrderDraft) (OrderResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	o.drafts = append(o.drafts, d)
	return o.result, o.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []CheckoutEvent
}

func (p *recordingPublisher) PublishCheckout(_ context.Context, ev CheckoutEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

type fakeFactory struct {
	stores  map[string]*memStore
	remotes map[string]*fakeRemote
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{stores: map[string]*memStore{}, remotes: map[string]*fakeRemote{}}
}

func (f *fakeFactory) Local(sessionID string) CartBackend {
	s, ok := f.stores[sessionID]
	if !ok {
		s = &memStore{}
		f.stores[sessionID] = s
	}
	return NewLocalBackend(s)
}

func (f *fakeFactory) Remote(userID string) CartBackend {
	r, ok := f.remotes[userID]
	if !ok {
		r = newFakeRemote()
		f.remotes[userID] = r
	}
	return NewRemoteBackend(r)
}
