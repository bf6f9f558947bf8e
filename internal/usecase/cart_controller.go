package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	domain "github.com/hykura1501/e-commerce/internal/entity"
	"github.com/hykura1501/e-commerce/internal/logging"
	"github.com/hykura1501/e-commerce/internal/pricing"
	"golang.org/x/sync/semaphore"
)

type State string

const (
	StateHydrating State = "hydrating"
	StateReady     State = "ready"
)

// CartView is a snapshot of the cart for rendering.
type CartView struct {
	Items []domain.CartItem `json:"items"`
	Mode  domain.Mode       `json:"mode"`
	State State             `json:"state"`
}

// CartController owns one visitor's cart and selection. Mutating operations
// are serialized: each holds the op semaphore for its whole duration,
// including remote round trips. Readers take mu only.
type CartController struct {
	sessionID string
	userID    string

	op *semaphore.Weighted

	mu       sync.RWMutex
	state    State
	backend  CartBackend
	cart     domain.Cart
	selected map[string]struct{}

	orders OrderService
	events EventPublisher
	log    *slog.Logger
	now    func() time.Time
}

type ControllerOption func(*CartController)

func WithSessionID(id string) ControllerOption  { return func(c *CartController) { c.sessionID = id } }
func WithUserID(id string) ControllerOption     { return func(c *CartController) { c.userID = id } }
func WithPublisher(p EventPublisher) ControllerOption {
	return func(c *CartController) { c.events = p }
}
func WithLogger(l *slog.Logger) ControllerOption { return func(c *CartController) { c.log = l } }
func WithClock(now func() time.Time) ControllerOption {
	return func(c *CartController) { c.now = now }
}

func NewCartController(backend CartBackend, orders OrderService, opts ...ControllerOption) *CartController {
	c := &CartController{
		op:       semaphore.NewWeighted(1),
		state:    StateHydrating,
		backend:  backend,
		cart:     domain.Cart{Mode: backend.Mode()},
		selected: map[string]struct{}{},
		orders:   orders,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logging.New("cart")
	}
	c.log = c.log.With("session_id", c.sessionID)
	return c
}

// begin serializes mutating operations. Waiting honours ctx; once acquired
// the operation runs to completion.
func (c *CartController) begin(ctx context.Context, needReady bool) (func(), error) {
	if err := c.op.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	release := func() { c.op.Release(1) }
	if needReady && c.State() != StateReady {
		release()
		return nil, ErrNotReady
	}
	return release, nil
}

// Hydrate loads the starting cart from the backend and moves to Ready with
// every item selected. On failure the controller stays Hydrating.
func (c *CartController) Hydrate(ctx context.Context) error {
	done, err := c.begin(ctx, false)
	if err != nil {
		return err
	}
	defer done()
	if c.State() == StateReady {
		return nil
	}

	items, err := c.backend.Load(ctx)
	if err != nil {
		c.log.Warn("cart hydrate failed", "mode", c.backend.Mode(), "err", err)
		return err
	}

	c.mu.Lock()
	c.cart = domain.Cart{Items: items, Mode: c.backend.Mode()}
	c.selectAllLocked()
	c.state = StateReady
	c.mu.Unlock()
	c.log.Debug("cart hydrated", "mode", c.backend.Mode(), "items", len(items))
	return nil
}

func (c *CartController) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *CartController) Mode() domain.Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cart.Mode
}

func (c *CartController) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *CartController) View() CartView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CartView{Items: c.cart.Clone().Items, Mode: c.cart.Mode, State: c.state}
}

// Selection returns selected ids in cart order.
func (c *CartController) Selection() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selectionLocked()
}

func (c *CartController) Aggregates() pricing.Aggregates {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return pricing.Aggregate(c.cart.Items, c.selectionLocked())
}

func (c *CartController) selectionLocked() []string {
	out := make([]string, 0, len(c.selected))
	for _, it := range c.cart.Items {
		if _, ok := c.selected[it.Product.ID]; ok {
			out = append(out, it.Product.ID)
		}
	}
	return out
}

func (c *CartController) selectAllLocked() {
	c.selected = make(map[string]struct{}, len(c.cart.Items))
	for _, it := range c.cart.Items {
		c.selected[it.Product.ID] = struct{}{}
	}
}

// MaxLineQuantity caps a single cart line.
const MaxLineQuantity = 999

// AddItem merges qty of p into the cart. The backend must confirm before the
// in-memory cart changes.
func (c *CartController) AddItem(ctx context.Context, p domain.Product, qty int) error {
	if qty < 1 || qty > MaxLineQuantity {
		return ErrInvalidQuantity
	}
	if err := p.Validate(); err != nil {
		return err
	}
	done, err := c.begin(ctx, true)
	if err != nil {
		return err
	}
	defer done()

	cur := c.snapshot()
	if i := cur.IndexOf(p.ID); i >= 0 && cur.Items[i].Quantity > MaxLineQuantity-qty {
		return ErrInvalidQuantity
	}
	next := cur.Merged(p, qty)
	if err := c.backend.Add(ctx, p, qty, next); err != nil {
		c.log.Warn("add item failed", "product_id", p.ID, "err", err)
		return err
	}
	c.apply(next, nil)
	return nil
}

// UpdateQuantity sets the quantity of an existing line. Quantities below 1
// are ignored; removal is RemoveItem's job.
func (c *CartController) UpdateQuantity(ctx context.Context, productID string, qty int) error {
	done, err := c.begin(ctx, true)
	if err != nil {
		return err
	}
	defer done()
	if qty < 1 {
		return nil
	}
	if qty > MaxLineQuantity {
		return ErrInvalidQuantity
	}

	cur := c.snapshot()
	if !cur.Has(productID) {
		return ErrItemNotFound
	}
	next := cur.WithQuantity(productID, qty)
	if err := c.backend.SetQuantity(ctx, productID, qty, next); err != nil {
		c.log.Warn("update quantity failed", "product_id", productID, "qty", qty, "err", err)
		return err
	}
	c.apply(next, nil)
	return nil
}

// RemoveItem drops a line and its selection entry together.
func (c *CartController) RemoveItem(ctx context.Context, productID string) error {
	done, err := c.begin(ctx, true)
	if err != nil {
		return err
	}
	defer done()

	cur := c.snapshot()
	if !cur.Has(productID) {
		return ErrItemNotFound
	}
	next := cur.Without(productID)
	if err := c.backend.Remove(ctx, productID, next); err != nil {
		c.log.Warn("remove item failed", "product_id", productID, "err", err)
		return err
	}
	c.apply(next, []string{productID})
	return nil
}

func (c *CartController) ToggleSelection(ctx context.Context, productID string) error {
	done, err := c.begin(ctx, true)
	if err != nil {
		return err
	}
	defer done()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.cart.Has(productID) {
		return ErrItemNotFound
	}
	if _, ok := c.selected[productID]; ok {
		delete(c.selected, productID)
	} else {
		c.selected[productID] = struct{}{}
	}
	return nil
}

func (c *CartController) SelectAll(ctx context.Context) error {
	done, err := c.begin(ctx, true)
	if err != nil {
		return err
	}
	defer done()

	c.mu.Lock()
	c.selectAllLocked()
	c.mu.Unlock()
	return nil
}

func (c *CartController) ClearSelection(ctx context.Context) error {
	done, err := c.begin(ctx, true)
	if err != nil {
		return err
	}
	defer done()

	c.mu.Lock()
	c.selected = map[string]struct{}{}
	c.mu.Unlock()
	return nil
}

func (c *CartController) snapshot() domain.Cart {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cart.Clone()
}

// apply installs next as the item list and unselects dropped ids.
func (c *CartController) apply(next []domain.CartItem, dropped []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cart.Items = next
	for _, id := range dropped {
		delete(c.selected, id)
	}
}
