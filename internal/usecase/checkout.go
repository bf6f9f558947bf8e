package usecase

import (
	"context"
	"fmt"
	"strings"

	domain "github.com/hykura1501/e-commerce/internal/entity"
	"github.com/hykura1501/e-commerce/internal/pricing"
)

type CheckoutResult struct {
	OrderID string
	Draft   domain.OrderDraft
	// Stale is set when the order was created but the local slot could not
	// be rewritten with the remaining items.
	Stale bool
}

// Checkout turns the selected lines into an order. Preconditions are checked
// in order and short-circuit: selection, authentication, profile. Nothing in
// the cart changes unless the order service reports Created.
func (c *CartController) Checkout(ctx context.Context, user *domain.User) (CheckoutResult, error) {
	done, err := c.begin(ctx, true)
	if err != nil {
		return CheckoutResult{}, err
	}
	defer done()

	// the order request runs to completion once sent
	ctx = context.WithoutCancel(ctx)

	cur := c.snapshot()
	c.mu.RLock()
	selected := c.selectionLocked()
	c.mu.RUnlock()

	if err := checkoutPreconditions(selected, user); err != nil {
		c.emit(ctx, user, selected, CheckoutResult{}, err)
		return CheckoutResult{}, err
	}

	draft := pricing.Draft(cur.Items, selected)
	res, err := c.orders.Create(ctx, *user, draft)
	switch {
	case err != nil:
		err = newOrderRejected("", err)
	case !res.Created():
		err = newOrderRejected(res.Message, fmt.Errorf("order service status %d", res.Status))
	}
	if err != nil {
		c.log.Warn("checkout rejected", "user_id", user.ID, "err", err)
		c.emit(ctx, user, selected, CheckoutResult{Draft: draft}, err)
		return CheckoutResult{}, err
	}

	out := CheckoutResult{OrderID: res.ID, Draft: draft}
	next := cur.Without(selected...)
	if serr := c.backend.Settle(ctx, next); serr != nil {
		c.log.Error("checkout settled in memory only", "order_id", res.ID, "err", serr)
		out.Stale = true
	}

	c.mu.Lock()
	c.cart.Items = next
	c.selected = map[string]struct{}{}
	c.mu.Unlock()

	c.log.Info("checkout succeeded", "order_id", res.ID, "user_id", user.ID, "lines", len(draft.Details), "total", draft.Total.StringFixed(2))
	c.emit(ctx, user, selected, out, nil)
	return out, nil
}

func checkoutPreconditions(selected []string, user *domain.User) error {
	if len(selected) == 0 {
		return ErrEmptySelection
	}
	if user == nil {
		return ErrUnauthenticated
	}
	if strings.TrimSpace(user.Address) == "" || strings.TrimSpace(user.Phone) == "" {
		return ErrIncompleteProfile
	}
	return nil
}

// emit publishes the checkout-result event. Best effort.
func (c *CartController) emit(ctx context.Context, user *domain.User, ids []string, res CheckoutResult, cause error) {
	if c.events == nil {
		return
	}
	ev := CheckoutEvent{
		SessionID:  c.sessionID,
		Success:    cause == nil,
		OrderID:    res.OrderID,
		ProductIDs: ids,
		At:         c.now().UTC(),
	}
	if user != nil {
		ev.UserID = user.ID
	}
	if len(res.Draft.Details) > 0 {
		ev.Total = res.Draft.Total.StringFixed(2)
	}
	if cause != nil {
		ev.Code = CodeOf(cause)
		ev.Message = MessageOf(cause)
	}
	if err := c.events.PublishCheckout(ctx, ev); err != nil {
		c.log.Warn("publish checkout event failed", "err", err)
	}
}
