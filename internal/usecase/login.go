package usecase

import (
	"context"
	"fmt"

	domain "github.com/hykura1501/e-commerce/internal/entity"
)

// LoginPolicy decides what happens to an anonymous cart when its visitor
// signs in. In every case the remote cart becomes the source of truth.
type LoginPolicy string

const (
	// LoginReplace re-hydrates from the remote cart and leaves the local slot alone.
	LoginReplace LoginPolicy = "replace"
	// LoginDiscard re-hydrates from the remote cart and clears the local slot.
	LoginDiscard LoginPolicy = "discard"
	// LoginMerge adds every local line to the remote cart, then re-hydrates and clears the slot.
	LoginMerge LoginPolicy = "merge"
)

func ParseLoginPolicy(s string) (LoginPolicy, error) {
	switch p := LoginPolicy(s); p {
	case LoginReplace, LoginDiscard, LoginMerge:
		return p, nil
	case "":
		return LoginReplace, nil
	default:
		return "", fmt.Errorf("unknown login policy %q", s)
	}
}

// SwitchToRemote performs the Local -> Remote transition. On any error the
// controller keeps its local backend. A no-op for remote controllers.
func (c *CartController) SwitchToRemote(ctx context.Context, userID string, remote CartBackend, policy LoginPolicy) error {
	done, err := c.begin(ctx, false)
	if err != nil {
		return err
	}
	defer done()

	if c.backend.Mode() == domain.ModeRemote {
		return nil
	}
	local := c.backend
	log := c.log.With("user_id", userID, "policy", policy)

	if policy == LoginMerge {
		// a slot that was never read must not be merged or trimmed as empty
		if c.State() != StateReady {
			items, err := local.Load(ctx)
			if err != nil {
				log.Warn("local cart unreadable, login deferred", "err", err)
				return err
			}
			c.mu.Lock()
			c.cart = domain.Cart{Items: items, Mode: local.Mode()}
			c.selectAllLocked()
			c.state = StateReady
			c.mu.Unlock()
		}
		if err := c.mergeInto(ctx, remote); err != nil {
			log.Warn("login merge stopped", "err", err)
			return err
		}
	}

	items, err := remote.Load(ctx)
	if err != nil {
		log.Warn("login hydrate failed", "err", err)
		return err
	}

	if policy == LoginDiscard || policy == LoginMerge {
		// Prefer clearing if the backend supports it.
		type clearer interface {
			Clear(ctx context.Context) error
		}
		if cl, ok := local.(clearer); ok {
			if err := cl.Clear(ctx); err != nil {
				log.Warn("local slot not cleared", "err", err)
			}
		}
	}

	c.mu.Lock()
	c.backend = remote
	c.userID = userID
	c.cart = domain.Cart{Items: items, Mode: remote.Mode()}
	c.selectAllLocked()
	c.state = StateReady
	c.mu.Unlock()

	log.Info("cart switched to remote", "items", len(items))
	return nil
}

// mergeInto pushes local lines one by one. Pushed lines leave the local
// cart and slot even if a later line fails, so a retry never adds them twice.
func (c *CartController) mergeInto(ctx context.Context, remote CartBackend) error {
	defer func() {
		if werr := c.backend.Settle(ctx, c.snapshot().Items); werr != nil {
			c.log.Warn("local slot not trimmed after merge", "err", werr)
		}
	}()
	for _, it := range c.snapshot().Items {
		if err := remote.Add(ctx, it.Product, it.Quantity, nil); err != nil {
			return err
		}
		c.apply(c.snapshot().Without(it.Product.ID), []string{it.Product.ID})
	}
	return nil
}
