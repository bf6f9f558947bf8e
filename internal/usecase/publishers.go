package usecase

import (
	"context"
	"errors"
)

// FallbackPublisher sends to Primary and, when that fails, to Secondary.
// It fails only if both do.
type FallbackPublisher struct {
	Primary   EventPublisher
	Secondary EventPublisher
}

func (p FallbackPublisher) PublishCheckout(ctx context.Context, ev CheckoutEvent) error {
	err := p.Primary.PublishCheckout(ctx, ev)
	if err == nil || p.Secondary == nil {
		return err
	}
	if serr := p.Secondary.PublishCheckout(ctx, ev); serr != nil {
		return errors.Join(err, serr)
	}
	return nil
}
