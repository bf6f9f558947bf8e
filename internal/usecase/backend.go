package usecase

import (
	"context"

	domain "github.com/hykura1501/e-commerce/internal/entity"
)

// CartBackend is the persistence side of a cart, chosen once when the
// controller is built. Mutations receive both the delta and the full
// resulting list so each variant can use whichever it needs; the
// controller applies next in memory only after the backend returns nil.
type CartBackend interface {
	Mode() domain.Mode
	Load(ctx context.Context) ([]domain.CartItem, error)
	Add(ctx context.Context, p domain.Product, qty int, next []domain.CartItem) error
	SetQuantity(ctx context.Context, productID string, qty int, next []domain.CartItem) error
	Remove(ctx context.Context, productID string, next []domain.CartItem) error
	// Settle records the list left after a successful checkout.
	Settle(ctx context.Context, next []domain.CartItem) error
}

type localBackend struct{ store LocalStore }

func NewLocalBackend(store LocalStore) CartBackend { return &localBackend{store: store} }

func (b *localBackend) Mode() domain.Mode { return domain.ModeLocal }

func (b *localBackend) Load(ctx context.Context) ([]domain.CartItem, error) {
	items, err := b.store.Read(ctx)
	if err != nil {
		return nil, newPersistenceFailure(err)
	}
	return items, nil
}

func (b *localBackend) write(ctx context.Context, next []domain.CartItem) error {
	if err := b.store.Write(ctx, next); err != nil {
		return newPersistenceFailure(err)
	}
	return nil
}

func (b *localBackend) Add(ctx context.Context, _ domain.Product, _ int, next []domain.CartItem) error {
	return b.write(ctx, next)
}

func (b *localBackend) SetQuantity(ctx context.Context, _ string, _ int, next []domain.CartItem) error {
	return b.write(ctx, next)
}

func (b *localBackend) Remove(ctx context.Context, _ string, next []domain.CartItem) error {
	return b.write(ctx, next)
}

func (b *localBackend) Settle(ctx context.Context, next []domain.CartItem) error {
	return b.write(ctx, next)
}

func (b *localBackend) Clear(ctx context.Context) error {
	if err := b.store.Clear(ctx); err != nil {
		return newPersistenceFailure(err)
	}
	return nil
}

type remoteBackend struct{ client RemoteCart }

func NewRemoteBackend(client RemoteCart) CartBackend { return &remoteBackend{client: client} }

func (b *remoteBackend) Mode() domain.Mode { return domain.ModeRemote }

func (b *remoteBackend) Load(ctx context.Context) ([]domain.CartItem, error) {
	items, err := b.client.Fetch(ctx)
	if err != nil {
		return nil, newRemoteRejected("fetch", RemoteStatus{}, err)
	}
	return items, nil
}

func (b *remoteBackend) Add(ctx context.Context, p domain.Product, qty int, _ []domain.CartItem) error {
	return check("add", func() (RemoteStatus, error) { return b.client.AddItem(ctx, p.ID, qty) })
}

func (b *remoteBackend) SetQuantity(ctx context.Context, productID string, qty int, _ []domain.CartItem) error {
	return check("update", func() (RemoteStatus, error) { return b.client.UpdateQuantity(ctx, productID, qty) })
}

func (b *remoteBackend) Remove(ctx context.Context, productID string, _ []domain.CartItem) error {
	return check("delete", func() (RemoteStatus, error) { return b.client.Delete(ctx, productID) })
}

// Settle is a no-op: the remote cart is the server's to reconcile.
func (b *remoteBackend) Settle(context.Context, []domain.CartItem) error { return nil }

func check(op string, call func() (RemoteStatus, error)) error {
	st, err := call()
	if err != nil || !st.OK() {
		return newRemoteRejected(op, st, err)
	}
	return nil
}
