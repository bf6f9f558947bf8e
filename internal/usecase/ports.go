package usecase

import (
	"context"
	"net/http"

	domain "github.com/hykura1501/e-commerce/internal/entity"
)

// LocalStore is the device/session-local slot holding an anonymous cart.
// Write must report failures; callers never treat an unconfirmed write as durable.
type LocalStore interface {
	Read(ctx context.Context) ([]domain.CartItem, error)
	Write(ctx context.Context, items []domain.CartItem) error
	Clear(ctx context.Context) error
}

// RemoteStatus is the outcome reported by the remote cart service.
type RemoteStatus struct {
	Code    int
	Message string
}

func (s RemoteStatus) OK() bool { return s.Code == http.StatusOK }

// RemoteCart is the server-authoritative cart of one authenticated user.
type RemoteCart interface {
	Fetch(ctx context.Context) ([]domain.CartItem, error)
	AddItem(ctx context.Context, productID string, qty int) (RemoteStatus, error)
	UpdateQuantity(ctx context.Context, productID string, qty int) (RemoteStatus, error)
	Delete(ctx context.Context, productID string) (RemoteStatus, error)
}

// OrderResult: Status == http.StatusCreated is the only success.
type OrderResult struct {
	Status  int
	ID      string
	Message string
}

func (r OrderResult) Created() bool { return r.Status == http.StatusCreated }

type OrderService interface {
	Create(ctx context.Context, user domain.User, draft domain.OrderDraft) (OrderResult, error)
}

type ProductCatalog interface {
	Get(ctx context.Context, productID string) (domain.Product, error)
}

type ProfileRepo interface {
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
}

type EventPublisher interface {
	PublishCheckout(ctx context.Context, ev CheckoutEvent) error
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
	Release(ctx context.Context, scope, key string) error
}
