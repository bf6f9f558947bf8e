package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"

	domain "github.com/hykura1501/e-commerce/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shopper = &domain.User{ID: "u-1", Address: "12 Nguyen Hue, District 1", Phone: "+84 90 000 0000"}

func twoLineStore() *memStore {
	return &memStore{items: []domain.CartItem{
		{Product: product("A", "10", "0.1"), Quantity: 2},
		{Product: product("B", "5", "0"), Quantity: 1},
		{Product: product("C", "7.5", "0.2"), Quantity: 1},
	}}
}

func TestCheckout_Preconditions(t *testing.T) {
	cases := []struct {
		name   string
		clear  bool
		user   *domain.User
		expect *CartError
	}{
		{"empty selection wins over missing user", true, nil, ErrEmptySelection},
		{"unauthenticated", false, nil, ErrUnauthenticated},
		{"missing phone", false, &domain.User{ID: "u", Address: "somewhere"}, ErrIncompleteProfile},
		{"blank address", false, &domain.User{ID: "u", Address: "  ", Phone: "1"}, ErrIncompleteProfile},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := twoLineStore()
			orders := &fakeOrders{result: OrderResult{Status: http.StatusCreated, ID: "o-1"}}
			pub := &recordingPublisher{}
			c := NewCartController(NewLocalBackend(store), orders, WithLogger(discard()), WithPublisher(pub))
			require.NoError(t, c.Hydrate(context.Background()))
			if tc.clear {
				require.NoError(t, c.ClearSelection(context.Background()))
			}
			before := c.View()

			_, err := c.Checkout(context.Background(), tc.user)

			assert.ErrorIs(t, err, tc.expect)
			assert.Equal(t, tc.expect.Message, MessageOf(err))
			assert.Zero(t, orders.calls, "no network call before preconditions pass")
			assert.Equal(t, before, c.View())
			require.Len(t, pub.events, 1)
			assert.False(t, pub.events[0].Success)
			assert.Equal(t, tc.expect.Code, pub.events[0].Code)
		})
	}
}

func TestCheckout_SuccessRemovesSelectedOnly(t *testing.T) {
	store := twoLineStore()
	orders := &fakeOrders{result: OrderResult{Status: http.StatusCreated, ID: "o-42"}}
	pub := &recordingPublisher{}
	c := NewCartController(NewLocalBackend(store), orders, WithLogger(discard()), WithPublisher(pub), WithSessionID("s-1"))
	ctx := context.Background()
	require.NoError(t, c.Hydrate(ctx))
	require.NoError(t, c.ToggleSelection(ctx, "C"))
	untouched := c.View().Items[2]

	res, err := c.Checkout(ctx, shopper)

	require.NoError(t, err)
	assert.Equal(t, "o-42", res.OrderID)
	assert.False(t, res.Stale)
	assert.Equal(t, "23.00", res.Draft.Total.StringFixed(2))
	require.Len(t, orders.drafts, 1)
	assert.Equal(t, []string{"A", "B"}, []string{orders.drafts[0].Details[0].ProductID, orders.drafts[0].Details[1].ProductID})

	v := c.View()
	require.Len(t, v.Items, 1)
	assert.Equal(t, untouched, v.Items[0])
	assert.Empty(t, c.Selection())
	assert.Equal(t, domain.ModeLocal, v.Mode, "mode unchanged")
	assert.Equal(t, []string{"C"}, ids(store.snapshot()))

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.True(t, ev.Success)
	assert.Equal(t, "s-1", ev.SessionID)
	assert.Equal(t, "u-1", ev.UserID)
	assert.Equal(t, "23.00", ev.Total)
	assert.Equal(t, []string{"A", "B"}, ev.ProductIDs)
}

func TestCheckout_RejectedIsAtomic(t *testing.T) {
	cases := map[string]*fakeOrders{
		"service message": {result: OrderResult{Status: http.StatusBadRequest, Message: "Product B is out of stock"}},
		"no message":      {result: OrderResult{Status: http.StatusOK}},
		"transport error": {err: errors.New("dial tcp: connection refused")},
	}
	for name, orders := range cases {
		t.Run(name, func(t *testing.T) {
			remote := newFakeRemote(
				domain.CartItem{Product: product("A", "10", "0.1"), Quantity: 2},
				domain.CartItem{Product: product("B", "5", "0"), Quantity: 1},
			)
			c := newRemote(t, remote, orders)
			beforeItems, beforeSel := c.View(), c.Selection()

			_, err := c.Checkout(context.Background(), shopper)

			assert.ErrorIs(t, err, ErrOrderRejected)
			if m := orders.result.Message; m != "" {
				assert.Equal(t, m, MessageOf(err), "service message surfaced verbatim")
			} else {
				assert.Equal(t, MsgOrderRejected, MessageOf(err))
			}
			assert.Equal(t, beforeItems, c.View())
			assert.Equal(t, beforeSel, c.Selection())
		})
	}
}

func TestCheckout_LocalSlotFailureMarksStale(t *testing.T) {
	store := twoLineStore()
	orders := &fakeOrders{result: OrderResult{Status: http.StatusCreated, ID: "o-7"}}
	c := newLocalWithOrders(t, store, orders)
	store.failWrite = true

	res, err := c.Checkout(context.Background(), shopper)

	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Empty(t, c.View().Items)
	assert.Len(t, store.snapshot(), 3)
}

func TestCheckout_IgnoresCallerCancellationOnceStarted(t *testing.T) {
	store := twoLineStore()
	orders := &ctxCheckingOrders{}
	c := newLocalWithOrders(t, store, orders)

	ctx, cancel := context.WithCancel(context.Background())
	orders.onCreate = cancel

	_, err := c.Checkout(ctx, shopper)

	require.NoError(t, err)
	assert.NoError(t, orders.seenErr)
}

func newLocalWithOrders(t *testing.T, store *memStore, orders OrderService) *CartController {
	t.Helper()
	c := NewCartController(NewLocalBackend(store), orders, WithLogger(discard()))
	require.NoError(t, c.Hydrate(context.Background()))
	return c
}

type ctxCheckingOrders struct {
	onCreate func()
	seenErr  error
}

func (o *ctxCheckingOrders) Create(ctx context.Context, _ domain.User, _ domain.OrderDraft) (OrderResult, error) {
	o.onCreate()
	o.seenErr = ctx.Err()
	return OrderResult{Status: http.StatusCreated, ID: "o-1"}, nil
}
