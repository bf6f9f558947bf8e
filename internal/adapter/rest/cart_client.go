package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	domain "github.com/hykura1501/e-commerce/internal/entity"
	"github.com/hykura1501/e-commerce/internal/usecase"
)

// CartClient talks to the remote cart service. One instance serves every
// user; ForUser binds it to the user whose cart is addressed.
type CartClient struct{ c *client }

func NewCartClient(baseURL string, hc *http.Client, tokens TokenSource, timeout time.Duration) *CartClient {
	return &CartClient{c: newClient(baseURL, hc, tokens, timeout)}
}

func (cc *CartClient) ForUser(userID string) *UserCart {
	return &UserCart{c: cc.c, userID: userID}
}

type UserCart struct {
	c      *client
	userID string
}

type cartBody struct {
	Items []domain.CartItem `json:"items"`
}

type addBody struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type quantityBody struct {
	Quantity int `json:"quantity"`
}

func (u *UserCart) Fetch(ctx context.Context) ([]domain.CartItem, error) {
	var body cartBody
	r, err := u.c.do(ctx, http.MethodGet, "/v1/cart", u.userID, nil, &body)
	if err != nil {
		return nil, err
	}
	if r.Status != http.StatusOK {
		return nil, fmt.Errorf("fetch cart: %w %d: %s", errUnexpectedStatus, r.Status, r.Message)
	}
	if body.Items == nil {
		body.Items = []domain.CartItem{}
	}
	return body.Items, nil
}

func (u *UserCart) AddItem(ctx context.Context, productID string, qty int) (usecase.RemoteStatus, error) {
	return u.status(u.c.do(ctx, http.MethodPost, "/v1/cart/items", u.userID, addBody{ProductID: productID, Quantity: qty}, nil))
}

func (u *UserCart) UpdateQuantity(ctx context.Context, productID string, qty int) (usecase.RemoteStatus, error) {
	return u.status(u.c.do(ctx, http.MethodPut, "/v1/cart/items/"+url.PathEscape(productID), u.userID, quantityBody{Quantity: qty}, nil))
}

func (u *UserCart) Delete(ctx context.Context, productID string) (usecase.RemoteStatus, error) {
	return u.status(u.c.do(ctx, http.MethodDelete, "/v1/cart/items/"+url.PathEscape(productID), u.userID, nil, nil))
}

func (u *UserCart) status(r reply, err error) (usecase.RemoteStatus, error) {
	return usecase.RemoteStatus{Code: r.Status, Message: r.Message}, err
}

var _ usecase.RemoteCart = (*UserCart)(nil)
