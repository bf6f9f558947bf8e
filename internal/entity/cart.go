package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

var (
	ErrInvalidPrice    = errors.New("invalid price")
	ErrInvalidDiscount = errors.New("invalid discount")
)

// Product is read-only catalog data; the cart never mutates it.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Discount decimal.Decimal `json:"discount"` // fraction in [0,1)
	Images   []string        `json:"images"`
}

func (p Product) Validate() error {
	if p.Price.IsNegative() {
		return ErrInvalidPrice
	}
	if p.Discount.IsNegative() || p.Discount.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return ErrInvalidDiscount
	}
	return nil
}

type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Cart keeps items in insertion order; at most one item per product id.
type Cart struct {
	Items []CartItem
	Mode  Mode
}

func (c Cart) IndexOf(productID string) int {
	for i, it := range c.Items {
		if it.Product.ID == productID {
			return i
		}
	}
	return -1
}

func (c Cart) Has(productID string) bool { return c.IndexOf(productID) >= 0 }

// Clone returns a deep-enough copy: the item slice is new, products are shared read-only values.
func (c Cart) Clone() Cart {
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items, Mode: c.Mode}
}

// Merged returns the item list after adding qty of p, merging into an existing line when present.
func (c Cart) Merged(p Product, qty int) []CartItem {
	next := c.Clone().Items
	if i := c.IndexOf(p.ID); i >= 0 {
		next[i].Quantity += qty
		return next
	}
	return append(next, CartItem{Product: p, Quantity: qty})
}

func (c Cart) WithQuantity(productID string, qty int) []CartItem {
	next := c.Clone().Items
	if i := c.IndexOf(productID); i >= 0 {
		next[i].Quantity = qty
	}
	return next
}

func (c Cart) Without(ids ...string) []CartItem {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	next := make([]CartItem, 0, len(c.Items))
	for _, it := range c.Items {
		if _, ok := drop[it.Product.ID]; ok {
			continue
		}
		next = append(next, it)
	}
	return next
}
