// Package pricing derives line and aggregate money values for cart items.
// All functions are pure; rounding happens only through Round2 and Display.
package pricing

import (
	domain "github.com/hykura1501/e-commerce/internal/entity"
	"github.com/shopspring/decimal"
)

type Aggregates struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

func LineSubtotal(it domain.CartItem) decimal.Decimal {
	return it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

func LineDiscount(it domain.CartItem) decimal.Decimal {
	return LineSubtotal(it).Mul(it.Product.Discount)
}

func LineNet(it domain.CartItem) decimal.Decimal {
	return LineSubtotal(it).Sub(LineDiscount(it))
}

// UnitDiscount is the per-unit amount taken off the price.
func UnitDiscount(p domain.Product) decimal.Decimal {
	return p.Price.Mul(p.Discount)
}

// Aggregate sums selected lines only. A nil or empty selection, or ids no
// longer in items, contribute zero.
func Aggregate(items []domain.CartItem, selected []string) Aggregates {
	agg := Aggregates{Subtotal: decimal.Zero, Discount: decimal.Zero, Total: decimal.Zero}
	if len(selected) == 0 {
		return agg
	}
	want := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		want[id] = struct{}{}
	}
	for _, it := range items {
		if _, ok := want[it.Product.ID]; !ok {
			continue
		}
		agg.Subtotal = agg.Subtotal.Add(LineSubtotal(it))
		agg.Discount = agg.Discount.Add(LineDiscount(it))
	}
	agg.Total = agg.Subtotal.Sub(agg.Discount)
	return agg
}

func Round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// Display rounds every aggregate for presentation.
func (a Aggregates) Display() Aggregates {
	return Aggregates{
		Subtotal: Round2(a.Subtotal),
		Discount: Round2(a.Discount),
		Total:    Round2(a.Total),
	}
}

// IsZero reports whether all three values are exactly zero.
func (a Aggregates) IsZero() bool {
	return a.Subtotal.IsZero() && a.Discount.IsZero() && a.Total.IsZero()
}
