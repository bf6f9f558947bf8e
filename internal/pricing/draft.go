package pricing

import (
	domain "github.com/hykura1501/e-commerce/internal/entity"
	"github.com/shopspring/decimal"
)

// Draft builds the order for the selected lines in cart order. Each line
// subtotal is rounded to 2dp first and the total is the sum of those rounded
// values, so the submitted total always matches the lines shown to the user.
func Draft(items []domain.CartItem, selected []string) domain.OrderDraft {
	want := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		want[id] = struct{}{}
	}
	draft := domain.OrderDraft{Total: decimal.Zero, Details: []domain.OrderLine{}}
	for _, it := range items {
		if _, ok := want[it.Product.ID]; !ok {
			continue
		}
		sub := Round2(LineNet(it))
		draft.Details = append(draft.Details, domain.OrderLine{
			ProductID: it.Product.ID,
			Quantity:  it.Quantity,
			Subtotal:  sub,
		})
		draft.Total = draft.Total.Add(sub)
	}
	draft.Total = Round2(draft.Total)
	return draft
}
