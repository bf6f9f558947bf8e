package domain

import "github.com/shopspring/decimal"

// User is the authenticated shopper as far as checkout cares.
type User struct {
	ID      string
	Address string
	Phone   string
}

type OrderLine struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// OrderDraft exists only for one checkout attempt and is never persisted locally.
type OrderDraft struct {
	Total   decimal.Decimal `json:"total"`
	Details []OrderLine     `json:"details"`
}
