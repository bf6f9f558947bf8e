package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	domain "github.com/hykura1501/e-commerce/internal/entity"
	"github.com/hykura1501/e-commerce/internal/usecase"
)

type OrderClient struct{ c *client }

func NewOrderClient(baseURL string, hc *http.Client, tokens TokenSource, timeout time.Duration) *OrderClient {
	return &OrderClient{c: newClient(baseURL, hc, tokens, timeout)}
}

type orderLineBody struct {
	ProductID string      `json:"product_id"`
	Quantity  int         `json:"quantity"`
	Subtotal  json.Number `json:"subtotal"`
}

type orderBody struct {
	Total   json.Number     `json:"total"`
	Details []orderLineBody `json:"details"`
	Address string          `json:"address"`
	Phone   string          `json:"phone"`
}

type createdBody struct {
	ID string `json:"id"`
}

// Create posts the draft. Money goes over the wire as two-decimal numbers.
func (o *OrderClient) Create(ctx context.Context, user domain.User, draft domain.OrderDraft) (usecase.OrderResult, error) {
	body := orderBody{
		Total:   json.Number(draft.Total.StringFixed(2)),
		Details: make([]orderLineBody, 0, len(draft.Details)),
		Address: user.Address,
		Phone:   user.Phone,
	}
	for _, d := range draft.Details {
		body.Details = append(body.Details, orderLineBody{
			ProductID: d.ProductID,
			Quantity:  d.Quantity,
			Subtotal:  json.Number(d.Subtotal.StringFixed(2)),
		})
	}

	r, err := o.c.do(ctx, http.MethodPost, "/v1/orders", user.ID, body, nil)
	if err != nil {
		return usecase.OrderResult{Status: r.Status}, err
	}
	// A 201 with an unreadable body still means the order exists.
	var created createdBody
	if r.Status == http.StatusCreated {
		_ = json.Unmarshal(r.Body, &created)
	}
	return usecase.OrderResult{Status: r.Status, ID: created.ID, Message: r.Message}, nil
}

var _ usecase.OrderService = (*OrderClient)(nil)
