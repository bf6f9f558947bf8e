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

type CatalogClient struct{ c *client }

func NewCatalogClient(baseURL string, hc *http.Client, timeout time.Duration) *CatalogClient {
	return &CatalogClient{c: newClient(baseURL, hc, nil, timeout)}
}

func (cc *CatalogClient) Get(ctx context.Context, productID string) (domain.Product, error) {
	var p domain.Product
	r, err := cc.c.do(ctx, http.MethodGet, "/v1/products/"+url.PathEscape(productID), "", nil, &p)
	if err != nil {
		return domain.Product{}, err
	}
	switch r.Status {
	case http.StatusOK:
		return p, nil
	case http.StatusNotFound:
		return domain.Product{}, &usecase.CartError{
			Code:    usecase.CodeItemNotFound,
			Message: "Product not found",
			Err:     fmt.Errorf("catalog: product %s", productID),
		}
	default:
		return domain.Product{}, fmt.Errorf("catalog: %w %d", errUnexpectedStatus, r.Status)
	}
}

var _ usecase.ProductCatalog = (*CatalogClient)(nil)
