package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	domain "github.com/hykura1501/e-commerce/internal/entity"
	"github.com/hykura1501/e-commerce/internal/usecase"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct{}

func (staticTokens) Issue(userID, _ string) (string, error) { return "tok-" + userID, nil }

type recorded struct {
	method, path, auth string
	body               map[string]any
}

func serve(t *testing.T, status int, reply string) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method, rec.path, rec.auth = r.Method, r.URL.Path, r.Header.Get("Authorization")
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &rec.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestUserCart_Fetch(t *testing.T) {
	srv, rec := serve(t, http.StatusOK, `{"items":[{"product":{"id":"A","name":"Tea","price":"10","discount":"0.1","images":[]},"quantity":2}]}`)
	cart := NewCartClient(srv.URL, srv.Client(), staticTokens{}, 0).ForUser("u-1")

	items, err := cart.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].Product.ID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, items[0].Product.Discount.Equal(decimal.RequireFromString("0.1")))
	assert.Equal(t, "GET /v1/cart", rec.method+" "+rec.path)
	assert.Equal(t, "Bearer tok-u-1", rec.auth)
}

func TestUserCart_FetchNon200IsError(t *testing.T) {
	srv, _ := serve(t, http.StatusUnauthorized, `{"message":"expired"}`)
	_, err := NewCartClient(srv.URL, srv.Client(), staticTokens{}, 0).ForUser("u-1").Fetch(context.Background())
	assert.ErrorIs(t, err, errUnexpectedStatus)
}

func TestUserCart_Mutations(t *testing.T) {
	t.Run("add", func(t *testing.T) {
		srv, rec := serve(t, http.StatusOK, `{}`)
		st, err := NewCartClient(srv.URL, srv.Client(), staticTokens{}, 0).ForUser("u-1").AddItem(context.Background(), "A", 3)
		require.NoError(t, err)
		assert.True(t, st.OK())
		assert.Equal(t, "POST /v1/cart/items", rec.method+" "+rec.path)
		assert.Equal(t, map[string]any{"product_id": "A", "quantity": float64(3)}, rec.body)
	})
	t.Run("update rejected", func(t *testing.T) {
		srv, rec := serve(t, http.StatusConflict, `{"message":"only 2 left"}`)
		st, err := NewCartClient(srv.URL, srv.Client(), staticTokens{}, 0).ForUser("u-1").UpdateQuantity(context.Background(), "A", 9)
		require.NoError(t, err)
		assert.Equal(t, usecase.RemoteStatus{Code: http.StatusConflict, Message: "only 2 left"}, st)
		assert.Equal(t, "PUT /v1/cart/items/A", rec.method+" "+rec.path)
	})
	t.Run("delete", func(t *testing.T) {
		srv, rec := serve(t, http.StatusOK, ``)
		st, err := NewCartClient(srv.URL, srv.Client(), staticTokens{}, 0).ForUser("u-1").Delete(context.Background(), "A")
		require.NoError(t, err)
		assert.True(t, st.OK())
		assert.Equal(t, "DELETE /v1/cart/items/A", rec.method+" "+rec.path)
	})
}

func TestUserCart_TransportError(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, `{}`)
	srv.Close()

	_, err := NewCartClient(srv.URL, nil, staticTokens{}, 0).ForUser("u-1").AddItem(context.Background(), "A", 1)
	assert.Error(t, err)
}

func draft() domain.OrderDraft {
	return domain.OrderDraft{
		Total: decimal.RequireFromString("23"),
		Details: []domain.OrderLine{
			{ProductID: "A", Quantity: 2, Subtotal: decimal.RequireFromString("18")},
			{ProductID: "B", Quantity: 1, Subtotal: decimal.RequireFromString("5")},
		},
	}
}

var buyer = domain.User{ID: "u-1", Address: "1 Le Loi", Phone: "0900"}

func TestOrderClient_Created(t *testing.T) {
	srv, rec := serve(t, http.StatusCreated, `{"id":"o-77"}`)

	res, err := NewOrderClient(srv.URL, srv.Client(), staticTokens{}, 0).Create(context.Background(), buyer, draft())

	require.NoError(t, err)
	assert.True(t, res.Created())
	assert.Equal(t, "o-77", res.ID)
	assert.Equal(t, "POST /v1/orders", rec.method+" "+rec.path)
	assert.Equal(t, "Bearer tok-u-1", rec.auth)
	assert.Equal(t, float64(23), rec.body["total"])
	assert.Equal(t, "1 Le Loi", rec.body["address"])
	details := rec.body["details"].([]any)
	require.Len(t, details, 2)
	assert.Equal(t, map[string]any{"product_id": "A", "quantity": float64(2), "subtotal": float64(18)}, details[0])
}

func TestOrderClient_Rejected(t *testing.T) {
	srv, _ := serve(t, http.StatusBadRequest, `{"message":"Product B is out of stock"}`)

	res, err := NewOrderClient(srv.URL, srv.Client(), staticTokens{}, 0).Create(context.Background(), buyer, draft())

	require.NoError(t, err)
	assert.False(t, res.Created())
	assert.Equal(t, "Product B is out of stock", res.Message)
}

func TestOrderClient_CreatedWithOddBody(t *testing.T) {
	srv, _ := serve(t, http.StatusCreated, `created`)

	res, err := NewOrderClient(srv.URL, srv.Client(), staticTokens{}, 0).Create(context.Background(), buyer, draft())

	require.NoError(t, err)
	assert.True(t, res.Created())
	assert.Empty(t, res.ID)
}

func TestCatalogClient(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		srv, rec := serve(t, http.StatusOK, `{"id":"P-1","name":"Mug","price":4.5,"discount":0,"images":["m.jpg"]}`)
		p, err := NewCatalogClient(srv.URL, srv.Client(), 0).Get(context.Background(), "P-1")
		require.NoError(t, err)
		assert.Equal(t, "Mug", p.Name)
		assert.Equal(t, "4.50", p.Price.StringFixed(2))
		assert.Empty(t, rec.auth)
	})
	t.Run("missing", func(t *testing.T) {
		srv, _ := serve(t, http.StatusNotFound, `{"message":"no such product"}`)
		_, err := NewCatalogClient(srv.URL, srv.Client(), 0).Get(context.Background(), "P-9")
		assert.ErrorIs(t, err, usecase.ErrItemNotFound)
	})
	t.Run("upstream error", func(t *testing.T) {
		srv, _ := serve(t, http.StatusBadGateway, ``)
		_, err := NewCatalogClient(srv.URL, srv.Client(), 0).Get(context.Background(), "P-1")
		assert.ErrorIs(t, err, errUnexpectedStatus)
	})
}
