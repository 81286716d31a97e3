package mockapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noghresod/shopsync/model"
	"github.com/noghresod/shopsync/ratelimit"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func newTestServer(t *testing.T, cfg *Config) *Server {
	t.Helper()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s, err := New(cfg, WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func doRequest(t *testing.T, s *Server, method, path, body string, header map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestProductsAndETag(t *testing.T) {
	s := newTestServer(t, nil)

	w, env := doRequest(t, s, http.MethodGet, "/v1/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var products []model.Product
	require.NoError(t, json.Unmarshal(env.Data, &products))
	assert.Len(t, products, 6)

	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	w, _ = doRequest(t, s, http.MethodGet, "/v1/products", "", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, w.Code)

	require.True(t, s.UpdateProduct("p-001", func(p *model.Product) { p.Price++ }))
	w, _ = doRequest(t, s, http.MethodGet, "/v1/products", "", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, etag, w.Header().Get("ETag"))

	assert.Equal(t, 3, s.Hits("GET /v1/products"))

	w, env = doRequest(t, s, http.MethodGet, "/v1/products/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "product not found", env.Message)
}

func TestCartAndOrder(t *testing.T) {
	s := newTestServer(t, nil)

	w, _ := doRequest(t, s, http.MethodPost, "/v1/orders", `{"address":"Tehran"}`, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env := doRequest(t, s, http.MethodPost, "/v1/cart/items", `{"product_id":"p-002","quantity":2}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cart []model.CartItem
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	require.Len(t, cart, 1)
	assert.Equal(t, int64(5_900_000), cart[0].UnitPrice)

	w, _ = doRequest(t, s, http.MethodPost, "/v1/cart/items", `{"product_id":"p-002","quantity":3}`, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "stock is 4")

	w, _ = doRequest(t, s, http.MethodPost, "/v1/cart/items", `{"product_id":"p-002","quantity":0}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = doRequest(t, s, http.MethodPost, "/v1/orders", `{"address":"Tehran"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var order model.Order
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, model.OrderPending, order.Status)
	assert.Equal(t, int64(11_800_000), order.Total)

	_, env = doRequest(t, s, http.MethodGet, "/v1/cart", "", nil)
	assert.JSONEq(t, `[]`, string(env.Data))

	_, env = doRequest(t, s, http.MethodGet, "/v1/products/p-002", "", nil)
	var p model.Product
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, 2, p.Stock)

	w, _ = doRequest(t, s, http.MethodGet, "/v1/orders/"+order.ID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doRequest(t, s, http.MethodDelete, "/v1/cart/items/p-002", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWishlistToggle(t *testing.T) {
	s := newTestServer(t, nil)

	_, env := doRequest(t, s, http.MethodPost, "/v1/wishlist/p-003/toggle", "", nil)
	assert.JSONEq(t, `{"product_id":"p-003","in_wishlist":true}`, string(env.Data))
	_, env = doRequest(t, s, http.MethodPost, "/v1/wishlist/p-003/toggle", "", nil)
	assert.JSONEq(t, `{"product_id":"p-003","in_wishlist":false}`, string(env.Data))

	w, _ := doRequest(t, s, http.MethodPost, "/v1/wishlist/nope/toggle", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFaultInjection(t *testing.T) {
	s := newTestServer(t, nil)

	s.FailNext(2, http.StatusBadGateway)
	for i := 0; i < 2; i++ {
		w, env := doRequest(t, s, http.MethodGet, "/v1/cart", "", nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.False(t, env.Success)
	}
	w, _ := doRequest(t, s, http.MethodGet, "/v1/cart", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	s.SetDown(true)
	w, _ = doRequest(t, s, http.MethodGet, "/v1/cart", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	s.SetDown(false)
	w, _ = doRequest(t, s, http.MethodGet, "/v1/cart", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, s.Hits("GET /v1/cart"))
}

func TestAPIKeyAndRateLimit(t *testing.T) {
	s := newTestServer(t, &Config{APIKey: "secret", RateLimit: ratelimit.Limit{Rate: 0.1, Burst: 2}})

	w, _ := doRequest(t, s, http.MethodGet, "/v1/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = doRequest(t, s, http.MethodGet, "/v1/products", "", map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doRequest(t, s, http.MethodGet, "/v1/products", "", map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "10", w.Header().Get("Retry-After"))
}
