package remote_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/noghresod/shopsync/mockapi"
	"github.com/noghresod/shopsync/model"
	"github.com/noghresod/shopsync/ratelimit"
	"github.com/noghresod/shopsync/remote"
	"github.com/noghresod/shopsync/testkit"
	"github.com/noghresod/shopsync/xerrors"
)

// requestLog 记录到达服务端的请求头
type requestLog struct {
	mu      sync.Mutex
	headers []http.Header
}

func (l *requestLog) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l.mu.Lock()
		l.headers = append(l.headers, r.Header.Clone())
		l.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (l *requestLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.headers)
}

func (l *requestLog) last() http.Header {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.headers[len(l.headers)-1]
}

type fixture struct {
	mock *mockapi.Server
	log  *requestLog
	api  remote.API
}

func newFixture(t *testing.T, mockCfg *mockapi.Config, cfg remote.Config, opts ...remote.Option) *fixture {
	t.Helper()
	mock, err := mockapi.New(mockCfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mock.Close() })

	log := &requestLog{}
	srv := httptest.NewServer(log.wrap(mock.Handler()))
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL + "/v1"
	opts = append([]remote.Option{remote.WithLogger(testkit.NewLogger())}, opts...)
	api, err := remote.New(&cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = api.Close() })

	return &fixture{mock: mock, log: log, api: api}
}

func TestNew(t *testing.T) {
	_, err := remote.New(nil)
	assert.ErrorIs(t, err, remote.ErrConfigNil)

	_, err = remote.New(&remote.Config{BaseURL: "ftp://example.com"})
	assert.ErrorIs(t, err, remote.ErrInvalidConfig)
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	api, err := remote.New(&remote.Config{})
	require.NoError(t, err)
	require.NoError(t, api.Close())
}

func TestProducts(t *testing.T) {
	f := newFixture(t, nil, remote.Config{})
	ctx := context.Background()

	products, err := f.api.Products(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 6)

	p, err := f.api.Product(ctx, "p-003")
	require.NoError(t, err)
	assert.Equal(t, "Filigree Bangle", p.Name)

	_, err = f.api.Product(ctx, "missing")
	var se *remote.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Status)
	assert.Equal(t, "product not found", se.Message)
	assert.True(t, xerrors.IsNotFound(err))
	assert.False(t, xerrors.IsUnavailable(err))

	_, err = f.api.Product(ctx, "")
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestETagRevalidation(t *testing.T) {
	f := newFixture(t, nil, remote.Config{})
	ctx := context.Background()

	first, err := f.api.Products(ctx)
	require.NoError(t, err)
	assert.Empty(t, f.log.last().Get("If-None-Match"))

	second, err := f.api.Products(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, f.log.last().Get("If-None-Match"))
	assert.Equal(t, first, second)

	f.mock.UpdateProduct("p-001", func(p *model.Product) { p.Price = 1 })
	third, err := f.api.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), third[0].Price)
}

func TestHeaders(t *testing.T) {
	f := newFixture(t, &mockapi.Config{APIKey: "k-1"}, remote.Config{APIKey: "k-1", Token: "tok"})

	_, err := f.api.Cart(context.Background())
	require.NoError(t, err)
	h := f.log.last()
	assert.Equal(t, "k-1", h.Get("X-API-Key"))
	assert.Equal(t, "Bearer tok", h.Get("Authorization"))
	assert.Equal(t, "shopsync/1.0", h.Get("User-Agent"))

	bad := newFixture(t, &mockapi.Config{APIKey: "k-1"}, remote.Config{APIKey: "wrong"})
	_, err = bad.api.Cart(context.Background())
	var se *remote.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Status)
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestCartOrderWishlist(t *testing.T) {
	f := newFixture(t, nil, remote.Config{})
	ctx := context.Background()

	cart, err := f.api.AddToCart(ctx, "p-001", 2)
	require.NoError(t, err)
	require.Len(t, cart, 1)
	cart, err = f.api.AddToCart(ctx, "p-004", 1)
	require.NoError(t, err)
	require.Len(t, cart, 2)

	cart, err = f.api.RemoveFromCart(ctx, "p-004")
	require.NoError(t, err)
	require.Len(t, cart, 1)

	_, err = f.api.AddToCart(ctx, "p-001", 0)
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	_, err = f.api.PlaceOrder(ctx, model.OrderRequest{})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	order, err := f.api.PlaceOrder(ctx, model.OrderRequest{Address: "Isfahan"})
	require.NoError(t, err)
	assert.Equal(t, int64(4_900_000), order.Total)
	require.Len(t, order.Items, 1)

	orders, err := f.api.Orders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	got, err := f.api.Order(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Isfahan", got.Address)

	cart, err = f.api.Cart(ctx)
	require.NoError(t, err)
	assert.Empty(t, cart)

	in, err := f.api.ToggleWishlist(ctx, "p-002")
	require.NoError(t, err)
	assert.True(t, in)
	wishlist, err := f.api.Wishlist(ctx)
	require.NoError(t, err)
	require.Len(t, wishlist, 1)
	in, err = f.api.ToggleWishlist(ctx, "p-002")
	require.NoError(t, err)
	assert.False(t, in)
}

func TestGuardOpensOnServerErrors(t *testing.T) {
	f := newFixture(t, nil, remote.Config{
		Guard: remote.GuardConfig{MinimumRequests: 2, FailureRatio: 0.5, Timeout: time.Hour},
	})
	ctx := context.Background()
	f.mock.SetDown(true)

	for i := 0; i < 2; i++ {
		_, err := f.api.Cart(ctx)
		var se *remote.StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusServiceUnavailable, se.Status)
		assert.True(t, xerrors.IsUnavailable(err))
	}

	before := f.log.count()
	_, err := f.api.Cart(ctx)
	assert.ErrorIs(t, err, remote.ErrGuardOpen)
	assert.True(t, xerrors.IsUnavailable(err))
	assert.Equal(t, before, f.log.count(), "rejected request must not reach the server")

	for host, state := range f.api.GuardStates() {
		assert.Equal(t, "open", state, host)
	}
}

func TestGuardIgnoresClientErrors(t *testing.T) {
	f := newFixture(t, nil, remote.Config{
		Guard: remote.GuardConfig{MinimumRequests: 2, FailureRatio: 0.5, Timeout: time.Hour},
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.api.Product(ctx, "missing")
		require.True(t, xerrors.IsNotFound(err))
	}
	_, err := f.api.Products(ctx)
	require.NoError(t, err)
	for _, state := range f.api.GuardStates() {
		assert.Equal(t, "closed", state)
	}
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, nil, remote.Config{RateLimit: ratelimit.Limit{Rate: 50, Burst: 1}})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := f.api.Cart(ctx)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := f.api.Cart(canceled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTracePropagation(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	otel.SetTextMapPropagator(propagation.TraceContext{})

	f := newFixture(t, nil, remote.Config{}, remote.WithTracerProvider(tp))
	_, err := f.api.Products(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, f.log.last().Get("traceparent"))
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "remote GET products", spans[0].Name())
}
