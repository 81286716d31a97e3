package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m Meter) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

// TestNew 测试配置分支
func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrConfigNil)

	m, err := New(&Config{Enabled: false})
	require.NoError(t, err)
	_, isNoop := m.(noopMeter)
	assert.True(t, isNoop, "disabled config should return noop meter")

	m, err = New(&Config{Enabled: true, ServiceName: "shopsync-test", Version: "test"})
	require.NoError(t, err)
	require.NoError(t, m.Shutdown(context.Background()))

	m, err = New(&Config{Enabled: true, ServiceName: "shopsync-test", EnableRuntime: true})
	require.NoError(t, err, "runtime instrumentation should start")
	require.NoError(t, m.Shutdown(context.Background()))
}

// TestMeterExport 测试指标经由 Prometheus handler 暴露
func TestMeterExport(t *testing.T) {
	ctx := context.Background()
	m, err := New(&Config{Enabled: true, ServiceName: "shopsync-test"})
	require.NoError(t, err)
	defer m.Shutdown(ctx)

	counter, err := m.Counter("shop_test_events_total", "test events")
	require.NoError(t, err)
	counter.Inc(ctx, L("endpoint", "products"))
	counter.Add(ctx, 2, L("endpoint", "products"))

	gauge, err := m.Gauge("shop_test_entries", "test entries")
	require.NoError(t, err)
	gauge.Set(ctx, 10)
	gauge.Inc(ctx)
	gauge.Dec(ctx)

	hist, err := m.Histogram("shop_test_latency_seconds", "test latency", WithUnit("s"))
	require.NoError(t, err)
	hist.Record(ctx, 0.2)

	body := scrape(t, m)
	assert.Contains(t, body, "shop_test_events_total")
	assert.Contains(t, body, `endpoint="products"`)
	assert.Contains(t, body, "shop_test_entries")
	assert.Contains(t, body, "shop_test_latency_seconds")
}

// TestDiscard 测试 noop Meter
func TestDiscard(t *testing.T) {
	ctx := context.Background()
	m := Discard()
	c, err := m.Counter("x", "x")
	require.NoError(t, err)
	c.Inc(ctx)
	assert.Equal(t, http.StatusNotFound, func() int {
		rec := httptest.NewRecorder()
		Handler(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		return rec.Code
	}())
}

// TestHTTPStatusHelpers 测试状态分类
func TestHTTPStatusHelpers(t *testing.T) {
	assert.Equal(t, "2xx", HTTPStatusClass(204))
	assert.Equal(t, "5xx", HTTPStatusClass(503))
	assert.Equal(t, "unknown", HTTPStatusClass(0))
	assert.Equal(t, OutcomeSuccess, HTTPOutcome(304))
	assert.Equal(t, OutcomeError, HTTPOutcome(404))
}

// TestGinHTTPMiddleware 测试 gin 中间件按路由模板记录
func TestGinHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	m, err := New(&Config{Enabled: true, ServiceName: "mock-api"})
	require.NoError(t, err)
	defer m.Shutdown(ctx)

	hm, err := NewHTTPMetrics(m, "mock-api", OperationHTTPServer)
	require.NoError(t, err)

	r := gin.New()
	r.Use(GinHTTPMiddleware(hm))
	r.GET("/products/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/p-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	hm.Observe(ctx, "get", "", 502, 30*time.Millisecond)

	body := scrape(t, m)
	assert.True(t, strings.Contains(body, `route="/products/:id"`), body)
	assert.Contains(t, body, `route="unknown"`)
	assert.Contains(t, body, `status_class="5xx"`)
}
