package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noghresod/shopsync/clog"
)

func newTestLimiter(t *testing.T, cfg *Config) *limiter {
	t.Helper()
	l, err := New(cfg, WithLogger(clog.Discard()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l.(*limiter)
}

func TestAllowBurst(t *testing.T) {
	l := newTestLimiter(t, nil)
	ctx := context.Background()
	limit := Limit{Rate: 1, Burst: 3}

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "api.example.com", limit)
		require.NoError(t, err)
		assert.True(t, ok, "request %d should pass", i)
	}
	ok, err := l.Allow(ctx, "api.example.com", limit)
	require.NoError(t, err)
	assert.False(t, ok)

	// 不同 key 互不影响
	ok, err = l.Allow(ctx, "cdn.example.com", limit)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllowNValidation(t *testing.T) {
	l := newTestLimiter(t, nil)
	ctx := context.Background()

	_, err := l.Allow(ctx, "", Limit{Rate: 1, Burst: 1})
	assert.ErrorIs(t, err, ErrKeyEmpty)

	_, err = l.Allow(ctx, "k", Limit{Rate: 0, Burst: 1})
	assert.ErrorIs(t, err, ErrInvalidLimit)

	_, err = l.AllowN(ctx, "k", Limit{Rate: 1, Burst: 1}, 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	ok, err := l.AllowN(ctx, "k", Limit{Rate: 1, Burst: 2}, 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWait(t *testing.T) {
	l := newTestLimiter(t, nil)
	limit := Limit{Rate: 100, Burst: 1}

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(context.Background(), "k", limit))
	}
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestWaitCanceled(t *testing.T) {
	l := newTestLimiter(t, nil)
	limit := Limit{Rate: 0.01, Burst: 1}
	require.NoError(t, l.Wait(context.Background(), "k", limit))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "k", limit))
}

func TestSweep(t *testing.T) {
	l := newTestLimiter(t, &Config{CleanupInterval: time.Hour, IdleTimeout: time.Minute})
	ctx := context.Background()

	_, err := l.Allow(ctx, "a", Limit{Rate: 1, Burst: 1})
	require.NoError(t, err)
	_, err = l.Allow(ctx, "b", Limit{Rate: 1, Burst: 1})
	require.NoError(t, err)

	assert.Equal(t, 0, l.sweep(time.Now()))
	assert.Equal(t, 2, l.sweep(time.Now().Add(2*time.Minute)))
	assert.Equal(t, int64(0), l.count.Load())
}

func TestClose(t *testing.T) {
	l := newTestLimiter(t, nil)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	_, err := l.Allow(context.Background(), "k", Limit{Rate: 1, Burst: 1})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConcurrentAllow(t *testing.T) {
	l := newTestLimiter(t, nil)
	limit := Limit{Rate: 0.001, Burst: 50}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.Allow(context.Background(), "shared", limit)
			if err == nil && ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := newTestLimiter(t, nil)

	router := gin.New()
	router.Use(GinMiddleware(l, &GinMiddlewareOptions{
		KeyFunc:     func(*gin.Context) string { return "client" },
		LimitFunc:   func(*gin.Context) Limit { return Limit{Rate: 0.5, Burst: 1} },
		WithHeaders: true,
	}))
	router.GET("/products", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0.5", w.Header().Get("X-RateLimit-Limit"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
}

func TestGinMiddlewarePassThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := newTestLimiter(t, nil)

	router := gin.New()
	router.Use(GinMiddleware(l, &GinMiddlewareOptions{
		LimitFunc: func(*gin.Context) Limit { return Limit{} },
	}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}
