// Package mockapi 是店铺 REST API 的内存实现，基于 Gin。
//
// 用于本地联调和测试：提供商品、购物车、订单、心愿单接口，
// 响应带 ETag 并支持 If-None-Match，另外支持故障注入
// （SetDown 整体不可用，FailNext 让后续 n 个请求返回指定状态码）。
package mockapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/metrics"
	"github.com/noghresod/shopsync/model"
	"github.com/noghresod/shopsync/ratelimit"
	"github.com/noghresod/shopsync/trace"
	"github.com/noghresod/shopsync/xerrors"
)

// Config 模拟服务配置
type Config struct {
	Addr string `mapstructure:"addr"` // 监听地址，默认 :8088
	// APIKey 非空时要求请求携带相同的 X-API-Key
	APIKey string `mapstructure:"api_key"`
	// RateLimit 按客户端 IP 限流，为零值时不限流
	RateLimit ratelimit.Limit `mapstructure:"rate_limit"`
	// Latency 每个请求的人为延迟
	Latency time.Duration `mapstructure:"latency"`
}

// Server 模拟服务
type Server struct {
	cfg     Config
	engine  *gin.Engine
	logger  clog.Logger
	now     func() time.Time
	limiter ratelimit.Limiter

	mu       sync.Mutex
	products []model.Product
	cart     []model.CartItem
	orders   []model.Order
	wishlist []model.WishlistItem
	hits     map[string]int

	down       atomic.Bool
	failNext   atomic.Int32
	failStatus atomic.Int32
}

// New 创建模拟服务并装载默认商品目录
func New(cfg *Config, opts ...Option) (*Server, error) {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	if c.Addr == "" {
		c.Addr = ":8088"
	}

	o := options{logger: clog.Discard(), meter: metrics.Discard(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	httpMetrics, err := metrics.NewHTTPMetrics(o.meter, "mockapi", metrics.OperationHTTPServer)
	if err != nil {
		return nil, xerrors.Wrap(err, "mockapi: create http metrics")
	}

	s := &Server{
		cfg:      c,
		logger:   o.logger,
		now:      o.now,
		products: SeedProducts(o.now()),
		hits:     make(map[string]int),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(trace.GinMiddleware("mockapi", o.tp))
	engine.Use(metrics.GinHTTPMiddleware(httpMetrics))
	if c.RateLimit.Valid() {
		s.limiter, err = ratelimit.New(nil, ratelimit.WithLogger(o.logger), ratelimit.WithMeter(o.meter))
		if err != nil {
			return nil, err
		}
		engine.Use(ratelimit.GinMiddleware(s.limiter, &ratelimit.GinMiddlewareOptions{
			LimitFunc:   func(*gin.Context) ratelimit.Limit { return c.RateLimit },
			WithHeaders: true,
		}))
	}
	engine.Use(s.faults(), s.auth())
	s.routes(engine)
	s.engine = engine

	return s, nil
}

// Handler 返回 HTTP 处理器，可直接用于 httptest.NewServer
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 监听 cfg.Addr 直到 ctx 结束，然后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("mock api listening", clog.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return xerrors.Wrap(err, "mockapi: listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	_ = s.Close()
	s.logger.Info("mock api stopped")
	return err
}

// Close 释放限流器
func (s *Server) Close() error {
	if s.limiter != nil {
		return s.limiter.Close()
	}
	return nil
}

// SetDown 为 true 时所有请求返回 503
func (s *Server) SetDown(down bool) {
	s.down.Store(down)
}

// FailNext 让接下来 n 个请求返回 status
func (s *Server) FailNext(n int, status int) {
	s.failStatus.Store(int32(status))
	s.failNext.Store(int32(n))
}

// Hits 返回路由模板被成功处理的次数，key 形如 "GET /v1/products/:id"
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// SetProducts 替换商品目录
func (s *Server) SetProducts(products []model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = stamp(append([]model.Product(nil), products...), s.now())
}

// UpdateProduct 修改单个商品，不存在时返回 false
func (s *Server) UpdateProduct(id string, fn func(*model.Product)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == id {
			fn(&s.products[i])
			s.products[i].UpdatedAt = s.now()
			return true
		}
	}
	return false
}

// faults 故障注入和人为延迟
func (s *Server) faults() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.Latency > 0 {
			select {
			case <-time.After(s.cfg.Latency):
			case <-c.Request.Context().Done():
				c.Abort()
				return
			}
		}
		if s.down.Load() {
			fail(c, http.StatusServiceUnavailable, "service unavailable")
			return
		}
		for {
			n := s.failNext.Load()
			if n <= 0 {
				break
			}
			if s.failNext.CompareAndSwap(n, n-1) {
				status := int(s.failStatus.Load())
				fail(c, status, http.StatusText(status))
				return
			}
		}
		c.Next()
	}
}

func (s *Server) auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.APIKey != "" && c.GetHeader("X-API-Key") != s.cfg.APIKey {
			fail(c, http.StatusUnauthorized, "invalid api key")
			return
		}
		c.Next()
	}
}
