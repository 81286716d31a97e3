// Package remote 是店铺 REST API 的 HTTP 客户端。
//
// 所有响应都包在 {success, data, message} 信封中。每个请求依次经过：
// 按主机的令牌桶节流（ratelimit）、按主机的失败率熔断（gobreaker）、
// 带 If-None-Match 的条件请求（LRU 缓存 ETag 和响应体）。
// 非 2xx 或 success=false 返回 *StatusError；网络失败带 CodeRemote 错误码。
//
//	api, _ := remote.New(&remote.Config{APIKey: key}, remote.WithLogger(logger))
//	defer api.Close()
//	products, err := api.Products(ctx)
package remote

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/metrics"
	"github.com/noghresod/shopsync/model"
	"github.com/noghresod/shopsync/ratelimit"
	"github.com/noghresod/shopsync/xerrors"
)

// API 店铺远端接口
type API interface {
	Products(ctx context.Context) ([]model.Product, error)
	Product(ctx context.Context, id string) (model.Product, error)

	Cart(ctx context.Context) ([]model.CartItem, error)
	// AddToCart 返回更新后的整个购物车
	AddToCart(ctx context.Context, productID string, quantity int) ([]model.CartItem, error)
	// RemoveFromCart 返回更新后的整个购物车
	RemoveFromCart(ctx context.Context, productID string) ([]model.CartItem, error)

	Orders(ctx context.Context) ([]model.Order, error)
	Order(ctx context.Context, id string) (model.Order, error)
	// PlaceOrder 以当前购物车下单，成功后服务端清空购物车
	PlaceOrder(ctx context.Context, req model.OrderRequest) (model.Order, error)

	Wishlist(ctx context.Context) ([]model.WishlistItem, error)
	// ToggleWishlist 返回操作后商品是否在心愿单中
	ToggleWishlist(ctx context.Context, productID string) (bool, error)

	// GuardStates 返回各主机传输层熔断状态
	GuardStates() map[string]string

	Close() error
}

type client struct {
	cfg     Config
	base    *url.URL
	http    *http.Client
	logger  clog.Logger
	tracer  trace.Tracer
	metrics *metrics.HTTPMetrics

	limiter ratelimit.Limiter
	etags   *lru.Cache[string, etagEntry]
	guards  sync.Map // host -> *gobreaker.CircuitBreaker[*response]
}

// etagEntry 条件请求缓存的响应
type etagEntry struct {
	etag string
	body []byte
}

// New 创建远端客户端
func New(cfg *Config, opts ...Option) (API, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	c := *cfg
	c.setDefaults()

	base, err := c.parseBase()
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	httpClient.Timeout = c.Timeout

	hm, err := metrics.NewHTTPMetrics(o.meter, "shopsync", metrics.OperationHTTPClient)
	if err != nil {
		return nil, xerrors.Wrap(err, "remote: create http metrics")
	}

	etags, err := lru.New[string, etagEntry](c.ETagCacheSize)
	if err != nil {
		return nil, xerrors.Wrapf(ErrInvalidConfig, "etag cache: %v", err)
	}

	var limiter ratelimit.Limiter
	if c.RateLimit.Valid() {
		limiter, err = ratelimit.New(nil, ratelimit.WithLogger(o.logger), ratelimit.WithMeter(o.meter))
		if err != nil {
			return nil, err
		}
	}

	o.logger.Info("remote client created",
		clog.String("base_url", base.String()),
		clog.Float64("rate", c.RateLimit.Rate),
		clog.Bool("authenticated", c.Token != ""))

	return &client{
		cfg:     c,
		base:    base,
		http:    httpClient,
		logger:  o.logger,
		tracer:  o.tracer,
		metrics: hm,
		limiter: limiter,
		etags:   etags,
	}, nil
}

// guard 获取或创建主机对应的传输层熔断器
func (c *client) guard(host string) *gobreaker.CircuitBreaker[*response] {
	if v, ok := c.guards.Load(host); ok {
		return v.(*gobreaker.CircuitBreaker[*response])
	}

	g := c.cfg.Guard
	cb := gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        host,
		MaxRequests: g.MaxRequests,
		Interval:    g.Interval,
		Timeout:     g.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < g.MinimumRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= g.FailureRatio
		},
		IsSuccessful: isGuardSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("remote guard state changed",
				clog.String("host", name),
				clog.String("from", from.String()),
				clog.String("to", to.String()))
		},
	})
	actual, _ := c.guards.LoadOrStore(host, cb)
	return actual.(*gobreaker.CircuitBreaker[*response])
}

// isGuardSuccess 只有网络失败和可重试状态码计入失败，调用方取消不计
func isGuardSuccess(err error) bool {
	if err == nil {
		return true
	}
	if xerrors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	if xerrors.As(err, &se) {
		return !se.Retryable()
	}
	return false
}

func (c *client) GuardStates() map[string]string {
	states := make(map[string]string)
	c.guards.Range(func(key, value any) bool {
		states[key.(string)] = value.(*gobreaker.CircuitBreaker[*response]).State().String()
		return true
	})
	return states
}

func (c *client) Close() error {
	c.http.CloseIdleConnections()
	if c.limiter != nil {
		return c.limiter.Close()
	}
	return nil
}
