// Package repository 是商品、购物车、订单和心愿单的离线优先仓库。
//
// 读操作返回 resource.Run 的结果流：先发出本地缓存，再视情况拉取远端、
// 落库并发出重读结果。是否拉取由缓存策略（cachepolicy）和熔断器（breaker）共同决定：
// 缓存新鲜且未强制刷新时不拉取；熔断器拒绝时即使强制刷新也不拉取。
//
// 写操作先调用远端（同样经过熔断器），成功后更新本地数据并使受影响的缓存 key 失效。
//
// 缓存 key：
//
//	products        商品列表
//	products:<id>   单个商品，依赖 products
//	cart            购物车
//	orders          订单列表
//	orders:<id>     单个订单，依赖 orders
//	wishlist        心愿单
package repository

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/noghresod/shopsync/breaker"
	"github.com/noghresod/shopsync/cachepolicy"
	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/metrics"
	"github.com/noghresod/shopsync/remote"
	"github.com/noghresod/shopsync/resource"
	"github.com/noghresod/shopsync/store"
	"github.com/noghresod/shopsync/xerrors"
)

// 缓存 key 和命名空间
const (
	KeyProducts = "products"
	KeyCart     = "cart"
	KeyOrders   = "orders"
	KeyWishlist = "wishlist"
)

// ProductKey 单个商品的缓存 key
func ProductKey(id string) string { return KeyProducts + ":" + id }

// OrderKey 单个订单的缓存 key
func OrderKey(id string) string { return KeyOrders + ":" + id }

// 熔断器 endpoint
const (
	EndpointProducts       = "products.list"
	EndpointProduct        = "products.get"
	EndpointCart           = "cart.get"
	EndpointCartAdd        = "cart.add"
	EndpointCartRemove     = "cart.remove"
	EndpointOrders         = "orders.list"
	EndpointOrder          = "orders.get"
	EndpointOrderPlace     = "orders.place"
	EndpointWishlist       = "wishlist.get"
	EndpointWishlistToggle = "wishlist.toggle"
)

// MetricMutationsTotal 写操作次数 (Counter)
const MetricMutationsTotal = "repository_mutations_total"

// 默认缓存策略，可被 cachepolicy.Config.Policies 中同名命名空间覆盖
var (
	DefaultProductsPolicy cachepolicy.Policy = cachepolicy.StaleWhileRevalidate{Fresh: 5 * time.Minute, Stale: time.Hour}
	DefaultProductPolicy  cachepolicy.Policy = cachepolicy.Dependent{Keys: []string{KeyProducts}, TTL: 30 * time.Minute}
	DefaultCartPolicy     cachepolicy.Policy = cachepolicy.TimeToLive{TTL: time.Minute}
	DefaultOrdersPolicy   cachepolicy.Policy = cachepolicy.StaleWhileRevalidate{Fresh: 2 * time.Minute, Stale: 30 * time.Minute}
	DefaultOrderPolicy    cachepolicy.Policy = cachepolicy.Dependent{Keys: []string{KeyOrders}, TTL: 30 * time.Minute}
	DefaultWishlistPolicy cachepolicy.Policy = cachepolicy.TimeToLive{TTL: 10 * time.Minute}
)

var (
	// ErrDependencyNil 必需的依赖为空
	ErrDependencyNil = xerrors.Wrap(xerrors.ErrInvalidInput, "repository: dependency is nil")
)

// Deps 仓库依赖
type Deps struct {
	API       remote.API
	Store     store.Relational
	Wishlist  store.Wishlist
	Breaker   breaker.Breaker
	Evaluator cachepolicy.Evaluator
}

func (d Deps) validate() error {
	switch {
	case d.API == nil:
		return xerrors.Wrap(ErrDependencyNil, "api")
	case d.Store == nil:
		return xerrors.Wrap(ErrDependencyNil, "store")
	case d.Wishlist == nil:
		return xerrors.Wrap(ErrDependencyNil, "wishlist")
	case d.Breaker == nil:
		return xerrors.Wrap(ErrDependencyNil, "breaker")
	case d.Evaluator == nil:
		return xerrors.Wrap(ErrDependencyNil, "evaluator")
	}
	return nil
}

// policies 各命名空间实际使用的策略
type policies struct {
	products, product, cart, orders, order, wishlist cachepolicy.Policy
}

func resolvePolicies(cfg *cachepolicy.Config) policies {
	return policies{
		products: cfg.Policy(KeyProducts, DefaultProductsPolicy),
		product:  cfg.Policy("product", DefaultProductPolicy),
		cart:     cfg.Policy(KeyCart, DefaultCartPolicy),
		orders:   cfg.Policy(KeyOrders, DefaultOrdersPolicy),
		order:    cfg.Policy("order", DefaultOrderPolicy),
		wishlist: cfg.Policy(KeyWishlist, DefaultWishlistPolicy),
	}
}

// Repository 店铺数据仓库
type Repository struct {
	api      remote.API
	rel      store.Relational
	wishlist store.Wishlist
	brk      breaker.Breaker
	ev       cachepolicy.Evaluator
	policies policies

	logger    clog.Logger
	now       func() time.Time
	runOpts   []resource.Option
	mutations metrics.Counter
}

// New 创建仓库
func New(deps Deps, opts ...Option) (*Repository, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	o := options{logger: clog.Discard(), meter: metrics.Discard(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	mutations, err := o.meter.Counter(MetricMutationsTotal, "Remote-first mutations by operation and outcome")
	if err != nil {
		mutations, _ = metrics.Discard().Counter(MetricMutationsTotal, "")
	}

	runOpts := []resource.Option{
		resource.WithLogger(o.logger),
		resource.WithMeter(o.meter),
	}
	if o.tp != nil {
		runOpts = append(runOpts, resource.WithTracerProvider(o.tp))
	}
	if o.emitErrors {
		runOpts = append(runOpts, resource.WithErrorEmission())
	}

	return &Repository{
		api:       deps.API,
		rel:       deps.Store,
		wishlist:  deps.Wishlist,
		brk:       deps.Breaker,
		ev:        deps.Evaluator,
		policies:  resolvePolicies(o.policies),
		logger:    o.logger,
		now:       o.now,
		runOpts:   runOpts,
		mutations: mutations,
	}, nil
}

// Option 仓库选项
type Option func(*options)

type options struct {
	logger     clog.Logger
	meter      metrics.Meter
	tp         trace.TracerProvider
	now        func() time.Time
	policies   *cachepolicy.Config
	emitErrors bool
}

// WithLogger 设置 Logger
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
			return
		}
		o.logger = logger.WithNamespace("repository")
	}
}

// WithMeter 设置 Meter
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithTracerProvider 设置同步 Span 使用的 TracerProvider
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tp = tp
	}
}

// WithClock 注入时钟，用于心愿单条目的加入时间
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithPolicies 按命名空间覆盖默认缓存策略，通常与创建 Evaluator 的配置相同
func WithPolicies(cfg *cachepolicy.Config) Option {
	return func(o *options) {
		o.policies = cfg
	}
}

// WithErrorEmission 读操作失败时在结果流中发出 SourceError
func WithErrorEmission() Option {
	return func(o *options) {
		o.emitErrors = true
	}
}
