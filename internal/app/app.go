// Package app 按依赖顺序装配 shopsync 的各个组件，并按逆序释放。
package app

import (
	"context"
	"time"

	"github.com/noghresod/shopsync/breaker"
	"github.com/noghresod/shopsync/cache"
	"github.com/noghresod/shopsync/cachepolicy"
	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/connector"
	"github.com/noghresod/shopsync/db"
	"github.com/noghresod/shopsync/janitor"
	"github.com/noghresod/shopsync/metrics"
	"github.com/noghresod/shopsync/remote"
	"github.com/noghresod/shopsync/repository"
	"github.com/noghresod/shopsync/store"
	"github.com/noghresod/shopsync/trace"
	"github.com/noghresod/shopsync/xerrors"
)

// Shutdown 释放函数
type Shutdown func(context.Context) error

// App 装配好的应用
type App struct {
	Logger     clog.Logger
	Meter      metrics.Meter
	Tracer     *trace.Provider
	Breaker    breaker.Breaker
	Evaluator  cachepolicy.Evaluator
	API        remote.API
	Repository *repository.Repository
	Janitor    *janitor.Janitor

	shutdowns []Shutdown
}

// Option 装配选项
type Option func(*options)

type options struct {
	repoOpts []repository.Option
	logger   clog.Logger
}

// WithRepositoryOptions 追加仓库选项，如 repository.WithErrorEmission()
func WithRepositoryOptions(opts ...repository.Option) Option {
	return func(o *options) {
		o.repoOpts = append(o.repoOpts, opts...)
	}
}

// WithLogger 使用外部 Logger，忽略 cfg.Log
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New 依次初始化：可观测性 -> 连接器 -> 本地存储 -> 缓存策略 -> 远端客户端 -> 仓库 -> 维护任务。
// 任一步失败时已初始化的部分会被释放
func New(ctx context.Context, cfg *Config, opts ...Option) (_ *App, err error) {
	if cfg == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "app: config is nil")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{}
	defer func() {
		if err != nil {
			a.Close(context.Background())
		}
	}()

	if err = a.initObservability(cfg, o.logger); err != nil {
		return nil, err
	}

	rel, wishlist, err := a.initStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a.Breaker, err = breaker.New(&cfg.Breaker,
		breaker.WithLogger(a.Logger),
		breaker.WithMeter(a.Meter),
		breaker.WithStateChangeHook(func(key string, from, to breaker.State) {
			a.Logger.Warn("endpoint breaker state changed",
				clog.String("endpoint", key),
				clog.String("from", from.String()),
				clog.String("to", to.String()))
		}))
	if err != nil {
		return nil, xerrors.Wrap(err, "app: create breaker")
	}

	a.Evaluator, err = cachepolicy.New(&cfg.CachePolicy,
		cachepolicy.WithLogger(a.Logger),
		cachepolicy.WithMeter(a.Meter),
		cachepolicy.WithEvictionHook(repository.EvictionPurger(rel, wishlist, a.Logger)))
	if err != nil {
		return nil, xerrors.Wrap(err, "app: create cache policy evaluator")
	}

	a.API, err = remote.New(&cfg.Remote,
		remote.WithLogger(a.Logger),
		remote.WithMeter(a.Meter),
		remote.WithTracerProvider(a.Tracer.TracerProvider()))
	if err != nil {
		return nil, xerrors.Wrap(err, "app: create remote client")
	}
	a.onClose(func(context.Context) error { return a.API.Close() })

	repoOpts := append([]repository.Option{
		repository.WithLogger(a.Logger),
		repository.WithMeter(a.Meter),
		repository.WithTracerProvider(a.Tracer.TracerProvider()),
		repository.WithPolicies(&cfg.CachePolicy),
	}, o.repoOpts...)
	a.Repository, err = repository.New(repository.Deps{
		API:       a.API,
		Store:     rel,
		Wishlist:  wishlist,
		Breaker:   a.Breaker,
		Evaluator: a.Evaluator,
	}, repoOpts...)
	if err != nil {
		return nil, xerrors.Wrap(err, "app: create repository")
	}

	a.Janitor, err = janitor.New(&cfg.Janitor, a.Evaluator,
		janitor.WithLogger(a.Logger),
		janitor.WithMeter(a.Meter),
		janitor.WithBreaker(a.Breaker),
		janitor.WithGuardStates(a.API.GuardStates))
	if err != nil {
		return nil, xerrors.Wrap(err, "app: create janitor")
	}

	a.Logger.Info("shopsync initialized",
		clog.String("remote", cfg.Remote.BaseURL),
		clog.String("sqlite", cfg.SQLite.Path),
		clog.String("kv_mode", cfg.KV.Mode))
	return a, nil
}

func (a *App) initObservability(cfg *Config, logger clog.Logger) error {
	if logger == nil {
		var err error
		if logger, err = clog.New(&cfg.Log, clog.WithNamespace(ServiceName)); err != nil {
			return xerrors.Wrap(err, "app: create logger")
		}
	}
	a.Logger = logger
	a.onClose(func(context.Context) error {
		logger.Flush()
		return nil
	})

	tp, err := trace.Init(&cfg.Trace)
	if err != nil {
		return xerrors.Wrap(err, "app: init trace")
	}
	a.Tracer = tp
	a.onClose(tp.Shutdown)

	meter, err := metrics.New(&cfg.Metrics, metrics.WithLogger(logger))
	if err != nil {
		return xerrors.Wrap(err, "app: create meter")
	}
	a.Meter = meter
	a.onClose(meter.Shutdown)
	return nil
}

func (a *App) initStore(ctx context.Context, cfg *Config) (store.Relational, store.Wishlist, error) {
	conn, err := connector.NewSQLite(&cfg.SQLite, connector.WithLogger(a.Logger))
	if err != nil {
		return nil, nil, err
	}
	a.onClose(func(context.Context) error { return conn.Close() })
	if err := conn.Connect(ctx); err != nil {
		return nil, nil, err
	}

	database, err := db.New(conn, &cfg.DB,
		db.WithLogger(a.Logger),
		db.WithTracer(a.Tracer.TracerProvider()))
	if err != nil {
		return nil, nil, err
	}

	rel, err := store.NewRelational(ctx, database, store.WithLogger(a.Logger))
	if err != nil {
		return nil, nil, err
	}

	cacheOpts := []cache.Option{cache.WithLogger(a.Logger), cache.WithMeter(a.Meter)}
	if cfg.KV.Mode == cache.ModeDistributed {
		rc, err := connector.NewRedis(&cfg.Redis,
			connector.WithLogger(a.Logger),
			connector.WithTracerProvider(a.Tracer.TracerProvider()))
		if err != nil {
			return nil, nil, err
		}
		a.onClose(func(context.Context) error { return rc.Close() })
		if err := rc.Connect(ctx); err != nil {
			return nil, nil, err
		}
		cacheOpts = append(cacheOpts, cache.WithRedisConnector(rc))
	}

	kv, err := cache.New(&cfg.KV, cacheOpts...)
	if err != nil {
		return nil, nil, err
	}
	a.onClose(func(context.Context) error { return kv.Close() })

	return rel, store.NewWishlist(kv, store.WithLogger(a.Logger)), nil
}

func (a *App) onClose(fn Shutdown) {
	a.shutdowns = append(a.shutdowns, fn)
}

// Close 按初始化的逆序释放资源，错误合并返回
func (a *App) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var errs []error
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		if err := a.shutdowns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.shutdowns = nil
	return xerrors.Combine(errs...)
}
