// Package cache 提供 shopsync 的键值本地缓存，用于心愿单这类无需关系查询的数据。
//
// 两种驱动语义一致，值都经过序列化后存储，读出的是独立副本：
//   - standalone：进程内 otter 缓存，容量淘汰 + 写入过期
//   - distributed：Redis，多个进程共享
//
// 基本使用：
//
//	kv, _ := cache.New(&cache.Config{Mode: "standalone", Prefix: "shopsync:"}, cache.WithLogger(logger))
//	defer kv.Close()
//
//	_ = kv.Set(ctx, "wishlist", items, 0)
//	var got []model.WishlistItem
//	if err := kv.Get(ctx, "wishlist", &got); cache.IsMiss(err) {
//		// 未命中
//	}
package cache

import (
	"context"
	"time"

	"github.com/noghresod/shopsync/cache/serializer"
	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/metrics"
	"github.com/noghresod/shopsync/xerrors"
)

// Cache 键值缓存
type Cache interface {
	// Set 写入，ttl <= 0 表示不过期
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Get 读取到 dest（非空指针），未命中返回 ErrMiss
	Get(ctx context.Context, key string, dest any) error

	Delete(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)

	// Expire 重设过期时间，key 不存在返回 ErrMiss
	Expire(ctx context.Context, key string, ttl time.Duration) error

	Close() error
}

// 指标
const (
	MetricOpsTotal = "cache_operations_total"

	LabelDriver = "driver"
	LabelOp     = "op"
	LabelResult = "result"
)

// New 根据 Mode 创建缓存。distributed 模式需要 WithRedisConnector
func New(cfg *Config, opts ...Option) (Cache, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	cfg.setDefaults()

	opt := options{logger: clog.Discard(), meter: metrics.Discard()}
	for _, o := range opts {
		o(&opt)
	}

	s, err := serializer.New(cfg.Serializer)
	if err != nil {
		return nil, xerrors.Wrap(err, "cache")
	}
	inst := newInstruments(opt.meter)

	switch cfg.Mode {
	case ModeStandalone:
		return newStandalone(cfg, s, opt.logger, inst)
	case ModeDistributed:
		if opt.redisConn == nil {
			return nil, ErrRedisConnectorRequired
		}
		return newRedis(opt.redisConn, cfg, s, opt.logger, inst)
	default:
		return nil, xerrors.Wrapf(ErrInvalidConfig, "unknown mode %q", cfg.Mode)
	}
}

// IsMiss 判断是否为未命中
func IsMiss(err error) bool {
	return xerrors.Is(err, ErrMiss)
}

type instruments struct {
	ops metrics.Counter
}

func newInstruments(m metrics.Meter) *instruments {
	ops, err := m.Counter(MetricOpsTotal, "Key-value cache operations")
	if err != nil {
		ops, _ = metrics.Discard().Counter(MetricOpsTotal, "")
	}
	return &instruments{ops: ops}
}

func (i *instruments) observe(ctx context.Context, driver, op string, err error) {
	result := "ok"
	switch {
	case IsMiss(err):
		result = "miss"
	case err != nil:
		result = "error"
	}
	i.ops.Inc(ctx, metrics.L(LabelDriver, driver), metrics.L(LabelOp, op), metrics.L(LabelResult, result))
}
