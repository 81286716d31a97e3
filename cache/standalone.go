package cache

import (
	"context"
	"time"

	"github.com/maypok86/otter/v2"
	"github.com/maypok86/otter/v2/stats"

	"github.com/noghresod/shopsync/cache/serializer"
	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/xerrors"
)

// noExpiry 未指定 TTL 时的过期时间（100 年，视为永久）
const noExpiry = 24 * 365 * 100 * time.Hour

const driverStandalone = "standalone"

type standaloneCache struct {
	cache      *otter.Cache[string, []byte]
	counter    *stats.Counter
	serializer serializer.Serializer
	prefix     string
	logger     clog.Logger
	inst       *instruments
}

func newStandalone(cfg *Config, s serializer.Serializer, logger clog.Logger, inst *instruments) (Cache, error) {
	counter := stats.NewCounter()

	// 写入过期，与 Redis TTL 语义一致：读取不续期
	c, err := otter.New(&otter.Options[string, []byte]{
		MaximumSize:      cfg.Standalone.Capacity,
		StatsRecorder:    counter,
		ExpiryCalculator: otter.ExpiryWriting[string, []byte](noExpiry),
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "cache: build otter cache")
	}

	logger.Info("standalone cache created",
		clog.Int("capacity", cfg.Standalone.Capacity),
		clog.String("serializer", s.Name()))

	return &standaloneCache{
		cache:      c,
		counter:    counter,
		serializer: s,
		prefix:     cfg.Prefix,
		logger:     logger,
		inst:       inst,
	}, nil
}

func (c *standaloneCache) key(k string) string {
	return c.prefix + k
}

func (c *standaloneCache) Set(ctx context.Context, key string, value any, ttl time.Duration) (err error) {
	defer func() { c.inst.observe(ctx, driverStandalone, "set", err) }()

	data, err := c.serializer.Marshal(value)
	if err != nil {
		return xerrors.Wrapf(err, "cache: marshal %q", key)
	}
	k := c.key(key)
	c.cache.Set(k, data)
	if ttl > 0 {
		c.cache.SetExpiresAfter(k, ttl)
	}
	return nil
}

func (c *standaloneCache) Get(ctx context.Context, key string, dest any) (err error) {
	defer func() { c.inst.observe(ctx, driverStandalone, "get", err) }()

	data, ok := c.cache.GetIfPresent(c.key(key))
	if !ok {
		return ErrMiss
	}
	if err := c.serializer.Unmarshal(data, dest); err != nil {
		return xerrors.Wrapf(err, "cache: unmarshal %q", key)
	}
	return nil
}

func (c *standaloneCache) Delete(ctx context.Context, key string) error {
	c.cache.Invalidate(c.key(key))
	c.inst.observe(ctx, driverStandalone, "delete", nil)
	return nil
}

func (c *standaloneCache) Has(_ context.Context, key string) (bool, error) {
	_, ok := c.cache.GetIfPresent(c.key(key))
	return ok, nil
}

func (c *standaloneCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	k := c.key(key)
	if _, ok := c.cache.GetIfPresent(k); !ok {
		return ErrMiss
	}
	if ttl <= 0 {
		ttl = noExpiry
	}
	c.cache.SetExpiresAfter(k, ttl)
	c.inst.observe(ctx, driverStandalone, "expire", nil)
	return nil
}

func (c *standaloneCache) Close() error {
	snap := c.counter.Snapshot()
	c.logger.Info("standalone cache closed",
		clog.Int64("hits", int64(snap.Hits)),
		clog.Int64("misses", int64(snap.Misses)))
	c.cache.StopAllGoroutines()
	return nil
}
