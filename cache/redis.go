package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noghresod/shopsync/cache/serializer"
	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/connector"
	"github.com/noghresod/shopsync/xerrors"
)

const driverRedis = "redis"

type redisCache struct {
	client     *redis.Client
	serializer serializer.Serializer
	prefix     string
	logger     clog.Logger
	inst       *instruments
}

// newRedis 借用连接器的客户端，Close 不关闭连接
func newRedis(conn connector.RedisConnector, cfg *Config, s serializer.Serializer, logger clog.Logger, inst *instruments) (Cache, error) {
	client := conn.GetClient()
	if client == nil {
		return nil, xerrors.Wrapf(ErrRedisConnectorRequired, "connector %q has no client", conn.Name())
	}

	logger.Info("redis cache created",
		clog.String("connector", conn.Name()),
		clog.String("prefix", cfg.Prefix),
		clog.String("serializer", s.Name()))

	return &redisCache{
		client:     client,
		serializer: s,
		prefix:     cfg.Prefix,
		logger:     logger,
		inst:       inst,
	}, nil
}

func (c *redisCache) key(k string) string {
	return c.prefix + k
}

func (c *redisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) (err error) {
	defer func() { c.inst.observe(ctx, driverRedis, "set", err) }()

	data, err := c.serializer.Marshal(value)
	if err != nil {
		return xerrors.Wrapf(err, "cache: marshal %q", key)
	}
	if ttl < 0 {
		ttl = 0
	}
	return c.client.Set(ctx, c.key(key), data, ttl).Err()
}

func (c *redisCache) Get(ctx context.Context, key string, dest any) (err error) {
	defer func() { c.inst.observe(ctx, driverRedis, "get", err) }()

	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return xerrors.Wrapf(err, "cache: get %q", key)
	}
	if err := c.serializer.Unmarshal(data, dest); err != nil {
		return xerrors.Wrapf(err, "cache: unmarshal %q", key)
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, key string) (err error) {
	defer func() { c.inst.observe(ctx, driverRedis, "delete", err) }()
	return c.client.Del(ctx, c.key(key)).Err()
}

func (c *redisCache) Has(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *redisCache) Expire(ctx context.Context, key string, ttl time.Duration) (err error) {
	defer func() { c.inst.observe(ctx, driverRedis, "expire", err) }()

	var ok bool
	if ttl > 0 {
		ok, err = c.client.Expire(ctx, c.key(key), ttl).Result()
	} else {
		ok, err = c.client.Persist(ctx, c.key(key)).Result()
		if err == nil && !ok {
			// Persist 对无 TTL 的 key 也返回 false，需要再确认是否存在
			var n int64
			n, err = c.client.Exists(ctx, c.key(key)).Result()
			ok = n > 0
		}
	}
	if err != nil {
		return err
	}
	if !ok {
		return ErrMiss
	}
	return nil
}

func (c *redisCache) Close() error {
	return nil
}
