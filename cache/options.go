package cache

import (
	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/connector"
	"github.com/noghresod/shopsync/metrics"
	"github.com/noghresod/shopsync/xerrors"
)

// Option 缓存组件选项
type Option func(*options)

type options struct {
	logger    clog.Logger
	meter     metrics.Meter
	redisConn connector.RedisConnector
}

// WithLogger 注入日志记录器，内部添加 namespace: "cache"
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("cache")
		}
	}
}

// WithMeter 注入 Meter
func WithMeter(m metrics.Meter) Option {
	return func(o *options) {
		if m != nil {
			o.meter = m
		}
	}
}

// WithRedisConnector 注入 Redis 连接器（distributed 模式）
func WithRedisConnector(conn connector.RedisConnector) Option {
	return func(o *options) {
		o.redisConn = conn
	}
}

// 哨兵错误
var (
	ErrConfigNil              = xerrors.New("cache: config is nil")
	ErrInvalidConfig          = xerrors.Wrap(xerrors.ErrInvalidInput, "cache: invalid config")
	ErrRedisConnectorRequired = xerrors.New("cache: redis connector is required for distributed mode")
	ErrMiss                   = xerrors.Wrap(xerrors.ErrNotFound, "cache: miss")
)
