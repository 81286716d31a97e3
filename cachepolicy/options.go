package cachepolicy

import (
	"time"

	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/metrics"
	"github.com/noghresod/shopsync/xerrors"
)

// Option 评估器选项
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
	now    func() time.Time
	hooks  []EvictionHook
}

// WithLogger 设置 Logger，内部添加 namespace: "cachepolicy"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
		} else {
			o.logger = logger.WithNamespace("cachepolicy")
		}
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

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithEvictionHook 注册条目移除回调
func WithEvictionHook(hook EvictionHook) Option {
	return func(o *options) {
		if hook != nil {
			o.hooks = append(o.hooks, hook)
		}
	}
}

// EntryOption Update 时附加的元数据
type EntryOption func(*entryOptions)

type entryOptions struct {
	version *int64
	etag    *string
	size    int64
}

// WithVersion 设置元数据版本，未设置时取 Versioned 策略的 Version
func WithVersion(v int64) EntryOption {
	return func(o *entryOptions) {
		o.version = &v
	}
}

// WithETag 设置元数据 ETag，未设置时取 ETagBased 策略的 ETag
func WithETag(tag string) EntryOption {
	return func(o *entryOptions) {
		o.etag = &tag
	}
}

// WithSize 设置数据大小估计（字节）
func WithSize(n int64) EntryOption {
	return func(o *entryOptions) {
		o.size = n
	}
}

func xerrorsWrapPolicy(err error, name string) error {
	return xerrors.Wrapf(err, "cachepolicy: policy %q", name)
}
