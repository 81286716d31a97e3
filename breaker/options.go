package breaker

import (
	"time"

	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/metrics"
)

// Option 组件初始化选项函数
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
	now    func() time.Time
	hooks  []StateChangeHook
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
// 内部会自动添加 namespace: "breaker"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
		} else {
			o.logger = logger.WithNamespace("breaker")
		}
	}
}

// WithMeter 设置 Meter，传入 nil 时不记录指标
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter == nil {
			meter = metrics.Discard()
		}
		o.meter = meter
	}
}

// WithClock 注入时钟，测试中用来控制窗口和超时
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithStateChangeHook 注册状态变化回调，可注册多个
func WithStateChangeHook(hook StateChangeHook) Option {
	return func(o *options) {
		if hook != nil {
			o.hooks = append(o.hooks, hook)
		}
	}
}
