package mockapi

import (
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/metrics"
)

// Option 模拟服务选项
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
	tp     oteltrace.TracerProvider
	now    func() time.Time
}

// WithLogger 设置 Logger
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
			return
		}
		o.logger = logger.WithNamespace("mockapi")
	}
}

// WithMeter 设置 Meter，用于服务端 HTTP 指标
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithTracerProvider 设置服务端 Span 使用的 TracerProvider
func WithTracerProvider(tp oteltrace.TracerProvider) Option {
	return func(o *options) {
		o.tp = tp
	}
}

// WithClock 注入时钟，用于生成稳定的时间戳
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
