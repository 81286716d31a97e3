package connector

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/noghresod/shopsync/clog"
)

type options struct {
	logger clog.Logger
	tracer trace.TracerProvider
}

// Option 连接器选项
type Option func(*options)

// WithLogger 设置日志记录器，内部添加 namespace: "connector"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("connector")
		}
	}
}

// WithTracerProvider 为 Redis 命令开启链路追踪
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracer = tp
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
