package resource

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/metrics"
)

// instrumentationName tracer 名称
const instrumentationName = "github.com/noghresod/shopsync/resource"

// Option Run 选项
type Option func(*options)

type options struct {
	logger     clog.Logger
	meter      metrics.Meter
	tracer     trace.Tracer
	emitErrors bool
}

func defaultOptions() *options {
	return &options{
		logger: clog.Discard(),
		meter:  metrics.Discard(),
		tracer: otel.Tracer(instrumentationName),
	}
}

// WithLogger 设置 Logger，内部添加 namespace: "resource"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
		} else {
			o.logger = logger.WithNamespace("resource")
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

// WithTracerProvider 使用指定的 TracerProvider，默认取全局
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// WithErrorEmission 失败时额外发出一个 SourceError 结果，携带最后的本地值和错误
func WithErrorEmission() Option {
	return func(o *options) {
		o.emitErrors = true
	}
}
