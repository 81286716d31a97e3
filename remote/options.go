package remote

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/metrics"
)

const instrumentationName = "github.com/noghresod/shopsync/remote"

// Option 客户端选项
type Option func(*options)

type options struct {
	logger     clog.Logger
	meter      metrics.Meter
	tracer     trace.Tracer
	httpClient *http.Client
}

func defaultOptions() options {
	return options{
		logger: clog.Discard(),
		meter:  metrics.Discard(),
		tracer: otel.Tracer(instrumentationName),
	}
}

// WithLogger 设置 Logger
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
			return
		}
		o.logger = logger.WithNamespace("remote")
	}
}

// WithMeter 设置 Meter
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter == nil {
			o.meter = metrics.Discard()
			return
		}
		o.meter = meter
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

// WithHTTPClient 替换底层 http.Client，Timeout 以 Config 为准
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}
