package janitor

import (
	"github.com/noghresod/shopsync/breaker"
	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/metrics"
)

// Option 选项
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
	brk    breaker.Breaker
	guards GuardStatesFunc
}

// WithLogger 设置 Logger
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
			return
		}
		o.logger = logger.WithNamespace("janitor")
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

// WithBreaker 启用熔断器状态报告
func WithBreaker(brk breaker.Breaker) Option {
	return func(o *options) {
		o.brk = brk
	}
}

// WithGuardStates 报告中附带远端传输层熔断状态
func WithGuardStates(fn GuardStatesFunc) Option {
	return func(o *options) {
		o.guards = fn
	}
}
