package store

import "github.com/noghresod/shopsync/clog"

// Option 存储选项
type Option func(*options)

type options struct {
	logger clog.Logger
}

// WithLogger 设置 Logger，内部添加 namespace: "store"
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("store")
		}
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
