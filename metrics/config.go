package metrics

import "github.com/noghresod/shopsync/clog"

// Config 指标配置
//
//	metrics:
//	  enabled: true
//	  service_name: "shopsync"
//	  version: "v0.3.0"
//	  port: 9464
//	  path: "/metrics"
//	  enable_runtime: true
type Config struct {
	// Enabled 为 false 时 New 返回 noop Meter
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	Version     string `mapstructure:"version" yaml:"version"`
	// Port 大于 0 且 Path 非空时启动 Prometheus HTTP 服务
	Port int    `mapstructure:"port" yaml:"port"`
	Path string `mapstructure:"path" yaml:"path"`
	// EnableRuntime 采集 Go runtime 指标（goroutine、GC、内存）
	EnableRuntime bool `mapstructure:"enable_runtime" yaml:"enable_runtime"`
}

// Option Meter 选项
type Option func(*options)

type options struct {
	logger clog.Logger
}

// WithLogger 注入 Logger，自动追加 "metrics" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("metrics")
		}
	}
}
