// Package breaker 提供按 endpoint 隔离的熔断器，用于保护远端 API 调用。
//
// 状态机：
//   - Closed（初始）：放行所有请求。失败时间戳进入滑动窗口，窗口内失败数
//     达到 FailureThreshold 时转为 Open；一次成功清空窗口
//   - Open：拒绝请求，直到距上次状态变化已过 Timeout，下一次 Allow 转为 HalfOpen 并放行
//   - HalfOpen：在 successCount+failureCount < HalfOpenMaxRequests 时放行探测请求，
//     成功数达到 SuccessThreshold 转为 Closed，任意一次失败立即回到 Open
//
// 一个 Breaker 实例内所有 endpoint 共享同一把锁，状态转换全局串行。
//
// ## 基本使用
//
//	brk, _ := breaker.New(&breaker.Config{}, breaker.WithLogger(logger), breaker.WithMeter(meter))
//
//	if !brk.Allow("products") {
//		return cached, nil
//	}
//	items, err := api.Products(ctx)
//	if err != nil {
//		brk.RecordFailure("products")
//		return cached, nil
//	}
//	brk.RecordSuccess("products")
//
// 或者使用 Execute 一步完成：
//
//	err := brk.Execute(ctx, "products", func(ctx context.Context) error { ... })
//	if errors.Is(err, breaker.ErrOpenState) { ... }
package breaker

import (
	"context"
	"time"

	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/metrics"
)

// Breaker 熔断器核心接口
type Breaker interface {
	// Allow 判断 key 对应的 endpoint 当前是否允许发起请求，可能触发 Open -> HalfOpen
	Allow(key string) bool

	// RecordSuccess 记录一次成功：Closed 下清空失败窗口，HalfOpen 下推进成功计数，Open 下忽略
	RecordSuccess(key string)

	// RecordFailure 记录一次失败：总是写入失败窗口，可能触发 Closed/HalfOpen -> Open
	RecordFailure(key string)

	// State 返回当前状态，不触发任何状态转换
	State(key string) State

	// Reset 将 key 恢复为初始 Closed 状态
	Reset(key string)

	// ResetAll 恢复所有 endpoint
	ResetAll()

	// Execute Allow -> fn -> Record 的组合，被拒绝时返回 ErrOpenState
	Execute(ctx context.Context, key string, fn func(ctx context.Context) error) error

	// Snapshot 返回 key 的状态快照，用于诊断
	Snapshot(key string) Stats

	// Keys 返回所有已出现过的 endpoint key
	Keys() []string
}

// State 熔断器状态
type State int

const (
	StateClosed   State = iota // 关闭：正常放行
	StateHalfOpen              // 半开：有限探测
	StateOpen                  // 打开：拒绝请求
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half_open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Stats 单个 endpoint 的状态快照
type Stats struct {
	Key             string
	State           State
	WindowFailures  int // 窗口内（未过期）的失败数
	SuccessCount    int // HalfOpen 成功计数
	FailureCount    int // HalfOpen 失败计数
	LastStateChange time.Time
	LastFailure     time.Time
}

// StateChangeHook 状态变化回调，在锁外同步调用，不应阻塞
type StateChangeHook func(key string, from, to State)

// Config 熔断器配置，零值字段使用默认值
type Config struct {
	// FailureThreshold 窗口内失败数达到该值时熔断，默认 5
	FailureThreshold int `mapstructure:"failure_threshold" yaml:"failure_threshold"`

	// SuccessThreshold HalfOpen 下连续成功达到该值时恢复，默认 2
	SuccessThreshold int `mapstructure:"success_threshold" yaml:"success_threshold"`

	// Timeout Open 状态持续多久后允许探测，默认 60s
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// HalfOpenMaxRequests HalfOpen 下允许的探测请求数上限，默认 3
	HalfOpenMaxRequests int `mapstructure:"half_open_max_requests" yaml:"half_open_max_requests"`

	// WindowSize 失败时间戳的有效期，默认 30s
	WindowSize time.Duration `mapstructure:"window_size" yaml:"window_size"`

	// WindowCapacity 窗口最多保留的时间戳数，超出丢弃最旧的，默认 100
	WindowCapacity int `mapstructure:"window_capacity" yaml:"window_capacity"`
}

// 默认值
const (
	DefaultFailureThreshold    = 5
	DefaultSuccessThreshold    = 2
	DefaultTimeout             = 60 * time.Second
	DefaultHalfOpenMaxRequests = 3
	DefaultWindowSize          = 30 * time.Second
	DefaultWindowCapacity      = 100
)

func (c *Config) setDefaults() {
	if c.FailureThreshold == 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.SuccessThreshold == 0 {
		c.SuccessThreshold = DefaultSuccessThreshold
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.HalfOpenMaxRequests == 0 {
		c.HalfOpenMaxRequests = DefaultHalfOpenMaxRequests
	}
	if c.WindowSize == 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.WindowCapacity == 0 {
		c.WindowCapacity = DefaultWindowCapacity
	}
}

func (c *Config) validate() error {
	switch {
	case c.FailureThreshold < 1:
		return wrapInvalid("failure_threshold must be >= 1")
	case c.SuccessThreshold < 1:
		return wrapInvalid("success_threshold must be >= 1")
	case c.HalfOpenMaxRequests < 1:
		return wrapInvalid("half_open_max_requests must be >= 1")
	case c.Timeout < 0 || c.WindowSize < 0:
		return wrapInvalid("durations must not be negative")
	case c.WindowCapacity < c.FailureThreshold:
		return wrapInvalid("window_capacity must be >= failure_threshold")
	}
	return nil
}

// New 创建熔断器
func New(cfg *Config, opts ...Option) (Breaker, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	c := *cfg
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	o := options{
		logger: clog.Discard(),
		meter:  metrics.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return newCircuitBreaker(c, o), nil
}
