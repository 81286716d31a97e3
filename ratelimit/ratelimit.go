// Package ratelimit 提供按 key 隔离的令牌桶限流器。
//
// 同步客户端用它对每个远端主机做请求节流（Wait），
// 模拟 API 用它的 Gin 中间件对调用方限流（Allow，超限返回 429）。
//
//	limiter, _ := ratelimit.New(&ratelimit.Config{}, ratelimit.WithLogger(logger))
//	defer limiter.Close()
//
//	if err := limiter.Wait(ctx, "api.example.com", ratelimit.Limit{Rate: 10, Burst: 20}); err != nil {
//	    return err
//	}
package ratelimit

import (
	"context"
	"time"

	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/metrics"
)

// Limit 令牌桶规则
type Limit struct {
	Rate  float64 `mapstructure:"rate"`  // 每秒生成的令牌数
	Burst int     `mapstructure:"burst"` // 桶容量
}

// Valid 速率和容量都必须为正
func (l Limit) Valid() bool {
	return l.Rate > 0 && l.Burst > 0
}

// Limiter 限流器
type Limiter interface {
	// Allow 尝试获取 1 个令牌，不阻塞
	Allow(ctx context.Context, key string, limit Limit) (bool, error)
	// AllowN 尝试获取 n 个令牌，不阻塞
	AllowN(ctx context.Context, key string, limit Limit, n int) (bool, error)
	// Wait 阻塞直到获得 1 个令牌或 ctx 结束
	Wait(ctx context.Context, key string, limit Limit) error
	// Close 停止后台清理
	Close() error
}

// Config 限流器配置
type Config struct {
	// CleanupInterval 清理空闲桶的间隔（默认 1 分钟）
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	// IdleTimeout 桶空闲多久后被回收（默认 5 分钟）
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

func (c *Config) setDefaults() {
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = time.Minute
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 5 * time.Minute
	}
}

// New 创建单机限流器，cfg 为 nil 时使用默认配置
func New(cfg *Config, opts ...Option) (Limiter, error) {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	c.setDefaults()

	o := options{logger: clog.Discard(), meter: metrics.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	return newLimiter(c, o), nil
}
