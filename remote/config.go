package remote

import (
	"net/url"
	"strings"
	"time"

	"github.com/noghresod/shopsync/ratelimit"
	"github.com/noghresod/shopsync/xerrors"
)

// DefaultBaseURL 线上 API 地址
const DefaultBaseURL = "https://api.noghresod.ir/v1/"

// Config 远端客户端配置
type Config struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Token     string        `mapstructure:"token"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"` // 单次请求超时，默认 15s

	// RateLimit 每个主机的请求节流，Rate 为 0 时使用默认值，为负时关闭
	RateLimit ratelimit.Limit `mapstructure:"rate_limit"`

	// Guard 传输层熔断，按主机隔离，与业务层 breaker 互不影响
	Guard GuardConfig `mapstructure:"guard"`

	// ETagCacheSize 条件请求缓存的条目数，默认 256
	ETagCacheSize int `mapstructure:"etag_cache_size"`
}

// GuardConfig 传输层熔断配置，按失败率触发
type GuardConfig struct {
	MaxRequests     uint32        `mapstructure:"max_requests"`     // 半开状态允许的探测数，默认 1
	Interval        time.Duration `mapstructure:"interval"`         // 关闭状态下计数清零周期，默认 60s
	Timeout         time.Duration `mapstructure:"timeout"`          // 打开状态持续时长，默认 30s
	MinimumRequests uint32        `mapstructure:"minimum_requests"` // 触发判定的最小请求数，默认 10
	FailureRatio    float64       `mapstructure:"failure_ratio"`    // 失败率阈值，默认 0.6
}

func (c *Config) setDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
	if c.UserAgent == "" {
		c.UserAgent = "shopsync/1.0"
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.RateLimit.Rate == 0 {
		c.RateLimit = ratelimit.Limit{Rate: 10, Burst: 20}
	}
	if c.ETagCacheSize <= 0 {
		c.ETagCacheSize = 256
	}
	g := &c.Guard
	if g.MaxRequests == 0 {
		g.MaxRequests = 1
	}
	if g.Interval <= 0 {
		g.Interval = 60 * time.Second
	}
	if g.Timeout <= 0 {
		g.Timeout = 30 * time.Second
	}
	if g.MinimumRequests == 0 {
		g.MinimumRequests = 10
	}
	if g.FailureRatio <= 0 || g.FailureRatio > 1 {
		g.FailureRatio = 0.6
	}
}

func (c *Config) parseBase() (*url.URL, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, xerrors.Wrapf(ErrInvalidConfig, "base_url %q: %v", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, xerrors.Wrapf(ErrInvalidConfig, "base_url %q must be an absolute http(s) url", c.BaseURL)
	}
	return u, nil
}
