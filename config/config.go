package config

import (
	"context"
	"strings"

	"github.com/noghresod/shopsync/clog"
)

// Config 配置加载器自身的配置
type Config struct {
	Name      string   `json:"name" yaml:"name"`             // 配置文件名称（不含扩展名）
	Paths     []string `json:"paths" yaml:"paths"`           // 配置文件搜索路径，默认 [".", "./config"]
	FileType  string   `json:"file_type" yaml:"file_type"`   // 配置文件类型 (yaml, json, ...)
	EnvPrefix string   `json:"env_prefix" yaml:"env_prefix"` // 环境变量前缀，默认 "SHOPSYNC"
}

// validate 设置默认值
func (c *Config) validate() error {
	if c.Name == "" {
		c.Name = "config"
	}
	if c.Paths == nil {
		c.Paths = []string{".", "./config"}
	}
	if c.FileType == "" {
		c.FileType = "yaml"
	}
	if c.EnvPrefix == "" {
		c.EnvPrefix = "SHOPSYNC"
	}
	c.EnvPrefix = strings.ToUpper(c.EnvPrefix)
	return nil
}

// Option 加载器选项
type Option func(*options)

type options struct {
	logger   clog.Logger
	defaults map[string]any
}

// WithLogger 注入 Logger，加载过程中的提示信息通过它输出
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l == nil {
			l = clog.Discard()
		}
		o.logger = l.WithNamespace("config")
	}
}

// WithDefaults 设置默认值，key 使用点号路径，如 "breaker.failure_threshold"
func WithDefaults(defaults map[string]any) Option {
	return func(o *options) {
		if o.defaults == nil {
			o.defaults = make(map[string]any, len(defaults))
		}
		for k, v := range defaults {
			o.defaults[k] = v
		}
	}
}

// New 创建配置加载器，cfg 为 nil 时使用默认配置
func New(cfg *Config, opts ...Option) (Loader, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := &options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	return newLoader(cfg, o), nil
}

// MustLoad 创建并加载配置，失败时 panic。仅用于 main 和测试
func MustLoad(cfg *Config, opts ...Option) Loader {
	l, err := New(cfg, opts...)
	if err != nil {
		panic(err)
	}
	if err := l.Load(context.Background()); err != nil {
		panic(err)
	}
	return l
}
