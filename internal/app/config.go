package app

import (
	"context"

	"github.com/noghresod/shopsync/breaker"
	"github.com/noghresod/shopsync/cache"
	"github.com/noghresod/shopsync/cachepolicy"
	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/config"
	"github.com/noghresod/shopsync/connector"
	"github.com/noghresod/shopsync/db"
	"github.com/noghresod/shopsync/janitor"
	"github.com/noghresod/shopsync/metrics"
	"github.com/noghresod/shopsync/mockapi"
	"github.com/noghresod/shopsync/remote"
	"github.com/noghresod/shopsync/trace"
	"github.com/noghresod/shopsync/xerrors"
)

// ServiceName 服务名，用于指标和链路
const ServiceName = "shopsync"

// Config 应用配置，对应配置文件的顶层结构
//
//	log:          {level: info, format: console}
//	sqlite:       {path: shopsync.db, wal: true}
//	kv:           {mode: standalone}
//	remote:       {base_url: "https://api.noghresod.ir/v1/", api_key: "..."}
//	cache_policy: {policies: {products: {kind: swr, fresh: 5m, stale: 1h}}}
type Config struct {
	Log         clog.Config            `mapstructure:"log"`
	Metrics     metrics.Config         `mapstructure:"metrics"`
	Trace       trace.Config           `mapstructure:"trace"`
	Breaker     breaker.Config         `mapstructure:"breaker"`
	CachePolicy cachepolicy.Config     `mapstructure:"cache_policy"`
	SQLite      connector.SQLiteConfig `mapstructure:"sqlite"`
	DB          db.Config              `mapstructure:"db"`
	// Redis 仅在 kv.mode=distributed 时使用
	Redis   connector.RedisConfig `mapstructure:"redis"`
	KV      cache.Config          `mapstructure:"kv"`
	Remote  remote.Config         `mapstructure:"remote"`
	Janitor janitor.Config        `mapstructure:"janitor"`
	MockAPI mockapi.Config        `mapstructure:"mockapi"`
}

// Defaults 配置文件与环境变量都未提供时的默认值
func Defaults() map[string]any {
	return map[string]any{
		"log.level":                "info",
		"log.format":               "console",
		"log.output":               "stderr",
		"metrics.enabled":          false,
		"metrics.service_name":     ServiceName,
		"metrics.path":             "/metrics",
		"trace.enabled":            false,
		"trace.service_name":       ServiceName,
		"trace.endpoint":           "localhost:4317",
		"trace.sampler":            1.0,
		"trace.batcher":            "batch",
		"trace.insecure":           true,
		"sqlite.path":              "shopsync.db",
		"sqlite.wal":               true,
		"db.log_level":             "warn",
		"kv.mode":                  cache.ModeStandalone,
		"kv.prefix":                "shopsync:",
		"remote.base_url":          remote.DefaultBaseURL,
		"janitor.cleanup_schedule": "@every 1m",
		"janitor.evict_schedule":   "@every 5m",
		"janitor.report_schedule":  "@every 1m",
		"janitor.max_bytes":        16 << 20,
		"mockapi.addr":             ":8088",
	}
}

// Load 读取配置文件（name.yaml，搜索 paths）、.env 和 SHOPSYNC_ 前缀的环境变量
func Load(ctx context.Context, name string, paths []string, logger clog.Logger) (*Config, error) {
	loader, err := config.New(&config.Config{Name: name, Paths: paths},
		config.WithLogger(logger),
		config.WithDefaults(Defaults()))
	if err != nil {
		return nil, err
	}
	if err := loader.Load(ctx); err != nil {
		return nil, err
	}

	var cfg Config
	if err := loader.Unmarshal(&cfg); err != nil {
		return nil, xerrors.Wrap(err, "app: decode config")
	}
	return &cfg, nil
}
