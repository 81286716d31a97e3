// Package cachepolicy 维护缓存 key 的元数据，并按策略判断有效性、新鲜度和淘汰顺序。
//
// 本包只管理元数据（写入时间、版本、ETag、大小、依赖、访问记录），
// 不保存缓存数据本身。数据存放在 store 中，由调用方在 Update 时同步登记。
//
// 策略（Policy）是封闭的六种类型：
//
//	Forever                     永不过期
//	TimeToLive{TTL}             写入后 TTL 内有效
//	Versioned{Version}          版本一致时有效
//	ETagBased{ETag}             ETag 一致时有效
//	Dependent{Keys, TTL}        依赖项全部有效时有效，否则检查时连带淘汰自身
//	StaleWhileRevalidate{F, S}  F 内新鲜，S 内可用
//
// 基本使用：
//
//	ev, _ := cachepolicy.New(&cachepolicy.Config{}, cachepolicy.WithLogger(logger))
//	_ = ev.Update("products", cachepolicy.StaleWhileRevalidate{Fresh: 5 * time.Minute, Stale: time.Hour},
//		cachepolicy.WithSize(4096))
//	if !ev.IsFresh("products") {
//		// 发起刷新
//	}
package cachepolicy

import (
	"time"

	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/metrics"
)

// Evaluator 缓存策略评估器
type Evaluator interface {
	// Update 写入或更新 key 的元数据，访问计数加一并刷新写入时间和访问时间
	Update(key string, policy Policy, opts ...EntryOption) error

	// IsValid 按 key 自身的策略判断是否有效；不存在返回 false。
	// Dependent 策略的依赖失效时，会淘汰该 key
	IsValid(key string) bool

	// IsFresh StaleWhileRevalidate 在 Fresh 窗口内为 true，其他策略等价于 IsValid
	IsFresh(key string) bool

	// ValidateAgainst 用调用方给出的策略（如服务端当前版本或 ETag）检查 key 的元数据
	ValidateAgainst(key string, policy Policy) bool

	// Status 返回 key 的综合状态
	Status(key string) Status

	// RecordAccess 登记一次读取，key 不存在时返回 false
	RecordAccess(key string) bool

	// Invalidate 删除 key；cascade 为 true 时同时删除直接依赖 key 的条目（只展开一层）。
	// 返回被删除的 key
	Invalidate(key string, cascade bool) []string

	// CleanupExpired 清理 TTL、StaleWhileRevalidate（超过 Stale）和 Dependent（超过自身 TTL）已过期的条目
	CleanupExpired() int

	// EvictLRU 按最近访问时间从旧到新淘汰非 Forever 条目，直到总大小不超过 targetSize
	EvictLRU(targetSize int64) []string

	// Get 返回 key 元数据的副本
	Get(key string) (Metadata, bool)

	// Stats 返回条目数和总大小
	Stats() Stats

	// Len 返回条目数
	Len() int
}

// Status key 的综合状态
type Status int

const (
	StatusMissing Status = iota // 没有元数据
	StatusFresh                 // 有效且新鲜
	StatusStale                 // 有效但需要刷新（仅 StaleWhileRevalidate）
	StatusInvalid               // 已失效
)

func (s Status) String() string {
	switch s {
	case StatusMissing:
		return "missing"
	case StatusFresh:
		return "fresh"
	case StatusStale:
		return "stale"
	case StatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Usable 数据是否还能展示给用户
func (s Status) Usable() bool {
	return s == StatusFresh || s == StatusStale
}

// Metadata 单个缓存 key 的元数据
type Metadata struct {
	Key          string
	Policy       Policy
	UpdatedAt    time.Time
	Version      int64
	ETag         string
	Size         int64
	Dependencies []string // 取自 Dependent.Keys
	AccessCount  int64
	LastAccess   time.Time
}

// Stats 评估器统计
type Stats struct {
	Entries   int
	TotalSize int64
}

// EvictReason 条目被移除的原因
type EvictReason string

const (
	ReasonInvalidated EvictReason = "invalidated"
	ReasonCascade     EvictReason = "cascade"
	ReasonExpired     EvictReason = "expired"
	ReasonLRU         EvictReason = "lru"
	ReasonDependency  EvictReason = "dependency"
)

// EvictionHook 条目被移除后调用（锁外），可用于同步删除 store 中的数据
type EvictionHook func(key string, reason EvictReason)

// Config 评估器配置
type Config struct {
	// MaxSize 元数据登记的总大小上限（字节），0 表示不限制。
	// 超出时 Update 会按 LRU 淘汰到上限以内
	MaxSize int64 `mapstructure:"max_size" yaml:"max_size"`

	// Policies 按缓存命名空间配置的策略，如 products、cart
	Policies map[string]Spec `mapstructure:"policies" yaml:"policies"`
}

// Policy 返回命名空间 name 的配置策略，未配置或非法时返回 fallback
func (c *Config) Policy(name string, fallback Policy) Policy {
	if c == nil {
		return fallback
	}
	spec, ok := c.Policies[name]
	if !ok {
		return fallback
	}
	p, err := spec.Build()
	if err != nil {
		return fallback
	}
	return p
}

// New 创建评估器
func New(cfg *Config, opts ...Option) (Evaluator, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	for name, spec := range cfg.Policies {
		if _, err := spec.Build(); err != nil {
			return nil, xerrorsWrapPolicy(err, name)
		}
	}

	o := options{
		logger: clog.Discard(),
		meter:  metrics.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return newManager(*cfg, o), nil
}
