package cachepolicy

import (
	"fmt"
	"strings"
	"time"

	"github.com/noghresod/shopsync/xerrors"
)

// Kind 策略类型
type Kind int

const (
	KindForever Kind = iota
	KindTimeToLive
	KindVersioned
	KindETagBased
	KindDependent
	KindStaleWhileRevalidate
)

func (k Kind) String() string {
	switch k {
	case KindForever:
		return "forever"
	case KindTimeToLive:
		return "ttl"
	case KindVersioned:
		return "versioned"
	case KindETagBased:
		return "etag"
	case KindDependent:
		return "dependent"
	case KindStaleWhileRevalidate:
		return "swr"
	default:
		return "unknown"
	}
}

// Policy 缓存有效性策略，只有本包定义的六种实现
type Policy interface {
	Kind() Kind
	policy()
}

// Forever 永不过期，LRU 淘汰时跳过
type Forever struct{}

// TimeToLive 写入后 TTL 内有效
type TimeToLive struct {
	TTL time.Duration
}

// Versioned 元数据版本与 Version 相等时有效
type Versioned struct {
	Version int64
}

// ETagBased 元数据 ETag 与 ETag 相等时有效
type ETagBased struct {
	ETag string
}

// Dependent 所有依赖项存在、自身有效且写入时间在 TTL 内时有效
type Dependent struct {
	Keys []string
	TTL  time.Duration
}

// StaleWhileRevalidate Fresh 内为新鲜，Stale 内仍可用但需要后台刷新
type StaleWhileRevalidate struct {
	Fresh time.Duration
	Stale time.Duration
}

func (Forever) Kind() Kind              { return KindForever }
func (TimeToLive) Kind() Kind           { return KindTimeToLive }
func (Versioned) Kind() Kind            { return KindVersioned }
func (ETagBased) Kind() Kind            { return KindETagBased }
func (Dependent) Kind() Kind            { return KindDependent }
func (StaleWhileRevalidate) Kind() Kind { return KindStaleWhileRevalidate }

func (Forever) policy()              {}
func (TimeToLive) policy()           {}
func (Versioned) policy()            {}
func (ETagBased) policy()            {}
func (Dependent) policy()            {}
func (StaleWhileRevalidate) policy() {}

// Spec 可配置的策略描述，用于从配置文件构造 Policy
//
//	cache_policy:
//	  policies:
//	    products: {kind: swr, fresh: 5m, stale: 1h}
//	    cart:     {kind: ttl, ttl: 1m}
type Spec struct {
	Kind    string        `mapstructure:"kind" yaml:"kind"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Fresh   time.Duration `mapstructure:"fresh" yaml:"fresh"`
	Stale   time.Duration `mapstructure:"stale" yaml:"stale"`
	Version int64         `mapstructure:"version" yaml:"version"`
	ETag    string        `mapstructure:"etag" yaml:"etag"`
	Keys    []string      `mapstructure:"keys" yaml:"keys"`
}

// Build 将 Spec 转换为 Policy
func (s Spec) Build() (Policy, error) {
	switch strings.ToLower(s.Kind) {
	case "forever":
		return Forever{}, nil
	case "ttl":
		if s.TTL <= 0 {
			return nil, invalidSpec(s, "ttl must be positive")
		}
		return TimeToLive{TTL: s.TTL}, nil
	case "versioned":
		return Versioned{Version: s.Version}, nil
	case "etag":
		return ETagBased{ETag: s.ETag}, nil
	case "dependent":
		if s.TTL <= 0 {
			return nil, invalidSpec(s, "ttl must be positive")
		}
		return Dependent{Keys: s.Keys, TTL: s.TTL}, nil
	case "swr":
		if s.Fresh <= 0 || s.Stale < s.Fresh {
			return nil, invalidSpec(s, "require 0 < fresh <= stale")
		}
		return StaleWhileRevalidate{Fresh: s.Fresh, Stale: s.Stale}, nil
	default:
		return nil, invalidSpec(s, "unknown kind")
	}
}

func invalidSpec(s Spec, msg string) error {
	return xerrors.Wrapf(ErrInvalidPolicy, "cachepolicy: %s (kind=%q)", msg, s.Kind)
}

// Describe 返回策略的可读描述，用于日志
func Describe(p Policy) string {
	switch v := p.(type) {
	case Forever:
		return "forever"
	case TimeToLive:
		return fmt.Sprintf("ttl(%s)", v.TTL)
	case Versioned:
		return fmt.Sprintf("versioned(%d)", v.Version)
	case ETagBased:
		return fmt.Sprintf("etag(%s)", v.ETag)
	case Dependent:
		return fmt.Sprintf("dependent(%s, %s)", strings.Join(v.Keys, ","), v.TTL)
	case StaleWhileRevalidate:
		return fmt.Sprintf("swr(%s, %s)", v.Fresh, v.Stale)
	default:
		return "unknown"
	}
}
