package cachepolicy

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/metrics"
)

// 指标
const (
	MetricRemovalsTotal = "cache_policy_removals_total"
	MetricChecksTotal   = "cache_policy_checks_total"
	MetricEntries       = "cache_policy_entries"
	MetricTrackedBytes  = "cache_policy_tracked_bytes"
)

type removal struct {
	key    string
	reason EvictReason
}

// manager Evaluator 的实现，一把锁保护全部元数据
type manager struct {
	cfg    Config
	logger clog.Logger
	now    func() time.Time
	hooks  []EvictionHook

	mu        sync.Mutex
	entries   map[string]*Metadata
	totalSize int64

	removals metrics.Counter
	checks   metrics.Counter
	count    metrics.Gauge
	bytes    metrics.Gauge
}

func newManager(cfg Config, o options) *manager {
	m := &manager{
		cfg:     cfg,
		logger:  o.logger,
		now:     o.now,
		hooks:   o.hooks,
		entries: make(map[string]*Metadata),
	}

	noop := metrics.Discard()
	var err error
	if m.removals, err = o.meter.Counter(MetricRemovalsTotal, "Cache metadata entries removed"); err != nil {
		m.removals, _ = noop.Counter(MetricRemovalsTotal, "")
	}
	if m.checks, err = o.meter.Counter(MetricChecksTotal, "Cache validity checks"); err != nil {
		m.checks, _ = noop.Counter(MetricChecksTotal, "")
	}
	if m.count, err = o.meter.Gauge(MetricEntries, "Tracked cache entries"); err != nil {
		m.count, _ = noop.Gauge(MetricEntries, "")
	}
	if m.bytes, err = o.meter.Gauge(MetricTrackedBytes, "Tracked cache size in bytes", metrics.WithUnit("By")); err != nil {
		m.bytes, _ = noop.Gauge(MetricTrackedBytes, "")
	}
	return m
}

func (m *manager) Update(key string, policy Policy, opts ...EntryOption) error {
	if key == "" {
		return ErrKeyEmpty
	}
	if policy == nil {
		return ErrPolicyNil
	}

	eo := entryOptions{}
	for _, opt := range opts {
		opt(&eo)
	}

	m.mu.Lock()
	now := m.now()
	meta, exists := m.entries[key]
	if !exists {
		meta = &Metadata{Key: key}
		m.entries[key] = meta
	}

	m.totalSize -= meta.Size
	meta.Policy = policy
	meta.UpdatedAt = now
	meta.LastAccess = now
	meta.AccessCount++
	meta.Size = eo.size
	meta.Version, meta.ETag, meta.Dependencies = 0, "", nil

	switch p := policy.(type) {
	case Versioned:
		meta.Version = p.Version
	case ETagBased:
		meta.ETag = p.ETag
	case Dependent:
		meta.Dependencies = slices.Clone(p.Keys)
	}
	if eo.version != nil {
		meta.Version = *eo.version
	}
	if eo.etag != nil {
		meta.ETag = *eo.etag
	}
	m.totalSize += meta.Size

	var removed []removal
	if m.cfg.MaxSize > 0 && m.totalSize > m.cfg.MaxSize {
		removed = m.evictLocked(m.cfg.MaxSize, key)
	}
	m.mu.Unlock()

	m.logger.Debug("cache metadata updated",
		clog.String("key", key),
		clog.String("policy", Describe(policy)),
		clog.Int64("size", eo.size))
	m.afterRemoval(removed)
	return nil
}

func (m *manager) IsValid(key string) bool {
	m.mu.Lock()
	var removed []removal
	valid := false
	if meta, ok := m.entries[key]; ok {
		valid = m.validLocked(meta, meta.Policy, m.now(), map[string]bool{}, &removed)
	}
	m.mu.Unlock()

	m.recordCheck(key, valid)
	m.afterRemoval(removed)
	return valid
}

func (m *manager) IsFresh(key string) bool {
	return m.Status(key) == StatusFresh
}

func (m *manager) ValidateAgainst(key string, policy Policy) bool {
	if policy == nil {
		return false
	}
	m.mu.Lock()
	var removed []removal
	valid := false
	if meta, ok := m.entries[key]; ok {
		valid = m.validLocked(meta, policy, m.now(), map[string]bool{}, &removed)
	}
	m.mu.Unlock()

	m.recordCheck(key, valid)
	m.afterRemoval(removed)
	return valid
}

func (m *manager) Status(key string) Status {
	m.mu.Lock()
	var removed []removal
	status := StatusMissing
	if meta, ok := m.entries[key]; ok {
		now := m.now()
		switch {
		case !m.validLocked(meta, meta.Policy, now, map[string]bool{}, &removed):
			status = StatusInvalid
		case isSWRStale(meta, now):
			status = StatusStale
		default:
			status = StatusFresh
		}
	}
	m.mu.Unlock()

	m.afterRemoval(removed)
	return status
}

func isSWRStale(meta *Metadata, now time.Time) bool {
	p, ok := meta.Policy.(StaleWhileRevalidate)
	return ok && now.Sub(meta.UpdatedAt) >= p.Fresh
}

// validLocked 按 policy 判断 meta 是否有效。visiting 防止依赖成环，
// Dependent 检查失败的条目会被删除并追加到 removed
func (m *manager) validLocked(meta *Metadata, policy Policy, now time.Time, visiting map[string]bool, removed *[]removal) bool {
	age := now.Sub(meta.UpdatedAt)

	switch p := policy.(type) {
	case Forever:
		return true
	case TimeToLive:
		return age < p.TTL
	case Versioned:
		return meta.Version == p.Version
	case ETagBased:
		return meta.ETag == p.ETag
	case StaleWhileRevalidate:
		return age < p.Stale
	case Dependent:
		visiting[meta.Key] = true
		ok := m.dependenciesValidLocked(p, now, visiting, removed)
		delete(visiting, meta.Key)
		if !ok {
			if _, exists := m.entries[meta.Key]; exists {
				m.removeLocked(meta.Key)
				*removed = append(*removed, removal{key: meta.Key, reason: ReasonDependency})
			}
		}
		return ok
	default:
		return false
	}
}

func (m *manager) dependenciesValidLocked(p Dependent, now time.Time, visiting map[string]bool, removed *[]removal) bool {
	for _, depKey := range p.Keys {
		if visiting[depKey] {
			return false
		}
		dep, ok := m.entries[depKey]
		if !ok {
			return false
		}
		if now.Sub(dep.UpdatedAt) >= p.TTL {
			return false
		}
		if !m.validLocked(dep, dep.Policy, now, visiting, removed) {
			return false
		}
	}
	return true
}

func (m *manager) RecordAccess(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.entries[key]
	if !ok {
		return false
	}
	meta.AccessCount++
	meta.LastAccess = m.now()
	return true
}

func (m *manager) Invalidate(key string, cascade bool) []string {
	m.mu.Lock()
	var removed []removal
	if _, ok := m.entries[key]; ok {
		m.removeLocked(key)
		removed = append(removed, removal{key: key, reason: ReasonInvalidated})
	}
	if cascade {
		for k, meta := range m.entries {
			if slices.Contains(meta.Dependencies, key) {
				m.removeLocked(k)
				removed = append(removed, removal{key: k, reason: ReasonCascade})
			}
		}
	}
	m.mu.Unlock()

	if len(removed) > 0 {
		m.logger.Info("cache invalidated",
			clog.String("key", key),
			clog.Bool("cascade", cascade),
			clog.Int("removed", len(removed)))
	}
	m.afterRemoval(removed)
	return keysOf(removed)
}

func (m *manager) CleanupExpired() int {
	m.mu.Lock()
	now := m.now()
	var removed []removal
	for k, meta := range m.entries {
		if expired(meta, now) {
			m.removeLocked(k)
			removed = append(removed, removal{key: k, reason: ReasonExpired})
		}
	}
	m.mu.Unlock()

	if len(removed) > 0 {
		m.logger.Info("expired cache entries cleaned", clog.Int("removed", len(removed)))
	}
	m.afterRemoval(removed)
	return len(removed)
}

// expired 只看条目自身的时间窗口，不检查依赖
func expired(meta *Metadata, now time.Time) bool {
	age := now.Sub(meta.UpdatedAt)
	switch p := meta.Policy.(type) {
	case TimeToLive:
		return age >= p.TTL
	case StaleWhileRevalidate:
		return age >= p.Stale
	case Dependent:
		return age >= p.TTL
	default:
		return false
	}
}

func (m *manager) EvictLRU(targetSize int64) []string {
	m.mu.Lock()
	removed := m.evictLocked(targetSize, "")
	m.mu.Unlock()

	if len(removed) > 0 {
		m.logger.Info("cache entries evicted by LRU",
			clog.Int64("target_size", targetSize),
			clog.Int("removed", len(removed)))
	}
	m.afterRemoval(removed)
	return keysOf(removed)
}

// evictLocked 按 LastAccess 升序淘汰，跳过 Forever 和 keep
func (m *manager) evictLocked(targetSize int64, keep string) []removal {
	if m.totalSize <= targetSize {
		return nil
	}

	candidates := make([]*Metadata, 0, len(m.entries))
	for _, meta := range m.entries {
		if meta.Policy.Kind() == KindForever || meta.Key == keep {
			continue
		}
		candidates = append(candidates, meta)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].LastAccess.Equal(candidates[j].LastAccess) {
			return candidates[i].Key < candidates[j].Key
		}
		return candidates[i].LastAccess.Before(candidates[j].LastAccess)
	})

	var removed []removal
	for _, meta := range candidates {
		if m.totalSize <= targetSize {
			break
		}
		m.removeLocked(meta.Key)
		removed = append(removed, removal{key: meta.Key, reason: ReasonLRU})
	}
	return removed
}

func (m *manager) Get(key string) (Metadata, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.entries[key]
	if !ok {
		return Metadata{}, false
	}
	cp := *meta
	cp.Dependencies = slices.Clone(meta.Dependencies)
	return cp, true
}

func (m *manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Entries: len(m.entries), TotalSize: m.totalSize}
}

func (m *manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *manager) removeLocked(key string) {
	if meta, ok := m.entries[key]; ok {
		m.totalSize -= meta.Size
		delete(m.entries, key)
	}
}

func (m *manager) recordCheck(key string, valid bool) {
	result := "valid"
	if !valid {
		result = "invalid"
	}
	m.checks.Inc(context.Background(), metrics.L("result", result))
}

// afterRemoval 锁外上报指标并调用回调
func (m *manager) afterRemoval(removed []removal) {
	ctx := context.Background()
	stats := m.Stats()
	m.count.Set(ctx, float64(stats.Entries))
	m.bytes.Set(ctx, float64(stats.TotalSize))

	for _, r := range removed {
		m.removals.Inc(ctx, metrics.L("reason", string(r.reason)))
		m.logger.Debug("cache entry removed", clog.String("key", r.key), clog.String("reason", string(r.reason)))
		for _, hook := range m.hooks {
			hook(r.key, r.reason)
		}
	}
}

func keysOf(removed []removal) []string {
	if len(removed) == 0 {
		return nil
	}
	keys := make([]string, len(removed))
	for i, r := range removed {
		keys[i] = r.key
	}
	return keys
}
