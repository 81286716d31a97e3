package cachepolicy

import (
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/noghresod/shopsync/xerrors"
)

// fakeClock 手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestEvaluator(t *testing.T, cfg *Config, opts ...Option) (Evaluator, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	ev, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return ev, clock
}

func mustUpdate(t *testing.T, ev Evaluator, key string, p Policy, opts ...EntryOption) {
	t.Helper()
	if err := ev.Update(key, p, opts...); err != nil {
		t.Fatalf("Update(%s) error = %v", key, err)
	}
}

// TestNew 测试配置校验
func TestNew(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrConfigNil) {
		t.Errorf("New(nil) error = %v, want ErrConfigNil", err)
	}

	_, err := New(&Config{Policies: map[string]Spec{"cart": {Kind: "ttl"}}})
	if !errors.Is(err, ErrInvalidPolicy) {
		t.Errorf("New() error = %v, want ErrInvalidPolicy", err)
	}
	if !xerrors.Is(err, xerrors.ErrInvalidInput) {
		t.Errorf("error should wrap ErrInvalidInput")
	}
}

// TestUpdateValidation 测试 Update 参数校验
func TestUpdateValidation(t *testing.T) {
	ev, _ := newTestEvaluator(t, &Config{})

	if err := ev.Update("", Forever{}); !errors.Is(err, ErrKeyEmpty) {
		t.Errorf("Update(\"\") error = %v, want ErrKeyEmpty", err)
	}
	if err := ev.Update("k", nil); !errors.Is(err, ErrPolicyNil) {
		t.Errorf("Update(nil policy) error = %v, want ErrPolicyNil", err)
	}
}

// TestUpdateMetadata 测试 Update 写入的元数据
func TestUpdateMetadata(t *testing.T) {
	ev, clock := newTestEvaluator(t, &Config{})

	mustUpdate(t, ev, "products", Versioned{Version: 3}, WithSize(100))
	clock.Advance(time.Minute)
	mustUpdate(t, ev, "products", Versioned{Version: 4}, WithSize(250), WithETag("abc"))

	meta, ok := ev.Get("products")
	if !ok {
		t.Fatal("Get() should find products")
	}
	if meta.AccessCount != 2 {
		t.Errorf("AccessCount = %d, want 2", meta.AccessCount)
	}
	if meta.Version != 4 || meta.ETag != "abc" {
		t.Errorf("Version/ETag = %d/%q", meta.Version, meta.ETag)
	}
	if !meta.UpdatedAt.Equal(clock.Now()) || !meta.LastAccess.Equal(clock.Now()) {
		t.Errorf("UpdatedAt/LastAccess should be refreshed")
	}
	if stats := ev.Stats(); stats.Entries != 1 || stats.TotalSize != 250 {
		t.Errorf("Stats() = %+v, want {1 250}", stats)
	}
}

// TestForever 测试永不过期策略
func TestForever(t *testing.T) {
	ev, clock := newTestEvaluator(t, &Config{})
	mustUpdate(t, ev, "config", Forever{})

	clock.Advance(24 * 365 * time.Hour)
	if !ev.IsValid("config") || !ev.IsFresh("config") {
		t.Error("Forever entry should stay valid and fresh")
	}
	if ev.IsValid("missing") {
		t.Error("missing key should be invalid")
	}
}

// TestTimeToLive 测试 TTL 边界：age == ttl 时失效
func TestTimeToLive(t *testing.T) {
	ev, clock := newTestEvaluator(t, &Config{})
	mustUpdate(t, ev, "cart", TimeToLive{TTL: time.Minute})

	clock.Advance(59 * time.Second)
	if !ev.IsValid("cart") {
		t.Error("cart should be valid before ttl")
	}
	clock.Advance(time.Second)
	if ev.IsValid("cart") {
		t.Error("cart should be invalid at ttl")
	}
	if got := ev.Status("cart"); got != StatusInvalid {
		t.Errorf("Status() = %v, want invalid", got)
	}
}

// TestVersionedAndETag 测试版本和 ETag 比对
func TestVersionedAndETag(t *testing.T) {
	ev, _ := newTestEvaluator(t, &Config{})
	mustUpdate(t, ev, "orders", Versioned{Version: 7})
	mustUpdate(t, ev, "products", ETagBased{ETag: `"v1"`})

	if !ev.IsValid("orders") || !ev.IsValid("products") {
		t.Error("entries should be valid against their own policy")
	}
	if !ev.ValidateAgainst("orders", Versioned{Version: 7}) {
		t.Error("same version should be valid")
	}
	if ev.ValidateAgainst("orders", Versioned{Version: 8}) {
		t.Error("newer server version should invalidate")
	}
	if ev.ValidateAgainst("products", ETagBased{ETag: `"v2"`}) {
		t.Error("changed etag should invalidate")
	}
	if ev.ValidateAgainst("products", nil) {
		t.Error("nil policy should not validate")
	}
}

// TestStaleWhileRevalidate 测试新鲜和陈旧窗口
func TestStaleWhileRevalidate(t *testing.T) {
	ev, clock := newTestEvaluator(t, &Config{})
	mustUpdate(t, ev, "products", StaleWhileRevalidate{Fresh: 5 * time.Minute, Stale: time.Hour})

	if got := ev.Status("products"); got != StatusFresh {
		t.Errorf("Status() = %v, want fresh", got)
	}

	clock.Advance(5 * time.Minute)
	if ev.IsFresh("products") {
		t.Error("should not be fresh at fresh boundary")
	}
	if !ev.IsValid("products") {
		t.Error("should still be valid within stale window")
	}
	if got := ev.Status("products"); got != StatusStale || !got.Usable() {
		t.Errorf("Status() = %v, want usable stale", got)
	}

	clock.Advance(55 * time.Minute)
	if ev.IsValid("products") {
		t.Error("should be invalid past stale window")
	}
}

// TestDependent 测试依赖有效时有效，依赖失效时连带淘汰
func TestDependent(t *testing.T) {
	var removed []string
	ev, clock := newTestEvaluator(t, &Config{}, WithEvictionHook(func(key string, reason EvictReason) {
		if reason == ReasonDependency {
			removed = append(removed, key)
		}
	}))

	mustUpdate(t, ev, "products", TimeToLive{TTL: 10 * time.Minute})
	mustUpdate(t, ev, "products:1", Dependent{Keys: []string{"products"}, TTL: 10 * time.Minute})

	meta, _ := ev.Get("products:1")
	if !slices.Equal(meta.Dependencies, []string{"products"}) {
		t.Errorf("Dependencies = %v", meta.Dependencies)
	}
	if !ev.IsValid("products:1") {
		t.Fatal("dependent should be valid while dependency is valid")
	}

	clock.Advance(10 * time.Minute)
	if ev.IsValid("products:1") {
		t.Fatal("dependent should be invalid once dependency expired")
	}
	if _, ok := ev.Get("products:1"); ok {
		t.Error("invalid dependent should be evicted")
	}
	if _, ok := ev.Get("products"); !ok {
		t.Error("dependency itself should not be evicted by the check")
	}
	if !slices.Equal(removed, []string{"products:1"}) {
		t.Errorf("dependency removals = %v", removed)
	}
}

// TestDependentMissingDependency 测试依赖缺失
func TestDependentMissingDependency(t *testing.T) {
	ev, _ := newTestEvaluator(t, &Config{})
	mustUpdate(t, ev, "orders:9", Dependent{Keys: []string{"orders"}, TTL: time.Hour})

	if got := ev.Status("orders:9"); got != StatusInvalid {
		t.Errorf("Status() = %v, want invalid", got)
	}
	if ev.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ev.Len())
	}
}

// TestDependentDependencyAge 测试依赖本身有效但超过 Dependent 自己的 TTL
func TestDependentDependencyAge(t *testing.T) {
	ev, clock := newTestEvaluator(t, &Config{})
	mustUpdate(t, ev, "orders", Forever{})
	clock.Advance(30 * time.Minute)
	mustUpdate(t, ev, "orders:1", Dependent{Keys: []string{"orders"}, TTL: 20 * time.Minute})

	if ev.IsValid("orders:1") {
		t.Error("dependency older than ttl should invalidate dependent")
	}
}

// TestDependentCycle 测试依赖成环视为无效
func TestDependentCycle(t *testing.T) {
	ev, _ := newTestEvaluator(t, &Config{})
	mustUpdate(t, ev, "a", Dependent{Keys: []string{"b"}, TTL: time.Hour})
	mustUpdate(t, ev, "b", Dependent{Keys: []string{"a"}, TTL: time.Hour})

	if ev.IsValid("a") {
		t.Error("cyclic dependency should be invalid")
	}
}

// TestInvalidate 测试删除和一层级联
func TestInvalidate(t *testing.T) {
	ev, _ := newTestEvaluator(t, &Config{})
	mustUpdate(t, ev, "orders", Forever{}, WithSize(10))
	mustUpdate(t, ev, "orders:1", Dependent{Keys: []string{"orders"}, TTL: time.Hour}, WithSize(5))
	mustUpdate(t, ev, "orders:1:items", Dependent{Keys: []string{"orders:1"}, TTL: time.Hour})
	mustUpdate(t, ev, "cart", Forever{})

	got := ev.Invalidate("orders", true)
	slices.Sort(got)
	if !slices.Equal(got, []string{"orders", "orders:1"}) {
		t.Errorf("Invalidate() = %v", got)
	}
	if _, ok := ev.Get("orders:1:items"); !ok {
		t.Error("cascade should only expand one level")
	}
	if _, ok := ev.Get("cart"); !ok {
		t.Error("unrelated key should survive")
	}
	if stats := ev.Stats(); stats.TotalSize != 0 {
		t.Errorf("TotalSize = %d, want 0", stats.TotalSize)
	}

	if got := ev.Invalidate("cart", false); !slices.Equal(got, []string{"cart"}) {
		t.Errorf("Invalidate(cart) = %v", got)
	}
	if got := ev.Invalidate("cart", false); got != nil {
		t.Errorf("Invalidate(missing) = %v, want nil", got)
	}
	if ev.Status("cart") != StatusMissing {
		t.Error("invalidated key should be a miss")
	}
}

// TestCascadeFollowsPolicy 测试级联只跟随当前 Dependent 策略的 Keys
func TestCascadeFollowsPolicy(t *testing.T) {
	ev, _ := newTestEvaluator(t, &Config{})
	mustUpdate(t, ev, "orders", Forever{})
	mustUpdate(t, ev, "orders:1", Dependent{Keys: []string{"orders"}, TTL: time.Hour})

	// 换成非依赖策略后不再随 orders 级联
	mustUpdate(t, ev, "orders:1", TimeToLive{TTL: time.Hour})
	if meta, _ := ev.Get("orders:1"); meta.Dependencies != nil {
		t.Errorf("Dependencies = %v, want nil", meta.Dependencies)
	}
	if got := ev.Invalidate("orders", true); !slices.Equal(got, []string{"orders"}) {
		t.Errorf("Invalidate() = %v, want [orders]", got)
	}
	if !ev.IsValid("orders:1") {
		t.Error("ttl entry should survive its former dependency")
	}
}

// TestCleanupExpired 测试过期清理
func TestCleanupExpired(t *testing.T) {
	ev, clock := newTestEvaluator(t, &Config{})
	mustUpdate(t, ev, "forever", Forever{})
	mustUpdate(t, ev, "ttl", TimeToLive{TTL: time.Minute})
	mustUpdate(t, ev, "swr", StaleWhileRevalidate{Fresh: time.Minute, Stale: 2 * time.Minute})
	mustUpdate(t, ev, "dep", Dependent{Keys: []string{"forever"}, TTL: time.Minute})
	mustUpdate(t, ev, "ver", Versioned{Version: 1})

	clock.Advance(90 * time.Second)
	if n := ev.CleanupExpired(); n != 2 {
		t.Errorf("CleanupExpired() = %d, want 2", n)
	}
	if _, ok := ev.Get("swr"); !ok {
		t.Error("swr within stale window should survive")
	}

	clock.Advance(time.Minute)
	if n := ev.CleanupExpired(); n != 1 {
		t.Errorf("CleanupExpired() = %d, want 1", n)
	}
	if ev.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ev.Len())
	}
}

// TestEvictLRU 测试按最近访问淘汰并跳过 Forever
func TestEvictLRU(t *testing.T) {
	ev, clock := newTestEvaluator(t, &Config{})
	mustUpdate(t, ev, "pinned", Forever{}, WithSize(100))
	clock.Advance(time.Second)
	mustUpdate(t, ev, "a", TimeToLive{TTL: time.Hour}, WithSize(100))
	clock.Advance(time.Second)
	mustUpdate(t, ev, "b", TimeToLive{TTL: time.Hour}, WithSize(100))
	clock.Advance(time.Second)
	mustUpdate(t, ev, "c", TimeToLive{TTL: time.Hour}, WithSize(100))
	clock.Advance(time.Second)
	ev.RecordAccess("a")

	evicted := ev.EvictLRU(200)
	if !slices.Equal(evicted, []string{"b", "c"}) {
		t.Errorf("EvictLRU() = %v, want [b c]", evicted)
	}
	if stats := ev.Stats(); stats.TotalSize != 200 {
		t.Errorf("TotalSize = %d, want 200", stats.TotalSize)
	}

	// 只剩 Forever 时无法继续收缩
	ev.EvictLRU(0)
	if _, ok := ev.Get("pinned"); !ok {
		t.Error("Forever entry should never be evicted")
	}
	if ev.Len() != 1 {
		t.Errorf("Len() = %d, want 1", ev.Len())
	}
}

// TestMaxSize 测试 Update 超出上限时自动淘汰，但不淘汰刚写入的 key
func TestMaxSize(t *testing.T) {
	var lru []string
	ev, clock := newTestEvaluator(t, &Config{MaxSize: 250}, WithEvictionHook(func(key string, reason EvictReason) {
		if reason == ReasonLRU {
			lru = append(lru, key)
		}
	}))

	mustUpdate(t, ev, "a", TimeToLive{TTL: time.Hour}, WithSize(100))
	clock.Advance(time.Second)
	mustUpdate(t, ev, "b", TimeToLive{TTL: time.Hour}, WithSize(100))
	clock.Advance(time.Second)
	mustUpdate(t, ev, "c", TimeToLive{TTL: time.Hour}, WithSize(100))

	if !slices.Equal(lru, []string{"a"}) {
		t.Errorf("evicted = %v, want [a]", lru)
	}
	if _, ok := ev.Get("c"); !ok {
		t.Error("just-updated key should be kept")
	}
}

// TestRecordAccess 测试访问登记
func TestRecordAccess(t *testing.T) {
	ev, clock := newTestEvaluator(t, &Config{})
	if ev.RecordAccess("missing") {
		t.Error("RecordAccess(missing) should be false")
	}

	mustUpdate(t, ev, "cart", Forever{})
	clock.Advance(time.Minute)
	if !ev.RecordAccess("cart") {
		t.Fatal("RecordAccess(cart) should be true")
	}
	meta, _ := ev.Get("cart")
	if meta.AccessCount != 2 || !meta.LastAccess.Equal(clock.Now()) {
		t.Errorf("meta = %+v", meta)
	}
	if meta.UpdatedAt.Equal(clock.Now()) {
		t.Error("RecordAccess should not touch UpdatedAt")
	}
}

// TestConfigPolicy 测试按命名空间读取策略
func TestConfigPolicy(t *testing.T) {
	cfg := &Config{Policies: map[string]Spec{
		"products": {Kind: "swr", Fresh: time.Minute, Stale: time.Hour},
		"broken":   {Kind: "ttl"},
	}}
	fallback := TimeToLive{TTL: time.Second}

	if got := cfg.Policy("products", fallback); got != (StaleWhileRevalidate{Fresh: time.Minute, Stale: time.Hour}) {
		t.Errorf("Policy(products) = %v", got)
	}
	if got := cfg.Policy("broken", fallback); got != fallback {
		t.Errorf("Policy(broken) = %v, want fallback", got)
	}
	if got := cfg.Policy("missing", fallback); got != fallback {
		t.Errorf("Policy(missing) = %v, want fallback", got)
	}
	var nilCfg *Config
	if got := nilCfg.Policy("products", fallback); got != fallback {
		t.Errorf("nil config Policy() = %v", got)
	}
}

// TestSpecBuild 测试 Spec 转换
func TestSpecBuild(t *testing.T) {
	tests := []struct {
		spec    Spec
		want    Kind
		wantErr bool
	}{
		{spec: Spec{Kind: "forever"}, want: KindForever},
		{spec: Spec{Kind: "TTL", TTL: time.Minute}, want: KindTimeToLive},
		{spec: Spec{Kind: "versioned", Version: 2}, want: KindVersioned},
		{spec: Spec{Kind: "etag", ETag: "x"}, want: KindETagBased},
		{spec: Spec{Kind: "dependent", Keys: []string{"a"}, TTL: time.Minute}, want: KindDependent},
		{spec: Spec{Kind: "swr", Fresh: time.Minute, Stale: time.Hour}, want: KindStaleWhileRevalidate},
		{spec: Spec{Kind: "swr", Fresh: time.Hour, Stale: time.Minute}, wantErr: true},
		{spec: Spec{Kind: "dependent"}, wantErr: true},
		{spec: Spec{Kind: "lfu"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec.Kind, func(t *testing.T) {
			p, err := tt.spec.Build()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Build() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && p.Kind() != tt.want {
				t.Errorf("Kind() = %v, want %v", p.Kind(), tt.want)
			}
		})
	}
}

// TestConcurrentAccess 测试并发读写
func TestConcurrentAccess(t *testing.T) {
	ev, _ := newTestEvaluator(t, &Config{MaxSize: 1000})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			for j := 0; j < 100; j++ {
				_ = ev.Update(key, TimeToLive{TTL: time.Minute}, WithSize(50))
				ev.IsValid(key)
				ev.RecordAccess(key)
				ev.Invalidate(key, true)
			}
		}(i)
	}
	wg.Wait()
}
