package breaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/noghresod/shopsync/clog"
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

func newTestBreaker(t *testing.T, cfg *Config, opts ...Option) (Breaker, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	opts = append([]Option{WithClock(clock.Now), WithLogger(clog.Discard())}, opts...)
	brk, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return brk, clock
}

func failN(brk Breaker, key string, n int) {
	for i := 0; i < n; i++ {
		brk.RecordFailure(key)
	}
}

// TestNewConfig 测试默认值和配置校验
func TestNewConfig(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrConfigNil) {
		t.Errorf("New(nil) error = %v, want ErrConfigNil", err)
	}

	brk, err := New(&Config{})
	if err != nil {
		t.Fatalf("New(&Config{}) error = %v", err)
	}
	cb := brk.(*circuitBreaker)
	if cb.cfg.FailureThreshold != 5 || cb.cfg.SuccessThreshold != 2 || cb.cfg.Timeout != 60*time.Second ||
		cb.cfg.HalfOpenMaxRequests != 3 || cb.cfg.WindowSize != 30*time.Second || cb.cfg.WindowCapacity != 100 {
		t.Errorf("unexpected defaults: %+v", cb.cfg)
	}

	invalid := []*Config{
		{FailureThreshold: -1},
		{SuccessThreshold: -2},
		{Timeout: -time.Second},
		{FailureThreshold: 10, WindowCapacity: 5},
	}
	for _, cfg := range invalid {
		if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) || !errors.Is(err, xerrors.ErrInvalidInput) {
			t.Errorf("New(%+v) error = %v, want ErrInvalidConfig", cfg, err)
		}
	}
}

// TestStateString 测试状态名称
func TestStateString(t *testing.T) {
	cases := map[State]string{StateClosed: "closed", StateHalfOpen: "half_open", StateOpen: "open", State(9): "unknown"}
	for s, want := range cases {
		if s.String() != want {
			t.Errorf("State(%d).String() = %s, want %s", s, s.String(), want)
		}
	}
}

// TestOpensAtThreshold 测试窗口内失败数恰好达到阈值时熔断
func TestOpensAtThreshold(t *testing.T) {
	brk, clock := newTestBreaker(t, &Config{})

	for i := 0; i < DefaultFailureThreshold-1; i++ {
		brk.RecordFailure("products")
		clock.Advance(time.Second)
	}
	if got := brk.State("products"); got != StateClosed {
		t.Fatalf("state after %d failures = %s, want closed", DefaultFailureThreshold-1, got)
	}
	if !brk.Allow("products") {
		t.Fatal("closed breaker should allow")
	}

	brk.RecordFailure("products")
	if got := brk.State("products"); got != StateOpen {
		t.Fatalf("state after %d failures = %s, want open", DefaultFailureThreshold, got)
	}
	if brk.Allow("products") {
		t.Error("open breaker should reject")
	}

	// endpoint 之间互相隔离
	if got := brk.State("cart"); got != StateClosed {
		t.Errorf("cart state = %s, want closed", got)
	}
	if !brk.Allow("cart") {
		t.Error("cart should be allowed")
	}
}

// TestStaleFailuresExcluded 测试超过窗口的失败不计入阈值
func TestStaleFailuresExcluded(t *testing.T) {
	brk, clock := newTestBreaker(t, &Config{})

	failN(brk, "orders", 4)
	clock.Advance(DefaultWindowSize)
	brk.RecordFailure("orders")

	if got := brk.State("orders"); got != StateClosed {
		t.Fatalf("state = %s, want closed: stale failures must be purged", got)
	}
	if got := brk.Snapshot("orders").WindowFailures; got != 1 {
		t.Errorf("window failures = %d, want 1", got)
	}

	clock.Advance(DefaultWindowSize - time.Millisecond)
	failN(brk, "orders", 3)
	if got := brk.State("orders"); got != StateClosed {
		t.Fatalf("state = %s, want closed with 4 failures in window", got)
	}
	brk.RecordFailure("orders")
	if got := brk.State("orders"); got != StateOpen {
		t.Errorf("state = %s, want open with 5 failures in window", got)
	}
}

// TestSuccessClearsWindow 测试 Closed 下成功清空失败窗口
func TestSuccessClearsWindow(t *testing.T) {
	brk, _ := newTestBreaker(t, &Config{})

	failN(brk, "cart", 4)
	brk.RecordSuccess("cart")
	if got := brk.Snapshot("cart").WindowFailures; got != 0 {
		t.Fatalf("window failures after success = %d, want 0", got)
	}
	failN(brk, "cart", 4)
	if got := brk.State("cart"); got != StateClosed {
		t.Errorf("state = %s, want closed", got)
	}
}

// TestOpenTimeout 测试 Open 超时前拒绝、超时后下一次 Allow 转为 HalfOpen 并放行
func TestOpenTimeout(t *testing.T) {
	brk, clock := newTestBreaker(t, &Config{})
	failN(brk, "wishlist", DefaultFailureThreshold)

	clock.Advance(DefaultTimeout - time.Millisecond)
	if brk.Allow("wishlist") {
		t.Fatal("Allow before timeout should be false")
	}
	if got := brk.State("wishlist"); got != StateOpen {
		t.Fatalf("state = %s, want open", got)
	}

	clock.Advance(time.Millisecond)
	if got := brk.State("wishlist"); got != StateOpen {
		t.Fatalf("State() must not transition, got %s", got)
	}
	if !brk.Allow("wishlist") {
		t.Fatal("Allow after timeout should be true")
	}
	if got := brk.State("wishlist"); got != StateHalfOpen {
		t.Errorf("state = %s, want half_open", got)
	}
}

// TestHalfOpenCloses 测试 HalfOpen 下成功数达到阈值恢复并清零计数
func TestHalfOpenCloses(t *testing.T) {
	brk, clock := newTestBreaker(t, &Config{})
	failN(brk, "products", DefaultFailureThreshold)
	clock.Advance(DefaultTimeout)
	brk.Allow("products")

	brk.RecordSuccess("products")
	if got := brk.State("products"); got != StateHalfOpen {
		t.Fatalf("state after 1 success = %s, want half_open", got)
	}
	brk.RecordSuccess("products")

	s := brk.Snapshot("products")
	if s.State != StateClosed {
		t.Fatalf("state after %d successes = %s, want closed", DefaultSuccessThreshold, s.State)
	}
	if s.SuccessCount != 0 || s.FailureCount != 0 || s.WindowFailures != 0 {
		t.Errorf("counters not reset: %+v", s)
	}
}

// TestHalfOpenFailureReopens 测试 HalfOpen 下任意一次失败立即回到 Open
func TestHalfOpenFailureReopens(t *testing.T) {
	brk, clock := newTestBreaker(t, &Config{SuccessThreshold: 3})
	failN(brk, "orders", DefaultFailureThreshold)
	clock.Advance(DefaultTimeout)
	brk.Allow("orders")

	brk.RecordSuccess("orders")
	brk.RecordSuccess("orders")
	brk.RecordFailure("orders")

	if got := brk.State("orders"); got != StateOpen {
		t.Fatalf("state = %s, want open", got)
	}
	// 重新计时
	if brk.Allow("orders") {
		t.Error("re-opened breaker should reject until timeout elapses again")
	}
	clock.Advance(DefaultTimeout)
	if !brk.Allow("orders") {
		t.Error("Allow after second timeout should be true")
	}
}

// TestHalfOpenAdmissionLimit 测试 HalfOpen 按已记录结果数限制探测
func TestHalfOpenAdmissionLimit(t *testing.T) {
	brk, clock := newTestBreaker(t, &Config{SuccessThreshold: 5, HalfOpenMaxRequests: 3})
	failN(brk, "cart", DefaultFailureThreshold)
	clock.Advance(DefaultTimeout)

	for i := 0; i < 3; i++ {
		if !brk.Allow("cart") {
			t.Fatalf("probe %d should be allowed", i)
		}
		brk.RecordSuccess("cart")
	}
	if brk.Allow("cart") {
		t.Error("4th probe should be rejected once 3 results are recorded")
	}
	if got := brk.State("cart"); got != StateHalfOpen {
		t.Errorf("state = %s, want half_open", got)
	}
}

// TestOpenIgnoresSuccess 测试 Open 下的成功不改变状态
func TestOpenIgnoresSuccess(t *testing.T) {
	brk, _ := newTestBreaker(t, &Config{})
	failN(brk, "products", DefaultFailureThreshold)
	brk.RecordSuccess("products")
	brk.RecordSuccess("products")
	if got := brk.State("products"); got != StateOpen {
		t.Errorf("state = %s, want open", got)
	}
}

// TestWindowCapacity 测试窗口容量上限
func TestWindowCapacity(t *testing.T) {
	brk, _ := newTestBreaker(t, &Config{FailureThreshold: 2, WindowCapacity: 3})
	failN(brk, "products", 10)
	if got := brk.Snapshot("products").WindowFailures; got != 3 {
		t.Errorf("window failures = %d, want capacity 3", got)
	}
}

// TestReset 测试单个和全部重置
func TestReset(t *testing.T) {
	brk, _ := newTestBreaker(t, &Config{})
	failN(brk, "a", DefaultFailureThreshold)
	failN(brk, "b", DefaultFailureThreshold)
	failN(brk, "c", 2)

	brk.Reset("a")
	if brk.State("a") != StateClosed || !brk.Allow("a") {
		t.Error("a should be closed after Reset")
	}
	if brk.State("b") != StateOpen {
		t.Error("Reset(a) must not affect b")
	}

	brk.ResetAll()
	for _, key := range brk.Keys() {
		s := brk.Snapshot(key)
		if s.State != StateClosed || s.WindowFailures != 0 {
			t.Errorf("%s not reset: %+v", key, s)
		}
	}
	if got := brk.Keys(); len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("Keys() = %v", got)
	}

	// 未出现过的 key
	brk.Reset("unknown")
	if brk.State("unknown") != StateClosed {
		t.Error("unknown key should report closed")
	}
}

// TestStateChangeHook 测试状态变化回调
func TestStateChangeHook(t *testing.T) {
	type change struct {
		key      string
		from, to State
	}
	var mu sync.Mutex
	var changes []change
	hook := func(key string, from, to State) {
		mu.Lock()
		changes = append(changes, change{key, from, to})
		mu.Unlock()
	}

	brk, clock := newTestBreaker(t, &Config{SuccessThreshold: 1}, WithStateChangeHook(hook))
	failN(brk, "products", DefaultFailureThreshold)
	clock.Advance(DefaultTimeout)
	brk.Allow("products")
	brk.RecordSuccess("products")

	want := []change{
		{"products", StateClosed, StateOpen},
		{"products", StateOpen, StateHalfOpen},
		{"products", StateHalfOpen, StateClosed},
	}
	mu.Lock()
	defer mu.Unlock()
	if len(changes) != len(want) {
		t.Fatalf("got %d changes %v, want %d", len(changes), changes, len(want))
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("change %d = %+v, want %+v", i, changes[i], want[i])
		}
	}
}

// TestExecute 测试 Execute 组合调用
func TestExecute(t *testing.T) {
	brk, _ := newTestBreaker(t, &Config{FailureThreshold: 2})
	ctx := context.Background()
	boom := errors.New("boom")

	if err := brk.Execute(ctx, "api", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Execute success error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := brk.Execute(ctx, "api", func(context.Context) error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("Execute error = %v, want boom", err)
		}
	}

	called := false
	err := brk.Execute(ctx, "api", func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrOpenState) {
		t.Fatalf("Execute on open breaker error = %v, want ErrOpenState", err)
	}
	if !xerrors.IsUnavailable(err) {
		t.Error("ErrOpenState should be classified as unavailable")
	}
	if called {
		t.Error("fn must not run when breaker is open")
	}
}

// TestConcurrentAccess 测试并发访问下状态一致
func TestConcurrentAccess(t *testing.T) {
	brk, _ := newTestBreaker(t, &Config{FailureThreshold: 50, WindowCapacity: 100})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				brk.Allow("shared")
				brk.RecordFailure("shared")
				brk.State("shared")
			}
		}()
	}
	wg.Wait()

	if got := brk.State("shared"); got != StateOpen {
		t.Errorf("state = %s after 100 failures, want open", got)
	}
}
