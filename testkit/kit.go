// Package testkit 为 shopsync 各组件的测试提供共享依赖：
// Logger、Meter、内存 SQLite、miniredis 以及可手动推进的时钟。
package testkit

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/metrics"
)

// Kit 通用测试依赖
type Kit struct {
	Ctx    context.Context
	Logger clog.Logger
	Meter  metrics.Meter
	Clock  *Clock
}

// NewKit 返回包含默认依赖的测试工具包
func NewKit(t *testing.T) *Kit {
	t.Helper()
	return &Kit{
		Ctx:    t.Context(),
		Logger: NewLogger(),
		Meter:  NewMeter(t),
		Clock:  NewClock(),
	}
}

// NewLogger 返回测试 logger，级别取 SHOPSYNC_TEST_LOG_LEVEL，默认 error 保持输出干净
func NewLogger() clog.Logger {
	level := os.Getenv("SHOPSYNC_TEST_LOG_LEVEL")
	if level == "" {
		level = "error"
	}
	logger, err := clog.New(&clog.Config{Level: level, Format: "console", Output: "stderr"},
		clog.WithNamespace("test"))
	if err != nil {
		return clog.Discard()
	}
	return logger
}

// NewMeter 返回带独立 Prometheus registry 的 meter，不监听端口
func NewMeter(t *testing.T) metrics.Meter {
	t.Helper()
	meter, err := metrics.New(&metrics.Config{Enabled: true, ServiceName: "shopsync-test"})
	if err != nil {
		t.Fatalf("failed to create meter: %v", err)
	}
	t.Cleanup(func() {
		_ = meter.Shutdown(context.Background())
	})
	return meter
}

// NewContext 返回带超时的测试上下文
func NewContext(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(t.Context(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// NewID 返回一个短唯一 ID (UUID v4 前 8 位)，用于 key 或库名后缀
func NewID() string {
	return uuid.New().String()[0:8]
}

// Clock 手动推进的时钟，Now 可直接传给各组件的 WithClock
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock 从固定时间点开始的时钟
func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
