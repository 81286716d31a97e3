package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/metrics"
	"github.com/noghresod/shopsync/xerrors"
)

// bucket 包装 rate.Limiter 并记录最后访问时间
type bucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

func (b *bucket) touch(now time.Time) {
	b.lastSeen.Store(now.UnixNano())
}

type limiter struct {
	cfg    Config
	logger clog.Logger

	decisions metrics.Counter
	waits     metrics.Histogram
	gauge     metrics.Gauge

	buckets sync.Map // map[string]*bucket
	count   atomic.Int64

	stopOnce sync.Once
	stopCh   chan struct{}
	closed   atomic.Bool
}

func newLimiter(cfg Config, o options) *limiter {
	l := &limiter{
		cfg:    cfg,
		logger: o.logger,
		stopCh: make(chan struct{}),
	}

	noop := metrics.Discard()
	var err error
	if l.decisions, err = o.meter.Counter(MetricDecisions, "Rate limit decisions"); err != nil {
		l.decisions, _ = noop.Counter(MetricDecisions, "")
	}
	if l.waits, err = o.meter.Histogram(MetricWaitDuration, "Time spent waiting for a token", metrics.WithUnit("s")); err != nil {
		l.waits, _ = noop.Histogram(MetricWaitDuration, "")
	}
	if l.gauge, err = o.meter.Gauge(MetricBuckets, "Live token buckets"); err != nil {
		l.gauge, _ = noop.Gauge(MetricBuckets, "")
	}

	go l.cleanup()

	l.logger.Debug("rate limiter created",
		clog.Duration("cleanup_interval", cfg.CleanupInterval),
		clog.Duration("idle_timeout", cfg.IdleTimeout))
	return l
}

func (l *limiter) check(key string, limit Limit) error {
	if l.closed.Load() {
		return ErrClosed
	}
	if key == "" {
		return ErrKeyEmpty
	}
	if !limit.Valid() {
		return ErrInvalidLimit
	}
	return nil
}

func (l *limiter) Allow(ctx context.Context, key string, limit Limit) (bool, error) {
	return l.AllowN(ctx, key, limit, 1)
}

func (l *limiter) AllowN(ctx context.Context, key string, limit Limit, n int) (bool, error) {
	if err := l.check(key, limit); err != nil {
		return false, err
	}
	if n <= 0 {
		return false, xerrors.Wrapf(ErrInvalidLimit, "n must be positive, got %d", n)
	}

	now := time.Now()
	b := l.bucket(key, limit)
	allowed := b.limiter.AllowN(now, n)
	b.touch(now)

	result := "allowed"
	if !allowed {
		result = "denied"
	}
	l.decisions.Inc(ctx, metrics.L(LabelResult, result))
	l.logger.Debug("rate limit check",
		clog.String("key", key),
		clog.Bool("allowed", allowed),
		clog.Int("requested", n))
	return allowed, nil
}

func (l *limiter) Wait(ctx context.Context, key string, limit Limit) error {
	if err := l.check(key, limit); err != nil {
		return err
	}

	start := time.Now()
	b := l.bucket(key, limit)
	err := b.limiter.Wait(ctx)
	b.touch(time.Now())

	waited := time.Since(start)
	l.waits.Record(ctx, waited.Seconds())
	if err != nil {
		l.decisions.Inc(ctx, metrics.L(LabelResult, "denied"))
		return xerrors.Wrapf(err, "ratelimit: wait %s", key)
	}
	l.decisions.Inc(ctx, metrics.L(LabelResult, "allowed"))
	if waited > 10*time.Millisecond {
		l.logger.Debug("rate limit wait", clog.String("key", key), clog.Duration("waited", waited))
	}
	return nil
}

// bucket 获取或创建 key 对应的令牌桶，规则不同的同名 key 使用不同的桶
func (l *limiter) bucket(key string, limit Limit) *bucket {
	id := fmt.Sprintf("%s:%v:%d", key, limit.Rate, limit.Burst)
	if v, ok := l.buckets.Load(id); ok {
		return v.(*bucket)
	}

	b := &bucket{limiter: rate.NewLimiter(rate.Limit(limit.Rate), limit.Burst)}
	b.touch(time.Now())
	actual, loaded := l.buckets.LoadOrStore(id, b)
	if !loaded {
		l.gauge.Set(context.Background(), float64(l.count.Add(1)))
	}
	return actual.(*bucket)
}

func (l *limiter) cleanup() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep(time.Now())
		case <-l.stopCh:
			return
		}
	}
}

// sweep 回收空闲超过 IdleTimeout 的桶
func (l *limiter) sweep(now time.Time) int {
	removed := 0
	l.buckets.Range(func(key, value any) bool {
		b := value.(*bucket)
		if now.Sub(time.Unix(0, b.lastSeen.Load())) > l.cfg.IdleTimeout {
			l.buckets.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		l.gauge.Set(context.Background(), float64(l.count.Add(int64(-removed))))
		l.logger.Debug("idle buckets removed", clog.Int("count", removed))
	}
	return removed
}

func (l *limiter) Close() error {
	l.stopOnce.Do(func() {
		l.closed.Store(true)
		close(l.stopCh)
	})
	return nil
}
