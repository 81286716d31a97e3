// Package janitor 用 cron 定时维护本地缓存：
// 清理过期的缓存元数据、按 LRU 把缓存总量压到上限以内，并周期性输出熔断器状态。
//
//	j, _ := janitor.New(&janitor.Config{MaxBytes: 32 << 20}, ev,
//		janitor.WithBreaker(brk), janitor.WithLogger(logger))
//	j.Start()
//	defer j.Stop(ctx)
package janitor

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/noghresod/shopsync/breaker"
	"github.com/noghresod/shopsync/cachepolicy"
	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/metrics"
	"github.com/noghresod/shopsync/xerrors"
)

// 指标
const (
	MetricRunsTotal    = "janitor_runs_total"
	MetricRemovedTotal = "janitor_removed_total"
	LabelJob           = "job"
)

// 任务名
const (
	JobCleanup = "cleanup"
	JobEvict   = "evict"
	JobReport  = "report"
)

var (
	// ErrEvaluatorNil 评估器为空
	ErrEvaluatorNil = xerrors.Wrap(xerrors.ErrInvalidInput, "janitor: evaluator is nil")

	// ErrInvalidSchedule cron 表达式无效
	ErrInvalidSchedule = xerrors.Wrap(xerrors.ErrInvalidInput, "janitor: invalid schedule")
)

// Config 调度配置，表达式支持标准 5 段和 @every 描述符，空串表示不启用该任务
type Config struct {
	CleanupSchedule string `mapstructure:"cleanup_schedule"` // 默认 @every 1m
	EvictSchedule   string `mapstructure:"evict_schedule"`   // 默认 @every 5m
	ReportSchedule  string `mapstructure:"report_schedule"`  // 默认 @every 1m，未设置 breaker 时不启用
	// MaxBytes 缓存元数据登记的总大小上限，默认 16 MiB
	MaxBytes int64 `mapstructure:"max_bytes"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		CleanupSchedule: "@every 1m",
		EvictSchedule:   "@every 5m",
		ReportSchedule:  "@every 1m",
		MaxBytes:        16 << 20,
	}
}

// GuardStatesFunc 返回额外的熔断状态，如远端客户端按主机的传输层熔断
type GuardStatesFunc func() map[string]string

// Janitor 缓存维护任务
type Janitor struct {
	cfg    Config
	ev     cachepolicy.Evaluator
	brk    breaker.Breaker
	guards GuardStatesFunc
	logger clog.Logger
	cron   *cron.Cron

	runs    metrics.Counter
	removed metrics.Counter
}

// New 注册任务但不启动
func New(cfg *Config, ev cachepolicy.Evaluator, opts ...Option) (*Janitor, error) {
	if ev == nil {
		return nil, ErrEvaluatorNil
	}
	c := *DefaultConfig()
	if cfg != nil {
		c = *cfg
		if c.MaxBytes <= 0 {
			c.MaxBytes = DefaultConfig().MaxBytes
		}
	}

	o := options{logger: clog.Discard(), meter: metrics.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	j := &Janitor{cfg: c, ev: ev, brk: o.brk, guards: o.guards, logger: o.logger}

	noop := metrics.Discard()
	var err error
	if j.runs, err = o.meter.Counter(MetricRunsTotal, "Janitor job runs"); err != nil {
		j.runs, _ = noop.Counter(MetricRunsTotal, "")
	}
	if j.removed, err = o.meter.Counter(MetricRemovedTotal, "Cache entries removed by janitor jobs"); err != nil {
		j.removed, _ = noop.Counter(MetricRemovedTotal, "")
	}

	cl := cronLogger{logger: o.logger}
	j.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	jobs := []struct {
		name string
		spec string
		fn   func()
	}{
		{JobCleanup, c.CleanupSchedule, func() { j.Cleanup() }},
		{JobEvict, c.EvictSchedule, func() { j.Evict() }},
	}
	if j.brk != nil || j.guards != nil {
		jobs = append(jobs, struct {
			name string
			spec string
			fn   func()
		}{JobReport, c.ReportSchedule, func() { j.Report() }})
	}

	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		if _, err := j.cron.AddFunc(job.spec, job.fn); err != nil {
			return nil, xerrors.Wrapf(ErrInvalidSchedule, "%s %q: %v", job.name, job.spec, err)
		}
		j.logger.Debug("janitor job registered", clog.String("job", job.name), clog.String("schedule", job.spec))
	}
	return j, nil
}

// Start 在后台启动调度
func (j *Janitor) Start() {
	j.cron.Start()
	j.logger.Info("janitor started", clog.Int("jobs", len(j.cron.Entries())))
}

// Stop 停止调度并等待运行中的任务结束，ctx 超时则提前返回
func (j *Janitor) Stop(ctx context.Context) error {
	done := j.cron.Stop()
	select {
	case <-done.Done():
		j.logger.Info("janitor stopped")
		return nil
	case <-ctx.Done():
		return xerrors.Wrap(ctx.Err(), "janitor: stop")
	}
}

// Cleanup 清理过期元数据，返回清理数量
func (j *Janitor) Cleanup() int {
	start := time.Now()
	n := j.ev.CleanupExpired()
	j.record(JobCleanup, n)
	if n > 0 {
		j.logger.Info("expired cache entries removed", clog.Int("count", n), clog.Duration("took", time.Since(start)))
	}
	return n
}

// Evict 总大小超过 MaxBytes 时按 LRU 淘汰
func (j *Janitor) Evict() []string {
	stats := j.ev.Stats()
	if stats.TotalSize <= j.cfg.MaxBytes {
		j.record(JobEvict, 0)
		return nil
	}
	keys := j.ev.EvictLRU(j.cfg.MaxBytes)
	j.record(JobEvict, len(keys))
	j.logger.Info("cache evicted to size limit",
		clog.Int64("before", stats.TotalSize),
		clog.Int64("limit", j.cfg.MaxBytes),
		clog.Any("keys", keys))
	return keys
}

// Report 输出非 Closed 的熔断器状态，返回这些 endpoint 的快照
func (j *Janitor) Report() []breaker.Stats {
	j.record(JobReport, 0)

	var degraded []breaker.Stats
	if j.brk != nil {
		for _, key := range j.brk.Keys() {
			s := j.brk.Snapshot(key)
			if s.State == breaker.StateClosed {
				continue
			}
			degraded = append(degraded, s)
			j.logger.Warn("endpoint degraded",
				clog.String("endpoint", key),
				clog.String("state", s.State.String()),
				clog.Int("window_failures", s.WindowFailures),
				clog.Time("since", s.LastStateChange))
		}
	}
	if j.guards != nil {
		for host, state := range j.guards() {
			if state != "closed" {
				j.logger.Warn("remote host guarded", clog.String("host", host), clog.String("state", state))
			}
		}
	}

	stats := j.ev.Stats()
	j.logger.Info("cache status",
		clog.Int("entries", stats.Entries),
		clog.Int64("bytes", stats.TotalSize),
		clog.Int("degraded_endpoints", len(degraded)))
	return degraded
}

func (j *Janitor) record(job string, removed int) {
	ctx := context.Background()
	j.runs.Inc(ctx, metrics.L(LabelJob, job))
	if removed > 0 {
		j.removed.Add(ctx, float64(removed), metrics.L(LabelJob, job))
	}
}
