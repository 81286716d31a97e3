package breaker

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/metrics"
)

// circuitRecord 单个 endpoint 的状态
type circuitRecord struct {
	state           State
	window          *failureWindow
	successCount    int
	failureCount    int
	lastStateChange time.Time
	lastFailure     time.Time
}

// transition 一次状态变化，在锁外上报
type transition struct {
	key      string
	from, to State
	at       time.Time
}

// circuitBreaker Breaker 的实现，所有 endpoint 共享一把锁
type circuitBreaker struct {
	cfg    Config
	logger clog.Logger
	now    func() time.Time
	hooks  []StateChangeHook

	mu      sync.Mutex
	records map[string]*circuitRecord
	open    int // 处于 Open 的 endpoint 数

	requests     metrics.Counter
	outcomes     metrics.Counter
	stateChanges metrics.Counter
	openGauge    metrics.Gauge
}

func newCircuitBreaker(cfg Config, o options) *circuitBreaker {
	cb := &circuitBreaker{
		cfg:     cfg,
		logger:  o.logger,
		now:     o.now,
		hooks:   o.hooks,
		records: make(map[string]*circuitRecord),
	}
	cb.initMetrics(o.meter)
	return cb
}

func (cb *circuitBreaker) initMetrics(meter metrics.Meter) {
	var err error
	noop := metrics.Discard()
	if cb.requests, err = meter.Counter(MetricRequestsTotal, "Circuit breaker admission decisions"); err != nil {
		cb.logger.Warn("create breaker metric failed", clog.String("metric", MetricRequestsTotal), clog.Error(err))
		cb.requests, _ = noop.Counter(MetricRequestsTotal, "")
	}
	if cb.outcomes, err = meter.Counter(MetricOutcomesTotal, "Recorded call outcomes"); err != nil {
		cb.logger.Warn("create breaker metric failed", clog.String("metric", MetricOutcomesTotal), clog.Error(err))
		cb.outcomes, _ = noop.Counter(MetricOutcomesTotal, "")
	}
	if cb.stateChanges, err = meter.Counter(MetricStateChanges, "Circuit breaker state transitions"); err != nil {
		cb.logger.Warn("create breaker metric failed", clog.String("metric", MetricStateChanges), clog.Error(err))
		cb.stateChanges, _ = noop.Counter(MetricStateChanges, "")
	}
	if cb.openGauge, err = meter.Gauge(MetricOpenEndpoints, "Endpoints currently in open state"); err != nil {
		cb.logger.Warn("create breaker metric failed", clog.String("metric", MetricOpenEndpoints), clog.Error(err))
		cb.openGauge, _ = noop.Gauge(MetricOpenEndpoints, "")
	}
}

// record 获取或创建 key 的状态，调用方持有锁
func (cb *circuitBreaker) record(key string) *circuitRecord {
	r, ok := cb.records[key]
	if !ok {
		r = &circuitRecord{
			state:           StateClosed,
			window:          newFailureWindow(cb.cfg.WindowCapacity),
			lastStateChange: cb.now(),
		}
		cb.records[key] = r
	}
	return r
}

// setState 修改状态并返回待上报的 transition，调用方持有锁
func (cb *circuitBreaker) setState(key string, r *circuitRecord, to State, now time.Time) *transition {
	from := r.state
	if from == to {
		return nil
	}
	if from == StateOpen {
		cb.open--
	}
	if to == StateOpen {
		cb.open++
	}
	r.state = to
	r.lastStateChange = now
	r.successCount = 0
	r.failureCount = 0
	return &transition{key: key, from: from, to: to, at: now}
}

func (cb *circuitBreaker) Allow(key string) bool {
	cb.mu.Lock()
	now := cb.now()
	r := cb.record(key)

	var allowed bool
	var tr *transition
	switch r.state {
	case StateClosed:
		allowed = true
	case StateOpen:
		if now.Sub(r.lastStateChange) >= cb.cfg.Timeout {
			tr = cb.setState(key, r, StateHalfOpen, now)
			allowed = true
		}
	case StateHalfOpen:
		allowed = r.successCount+r.failureCount < cb.cfg.HalfOpenMaxRequests
	}
	openCount := cb.open
	cb.mu.Unlock()

	result := "allowed"
	if !allowed {
		result = "rejected"
	}
	cb.requests.Inc(context.Background(), metrics.L(LabelEndpoint, key), metrics.L(LabelResult, result))
	cb.report(tr, openCount)
	return allowed
}

func (cb *circuitBreaker) RecordSuccess(key string) {
	cb.mu.Lock()
	now := cb.now()
	r := cb.record(key)

	var tr *transition
	switch r.state {
	case StateClosed:
		r.window.clear()
	case StateHalfOpen:
		r.successCount++
		if r.successCount >= cb.cfg.SuccessThreshold {
			tr = cb.setState(key, r, StateClosed, now)
			r.window.clear()
		}
	case StateOpen:
		// Open 下的迟到结果不影响状态
	}
	openCount := cb.open
	cb.mu.Unlock()

	cb.outcomes.Inc(context.Background(), metrics.L(LabelEndpoint, key), metrics.L(LabelResult, "success"))
	cb.report(tr, openCount)
}

func (cb *circuitBreaker) RecordFailure(key string) {
	cb.mu.Lock()
	now := cb.now()
	r := cb.record(key)

	r.window.purge(now, cb.cfg.WindowSize)
	r.window.add(now)
	r.lastFailure = now

	var tr *transition
	switch r.state {
	case StateClosed:
		if r.window.len() >= cb.cfg.FailureThreshold {
			tr = cb.setState(key, r, StateOpen, now)
		}
	case StateHalfOpen:
		r.failureCount++
		tr = cb.setState(key, r, StateOpen, now)
	case StateOpen:
	}
	openCount := cb.open
	cb.mu.Unlock()

	cb.outcomes.Inc(context.Background(), metrics.L(LabelEndpoint, key), metrics.L(LabelResult, "failure"))
	cb.report(tr, openCount)
}

func (cb *circuitBreaker) State(key string) State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if r, ok := cb.records[key]; ok {
		return r.state
	}
	return StateClosed
}

func (cb *circuitBreaker) Reset(key string) {
	cb.mu.Lock()
	var tr *transition
	if r, ok := cb.records[key]; ok {
		tr = cb.setState(key, r, StateClosed, cb.now())
		r.window.clear()
		r.lastFailure = time.Time{}
	}
	openCount := cb.open
	cb.mu.Unlock()

	cb.logger.Info("circuit breaker manually reset", clog.String(LabelEndpoint, key))
	cb.report(tr, openCount)
}

func (cb *circuitBreaker) ResetAll() {
	cb.mu.Lock()
	now := cb.now()
	var trs []*transition
	for key, r := range cb.records {
		if tr := cb.setState(key, r, StateClosed, now); tr != nil {
			trs = append(trs, tr)
		}
		r.window.clear()
		r.lastFailure = time.Time{}
	}
	openCount := cb.open
	cb.mu.Unlock()

	cb.logger.Info("all circuit breakers reset", clog.Int("transitions", len(trs)))
	for _, tr := range trs {
		cb.report(tr, openCount)
	}
}

func (cb *circuitBreaker) Execute(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if !cb.Allow(key) {
		return ErrOpenState
	}
	if err := fn(ctx); err != nil {
		cb.RecordFailure(key)
		return err
	}
	cb.RecordSuccess(key)
	return nil
}

func (cb *circuitBreaker) Snapshot(key string) Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s := Stats{Key: key, State: StateClosed}
	r, ok := cb.records[key]
	if !ok {
		return s
	}
	s.State = r.state
	s.WindowFailures = r.window.count(cb.now(), cb.cfg.WindowSize)
	s.SuccessCount = r.successCount
	s.FailureCount = r.failureCount
	s.LastStateChange = r.lastStateChange
	s.LastFailure = r.lastFailure
	return s
}

func (cb *circuitBreaker) Keys() []string {
	cb.mu.Lock()
	keys := make([]string, 0, len(cb.records))
	for k := range cb.records {
		keys = append(keys, k)
	}
	cb.mu.Unlock()
	slices.Sort(keys)
	return keys
}

// report 上报状态变化：日志、指标、回调
func (cb *circuitBreaker) report(tr *transition, openCount int) {
	if tr == nil {
		return
	}
	ctx := context.Background()

	fields := []clog.Field{
		clog.String(LabelEndpoint, tr.key),
		clog.String(LabelFromState, tr.from.String()),
		clog.String(LabelToState, tr.to.String()),
		clog.Time("at", tr.at),
	}
	if tr.to == StateOpen {
		cb.logger.Warn("circuit breaker state changed", fields...)
	} else {
		cb.logger.Info("circuit breaker state changed", fields...)
	}

	cb.stateChanges.Inc(ctx,
		metrics.L(LabelEndpoint, tr.key),
		metrics.L(LabelFromState, tr.from.String()),
		metrics.L(LabelToState, tr.to.String()),
	)
	cb.openGauge.Set(ctx, float64(openCount))

	for _, hook := range cb.hooks {
		hook(tr.key, tr.from, tr.to)
	}
}
