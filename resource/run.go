package resource

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/metrics"
)

// 指标
const (
	MetricRunsTotal     = "resource_runs_total"
	MetricFetchDuration = "resource_fetch_duration_seconds"

	LabelResource = "resource"
	LabelOutcome  = "outcome"
)

// 单次 Run 的结局
const (
	OutcomeCached    = "cached" // 未拉取
	OutcomeRefreshed = "refreshed"
	OutcomeFailed    = "failed"
	OutcomeCanceled  = "canceled"
)

// Run 启动一次资源读取，返回的通道在流程结束后关闭。
// ctx 取消后停止发出并关闭通道。Bound 无效时记录错误并直接关闭通道，
// 只有 WithErrorEmission 下才发出 SourceError。
func Run[T, R any](ctx context.Context, b Bound[T, R], opts ...Option) <-chan Result[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	// 至多两个值，缓冲后消费方提前离开也不会阻塞生产者
	out := make(chan Result[T], 2)

	if err := b.Validate(); err != nil {
		o.logger.Error("invalid resource bound", clog.String("resource", b.Name), clog.Error(err))
		if o.emitErrors {
			out <- Result[T]{Source: SourceError, Err: err}
		}
		close(out)
		return out
	}

	go func() {
		defer close(out)
		r := &runner[T, R]{b: b, o: o, out: out}
		r.run(ctx)
	}()
	return out
}

type runner[T, R any] struct {
	b   Bound[T, R]
	o   *options
	out chan<- Result[T]
}

func (r *runner[T, R]) run(ctx context.Context) {
	ctx, span := r.o.tracer.Start(ctx, "resource.run "+r.b.Name,
		trace.WithAttributes(attribute.String("resource.name", r.b.Name)))
	defer span.End()

	logger := r.o.logger.With(clog.String("resource", r.b.Name))

	local := r.query(ctx, logger)
	if !r.emit(ctx, Result[T]{Value: local, Source: SourceLocal}) {
		r.finish(ctx, span, OutcomeCanceled, nil)
		return
	}

	shouldFetch := r.b.ShouldFetch == nil || r.b.ShouldFetch(local)
	span.SetAttributes(attribute.Bool("resource.should_fetch", shouldFetch))
	if !shouldFetch {
		r.finish(ctx, span, OutcomeCached, nil)
		return
	}

	fresh, err := r.refresh(ctx)
	if err != nil {
		if ctx.Err() != nil {
			r.finish(ctx, span, OutcomeCanceled, nil)
			return
		}
		logger.Warn("resource refresh failed, serving cache", clog.Error(err))
		if r.b.OnFetchFailed != nil {
			r.b.OnFetchFailed(err)
		}
		if r.o.emitErrors {
			r.emit(ctx, Result[T]{Value: local, Source: SourceError, Err: err})
		}
		r.finish(ctx, span, OutcomeFailed, err)
		return
	}

	r.emit(ctx, Result[T]{Value: fresh, Source: SourceRemote})
	r.finish(ctx, span, OutcomeRefreshed, nil)
}

// query 读本地缓存，失败按缺失处理
func (r *runner[T, R]) query(ctx context.Context, logger clog.Logger) T {
	v, err := r.b.Query(ctx)
	if err != nil {
		logger.Warn("local read failed, treating as miss", clog.Error(err))
		var zero T
		return zero
	}
	return v
}

// refresh 拉取、保存并重读，任一步失败都视为拉取失败
func (r *runner[T, R]) refresh(ctx context.Context) (T, error) {
	var zero T

	start := time.Now()
	payload, err := r.b.Fetch(ctx)
	r.observeFetch(ctx, time.Since(start))
	if err != nil {
		return zero, err
	}
	if err := r.b.Save(ctx, payload); err != nil {
		return zero, err
	}
	return r.b.Query(ctx)
}

func (r *runner[T, R]) emit(ctx context.Context, res Result[T]) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}
	select {
	case r.out <- res:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *runner[T, R]) finish(ctx context.Context, span trace.Span, outcome string, err error) {
	span.SetAttributes(attribute.String("resource.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if counter, cerr := r.o.meter.Counter(MetricRunsTotal, "Network-bound resource runs"); cerr == nil {
		counter.Inc(context.WithoutCancel(ctx),
			metrics.L(LabelResource, metricName(r.b.Name)),
			metrics.L(LabelOutcome, outcome))
	}
}

func (r *runner[T, R]) observeFetch(ctx context.Context, d time.Duration) {
	hist, err := r.o.meter.Histogram(MetricFetchDuration, "Remote fetch latency", metrics.WithUnit("s"))
	if err != nil {
		return
	}
	hist.Record(context.WithoutCancel(ctx), d.Seconds(), metrics.L(LabelResource, metricName(r.b.Name)))
}

// metricName 去掉 ":<id>" 后缀，避免高基数标签
func metricName(name string) string {
	base, _, _ := strings.Cut(name, ":")
	return base
}
