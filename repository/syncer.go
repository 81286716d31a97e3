package repository

import (
	"context"

	"github.com/noghresod/shopsync/breaker"
	"github.com/noghresod/shopsync/cachepolicy"
	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/metrics"
	"github.com/noghresod/shopsync/resource"
	"github.com/noghresod/shopsync/store"
	"github.com/noghresod/shopsync/xerrors"
)

// syncSpec 一个缓存 key 的同步方式
type syncSpec[T, R any] struct {
	key      string
	endpoint string
	policy   cachepolicy.Policy
	query    func(ctx context.Context) (T, error)
	fetch    func(ctx context.Context) (R, error)
	save     func(ctx context.Context, payload R) error
}

// syncKey 把 spec 组装成 resource.Bound 并运行
//
// 拉取判定：未强制刷新且缓存新鲜时不拉取（登记一次访问）；否则询问熔断器。
// 远端调用的结果按 record 的规则记入熔断器。保存前登记缓存元数据，保存失败则撤销。
func syncKey[T, R any](ctx context.Context, r *Repository, force bool, spec syncSpec[T, R]) <-chan resource.Result[T] {
	logger := r.logger.With(clog.String("key", spec.key))

	bound := resource.Bound[T, R]{
		Name:  spec.key,
		Query: spec.query,
		Fetch: func(ctx context.Context) (R, error) {
			payload, err := spec.fetch(ctx)
			r.record(ctx, spec.endpoint, err)
			return payload, err
		},
		Save: func(ctx context.Context, payload R) error {
			// 先登记元数据再写数据：登记可能触发 LRU 淘汰并清理其他 key 的数据，
			// 之后的写入保证本次结果不会被清理掉
			if err := r.ev.Update(spec.key, spec.policy, cachepolicy.WithSize(store.SizeOf(payload))); err != nil {
				return err
			}
			if err := spec.save(ctx, payload); err != nil {
				r.ev.Invalidate(spec.key, false)
				return err
			}
			return nil
		},
		ShouldFetch: func(T) bool {
			if !force && r.ev.Status(spec.key) == cachepolicy.StatusFresh {
				r.ev.RecordAccess(spec.key)
				return false
			}
			if !r.brk.Allow(spec.endpoint) {
				logger.Debug("fetch skipped, breaker open", clog.String("endpoint", spec.endpoint))
				return false
			}
			return true
		},
		OnFetchFailed: func(err error) {
			logger.Warn("sync failed, serving local data",
				clog.String("endpoint", spec.endpoint),
				clog.ErrorWithCode(err, ""))
		},
	}
	return resource.Run(ctx, bound, r.runOpts...)
}

// mutate 远端优先的写操作：熔断器放行后调用远端
func mutate[R any](ctx context.Context, r *Repository, endpoint string, call func(ctx context.Context) (R, error)) (R, error) {
	var zero R
	if !r.brk.Allow(endpoint) {
		r.mutations.Inc(ctx, metrics.L("op", endpoint), metrics.L("outcome", "rejected"))
		return zero, xerrors.Wrapf(breaker.ErrOpenState, "repository: %s", endpoint)
	}

	out, err := call(ctx)
	r.record(ctx, endpoint, err)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		r.logger.WarnContext(ctx, "mutation failed", clog.String("endpoint", endpoint), clog.ErrorWithCode(err, ""))
	}
	r.mutations.Inc(ctx, metrics.L("op", endpoint), metrics.L("outcome", outcome))
	return out, err
}

// record 把一次远端调用的结果记入熔断器：
// 不可用类错误（超时、连接失败、5xx、429）计为失败，调用方取消不计，
// 其他错误（404、409 等）说明 endpoint 本身可用，计为成功
func (r *Repository) record(ctx context.Context, endpoint string, err error) {
	switch {
	case err == nil:
		r.brk.RecordSuccess(endpoint)
	case ctx.Err() != nil:
	case xerrors.IsUnavailable(err):
		r.brk.RecordFailure(endpoint)
	default:
		r.brk.RecordSuccess(endpoint)
	}
}

// commit 写操作成功后的本地更新失败只记录日志，远端已经生效
func (r *Repository) commit(ctx context.Context, what string, err error) {
	if err != nil {
		r.logger.ErrorContext(ctx, "local update after mutation failed", clog.String("what", what), clog.Error(err))
	}
}
