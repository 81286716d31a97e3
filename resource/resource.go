// Package resource 实现“读本地 → 判断 → 拉取 → 持久化 → 重读”的网络绑定资源协调器。
//
// 协调器是通用管道，本身不查询熔断器和缓存策略；调用方在 ShouldFetch 中组合
// breaker.Allow 与 cachepolicy.IsFresh，并在 Fetch 中记录成功失败。
//
// 输出流的顺序固定：
//
//  1. 本地值（SourceLocal），总是先于任何拉取
//  2. ShouldFetch 返回 false 时结束
//  3. 拉取成功：Save → Query 重读 → 发出重读结果（SourceRemote）
//  4. 拉取失败：OnFetchFailed 恰好调用一次后结束，不向流中发出错误
//
// 默认静默回退到缓存；需要在流中观察失败时使用 WithErrorEmission。
//
//	ch := resource.Run(ctx, resource.Bound[[]model.Product, []model.Product]{
//		Name:        "products",
//		Query:       store.ListProducts,
//		Fetch:       client.ListProducts,
//		Save:        store.SaveProducts,
//		ShouldFetch: func(cached []model.Product) bool { return len(cached) == 0 || !ev.IsFresh("products") },
//	})
//	for r := range ch {
//		render(r.Value)
//	}
package resource

import (
	"context"

	"github.com/noghresod/shopsync/xerrors"
)

// Source 结果来源
type Source int

const (
	SourceLocal  Source = iota // 本地缓存
	SourceRemote               // 拉取并持久化后重读
	SourceError                // 失败，Value 为最后一次本地值（仅 WithErrorEmission）
)

func (s Source) String() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceRemote:
		return "remote"
	case SourceError:
		return "error"
	default:
		return "unknown"
	}
}

// Result 输出流中的一个值
type Result[T any] struct {
	Value  T
	Source Source
	Err    error // 仅 SourceError 时非空
}

// Bound 描述一次资源读取，T 为本地类型，R 为远端载荷类型
type Bound[T, R any] struct {
	// Name 用于日志、指标和 span，如 "products"、"orders:42"
	Name string

	// Query 读取本地缓存，缺失时返回零值而不是错误
	Query func(ctx context.Context) (T, error)

	// Fetch 请求远端
	Fetch func(ctx context.Context) (R, error)

	// Save 将远端载荷写入本地缓存
	Save func(ctx context.Context, payload R) error

	// ShouldFetch 根据本地值决定是否拉取，nil 表示总是拉取
	ShouldFetch func(local T) bool

	// OnFetchFailed 拉取、保存或重读失败时调用，每次 Run 至多一次
	OnFetchFailed func(err error)
}

// Validate 检查必填函数
func (b Bound[T, R]) Validate() error {
	switch {
	case b.Query == nil:
		return xerrors.Wrap(ErrInvalidBound, "query is nil")
	case b.Fetch == nil:
		return xerrors.Wrap(ErrInvalidBound, "fetch is nil")
	case b.Save == nil:
		return xerrors.Wrap(ErrInvalidBound, "save is nil")
	}
	return nil
}

// ErrInvalidBound Bound 缺少必填函数
var ErrInvalidBound = xerrors.Wrap(xerrors.ErrInvalidInput, "resource: invalid bound")

// Last 读完整个流并返回最后一个值，流为空时 ok 为 false
func Last[T any](ch <-chan Result[T]) (last Result[T], ok bool) {
	for r := range ch {
		last, ok = r, true
	}
	return last, ok
}

// Collect 读完整个流并返回全部值
func Collect[T any](ch <-chan Result[T]) []Result[T] {
	var out []Result[T]
	for r := range ch {
		out = append(out, r)
	}
	return out
}
