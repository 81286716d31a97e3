// Package clog 为 shopsync 提供基于 slog 的结构化日志组件。
//
// 特性：
//   - 抽象接口，不暴露底层实现（slog）
//   - 层级命名空间，每个组件通过 WithNamespace 获得自己的子 Logger
//   - 文件输出按大小滚动（lumberjack）
//   - 函数式选项：命名空间、Context 字段提取
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{Level: "info", Format: "json"})
//	logger.Info("sync finished", clog.String("resource", "products"))
//
// 组件内部约定：
//
//	logger = logger.WithNamespace("breaker")
package clog

import "context"

// Logger 日志接口
//
// 每个级别都有带 Context 和不带 Context 的版本，带 Context 的版本会
// 按 WithContextField 配置的规则提取字段。
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)
	FatalContext(ctx context.Context, msg string, fields ...Field)

	// With 创建一个带有预设字段的子 Logger
	With(fields ...Field) Logger

	// WithNamespace 创建一个扩展命名空间的子 Logger，
	// 例如 "shopsync" 下调用 WithNamespace("repository", "cart") 得到 "shopsync.repository.cart"
	WithNamespace(parts ...string) Logger

	// SetLevel 动态调整日志级别，对同一根 Logger 派生出的所有子 Logger 生效
	SetLevel(level Level) error

	// Flush 同步缓冲区，进程退出前调用
	Flush()
}
