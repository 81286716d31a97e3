package clog

import (
	"context"
	"log/slog"
	"strings"
)

// NamespaceKey 日志中命名空间的字段名
const NamespaceKey = "namespace"

// extractContextFields 从 context 中提取配置的字段
func extractContextFields(ctx context.Context, options *options, attrs *[]slog.Attr) {
	if ctx == nil || options == nil || len(options.contextFields) == 0 {
		return
	}
	for _, cf := range options.contextFields {
		if val := ctx.Value(cf.Key); val != nil {
			*attrs = append(*attrs, slog.Any(cf.FieldName, val))
		}
	}
}

// addNamespaceField 追加 namespace 字段
func addNamespaceField(options *options, attrs *[]slog.Attr) {
	if options == nil || len(options.namespaceParts) == 0 {
		return
	}
	*attrs = append(*attrs, slog.String(NamespaceKey, strings.Join(options.namespaceParts, ".")))
}
