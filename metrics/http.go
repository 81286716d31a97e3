package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/noghresod/shopsync/xerrors"
)

// 通用标签
const (
	LabelService     = "service"
	LabelOperation   = "operation"
	LabelMethod      = "method"
	LabelRoute       = "route"
	LabelStatusClass = "status_class"
	LabelOutcome     = "outcome"
)

// 操作类型
const (
	OperationHTTPServer = "http.server"
	OperationHTTPClient = "http.client"
)

// 结果取值
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// UnknownRoute 未命中路由时的统一取值，避免原始路径带来高基数
const UnknownRoute = "unknown"

var defaultHTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// HTTPStatusClass 返回 "2xx" 形式的状态分类，status 为 0 表示请求未得到响应
func HTTPStatusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// HTTPOutcome 2xx/3xx 视为成功
func HTTPOutcome(status int) string {
	if status >= 200 && status < 400 {
		return OutcomeSuccess
	}
	return OutcomeError
}

// HTTPMetrics HTTP 请求的 RED 指标集，服务端（gin 中间件）和客户端（remote）共用
type HTTPMetrics struct {
	service      string
	operation    string
	requestTotal Counter
	duration     Histogram
}

// NewHTTPMetrics 创建 HTTP 指标，operation 取 OperationHTTPServer 或 OperationHTTPClient
func NewHTTPMetrics(m Meter, service, operation string) (*HTTPMetrics, error) {
	if m == nil {
		return nil, xerrors.New("metrics: meter is nil")
	}
	if strings.TrimSpace(service) == "" {
		service = "unknown"
	}

	prefix := strings.ReplaceAll(operation, ".", "_")
	counter, err := m.Counter(prefix+"_requests_total", "Total number of HTTP requests.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create http request counter")
	}
	duration, err := m.Histogram(prefix+"_request_duration_seconds", "HTTP request duration in seconds.",
		WithUnit("s"), WithBuckets(defaultHTTPDurationBuckets))
	if err != nil {
		return nil, xerrors.Wrap(err, "create http request duration histogram")
	}

	return &HTTPMetrics{
		service:      service,
		operation:    operation,
		requestTotal: counter,
		duration:     duration,
	}, nil
}

// Observe 记录一次 HTTP 请求
func (m *HTTPMetrics) Observe(ctx context.Context, method string, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	if strings.TrimSpace(route) == "" {
		route = UnknownRoute
	}

	labels := []Label{
		L(LabelService, m.service),
		L(LabelOperation, m.operation),
		L(LabelMethod, method),
		L(LabelRoute, route),
		L(LabelStatusClass, HTTPStatusClass(status)),
		L(LabelOutcome, HTTPOutcome(status)),
	}
	m.requestTotal.Inc(ctx, labels...)
	m.duration.Record(ctx, duration.Seconds(), labels...)
}
