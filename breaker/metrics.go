package breaker

// 指标名称
const (
	// MetricRequestsTotal Allow 调用次数，按 result=allowed|rejected 区分 (Counter)
	MetricRequestsTotal = "breaker_requests_total"

	// MetricOutcomesTotal 记录的结果数，按 result=success|failure 区分 (Counter)
	MetricOutcomesTotal = "breaker_outcomes_total"

	// MetricStateChanges 状态变更次数 (Counter)
	MetricStateChanges = "breaker_state_changes_total"

	// MetricOpenEndpoints 当前处于 Open 的 endpoint 数 (Gauge)
	MetricOpenEndpoints = "breaker_open_endpoints"
)

// 标签
const (
	LabelEndpoint  = "endpoint"
	LabelFromState = "from_state"
	LabelToState   = "to_state"
	LabelResult    = "result"
)
