package ratelimit

const (
	// MetricDecisions 限流判定次数 (Counter)
	MetricDecisions = "ratelimit_decisions_total"

	// MetricWaitDuration Wait 阻塞时长 (Histogram)
	MetricWaitDuration = "ratelimit_wait_duration_seconds"

	// MetricBuckets 当前存活的令牌桶数 (Gauge)
	MetricBuckets = "ratelimit_buckets"

	// LabelResult 判定结果标签 (allowed/denied)
	LabelResult = "result"
)
