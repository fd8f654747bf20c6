package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Rule evaluations by outcome: matched, no_match.
	RuleEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rule_evaluations_total",
			Help: "Total number of rule engine evaluations",
		},
		[]string{"outcome"},
	)

	// Dispatch latency per action type and status.
	DispatchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "action_dispatch_latency_ms",
			Help:    "Action dispatch latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"action", "status"},
	)

	// MQ consumption latency.
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
		[]string{"routing_key", "queue"},
	)

	// HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Replies sent by result: success, failed, capped.
	RepliesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replies_sent_total",
			Help: "Total number of auto-reply dispatch attempts",
		},
		[]string{"result"},
	)
)

func RecordRuleEvaluation(outcome string) {
	RuleEvaluations.WithLabelValues(outcome).Inc()
}

func RecordDispatchLatency(action, status string, duration time.Duration) {
	DispatchLatency.WithLabelValues(action, status).Observe(float64(duration.Milliseconds()))
}

func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func RecordReplySent(result string) {
	RepliesSent.WithLabelValues(result).Inc()
}
