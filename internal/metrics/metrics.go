package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeInvalidRequest = "invalid_request"
	OutcomeNotFound       = "not_found"
	OutcomeStoreError     = "store_error"
	OutcomeUpstreamError  = "upstream_error"
	OutcomeRelayed        = "relayed"
)

var (
	FeedbackRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feedback",
			Subsystem: "relay",
			Name:      "requests_total",
			Help:      "Feedback requests by outcome",
		},
		[]string{"outcome"},
	)

	FallbackMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feedback",
			Subsystem: "relay",
			Name:      "fallback_messages_total",
			Help:      "Requests whose stored conversation was replaced by the fallback notice",
		},
		[]string{"reason"},
	)

	UpstreamResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feedback",
			Subsystem: "relay",
			Name:      "upstream_responses_total",
			Help:      "Upstream completion responses by HTTP status",
		},
		[]string{"status"},
	)

	StoreLookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "feedback",
			Subsystem: "relay",
			Name:      "store_lookup_duration_seconds",
			Help:      "Prompt store lookup latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"driver"},
	)

	RelayedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "feedback",
			Subsystem: "relay",
			Name:      "relayed_bytes_total",
			Help:      "Bytes streamed from the upstream to callers",
		},
	)
)

func RecordOutcome(outcome string) {
	FeedbackRequestsTotal.WithLabelValues(outcome).Inc()
}

func RecordUpstreamStatus(status int) {
	UpstreamResponsesTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}
