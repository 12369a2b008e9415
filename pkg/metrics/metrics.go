package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ProviderCallsTotal   *prometheus.CounterVec
	ProviderCallDuration *prometheus.HistogramVec
	CacheLookupsTotal    *prometheus.CounterVec
	QuotaConsumed        *prometheus.GaugeVec
	StageDuration        *prometheus.HistogramVec
	KeywordsProcessed    *prometheus.CounterVec
)

func Init() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_calls_total",
			Help: "Total number of external provider calls by outcome.",
		},
		[]string{"source", "outcome"}, // outcome: cache_hit, success, retry, failure, quota_blocked
	)

	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_call_duration_seconds",
			Help:    "Duration of external provider calls.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by result (hit or miss).",
		},
		[]string{"source", "result"},
	)

	QuotaConsumed = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "quota_consumed",
			Help: "Quota units consumed per source during the current run.",
		},
		[]string{"source"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of pipeline stages.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"stage"},
	)

	KeywordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keywords_processed_total",
			Help: "Keywords processed per stage by status.",
		},
		[]string{"stage", "status"}, // status: enriched, skipped, flagged
	)
}
