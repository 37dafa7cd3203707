package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	providerCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kgfed",
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Provider calls by provider and outcome (ok, failed, skipped)",
		},
		[]string{"provider", "outcome"},
	)

	providerLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kgfed",
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "Provider call latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
)
