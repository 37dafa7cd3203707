package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kgfed",
			Subsystem: "engine",
			Name:      "queries_total",
			Help:      "Queries handled, by outcome",
		},
		[]string{"outcome"},
	)

	queryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "kgfed",
			Subsystem: "engine",
			Name:      "query_duration_seconds",
			Help:      "Time to run a query graph, including provider calls",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
	)
)
