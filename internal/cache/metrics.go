package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kgfed",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Record cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)

	stored = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kgfed",
			Subsystem: "cache",
			Name:      "records_stored_total",
			Help:      "Records written to the cache",
		},
	)
)
