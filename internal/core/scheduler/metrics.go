package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// edgesExecuted counts query edges sent off for execution.
	edgesExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kgfed",
		Subsystem: "scheduler",
		Name:      "edges_executed_total",
		Help:      "Total query edges executed",
	})

	// recordsFiltered counts records by filtering outcome.
	// Labels: outcome (kept, self_loop, unreachable, constraint)
	recordsFiltered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kgfed",
		Subsystem: "scheduler",
		Name:      "records_filtered_total",
		Help:      "Records processed by edge filtering, by outcome",
	}, []string{"outcome"})

	// terminations counts queries that ended without results.
	// Labels: reason (entity_max, no_records, broken_chain)
	terminations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kgfed",
		Subsystem: "scheduler",
		Name:      "terminations_total",
		Help:      "Queries terminated by the scheduler, by reason",
	}, []string{"reason"})

	// cacheHits counts edges served from the record cache.
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kgfed",
		Subsystem: "scheduler",
		Name:      "cache_hits_total",
		Help:      "Query edges answered from the record cache",
	})
)
