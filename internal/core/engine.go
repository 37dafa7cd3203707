// Package core runs a query graph end to end: validation, edge scheduling,
// result assembly and scoring.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agenthands/kgfed/internal/config"
	"github.com/agenthands/kgfed/internal/core/model"
	"github.com/agenthands/kgfed/internal/core/querylog"
	"github.com/agenthands/kgfed/internal/core/results"
	"github.com/agenthands/kgfed/internal/core/scheduler"
	"github.com/agenthands/kgfed/internal/core/scoring"
)

var tracer = otel.Tracer("kgfed.core")

type Status string

const (
	StatusSuccess    Status = "Success"
	StatusTerminated Status = "Terminated"
)

type Response struct {
	QueryID string           `json:"query_id"`
	Status  Status           `json:"status"`
	Results []model.Result   `json:"results"`
	Logs    []querylog.Entry `json:"logs"`
}

type Engine struct {
	Executor    scheduler.EdgeExecutor
	Cache       scheduler.RecordCache
	Relatedness results.RelatednessLookup
	Resolver    model.Resolver
	Scorer      *scoring.Scorer
	Scheduler   scheduler.Config
	Logger      *slog.Logger

	UUIDGenerator func() string
}

// NewEngine wires an Engine from configuration. cache and relatedness may be nil.
func NewEngine(exec scheduler.EdgeExecutor, cache scheduler.RecordCache, relatedness results.RelatednessLookup,
	resolver model.Resolver, cfg *config.Config, logger *slog.Logger) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if resolver == nil {
		resolver = model.NopResolver{}
	}
	w := scoring.Weights{
		TuningParam:           cfg.Scoring.TuningParam,
		RecordWeight:          cfg.Scoring.RecordWeight,
		TextMinedRecordWeight: cfg.Scoring.TextMinedRecordWeight,
		RelatednessWeight:     cfg.Scoring.RelatednessWeight,
		LengthPenalty:         cfg.Scoring.LengthPenalty,
	}
	return &Engine{
		Executor:      exec,
		Cache:         cache,
		Relatedness:   relatedness,
		Resolver:      resolver,
		Scorer:        scoring.NewScorer(w, cfg.Scoring.TextMinedSources),
		Scheduler:     scheduler.Config{EntityMax: cfg.Scheduler.EntityMax},
		Logger:        logger,
		UUIDGenerator: newQueryID,
	}
}

func newQueryID() string {
	return uuid.New().String()
}

// Query runs one query graph. Invalid graphs return an error wrapping
// model.ErrInvalidQueryGraph. Queries that terminate early are not errors;
// they return a Terminated response with no results.
func (e *Engine) Query(ctx context.Context, g model.QueryGraph) (*Response, error) {
	queryID := e.UUIDGenerator()
	ctx, span := tracer.Start(ctx, "Engine.Query",
		trace.WithAttributes(
			attribute.String("query_id", queryID),
			attribute.Int("qedges", len(g.Edges)),
			attribute.Int("qnodes", len(g.Nodes)),
		),
	)
	defer span.End()

	start := time.Now()
	logger := e.Logger.With(slog.String("query_id", queryID))

	if err := g.Validate(); err != nil {
		queriesTotal.WithLabelValues("invalid").Inc()
		span.SetStatus(codes.Error, "invalid query graph")
		return nil, err
	}

	edges, nodes, err := g.Build(e.Resolver)
	if err != nil {
		queriesTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	log := querylog.New(logger)
	log.Add(querylog.LevelInfo, "Query graph has %d nodes and %d edges", len(nodes), len(edges))

	var exec scheduler.EdgeExecutor = e.Executor
	if e.Cache != nil {
		exec = scheduler.NewCachedExecutor(exec, e.Cache, log)
	}

	manager := scheduler.NewEdgeManager(edges, e.Scheduler, log)
	if err := manager.Run(ctx, exec); err != nil {
		if !scheduler.IsTermination(err) {
			queriesTotal.WithLabelValues("error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("query %s: %w", queryID, err)
		}
		queriesTotal.WithLabelValues("terminated").Inc()
		queryDuration.Observe(time.Since(start).Seconds())
		span.SetAttributes(attribute.String("termination", terminationReason(err)))
		logger.Info("query terminated", slog.String("reason", err.Error()))
		return &Response{
			QueryID: queryID,
			Status:  StatusTerminated,
			Results: []model.Result{},
			Logs:    log.Entries(),
		}, nil
	}

	assembler, err := results.NewAssembler(nodes, e.Scorer, e.Relatedness, log)
	if err != nil {
		queriesTotal.WithLabelValues("error").Inc()
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query %s: %w", queryID, err)
	}
	res := assembler.Update(ctx, manager.RecordsByQEdgeID())

	queriesTotal.WithLabelValues("success").Inc()
	queryDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("results", len(res)))
	logger.Info("query finished",
		slog.Int("results", len(res)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return &Response{
		QueryID: queryID,
		Status:  StatusSuccess,
		Results: res,
		Logs:    log.Entries(),
	}, nil
}

func terminationReason(err error) string {
	switch {
	case errors.Is(err, scheduler.ErrEntityMaxExceeded):
		return "entity_max"
	case errors.Is(err, scheduler.ErrBrokenChain):
		return "broken_chain"
	}
	return "no_records"
}
