package provider

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/kgfed/internal/core/model"
	"github.com/agenthands/kgfed/internal/core/scheduler"
)

var tracer = otel.Tracer("kgfed.provider")

const DefaultConcurrency = 8

// Federation executes a query edge against every provider concurrently.
// A failing provider is counted and logged; the others still contribute.
type Federation struct {
	Providers   []Provider
	Concurrency int
	Logger      *slog.Logger
}

func NewFederation(providers []Provider, concurrency int, logger *slog.Logger) *Federation {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Federation{Providers: providers, Concurrency: concurrency, Logger: logger}
}

type outcome struct {
	records []model.Record
	called  bool
	failed  bool
	skipped bool
}

// ExecuteEdge implements scheduler.EdgeExecutor. Returned records are
// annotated with qNodeIDs and hashes and are in query direction.
func (f *Federation) ExecuteEdge(ctx context.Context, e *model.QEdge) (scheduler.Batch, error) {
	q := NewEdgeQuery(e)
	ctx, span := tracer.Start(ctx, "Federation.ExecuteEdge",
		trace.WithAttributes(
			attribute.String("qedge", e.ID),
			attribute.Int("input_ids", len(q.InputIDs)),
			attribute.Int("providers", len(f.Providers)),
		),
	)
	defer span.End()

	outcomes := make([]outcome, len(f.Providers))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(f.Concurrency)

	for i, p := range f.Providers {
		if !p.Supports(q) {
			continue
		}
		i, p := i, p
		g.Go(func() error {
			if a, ok := p.(Availability); ok && !a.Available(gCtx) {
				outcomes[i].skipped = true
				providerCalls.WithLabelValues(p.Name(), "skipped").Inc()
				return nil
			}

			start := time.Now()
			records, err := p.Fetch(gCtx, q)
			providerLatency.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				outcomes[i].failed = true
				providerCalls.WithLabelValues(p.Name(), "failed").Inc()
				f.Logger.Warn("provider call failed",
					slog.String("provider", p.Name()),
					slog.String("qedge", e.ID),
					slog.Any("error", err),
				)
				return nil
			}
			providerCalls.WithLabelValues(p.Name(), "ok").Inc()
			outcomes[i].called = true
			outcomes[i].records = records
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return scheduler.Batch{}, err
	}

	var batch scheduler.Batch
	var records []model.Record
	for i, o := range outcomes {
		name := f.Providers[i].Name()
		switch {
		case o.skipped:
			addCount(&batch.Diagnostics.Skipped, name)
		case o.failed:
			batch.Diagnostics.Queried++
			addCount(&batch.Diagnostics.Failed, name)
		case o.called:
			batch.Diagnostics.Queried++
			records = append(records, o.records...)
		}
	}
	batch.Records = model.AnnotateForEdge(records, e)

	span.SetAttributes(attribute.Int("records", len(batch.Records)))
	return batch, nil
}

func addCount(m *map[string]int, key string) {
	if *m == nil {
		*m = make(map[string]int)
	}
	(*m)[key]++
}
