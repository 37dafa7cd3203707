package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agenthands/kgfed/internal/core/model"
	"github.com/agenthands/kgfed/internal/core/querylog"
)

var tracer = otel.Tracer("kgfed.scheduler")

// Diagnostics summarises provider behaviour for one edge execution.
type Diagnostics struct {
	Queried int            `json:"queried"`
	Failed  map[string]int `json:"failed,omitempty"`
	Skipped map[string]int `json:"skipped,omitempty"`
}

func (d *Diagnostics) Merge(other Diagnostics) {
	d.Queried += other.Queried
	for k, v := range other.Failed {
		if d.Failed == nil {
			d.Failed = make(map[string]int)
		}
		d.Failed[k] += v
	}
	for k, v := range other.Skipped {
		if d.Skipped == nil {
			d.Skipped = make(map[string]int)
		}
		d.Skipped[k] += v
	}
}

// Batch is what executing one edge produced. Records are in query direction
// and annotated with qNodeIDs.
type Batch struct {
	Records     []model.Record
	Diagnostics Diagnostics
}

// EdgeExecutor translates a QEdge into provider calls and returns the records.
type EdgeExecutor interface {
	ExecuteEdge(ctx context.Context, edge *model.QEdge) (Batch, error)
}

// ExecutorFunc adapts a function to EdgeExecutor.
type ExecutorFunc func(ctx context.Context, edge *model.QEdge) (Batch, error)

func (f ExecutorFunc) ExecuteEdge(ctx context.Context, edge *model.QEdge) (Batch, error) {
	return f(ctx, edge)
}

// Run executes every edge one at a time, narrowing candidates after each,
// and collects the surviving records. It returns a termination error
// (see IsTermination) when the query cannot produce results, or the
// context error when ctx ends between edges.
func (m *EdgeManager) Run(ctx context.Context, exec EdgeExecutor) error {
	for m.EdgesNotExecuted() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		e := m.GetNext()
		if err := m.CheckEntityMax(e); err != nil {
			terminations.WithLabelValues("entity_max").Inc()
			m.log.Add(querylog.LevelError, "%v. Your query terminates.", err)
			return err
		}

		records, err := m.executeEdge(ctx, e, exec)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			terminations.WithLabelValues("no_records").Inc()
			m.log.Add(querylog.LevelWarning, "qEdge (%s) got 0 records. Your query terminates.", e.ID)
			return fmt.Errorf("%w: qEdge %s got 0 records", ErrNoRecords, e.ID)
		}

		e.StoreRecords(records)
		m.UpdateEdgeRecords(e)
		m.UpdateAllOtherEdges(e)

		if len(e.Records) == 0 {
			terminations.WithLabelValues("no_records").Inc()
			m.log.Add(querylog.LevelWarning, "qEdge (%s) kept 0 records. Your query terminates.", e.ID)
			return fmt.Errorf("%w: qEdge %s kept 0 records", ErrNoRecords, e.ID)
		}
		e.Executed = true
		m.log.Add(querylog.LevelInfo, "qEdge %s executed: %d of %d records kept", e.ID, len(e.Records), len(records))
	}

	if !m.CollectRecords() {
		terminations.WithLabelValues("broken_chain").Inc()
		return fmt.Errorf("%w: qEdges %v have no records", ErrBrokenChain, m.broken)
	}
	return nil
}

func (m *EdgeManager) executeEdge(ctx context.Context, e *model.QEdge, exec EdgeExecutor) ([]model.Record, error) {
	ctx, span := tracer.Start(ctx, "EdgeManager.executeEdge",
		trace.WithAttributes(
			attribute.String("qedge", e.ID),
			attribute.Bool("reverse", e.Reverse),
			attribute.Int("input_count", e.InputNode().EntityCount),
		),
	)
	defer span.End()

	edgesExecuted.Inc()
	batch, err := exec.ExecuteEdge(ctx, e)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			span.SetStatus(codes.Error, "cancelled")
			return nil, err
		}
		span.RecordError(err)
		m.log.Add(querylog.LevelWarning, "qEdge %s execution failed: %v", e.ID, err)
		batch = Batch{}
	}
	m.logDiagnostics(e, batch.Diagnostics)
	span.SetAttributes(attribute.Int("records", len(batch.Records)))
	return batch.Records, nil
}

func (m *EdgeManager) logDiagnostics(e *model.QEdge, d Diagnostics) {
	if d.Queried > 0 {
		m.log.Add(querylog.LevelInfo, "qEdge %s queried %d provider operations", e.ID, d.Queried)
	}
	for _, name := range sortedNames(d.Failed) {
		m.log.Add(querylog.LevelWarning, "qEdge %s: %d calls to %s failed", e.ID, d.Failed[name], name)
	}
	for _, name := range sortedNames(d.Skipped) {
		m.log.Add(querylog.LevelWarning, "qEdge %s: skipped %d calls to unavailable %s", e.ID, d.Skipped[name], name)
	}
}

func sortedNames(m map[string]int) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
