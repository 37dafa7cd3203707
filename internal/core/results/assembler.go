// Package results turns the per-edge records of a finished query into scored
// results, one per distinct binding of the query graph.
package results

import (
	"context"
	"errors"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/agenthands/kgfed/internal/core/model"
	"github.com/agenthands/kgfed/internal/core/querylog"
	"github.com/agenthands/kgfed/internal/core/scoring"
)

var tracer = otel.Tracer("kgfed.results")

// ErrNoQueryNodes is returned by NewAssembler when it has no query nodes to
// pick a traversal root from.
var ErrNoQueryNodes = errors.New("assembler needs the query nodes")

// RelatednessLookup fetches distances for UMLS pairs. Missing pairs are
// simply absent from the table.
type RelatednessLookup interface {
	Lookup(ctx context.Context, pairs []scoring.Pair) (scoring.RelatednessTable, error)
}

type Assembler struct {
	qNodes map[string]*model.QNode
	scorer *scoring.Scorer
	lookup RelatednessLookup
	log    querylog.Sink

	keys []string
}

// NewAssembler returns an Assembler for one query. qNodes must hold every node
// of the query graph. lookup may be nil, in which case results are scored by
// records only.
func NewAssembler(qNodes map[string]*model.QNode, scorer *scoring.Scorer, lookup RelatednessLookup, sink querylog.Sink) (*Assembler, error) {
	if len(qNodes) == 0 {
		return nil, ErrNoQueryNodes
	}
	if scorer == nil {
		scorer = scoring.NewScorer(scoring.DefaultWeights(), nil)
	}
	if sink == nil {
		sink = querylog.Discard{}
	}
	return &Assembler{qNodes: qNodes, scorer: scorer, lookup: lookup, log: sink}, nil
}

type group struct {
	key       string
	solutions [][]SolutionEdge
}

// Update assembles, scores and sorts results. It returns an empty slice when
// any edge has no records.
func (a *Assembler) Update(ctx context.Context, organized model.RecordsByQEdgeID) []model.Result {
	ctx, span := tracer.Start(ctx, "Assembler.Update",
		trace.WithAttributes(attribute.Int("qedges", len(organized))),
	)
	defer span.End()

	a.keys = nil
	root, ok := a.root(organized)
	if !ok {
		return []model.Result{}
	}

	var groups []*group
	byKey := make(map[string]*group)
	for _, solution := range a.enumerate(organized, root) {
		key := a.resultKey(solution)
		g, ok := byKey[key]
		if !ok {
			g = &group{key: key}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.solutions = append(g.solutions, solution)
	}

	consolidated := make([][]model.ConsolidatedSolutionRecord, len(groups))
	for i, g := range groups {
		consolidated[i] = consolidate(g.solutions)
	}
	table := a.relatedness(ctx, consolidated)

	type scored struct {
		key    string
		result model.Result
	}
	out := make([]scored, len(groups))
	byRelatedness := 0
	for i, g := range groups {
		res := toResult(consolidated[i])
		score := a.scorer.CalculateScore(consolidated[i], table)
		res.Score = score.Value
		res.ScoredByRelatedness = score.ScoredByRelatedness
		if score.ScoredByRelatedness {
			byRelatedness++
		}
		out[i] = scored{key: g.key, result: res}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].result.Score > out[j].result.Score
	})

	results := make([]model.Result, len(out))
	a.keys = make([]string, len(out))
	for i, s := range out {
		results[i] = s.result
		a.keys[i] = s.key
	}

	if len(results) > 0 {
		a.log.Add(querylog.LevelInfo, "Scoring Summary: (%d) scored by relatedness / (%d) scored by records only",
			byRelatedness, len(results)-byRelatedness)
	}
	a.log.Add(querylog.LevelInfo, "Successfully assembled %d results", len(results))
	span.SetAttributes(attribute.Int("results", len(results)))
	return results
}

// Keys returns the result keys of the last Update, in output order.
func (a *Assembler) Keys() []string {
	return append([]string(nil), a.keys...)
}

// root picks the leaf node whose single edge has the fewest records.
func (a *Assembler) root(organized model.RecordsByQEdgeID) (task, bool) {
	if len(organized) == 0 {
		return task{}, false
	}
	for _, g := range organized {
		if len(g.Records) == 0 {
			return task{}, false
		}
	}

	ids := make([]string, 0, len(a.qNodes))
	for id := range a.qNodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var best task
	fewest := -1
	for _, id := range ids {
		n := a.qNodes[id]
		if len(n.Edges) != 1 {
			continue
		}
		g, ok := organized[n.Edges[0]]
		if !ok {
			continue
		}
		if fewest < 0 || len(g.Records) < fewest {
			fewest = len(g.Records)
			best = task{qEdgeID: n.Edges[0], qNodeID: id}
		}
	}
	return best, fewest >= 0
}

func (a *Assembler) relatedness(ctx context.Context, consolidated [][]model.ConsolidatedSolutionRecord) scoring.RelatednessTable {
	if a.lookup == nil {
		return scoring.RelatednessTable{}
	}
	pairs := scoring.Pairs(consolidated...)
	if len(pairs) == 0 {
		return scoring.RelatednessTable{}
	}
	table, err := a.lookup.Lookup(ctx, pairs)
	if err != nil {
		a.log.Add(querylog.LevelWarning, "Error in relatedness lookup, results scored by records only: %v", err)
		return scoring.RelatednessTable{}
	}
	return table
}
