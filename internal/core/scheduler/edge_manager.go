// Package scheduler decides which query edge runs next, keeps candidate
// entities bounded, and filters records across edges that share nodes.
package scheduler

import (
	"sort"

	"github.com/agenthands/kgfed/internal/core/model"
	"github.com/agenthands/kgfed/internal/core/querylog"
)

const DefaultEntityMax = 1000

type Config struct {
	// EntityMax bounds the candidate identifiers on one side of an edge.
	EntityMax int
}

// RecordFilter reports whether a record (in query direction) should be kept
// on the given edge.
type RecordFilter func(edge *model.QEdge, r model.Record) bool

// EdgeManager owns the QEdges of a single query. It is not safe for
// concurrent use; one query, one manager.
type EdgeManager struct {
	edges     []*model.QEdge
	cfg       Config
	log       querylog.Sink
	filters   []RecordFilter
	organized model.RecordsByQEdgeID
	broken    []string
}

func NewEdgeManager(edges []*model.QEdge, cfg Config, sink querylog.Sink, filters ...RecordFilter) *EdgeManager {
	if cfg.EntityMax <= 0 {
		cfg.EntityMax = DefaultEntityMax
	}
	if sink == nil {
		sink = querylog.Discard{}
	}
	return &EdgeManager{
		edges:   edges,
		cfg:     cfg,
		log:     sink,
		filters: filters,
	}
}

func (m *EdgeManager) Edges() []*model.QEdge {
	return m.edges
}

func (m *EdgeManager) EdgesNotExecuted() int {
	n := 0
	for _, e := range m.edges {
		if !e.Executed {
			n++
		}
	}
	return n
}

// GetNext returns the unexecuted edge with the lowest positive entity count
// on either side. Object counts are compared before subject counts and ties
// go to the later edge. With no counts anywhere, the first uncounted edge wins.
func (m *EdgeManager) GetNext() *model.QEdge {
	var available []*model.QEdge
	for _, e := range m.edges {
		if !e.Executed {
			available = append(available, e)
		}
	}
	if len(available) == 0 {
		return nil
	}
	if len(available) == 1 {
		return m.PreSendOffCheck(available[0])
	}

	var next *model.QEdge
	lowest := 0
	for _, e := range available {
		if c := e.Object.EntityCount; c > 0 && (lowest == 0 || c <= lowest) {
			lowest = c
			next = e
		}
		if c := e.Subject.EntityCount; c > 0 && (lowest == 0 || c <= lowest) {
			lowest = c
			next = e
		}
	}

	if next == nil {
		for _, e := range available {
			if e.Subject.EntityCount == 0 && e.Object.EntityCount == 0 {
				next = e
				break
			}
		}
	}
	if next == nil {
		next = available[0]
	}
	return m.PreSendOffCheck(next)
}

// PreSendOffCheck orients the edge so the side with fewer known candidates
// is the query input.
func (m *EdgeManager) PreSendOffCheck(e *model.QEdge) *model.QEdge {
	sub, obj := e.Subject.EntityCount, e.Object.EntityCount
	switch {
	case sub > 0 && obj > 0:
		e.ChooseLowerEntityValue()
	case obj > 0:
		e.Reverse = true
	default:
		e.Reverse = false
	}
	m.log.Add(querylog.LevelDebug, "qEdge %s selected (subject count: %d, object count: %d, reverse: %t)",
		e.ID, sub, obj, e.Reverse)
	return e
}

// CheckEntityMax rejects edges whose fan-out is unbounded: 0 against more
// than the max, or more than the max on both sides.
func (m *EdgeManager) CheckEntityMax(e *model.QEdge) error {
	limit := m.cfg.EntityMax
	sub, obj := e.Subject.EntityCount, e.Object.EntityCount
	if (sub == 0 && obj > limit) || (obj == 0 && sub > limit) || (sub > limit && obj > limit) {
		return &EntityMaxExceededError{EdgeID: e.ID, Max: limit, SubjectCount: sub, ObjectCount: obj}
	}
	return nil
}

// UpdateEdgeRecords keeps the records whose endpoints are still candidates on
// both nodes, drops self-referential records and those failing constraints,
// then recomputes the nodes' candidates from what is left.
func (m *EdgeManager) UpdateEdgeRecords(e *model.QEdge) {
	var selfLoops, unreachable, constrained int
	kept := make([]model.Record, 0, len(e.Records))
	for _, r := range e.Records {
		q := r.QueryDirection(e)
		if q.SelfReferential() {
			selfLoops++
			continue
		}
		if !e.Subject.Matches(q.Subject.IDs()) || !e.Object.Matches(q.Object.IDs()) {
			unreachable++
			continue
		}
		if !m.passes(e, q) {
			constrained++
			continue
		}
		kept = append(kept, r)
	}

	before := len(e.Records)
	e.StoreRecords(kept)

	recordsFiltered.WithLabelValues("kept").Add(float64(len(kept)))
	recordsFiltered.WithLabelValues("self_loop").Add(float64(selfLoops))
	recordsFiltered.WithLabelValues("unreachable").Add(float64(unreachable))
	recordsFiltered.WithLabelValues("constraint").Add(float64(constrained))

	if dropped := before - len(kept); dropped > 0 {
		m.log.Add(querylog.LevelDebug,
			"qEdge %s kept %d/%d records (dropped %d self-referential, %d unreachable, %d by constraints)",
			e.ID, len(kept), before, selfLoops, unreachable, constrained)
	}
}

func (m *EdgeManager) passes(e *model.QEdge, r model.Record) bool {
	for _, c := range e.Constraints {
		if !c.Matches(r) {
			return false
		}
	}
	for _, f := range m.filters {
		if !f(e, r) {
			return false
		}
	}
	return true
}

// UpdateAllOtherEdges refilters every other edge holding records, then this
// one again, so narrowing downstream ripples back through shared nodes.
func (m *EdgeManager) UpdateAllOtherEdges(current *model.QEdge) {
	for _, e := range m.edges {
		if e.ID != current.ID && len(e.Records) > 0 {
			m.UpdateEdgeRecords(e)
		}
	}
	m.UpdateEdgeRecords(current)
}

// CollectRecords groups surviving records by edge. It returns false when any
// edge has no records, since no complete path can exist.
func (m *EdgeManager) CollectRecords() bool {
	organized := make(model.RecordsByQEdgeID, len(m.edges))
	var broken []string
	for _, e := range m.edges {
		records := make([]model.Record, 0, len(e.Records))
		for _, r := range e.Records {
			records = append(records, r.QueryDirection(e))
		}
		if len(records) == 0 {
			broken = append(broken, e.ID)
		}

		seen := make(map[string]struct{})
		var connected []string
		for _, id := range append(e.Subject.Connections(e.ID), e.Object.Connections(e.ID)...) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			connected = append(connected, id)
		}
		sort.Strings(connected)

		organized[e.ID] = model.RecordGroup{ConnectedTo: connected, Records: records}
		m.log.Add(querylog.LevelDebug, "qEdge %s has %d records, connected to %v", e.ID, len(records), connected)
	}

	if len(broken) > 0 {
		m.broken = broken
		m.log.AddCode(querylog.LevelWarning, querylog.CodeBrokenChain,
			"qEdges %v resulted in (0) records. No complete paths can be formed.", broken)
		return false
	}
	m.organized = organized
	return true
}

// RecordsByQEdgeID returns the groups built by a successful CollectRecords.
func (m *EdgeManager) RecordsByQEdgeID() model.RecordsByQEdgeID {
	return m.organized
}

// BrokenEdges returns the edges that left CollectRecords without records.
func (m *EdgeManager) BrokenEdges() []string {
	return m.broken
}
