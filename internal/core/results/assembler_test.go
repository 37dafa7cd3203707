package results

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/kgfed/internal/core/model"
	"github.com/agenthands/kgfed/internal/core/querylog"
	"github.com/agenthands/kgfed/internal/core/scoring"
)

func buildNodes(t *testing.T, g model.QueryGraph) map[string]*model.QNode {
	t.Helper()
	_, nodes, err := g.Build(nil)
	require.NoError(t, err)
	return nodes
}

func newAssembler(t *testing.T, nodes map[string]*model.QNode, lookup RelatednessLookup, log querylog.Sink) *Assembler {
	t.Helper()
	a, err := NewAssembler(nodes, nil, lookup, log)
	require.NoError(t, err)
	return a
}

func twoHopGraph(setNode string) model.QueryGraph {
	g := model.QueryGraph{
		Nodes: map[string]model.NodeSpec{
			"n0": {IDs: []string{"A"}},
			"n1": {},
			"n2": {},
		},
		Edges: map[string]model.EdgeSpec{
			"e0": {Subject: "n0", Object: "n1"},
			"e1": {Subject: "n1", Object: "n2"},
		},
	}
	if setNode != "" {
		spec := g.Nodes[setNode]
		spec.IsSet = true
		g.Nodes[setNode] = spec
	}
	return g
}

func ids(bs []model.Binding) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.ID)
	}
	return out
}

func TestUpdate_TwoHopSingleResult(t *testing.T) {
	g := twoHopGraph("")
	a := newAssembler(t, buildNodes(t, g), nil, nil)

	res := a.Update(context.Background(), model.RecordsByQEdgeID{
		"e0": {ConnectedTo: []string{"e1"}, Records: []model.Record{rec("n0", "NCBIGene:1017", "n1", "CHEBI:1", "h0")}},
		"e1": {ConnectedTo: []string{"e0"}, Records: []model.Record{rec("n1", "CHEBI:1", "n2", "MONDO:1", "h1")}},
	})

	require.Len(t, res, 1)
	assert.Equal(t, []string{"NCBIGene:1017"}, ids(res[0].NodeBindings["n0"]))
	assert.Equal(t, []string{"CHEBI:1"}, ids(res[0].NodeBindings["n1"]))
	assert.Equal(t, []string{"MONDO:1"}, ids(res[0].NodeBindings["n2"]))
	assert.Equal(t, []string{"h0"}, ids(res[0].EdgeBindings["e0"]))
	assert.Equal(t, []string{"h1"}, ids(res[0].EdgeBindings["e1"]))
	assert.Greater(t, res[0].Score, 0.0)
	assert.Equal(t, []string{"n0-NCBIGene:1017_&_n1-CHEBI:1_&_n2-MONDO:1"}, a.Keys())
}

func isSetRecords() model.RecordsByQEdgeID {
	return model.RecordsByQEdgeID{
		"e0": {Records: []model.Record{
			rec("n0", "A", "n1", "B1", "h1"),
			rec("n0", "A", "n1", "B2", "h2"),
		}},
		"e1": {Records: []model.Record{
			rec("n1", "B1", "n2", "C", "h3"),
			rec("n1", "B2", "n2", "C", "h4"),
		}},
	}
}

func TestUpdate_IsSetCollapses(t *testing.T) {
	a := newAssembler(t, buildNodes(t, twoHopGraph("n1")), nil, nil)
	res := a.Update(context.Background(), isSetRecords())

	require.Len(t, res, 1)
	assert.Equal(t, []string{"B1", "B2"}, ids(res[0].NodeBindings["n1"]))
	assert.Equal(t, []string{"h1", "h2"}, ids(res[0].EdgeBindings["e0"]))
	assert.Equal(t, []string{"h3", "h4"}, ids(res[0].EdgeBindings["e1"]))
	assert.Equal(t, []string{"n0-A_&_n1_&_n2-C"}, a.Keys())
}

func TestUpdate_WithoutIsSetStaysDistinct(t *testing.T) {
	a := newAssembler(t, buildNodes(t, twoHopGraph("")), nil, nil)
	res := a.Update(context.Background(), isSetRecords())

	require.Len(t, res, 2)
	assert.ElementsMatch(t, []string{
		"n0-A_&_n1-B1_&_n2-C",
		"n0-A_&_n1-B2_&_n2-C",
	}, a.Keys())
	for _, r := range res {
		assert.Len(t, r.NodeBindings["n1"], 1)
		assert.Len(t, r.EdgeBindings["e0"], 1)
	}
}

func TestUpdate_HubTopology(t *testing.T) {
	g := model.QueryGraph{
		Nodes: map[string]model.NodeSpec{
			"n0": {IDs: []string{"A"}},
			"n1": {},
			"n2": {},
			"n3": {},
		},
		Edges: map[string]model.EdgeSpec{
			"e0": {Subject: "n0", Object: "n1"},
			"e1": {Subject: "n1", Object: "n2"},
			"e2": {Subject: "n1", Object: "n3"},
		},
	}
	a := newAssembler(t, buildNodes(t, g), nil, nil)
	res := a.Update(context.Background(), model.RecordsByQEdgeID{
		"e0": {Records: []model.Record{rec("n0", "A", "n1", "H1", "r0"), rec("n0", "A", "n1", "H2", "r1")}},
		"e1": {Records: []model.Record{rec("n1", "H1", "n2", "X", "r2"), rec("n1", "H2", "n2", "X", "r3")}},
		"e2": {Records: []model.Record{rec("n1", "H1", "n3", "Y", "r4")}},
	})

	require.Len(t, res, 1)
	assert.Equal(t, []string{"n0-A_&_n1-H1_&_n2-X_&_n3-Y"}, a.Keys())
	assert.Equal(t, []string{"r0"}, ids(res[0].EdgeBindings["e0"]))
	assert.Equal(t, []string{"r2"}, ids(res[0].EdgeBindings["e1"]))
	assert.Equal(t, []string{"r4"}, ids(res[0].EdgeBindings["e2"]))
}

func TestUpdate_SingleEdgeSortedByScore(t *testing.T) {
	g := model.QueryGraph{
		Nodes: map[string]model.NodeSpec{"n0": {IDs: []string{"A"}}, "n1": {}},
		Edges: map[string]model.EdgeSpec{"e0": {Subject: "n0", Object: "n1"}},
	}
	a := newAssembler(t, buildNodes(t, g), nil, nil)
	res := a.Update(context.Background(), model.RecordsByQEdgeID{
		"e0": {Records: []model.Record{
			rec("n0", "A", "n1", "C", "h3"),
			rec("n0", "A", "n1", "B", "h1"),
			rec("n0", "A", "n1", "B", "h2"),
		}},
	})

	require.Len(t, res, 2)
	assert.Equal(t, []string{"n0-A_&_n1-B", "n0-A_&_n1-C"}, a.Keys())
	assert.Greater(t, res[0].Score, res[1].Score)
	assert.Equal(t, []string{"h1", "h2"}, ids(res[0].EdgeBindings["e0"]))
}

func TestUpdate_Deterministic(t *testing.T) {
	nodes := buildNodes(t, twoHopGraph(""))
	input := isSetRecords()

	a := newAssembler(t, nodes, nil, nil)
	first := a.Update(context.Background(), input)
	firstKeys := a.Keys()
	second := a.Update(context.Background(), input)

	assert.Equal(t, firstKeys, a.Keys())
	assert.Equal(t, first, second)
}

func TestUpdate_EmptyEdgeYieldsNoResults(t *testing.T) {
	a := newAssembler(t, buildNodes(t, twoHopGraph("")), nil, nil)
	res := a.Update(context.Background(), model.RecordsByQEdgeID{
		"e0": {Records: []model.Record{rec("n0", "A", "n1", "B", "h0")}},
		"e1": {},
	})
	assert.NotNil(t, res)
	assert.Empty(t, res)

	assert.Empty(t, a.Update(context.Background(), nil))
	assert.Empty(t, a.Keys())
}

func TestUpdate_RelatednessScoring(t *testing.T) {
	withUMLS := func(r model.Record, sub, obj string) model.Record {
		r.Subject.UMLS = []string{sub}
		r.Object.UMLS = []string{obj}
		return r
	}
	input := model.RecordsByQEdgeID{
		"e0": {Records: []model.Record{
			withUMLS(rec("n0", "A", "n1", "B1", "h1"), "C01", "C02"),
			withUMLS(rec("n0", "A", "n1", "B2", "h2"), "C01", "C03"),
		}},
	}
	g := model.QueryGraph{
		Nodes: map[string]model.NodeSpec{"n0": {IDs: []string{"A"}}, "n1": {}},
		Edges: map[string]model.EdgeSpec{"e0": {Subject: "n0", Object: "n1"}},
	}
	nodes := buildNodes(t, g)

	lookup := &MockLookup{Table: scoring.RelatednessTable{"C01-C03": 0.5}}
	log := querylog.New(nil)
	a := newAssembler(t, nodes, lookup, log)
	res := a.Update(context.Background(), input)

	require.Len(t, res, 2)
	assert.Equal(t, 1, lookup.Calls)
	assert.Equal(t, []scoring.Pair{{Input: "C01", Output: "C02"}, {Input: "C01", Output: "C03"}}, lookup.Pairs)
	assert.Equal(t, []string{"B2"}, ids(res[0].NodeBindings["n1"]))
	assert.True(t, res[0].ScoredByRelatedness)
	assert.False(t, res[1].ScoredByRelatedness)

	var summary string
	for _, e := range log.Entries() {
		if e.Level == querylog.LevelInfo && len(e.Message) > 15 && e.Message[:15] == "Scoring Summary" {
			summary = e.Message
		}
	}
	assert.Equal(t, "Scoring Summary: (1) scored by relatedness / (1) scored by records only", summary)

	failing := &MockLookup{Err: errors.New("service down")}
	log = querylog.New(nil)
	res = newAssembler(t, nodes, failing, log).Update(context.Background(), input)
	require.Len(t, res, 2)
	for _, r := range res {
		assert.False(t, r.ScoredByRelatedness)
	}
	var warned bool
	for _, e := range log.Entries() {
		if e.Level == querylog.LevelWarning {
			warned = true
			assert.Contains(t, e.Message, "service down")
		}
	}
	assert.True(t, warned)
}

func TestConsolidate_TextMinedOnlyForNewHashes(t *testing.T) {
	solutions := [][]SolutionEdge{
		{
			{QEdgeID: "e0", InputQNodeID: "n0", OutputQNodeID: "n1", InputCurie: "A", OutputCurie: "B", RecordHash: "h1", TextMined: true},
			{QEdgeID: "e1", InputQNodeID: "n1", OutputQNodeID: "n2", InputCurie: "B", OutputCurie: "C1", RecordHash: "h2", OutputUMLS: []string{"U1"}},
		},
		{
			{QEdgeID: "e0", InputQNodeID: "n0", OutputQNodeID: "n1", InputCurie: "A", OutputCurie: "B", RecordHash: "h1", TextMined: true},
			{QEdgeID: "e1", InputQNodeID: "n1", OutputQNodeID: "n2", InputCurie: "B", OutputCurie: "C2", RecordHash: "h3", OutputUMLS: []string{"U2", "U1"}},
		},
	}

	got := consolidate(solutions)
	require.Len(t, got, 2)

	assert.Equal(t, "e0", got[0].QEdgeID)
	assert.Equal(t, []string{"h1"}, got[0].RecordHashes)
	assert.Equal(t, []bool{true}, got[0].TextMined)

	assert.Equal(t, "e1", got[1].QEdgeID)
	assert.Equal(t, []string{"h2", "h3"}, got[1].RecordHashes)
	assert.Equal(t, []bool{false, false}, got[1].TextMined)
	assert.Equal(t, []string{"C1", "C2"}, got[1].OutputCuries)
	assert.Equal(t, []string{"U1", "U2"}, got[1].OutputUMLS)
	assert.Nil(t, got[1].InputUMLS)
}

func TestUpdate_TextMinedSourcesWeighLess(t *testing.T) {
	g := model.QueryGraph{
		Nodes: map[string]model.NodeSpec{"n0": {IDs: []string{"A"}}, "n1": {}},
		Edges: map[string]model.EdgeSpec{"e0": {Subject: "n0", Object: "n1"}},
	}
	mined := rec("n0", "A", "n1", "B", "h1")
	mined.APIInforesCurie = "infores:semmeddb"
	curated := rec("n0", "A", "n1", "C", "h2")
	curated.APIInforesCurie = "infores:ctd"

	a := newAssembler(t, buildNodes(t, g), nil, nil)
	res := a.Update(context.Background(), model.RecordsByQEdgeID{"e0": {Records: []model.Record{mined, curated}}})

	require.Len(t, res, 2)
	assert.Equal(t, []string{"n0-A_&_n1-C", "n0-A_&_n1-B"}, a.Keys())
}

func TestUpdate_JoinsOnBoundCurieOnly(t *testing.T) {
	g := twoHopGraph("")
	a := newAssembler(t, buildNodes(t, g), nil, nil)

	viaEquivalent := rec("n0", "A", "n1", "B", "h1")
	viaEquivalent.Object.Equivalents = []string{"B2"}
	other := rec("n1", "B2", "n2", "C", "h2")
	other.Subject.Equivalents = []string{"B"}

	res := a.Update(context.Background(), model.RecordsByQEdgeID{
		"e0": {Records: []model.Record{viaEquivalent, rec("n0", "A", "n1", "B3", "h3")}},
		"e1": {Records: []model.Record{other, rec("n1", "B3", "n2", "D", "h4")}},
	})

	require.Len(t, res, 1)
	assert.Equal(t, []string{"B3"}, ids(res[0].NodeBindings["n1"]))
	assert.Equal(t, []string{"D"}, ids(res[0].NodeBindings["n2"]))
	assert.Equal(t, []string{"n0-A_&_n1-B3_&_n2-D"}, a.Keys())
}

func TestNewAssembler_RequiresQueryNodes(t *testing.T) {
	_, err := NewAssembler(nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoQueryNodes)

	_, err = NewAssembler(map[string]*model.QNode{}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoQueryNodes)
}
