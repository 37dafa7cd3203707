package results

import (
	"sort"

	"github.com/agenthands/kgfed/internal/core/model"
)

type edgeAccumulator struct {
	qEdgeID       string
	inputQNodeID  string
	outputQNodeID string
	inputCuries   map[string]struct{}
	outputCuries  map[string]struct{}
	inputUMLS     map[string]struct{}
	outputUMLS    map[string]struct{}
	hashes        []string
	seenHashes    map[string]struct{}
	textMined     []bool
}

func newEdgeAccumulator(e SolutionEdge) *edgeAccumulator {
	return &edgeAccumulator{
		qEdgeID:       e.QEdgeID,
		inputQNodeID:  e.InputQNodeID,
		outputQNodeID: e.OutputQNodeID,
		inputCuries:   make(map[string]struct{}),
		outputCuries:  make(map[string]struct{}),
		inputUMLS:     make(map[string]struct{}),
		outputUMLS:    make(map[string]struct{}),
		seenHashes:    make(map[string]struct{}),
	}
}

func (acc *edgeAccumulator) add(e SolutionEdge) {
	acc.inputCuries[e.InputCurie] = struct{}{}
	acc.outputCuries[e.OutputCurie] = struct{}{}
	for _, u := range e.InputUMLS {
		acc.inputUMLS[u] = struct{}{}
	}
	for _, u := range e.OutputUMLS {
		acc.outputUMLS[u] = struct{}{}
	}
	if _, ok := acc.seenHashes[e.RecordHash]; ok {
		return
	}
	acc.seenHashes[e.RecordHash] = struct{}{}
	acc.hashes = append(acc.hashes, e.RecordHash)
	acc.textMined = append(acc.textMined, e.TextMined)
}

func (acc *edgeAccumulator) record() model.ConsolidatedSolutionRecord {
	return model.ConsolidatedSolutionRecord{
		QEdgeID:       acc.qEdgeID,
		InputQNodeID:  acc.inputQNodeID,
		OutputQNodeID: acc.outputQNodeID,
		InputCuries:   setList(acc.inputCuries),
		OutputCuries:  setList(acc.outputCuries),
		InputUMLS:     setList(acc.inputUMLS),
		OutputUMLS:    setList(acc.outputUMLS),
		RecordHashes:  acc.hashes,
		TextMined:     acc.textMined,
	}
}

// consolidate merges the solutions sharing a result key into one record per
// query edge, in the edge order of the first solution.
func consolidate(solutions [][]SolutionEdge) []model.ConsolidatedSolutionRecord {
	byEdge := make(map[string]*edgeAccumulator)
	var order []string
	for _, solution := range solutions {
		for _, e := range solution {
			acc, ok := byEdge[e.QEdgeID]
			if !ok {
				acc = newEdgeAccumulator(e)
				byEdge[e.QEdgeID] = acc
				order = append(order, e.QEdgeID)
			}
			acc.add(e)
		}
	}

	out := make([]model.ConsolidatedSolutionRecord, 0, len(order))
	for _, id := range order {
		out = append(out, byEdge[id].record())
	}
	return out
}

// toResult turns a consolidated solution into node and edge bindings.
func toResult(consolidated []model.ConsolidatedSolutionRecord) model.Result {
	nodes := make(map[string]map[string]struct{})
	bind := func(qNodeID string, curies []string) {
		set, ok := nodes[qNodeID]
		if !ok {
			set = make(map[string]struct{})
			nodes[qNodeID] = set
		}
		for _, c := range curies {
			set[c] = struct{}{}
		}
	}

	res := model.Result{
		NodeBindings: make(map[string][]model.Binding),
		EdgeBindings: make(map[string][]model.Binding, len(consolidated)),
	}
	for _, c := range consolidated {
		bind(c.InputQNodeID, c.InputCuries)
		bind(c.OutputQNodeID, c.OutputCuries)

		hashes := append([]string(nil), c.RecordHashes...)
		sort.Strings(hashes)
		res.EdgeBindings[c.QEdgeID] = bindings(hashes)
	}
	for qNodeID, set := range nodes {
		res.NodeBindings[qNodeID] = bindings(setList(set))
	}
	return res
}

func bindings(ids []string) []model.Binding {
	out := make([]model.Binding, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Binding{ID: id})
	}
	return out
}

func setList(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
