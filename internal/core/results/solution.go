package results

import (
	"sort"
	"strings"

	"github.com/agenthands/kgfed/internal/core/model"
)

// KeySeparator joins result key tokens. It never occurs in a qNode id or curie.
const KeySeparator = "_&_"

// SolutionEdge is one record bound to one query edge within a candidate solution.
type SolutionEdge struct {
	QEdgeID       string
	InputQNodeID  string
	OutputQNodeID string
	InputCurie    string
	OutputCurie   string
	InputUMLS     []string
	OutputUMLS    []string
	RecordHash    string
	TextMined     bool
}

type task struct {
	qEdgeID string
	qNodeID string
	// curie is the identifier the matching side must carry; empty at the root.
	curie string
}

type frame struct {
	pending  []task
	solution []SolutionEdge
	// visited holds every edge already bound or queued in this branch.
	visited map[string]bool
}

// enumerate walks the query tree from root and returns every complete
// solution, one SolutionEdge per query edge. Each frame owns its partial
// solution, so sibling records never share state.
func (a *Assembler) enumerate(organized model.RecordsByQEdgeID, root task) [][]SolutionEdge {
	var complete [][]SolutionEdge
	stack := []frame{{
		pending: []task{root},
		visited: map[string]bool{root.qEdgeID: true},
	}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if len(f.pending) == 0 {
			if len(f.solution) == len(organized) {
				complete = append(complete, f.solution)
			}
			continue
		}

		t, rest := f.pending[0], f.pending[1:]
		var children []frame
		for _, r := range organized[t.qEdgeID].Records {
			match, other, ok := sides(r, t.qNodeID)
			if !ok || (t.curie != "" && match.Curie != t.curie) {
				continue
			}

			solution := make([]SolutionEdge, len(f.solution), len(f.solution)+1)
			copy(solution, f.solution)
			solution = append(solution, a.solutionEdge(t.qEdgeID, r))

			visited := make(map[string]bool, len(f.visited)+1)
			for id := range f.visited {
				visited[id] = true
			}
			pending := append([]task(nil), rest...)
			for _, next := range a.connections(other.QNodeID, t.qEdgeID) {
				if visited[next] {
					continue
				}
				visited[next] = true
				pending = append(pending, task{qEdgeID: next, qNodeID: other.QNodeID, curie: other.Curie})
			}
			children = append(children, frame{pending: pending, solution: solution, visited: visited})
		}

		// reverse so the first record is explored first
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return complete
}

func (a *Assembler) solutionEdge(qEdgeID string, r model.Record) SolutionEdge {
	return SolutionEdge{
		QEdgeID:       qEdgeID,
		InputQNodeID:  r.Subject.QNodeID,
		OutputQNodeID: r.Object.QNodeID,
		InputCurie:    r.Subject.Curie,
		OutputCurie:   r.Object.Curie,
		InputUMLS:     r.Subject.UMLSIDs(),
		OutputUMLS:    r.Object.UMLSIDs(),
		RecordHash:    r.Hash,
		TextMined:     a.scorer.TextMined(r.APIInforesCurie),
	}
}

func (a *Assembler) connections(qNodeID, exclude string) []string {
	n, ok := a.qNodes[qNodeID]
	if !ok {
		return nil
	}
	return n.Connections(exclude)
}

// sides returns the record endpoint bound to qNodeID and the opposite one.
func sides(r model.Record, qNodeID string) (match, other model.RecordNode, ok bool) {
	switch qNodeID {
	case r.Subject.QNodeID:
		return r.Subject, r.Object, true
	case r.Object.QNodeID:
		return r.Object, r.Subject, true
	}
	return model.RecordNode{}, model.RecordNode{}, false
}

// resultKey identifies the result a solution belongs to. Set nodes contribute
// only their qNode id so that solutions differing there share a key. Adjacent
// edges join on equal curies, so every edge of a solution binds a node to the
// same curie.
func (a *Assembler) resultKey(solution []SolutionEdge) string {
	bound := make(map[string]string)
	bind := func(qNodeID, curie string) {
		if _, ok := bound[qNodeID]; !ok {
			bound[qNodeID] = curie
		}
	}
	for _, e := range solution {
		bind(e.InputQNodeID, e.InputCurie)
		bind(e.OutputQNodeID, e.OutputCurie)
	}

	tokens := make([]string, 0, len(bound))
	for qNodeID, curie := range bound {
		if n, ok := a.qNodes[qNodeID]; ok && n.IsSet {
			tokens = append(tokens, qNodeID)
			continue
		}
		tokens = append(tokens, qNodeID+"-"+curie)
	}
	sort.Strings(tokens)
	return strings.Join(tokens, KeySeparator)
}
