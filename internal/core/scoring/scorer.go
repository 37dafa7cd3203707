// Package scoring ranks consolidated results by record evidence and
// relatedness between the entities they bind.
package scoring

import (
	"math"
	"sort"

	"github.com/agenthands/kgfed/internal/core/model"
)

// DefaultTextMinedSources lists the infores curies whose records come from
// literature mining and carry a reduced weight.
var DefaultTextMinedSources = []string{
	"infores:biothings-semmeddb",
	"infores:scibite",
	"infores:semmeddb",
	"infores:text-mining-provider-cooccurrence",
	"infores:text-mining-provider-targeted",
}

type Weights struct {
	TuningParam           float64
	RecordWeight          float64
	TextMinedRecordWeight float64
	RelatednessWeight     float64
	LengthPenalty         float64
}

func DefaultWeights() Weights {
	return Weights{
		TuningParam:           2.0,
		RecordWeight:          1.0,
		TextMinedRecordWeight: 0.5,
		RelatednessWeight:     0.25,
		LengthPenalty:         2.0,
	}
}

// RelatednessTable maps PairKey(inputUMLS, outputUMLS) to a distance. Smaller
// distances mean more closely related entities.
type RelatednessTable map[string]float64

func PairKey(inputUMLS, outputUMLS string) string {
	return inputUMLS + "-" + outputUMLS
}

// Pair is an input/output UMLS id combination to look up.
type Pair struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

func (p Pair) Key() string {
	return PairKey(p.Input, p.Output)
}

// Pairs returns every distinct input x output UMLS combination in the
// solutions, sorted by key.
func Pairs(solutions ...[]model.ConsolidatedSolutionRecord) []Pair {
	seen := make(map[string]Pair)
	for _, solution := range solutions {
		for _, edge := range solution {
			for _, in := range edge.InputUMLS {
				for _, out := range edge.OutputUMLS {
					p := Pair{Input: in, Output: out}
					seen[p.Key()] = p
				}
			}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Pair, 0, len(keys))
	for _, k := range keys {
		out = append(out, seen[k])
	}
	return out
}

type Score struct {
	Value               float64
	ScoredByRelatedness bool
}

type Scorer struct {
	Weights   Weights
	textMined map[string]struct{}
}

// NewScorer returns a Scorer. A nil sources list selects DefaultTextMinedSources.
func NewScorer(w Weights, textMinedSources []string) *Scorer {
	if textMinedSources == nil {
		textMinedSources = DefaultTextMinedSources
	}
	tm := make(map[string]struct{}, len(textMinedSources))
	for _, s := range textMinedSources {
		tm[s] = struct{}{}
	}
	return &Scorer{Weights: w, textMined: tm}
}

// TextMined reports whether records from the given source are text mined.
func (s *Scorer) TextMined(inforesCurie string) bool {
	_, ok := s.textMined[inforesCurie]
	return ok
}

// CalculateScore returns the normalized score of one consolidated result.
func (s *Scorer) CalculateScore(solution []model.ConsolidatedSolutionRecord, lookup RelatednessTable) Score {
	raw, byRelatedness := s.RawScore(solution, lookup)
	return Score{
		Value:               ScaledSigmoid(raw, s.Weights.TuningParam),
		ScoredByRelatedness: byRelatedness,
	}
}

// RawScore returns the path-aggregated score before normalization and whether
// any edge found a relatedness entry.
//
// Paths run from the first edge input with no incoming edge to the first
// edge output with no outgoing edge, each contributing its summed edge
// scores divided by length^LengthPenalty.
func (s *Scorer) RawScore(solution []model.ConsolidatedSolutionRecord, lookup RelatednessTable) (float64, bool) {
	type degree struct{ in, out int }
	degrees := make(map[string]*degree)
	var order []string
	touch := func(id string) *degree {
		d, ok := degrees[id]
		if !ok {
			d = &degree{}
			degrees[id] = d
			order = append(order, id)
		}
		return d
	}

	edgeScores := make([]float64, len(solution))
	outgoing := make(map[string][]int)
	byRelatedness := false

	for i, edge := range solution {
		touch(edge.InputQNodeID).out++
		touch(edge.OutputQNodeID).in++
		outgoing[edge.InputQNodeID] = append(outgoing[edge.InputQNodeID], i)

		score, found := s.edgeScore(edge, lookup)
		edgeScores[i] = score
		byRelatedness = byRelatedness || found
	}

	var start, end string
	for _, id := range order {
		if start == "" && degrees[id].in == 0 {
			start = id
		}
		if end == "" && degrees[id].out == 0 {
			end = id
		}
	}
	if start == "" || end == "" {
		return 0, byRelatedness
	}

	type step struct {
		node   string
		score  float64
		length int
	}
	total := 0.0
	queue := []step{{node: start}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.node == end {
			total += cur.score / math.Pow(float64(cur.length), s.Weights.LengthPenalty)
			continue
		}
		for _, i := range outgoing[cur.node] {
			queue = append(queue, step{
				node:   solution[i].OutputQNodeID,
				score:  cur.score + edgeScores[i],
				length: cur.length + 1,
			})
		}
	}
	return total, byRelatedness
}

func (s *Scorer) edgeScore(edge model.ConsolidatedSolutionRecord, lookup RelatednessTable) (float64, bool) {
	textMined := edge.TextMinedCount()
	score := float64(textMined)*s.Weights.TextMinedRecordWeight +
		float64(len(edge.RecordHashes)-textMined)*s.Weights.RecordWeight

	var sum float64
	var matched int
	for _, in := range edge.InputUMLS {
		for _, out := range edge.OutputUMLS {
			d, ok := lookup[PairKey(in, out)]
			// a distance of zero or less has no usable inverse
			if !ok || d <= 0 || math.IsNaN(d) {
				continue
			}
			sum += 1 / d
			matched++
		}
	}
	if matched == 0 {
		return score, false
	}
	return score + s.Weights.RelatednessWeight*sum/float64(matched), true
}

// Combine merges two normalized scores as if their raw scores had been summed.
func (s *Scorer) Combine(a, b float64) float64 {
	return CombineScores(a, b, s.Weights.TuningParam)
}
