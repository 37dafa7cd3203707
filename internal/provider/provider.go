// Package provider fetches edge records from knowledge sources and fans a
// query edge out to all of them.
package provider

import (
	"context"
	"sort"

	"github.com/agenthands/kgfed/internal/core/model"
)

// DefaultLimit caps the rows one provider returns for one edge.
const DefaultLimit = 5000

// EdgeQuery is a QEdge as seen by a provider: start from the input side,
// return what lies on the output side.
type EdgeQuery struct {
	QEdgeID          string
	InputIDs         []string
	InputCategories  []string
	OutputCategories []string
	Predicates       []string
	// Reverse means the input side is the edge's object, so associations
	// are followed object -> subject.
	Reverse bool
}

// NewEdgeQuery snapshots the edge's current orientation and input
// candidates, including their equivalent identifiers.
func NewEdgeQuery(e *model.QEdge) EdgeQuery {
	in, out := e.InputNode(), e.OutputNode()
	ids := make([]string, 0, len(in.Curie))
	for id := range in.AllowedIDs() {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return EdgeQuery{
		QEdgeID:          e.ID,
		InputIDs:         ids,
		InputCategories:  in.Categories,
		OutputCategories: out.Categories,
		Predicates:       e.Predicates,
		Reverse:          e.Reverse,
	}
}

// Provider is one knowledge source. Fetch returns records in execution
// direction: the subject is the input side of the query.
type Provider interface {
	Name() string
	Supports(q EdgeQuery) bool
	Fetch(ctx context.Context, q EdgeQuery) ([]model.Record, error)
}

// Availability is implemented by providers that can report being down.
// Unavailable providers are skipped and counted, not called.
type Availability interface {
	Available(ctx context.Context) bool
}

// Association is one stored subject -> object statement, the unit both
// fixture files and graph loading work with.
type Association struct {
	Subject           model.RecordNode `json:"subject"`
	SubjectCategories []string         `json:"subject_categories,omitempty"`
	Object            model.RecordNode `json:"object"`
	ObjectCategories  []string         `json:"object_categories,omitempty"`
	Predicate         string           `json:"predicate"`
	API               string           `json:"api,omitempty"`
	Infores           string           `json:"infores,omitempty"`
	Attributes        map[string]any   `json:"attributes,omitempty"`
}

// originalFor returns the query id that reached node through an
// equivalent identifier, or "" when the node's own id was queried.
func originalFor(node model.RecordNode, queried map[string]struct{}) string {
	if _, ok := queried[node.Curie]; ok {
		return ""
	}
	for _, id := range node.Equivalents {
		if _, ok := queried[id]; ok {
			return id
		}
	}
	return ""
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func intersects(values []string, set map[string]struct{}) bool {
	for _, v := range values {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
