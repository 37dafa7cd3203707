package model

import (
	"errors"
	"fmt"
	"sort"
)

var ErrInvalidQueryGraph = errors.New("invalid query graph")

type NodeSpec struct {
	IDs        []string `json:"ids,omitempty"`
	Categories []string `json:"categories,omitempty"`
	IsSet      bool     `json:"is_set,omitempty"`
}

type EdgeSpec struct {
	Subject              string                `json:"subject"`
	Object               string                `json:"object"`
	Predicates           []string              `json:"predicates,omitempty"`
	AttributeConstraints []AttributeConstraint `json:"attribute_constraints,omitempty"`
}

// QueryGraph is the static query graph as submitted by the caller.
type QueryGraph struct {
	Nodes map[string]NodeSpec `json:"nodes"`
	Edges map[string]EdgeSpec `json:"edges"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidQueryGraph, fmt.Sprintf(format, args...))
}

// Validate rejects graphs the scheduler cannot run: dangling references,
// self loops, isolated nodes, and anything that is not a tree.
func (g QueryGraph) Validate() error {
	if len(g.Edges) == 0 {
		return invalid("query graph has no edges")
	}

	adj := make(map[string][]string, len(g.Nodes))
	for _, id := range sortedKeys(g.Edges) {
		e := g.Edges[id]
		if e.Subject == "" || e.Object == "" {
			return invalid("edge %q is missing subject or object", id)
		}
		if _, ok := g.Nodes[e.Subject]; !ok {
			return invalid("edge %q references unknown subject %q", id, e.Subject)
		}
		if _, ok := g.Nodes[e.Object]; !ok {
			return invalid("edge %q references unknown object %q", id, e.Object)
		}
		if e.Subject == e.Object {
			return invalid("edge %q is a self loop on %q", id, e.Subject)
		}
		for _, c := range e.AttributeConstraints {
			if err := c.Validate(); err != nil {
				return invalid("edge %q: %v", id, err)
			}
		}
		adj[e.Subject] = append(adj[e.Subject], e.Object)
		adj[e.Object] = append(adj[e.Object], e.Subject)
	}

	for _, id := range sortedKeys(g.Nodes) {
		if len(adj[id]) == 0 {
			return invalid("node %q is not connected to any edge", id)
		}
	}

	// A connected graph with |E| = |V|-1 is a tree.
	if len(g.Edges) != len(g.Nodes)-1 {
		return invalid("query graph contains a cycle; only trees are supported")
	}
	visited := make(map[string]bool, len(g.Nodes))
	var component []string
	dfs(sortedKeys(g.Nodes)[0], adj, visited, &component)
	if len(component) != len(g.Nodes) {
		return invalid("query graph is not connected")
	}
	return nil
}

func dfs(u string, adj map[string][]string, visited map[string]bool, component *[]string) {
	visited[u] = true
	*component = append(*component, u)
	for _, v := range adj[u] {
		if !visited[v] {
			dfs(v, adj, visited, component)
		}
	}
}

// Build validates the graph and creates one QEdge per edge, sharing QNodes.
// Edges are returned sorted by id.
func (g QueryGraph) Build(resolver Resolver) ([]*QEdge, map[string]*QNode, error) {
	if err := g.Validate(); err != nil {
		return nil, nil, err
	}

	nodes := make(map[string]*QNode, len(g.Nodes))
	for _, id := range sortedKeys(g.Nodes) {
		nodes[id] = NewQNode(id, g.Nodes[id], resolver)
	}

	edges := make([]*QEdge, 0, len(g.Edges))
	for _, id := range sortedKeys(g.Edges) {
		spec := g.Edges[id]
		e := &QEdge{
			ID:          id,
			Subject:     nodes[spec.Subject],
			Object:      nodes[spec.Object],
			Predicates:  spec.Predicates,
			Constraints: spec.AttributeConstraints,
		}
		e.Subject.Edges = append(e.Subject.Edges, id)
		e.Object.Edges = append(e.Object.Edges, id)
		edges = append(edges, e)
	}
	return edges, nodes, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
