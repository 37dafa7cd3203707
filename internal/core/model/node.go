package model

import "sort"

// QNode is a query graph node together with the runtime state the scheduler
// narrows as edges execute.
type QNode struct {
	ID         string
	Categories []string
	IDs        []string
	IsSet      bool

	// EntityCount is the number of distinct candidate identifiers. 0 means unconstrained.
	EntityCount int
	// Curie maps each candidate primary identifier to its equivalent identifiers.
	Curie map[string][]string
	// HeldCurie stores Curie while this node is the output of an in-flight edge.
	HeldCurie map[string][]string
	// Edges lists the ids of every QEdge touching this node.
	Edges []string

	resolver Resolver
}

func NewQNode(id string, spec NodeSpec, resolver Resolver) *QNode {
	if resolver == nil {
		resolver = NopResolver{}
	}
	n := &QNode{
		ID:         id,
		Categories: spec.Categories,
		IDs:        spec.IDs,
		IsSet:      spec.IsSet,
		resolver:   resolver,
	}
	if len(spec.IDs) > 0 {
		n.Curie = make(map[string][]string, len(spec.IDs))
		for _, id := range spec.IDs {
			n.Curie[id] = withSelf(id, resolver.Equivalents(id))
		}
		n.EntityCount = len(n.Curie)
	}
	return n
}

func (n *QNode) HasCuries() bool {
	return len(n.Curie) > 0
}

// Constrained reports whether candidates have been set. A constrained node
// with no candidates left matches nothing.
func (n *QNode) Constrained() bool {
	return n.Curie != nil
}

// CurieList returns the candidate primary identifiers in sorted order.
func (n *QNode) CurieList() []string {
	out := make([]string, 0, len(n.Curie))
	for c := range n.Curie {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// AllowedIDs returns every candidate identifier and all of their equivalents.
func (n *QNode) AllowedIDs() map[string]struct{} {
	allowed := make(map[string]struct{}, len(n.Curie)*2)
	for primary, eqs := range n.Curie {
		allowed[primary] = struct{}{}
		for _, e := range eqs {
			allowed[e] = struct{}{}
		}
	}
	return allowed
}

// Matches reports whether any of ids, or a subclass parent of one of them,
// is currently allowed on this node. An unconstrained node matches anything.
func (n *QNode) Matches(ids []string) bool {
	if !n.Constrained() {
		return true
	}
	return n.matchesAllowed(ids, n.AllowedIDs())
}

func (n *QNode) matchesAllowed(ids []string, allowed map[string]struct{}) bool {
	for _, id := range ids {
		if _, ok := allowed[id]; ok {
			return true
		}
		for _, p := range n.resolver.Parents(id) {
			if _, ok := allowed[p]; ok {
				return true
			}
		}
	}
	return false
}

// UpdateCuries adopts curies when the node is unconstrained, otherwise keeps
// only the new curies that match an existing candidate.
func (n *QNode) UpdateCuries(curies map[string][]string) {
	if n.HeldCurie != nil {
		n.RestoreCurie()
	}

	if !n.Constrained() {
		n.Curie = make(map[string][]string, len(curies))
		for primary, eqs := range curies {
			n.Curie[primary] = eqs
		}
	} else {
		allowed := n.AllowedIDs()
		kept := make(map[string][]string, len(curies))
		for primary, eqs := range curies {
			if n.matchesAllowed(withSelf(primary, eqs), allowed) {
				kept[primary] = eqs
			}
		}
		n.Curie = kept
	}
	n.EntityCount = len(n.Curie)
}

// HoldCurie sets the candidate identifiers aside so the in-flight query is
// not constrained on this side. EntityCount is left untouched.
func (n *QNode) HoldCurie() {
	if n.Curie == nil {
		return
	}
	n.HeldCurie = n.Curie
	n.Curie = nil
}

func (n *QNode) RestoreCurie() {
	if n.HeldCurie == nil {
		return
	}
	n.Curie = n.HeldCurie
	n.HeldCurie = nil
}

// Connections returns the ids of the edges touching this node, excluding one.
func (n *QNode) Connections(exclude string) []string {
	out := make([]string, 0, len(n.Edges))
	for _, id := range n.Edges {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}

func withSelf(id string, eqs []string) []string {
	for _, e := range eqs {
		if e == id {
			return eqs
		}
	}
	return append([]string{id}, eqs...)
}
