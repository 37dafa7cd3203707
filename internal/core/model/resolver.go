package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// Resolver exposes the identifier-equivalence and subclass-expansion layer.
type Resolver interface {
	// Equivalents returns identifiers naming the same entity as id.
	Equivalents(id string) []string
	// Parents returns identifiers id was subclass-expanded from.
	Parents(id string) []string
}

type NopResolver struct{}

func (NopResolver) Equivalents(id string) []string { return []string{id} }
func (NopResolver) Parents(string) []string        { return nil }

// StaticResolver is a table-backed Resolver.
type StaticResolver struct {
	Equivalent map[string][]string `json:"equivalents"`
	Parent     map[string][]string `json:"parents"`
}

func NewStaticResolver() *StaticResolver {
	return &StaticResolver{
		Equivalent: make(map[string][]string),
		Parent:     make(map[string][]string),
	}
}

// LoadStaticResolver reads a JSON table of the form
// {"equivalents": {id: [ids]}, "parents": {child: [parents]}}.
func LoadStaticResolver(path string) (*StaticResolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read resolver table '%s': %w", path, err)
	}
	r := NewStaticResolver()
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("failed to parse resolver table: %w", err)
	}
	if r.Equivalent == nil {
		r.Equivalent = make(map[string][]string)
	}
	if r.Parent == nil {
		r.Parent = make(map[string][]string)
	}
	return r, nil
}

// AddEquivalents registers ids as one equivalence set.
func (r *StaticResolver) AddEquivalents(ids ...string) {
	for _, id := range ids {
		r.Equivalent[id] = append([]string(nil), ids...)
	}
}

func (r *StaticResolver) AddParent(child, parent string) {
	r.Parent[child] = append(r.Parent[child], parent)
}

func (r *StaticResolver) Equivalents(id string) []string {
	if eqs, ok := r.Equivalent[id]; ok {
		return withSelf(id, eqs)
	}
	return []string{id}
}

func (r *StaticResolver) Parents(id string) []string {
	return r.Parent[id]
}
