package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/agenthands/kgfed/internal/core/model"
)

// FixtureFile is the on-disk format of a fixture provider.
type FixtureFile struct {
	Infores      string        `json:"infores"`
	Associations []Association `json:"associations"`
}

// FixtureProvider answers edges from an in-memory association list. It
// matches the same way the graph queries do.
type FixtureProvider struct {
	Infores      string
	Associations []Association
}

func NewFixtureProvider(infores string, associations []Association) *FixtureProvider {
	return &FixtureProvider{Infores: infores, Associations: associations}
}

func LoadFixtureFile(path string) (*FixtureFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	var f FixtureFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture file %s: %w", path, err)
	}
	if f.Infores == "" {
		f.Infores = "infores:fixture"
	}
	return &f, nil
}

func LoadFixtureProvider(path string) (*FixtureProvider, error) {
	f, err := LoadFixtureFile(path)
	if err != nil {
		return nil, err
	}
	return NewFixtureProvider(f.Infores, f.Associations), nil
}

func (p *FixtureProvider) Name() string {
	return p.Infores
}

func (p *FixtureProvider) Supports(q EdgeQuery) bool {
	return len(q.InputIDs) > 0 || (!q.Reverse && len(q.InputCategories) > 0)
}

func (p *FixtureProvider) Fetch(ctx context.Context, q EdgeQuery) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	queried := idSet(q.InputIDs)
	predicates := idSet(q.Predicates)
	inputCategories := idSet(q.InputCategories)
	outputCategories := idSet(q.OutputCategories)

	var records []model.Record
	for _, a := range p.Associations {
		input, output, inCats, outCats := a.Subject, a.Object, a.SubjectCategories, a.ObjectCategories
		if q.Reverse {
			input, output, inCats, outCats = a.Object, a.Subject, a.ObjectCategories, a.SubjectCategories
		}

		if len(queried) > 0 {
			if !intersects(input.IDs(), queried) {
				continue
			}
		} else if !intersects(inCats, inputCategories) {
			continue
		}
		if len(predicates) > 0 && !intersects([]string{a.Predicate}, predicates) {
			continue
		}
		if len(outputCategories) > 0 && !intersects(outCats, outputCategories) {
			continue
		}

		infores := a.Infores
		if infores == "" {
			infores = p.Infores
		}
		input.QNodeID, output.QNodeID = "", ""
		input.Original = originalFor(input, queried)
		records = append(records, model.Record{
			Subject:         input,
			Object:          output,
			Predicate:       a.Predicate,
			APIName:         a.API,
			APIInforesCurie: infores,
			Attributes:      a.Attributes,
		})
	}
	return records, nil
}
