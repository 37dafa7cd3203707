package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/kgfed/internal/core/model"
	"github.com/agenthands/kgfed/internal/driver"
)

var ErrUnboundedQuery = errors.New("query has neither input ids nor input categories")

// GraphProvider serves records from a Memgraph (or Neo4j) knowledge graph.
type GraphProvider struct {
	Driver  driver.GraphDriver
	Infores string
	Limit   int
}

func NewGraphProvider(d driver.GraphDriver, infores string, limit int) *GraphProvider {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &GraphProvider{Driver: d, Infores: infores, Limit: limit}
}

func (p *GraphProvider) Name() string {
	return p.Infores
}

func (p *GraphProvider) Supports(q EdgeQuery) bool {
	return len(q.InputIDs) > 0 || (!q.Reverse && len(q.InputCategories) > 0)
}

func (p *GraphProvider) Fetch(ctx context.Context, q EdgeQuery) ([]model.Record, error) {
	query, params, err := p.buildQuery(q)
	if err != nil {
		return nil, err
	}

	res, err := p.Driver.ExecuteQuery(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Infores, err)
	}

	queried := idSet(q.InputIDs)
	records := make([]model.Record, 0, len(res.Records))
	for _, row := range res.Records {
		r, err := p.parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Infores, err)
		}
		r.Subject.Original = originalFor(r.Subject, queried)
		records = append(records, r)
	}
	return records, nil
}

func (p *GraphProvider) buildQuery(q EdgeQuery) (string, map[string]any, error) {
	params := map[string]any{
		"predicates":        nonNil(q.Predicates),
		"output_categories": nonNil(q.OutputCategories),
		"limit":             p.Limit,
	}
	switch {
	case len(q.InputIDs) > 0 && q.Reverse:
		params["input_ids"] = q.InputIDs
		return driver.FetchReverseQuery, params, nil
	case len(q.InputIDs) > 0:
		params["input_ids"] = q.InputIDs
		return driver.FetchForwardQuery, params, nil
	case !q.Reverse && len(q.InputCategories) > 0:
		params["input_categories"] = q.InputCategories
		return driver.FetchByCategoryQuery, params, nil
	}
	return "", nil, ErrUnboundedQuery
}

func (p *GraphProvider) parseRow(row *neo4j.Record) (model.Record, error) {
	inputID, err := str(row, "input_id")
	if err != nil {
		return model.Record{}, err
	}
	outputID, err := str(row, "output_id")
	if err != nil {
		return model.Record{}, err
	}
	predicate, _ := str(row, "predicate")
	api, _ := str(row, "api")
	infores, _ := str(row, "infores")
	if infores == "" {
		infores = p.Infores
	}

	r := model.Record{
		Subject: model.RecordNode{
			Curie:       inputID,
			Equivalents: strs(row, "input_equivalents"),
			UMLS:        strs(row, "input_umls"),
		},
		Object: model.RecordNode{
			Curie:       outputID,
			Equivalents: strs(row, "output_equivalents"),
			UMLS:        strs(row, "output_umls"),
		},
		Predicate:       predicate,
		APIName:         api,
		APIInforesCurie: infores,
	}
	if attrs, ok := row.Get("attributes"); ok {
		if m, ok := attrs.(map[string]any); ok {
			r.Attributes = m
		}
	}
	return r, nil
}

// Load writes associations and their entities into the graph.
func (p *GraphProvider) Load(ctx context.Context, associations []Association) error {
	for _, a := range associations {
		if err := p.saveEntity(ctx, a.Subject, a.SubjectCategories); err != nil {
			return err
		}
		if err := p.saveEntity(ctx, a.Object, a.ObjectCategories); err != nil {
			return err
		}
		infores := a.Infores
		if infores == "" {
			infores = p.Infores
		}
		params := map[string]any{
			"subject_id": a.Subject.Curie,
			"object_id":  a.Object.Curie,
			"predicate":  a.Predicate,
			"infores":    infores,
			"api":        a.API,
			"attributes": a.Attributes,
		}
		if _, err := p.Driver.ExecuteQuery(ctx, driver.SaveAssociationQuery, params); err != nil {
			return fmt.Errorf("failed to save association %s -> %s: %w", a.Subject.Curie, a.Object.Curie, err)
		}
	}
	return nil
}

func (p *GraphProvider) saveEntity(ctx context.Context, n model.RecordNode, categories []string) error {
	params := map[string]any{
		"id":             n.Curie,
		"name":           n.Curie,
		"categories":     nonNil(categories),
		"equivalent_ids": nonNil(n.Equivalents),
		"umls":           nonNil(n.UMLS),
	}
	if _, err := p.Driver.ExecuteQuery(ctx, driver.SaveEntityQuery, params); err != nil {
		return fmt.Errorf("failed to save entity %s: %w", n.Curie, err)
	}
	return nil
}

func str(row *neo4j.Record, key string) (string, error) {
	v, ok := row.Get(key)
	if !ok || v == nil {
		return "", fmt.Errorf("row is missing %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("column %s is %T, not a string", key, v)
	}
	return s, nil
}

func strs(row *neo4j.Record, key string) []string {
	v, ok := row.Get(key)
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
