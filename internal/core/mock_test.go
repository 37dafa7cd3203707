package core

import (
	"context"

	"github.com/agenthands/kgfed/internal/core/model"
	"github.com/agenthands/kgfed/internal/core/scheduler"
	"github.com/agenthands/kgfed/internal/core/scoring"
)

type MockExecutor struct {
	Records map[string][]model.Record
	Err     error
	Calls   []string
}

func (m *MockExecutor) ExecuteEdge(ctx context.Context, edge *model.QEdge) (scheduler.Batch, error) {
	m.Calls = append(m.Calls, edge.ID)
	if m.Err != nil {
		return scheduler.Batch{}, m.Err
	}
	return scheduler.Batch{Records: m.Records[edge.ID]}, nil
}

type MockCache struct {
	Hits   map[string][]model.Record
	Stored map[string][]model.Record
}

func (m *MockCache) CategorizeEdges(ctx context.Context, edges []*model.QEdge) (scheduler.Categorized, error) {
	var out scheduler.Categorized
	for _, e := range edges {
		if hit, ok := m.Hits[e.ID]; ok {
			out.CachedRecords = append(out.CachedRecords, hit...)
			continue
		}
		out.NonCachedQEdges = append(out.NonCachedQEdges, e)
	}
	return out, nil
}

func (m *MockCache) CacheEdges(ctx context.Context, edge *model.QEdge, records []model.Record) error {
	if m.Stored == nil {
		m.Stored = make(map[string][]model.Record)
	}
	m.Stored[edge.ID] = records
	return nil
}

type MockLookup struct {
	Table scoring.RelatednessTable
	Err   error
}

func (m *MockLookup) Lookup(ctx context.Context, pairs []scoring.Pair) (scoring.RelatednessTable, error) {
	return m.Table, m.Err
}

func rec(subQ, sub, objQ, obj, hash string) model.Record {
	return model.Record{
		Subject: model.RecordNode{Curie: sub, QNodeID: subQ},
		Object:  model.RecordNode{Curie: obj, QNodeID: objQ},
		Hash:    hash,
	}
}
