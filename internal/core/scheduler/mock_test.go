package scheduler

import (
	"context"
	"errors"

	"github.com/agenthands/kgfed/internal/core/model"
)

type MockExecutor struct {
	Records     map[string][]model.Record
	Diagnostics map[string]Diagnostics
	Err         error
	Calls       []string
	// Reverse records the edge orientation seen at call time.
	Reverse map[string]bool
}

func (m *MockExecutor) ExecuteEdge(ctx context.Context, edge *model.QEdge) (Batch, error) {
	m.Calls = append(m.Calls, edge.ID)
	if m.Reverse == nil {
		m.Reverse = make(map[string]bool)
	}
	m.Reverse[edge.ID] = edge.Reverse
	if m.Err != nil {
		return Batch{}, m.Err
	}
	return Batch{Records: m.Records[edge.ID], Diagnostics: m.Diagnostics[edge.ID]}, nil
}

type MockCache struct {
	Hits      map[string][]model.Record
	Stored    map[string][]model.Record
	LookupErr error
	StoreErr  error
}

func (m *MockCache) CategorizeEdges(ctx context.Context, edges []*model.QEdge) (Categorized, error) {
	if m.LookupErr != nil {
		return Categorized{}, m.LookupErr
	}
	var out Categorized
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
	if m.StoreErr != nil {
		return m.StoreErr
	}
	if m.Stored == nil {
		m.Stored = make(map[string][]model.Record)
	}
	m.Stored[edge.ID] = records
	return nil
}

var errProvider = errors.New("provider unavailable")

func rec(subQ, sub, objQ, obj, hash string) model.Record {
	return model.Record{
		Subject: model.RecordNode{Curie: sub, QNodeID: subQ},
		Object:  model.RecordNode{Curie: obj, QNodeID: objQ},
		Hash:    hash,
	}
}
