package results

import (
	"context"

	"github.com/agenthands/kgfed/internal/core/model"
	"github.com/agenthands/kgfed/internal/core/scoring"
)

type MockLookup struct {
	Table scoring.RelatednessTable
	Err   error
	Pairs []scoring.Pair
	Calls int
}

func (m *MockLookup) Lookup(ctx context.Context, pairs []scoring.Pair) (scoring.RelatednessTable, error) {
	m.Calls++
	m.Pairs = pairs
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Table, nil
}

func rec(subQ, sub, objQ, obj, hash string) model.Record {
	return model.Record{
		Subject: model.RecordNode{Curie: sub, QNodeID: subQ},
		Object:  model.RecordNode{Curie: obj, QNodeID: objQ},
		Hash:    hash,
	}
}
