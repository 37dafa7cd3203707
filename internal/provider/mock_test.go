package provider

import (
	"context"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/kgfed/internal/core/model"
)

type MockDriver struct {
	QueryExecuted string
	QueryParams   map[string]any
	Queries       []string
	MockResult    neo4j.EagerResult
	Err           error
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]any) (neo4j.EagerResult, error) {
	m.QueryExecuted = query
	m.QueryParams = params
	m.Queries = append(m.Queries, query)
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}
	return m.MockResult, nil
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	return nil
}

type MockProvider struct {
	ProviderName string
	Records      []model.Record
	Err          error
	Down         bool
	Unsupported  bool

	mu      sync.Mutex
	Queries []EdgeQuery
}

func (m *MockProvider) Name() string {
	return m.ProviderName
}

func (m *MockProvider) Supports(q EdgeQuery) bool {
	return !m.Unsupported
}

func (m *MockProvider) Available(ctx context.Context) bool {
	return !m.Down
}

func (m *MockProvider) Fetch(ctx context.Context, q EdgeQuery) ([]model.Record, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, q)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Records, nil
}
