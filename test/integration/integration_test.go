//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/kgfed/internal/cache"
	"github.com/agenthands/kgfed/internal/config"
	"github.com/agenthands/kgfed/internal/core"
	"github.com/agenthands/kgfed/internal/core/model"
	"github.com/agenthands/kgfed/internal/driver"
	"github.com/agenthands/kgfed/internal/provider"
)

func TestFullFlow(t *testing.T) {
	_ = godotenv.Load("../../.env")

	uri := os.Getenv("MEMGRAPH_URI")
	if uri == "" {
		t.Skip("Skipping integration test: MEMGRAPH_URI not set")
	}
	user := os.Getenv("MEMGRAPH_USER")
	pwd := os.Getenv("MEMGRAPH_PASSWORD")

	ctx := context.Background()
	d, err := driver.NewMemgraphDriver(ctx, uri, user, pwd, nil)
	require.NoError(t, err)
	defer d.Close(ctx)
	require.NoError(t, d.BuildIndices(ctx))

	// unique ids so repeated runs do not see each other's data
	run := uuid.New().String()[:8]
	gene := fmt.Sprintf("NCBIGene:%s", run)
	chem := fmt.Sprintf("CHEBI:%s", run)
	disease := fmt.Sprintf("MONDO:%s", run)

	graph := provider.NewGraphProvider(d, "infores:integration", 0)
	require.NoError(t, graph.Load(ctx, []provider.Association{
		{
			Subject:           model.RecordNode{Curie: chem, UMLS: []string{"C" + run}},
			SubjectCategories: []string{"biolink:SmallMolecule"},
			Object:            model.RecordNode{Curie: gene},
			ObjectCategories:  []string{"biolink:Gene"},
			Predicate:         "biolink:affects",
			API:               "Integration KG",
		},
		{
			Subject:           model.RecordNode{Curie: chem},
			SubjectCategories: []string{"biolink:SmallMolecule"},
			Object:            model.RecordNode{Curie: disease},
			ObjectCategories:  []string{"biolink:Disease"},
			Predicate:         "biolink:treats",
			API:               "Integration KG",
		},
	}))

	store, err := cache.Open(cache.InMemoryConfig())
	require.NoError(t, err)
	defer store.Close()

	fed := provider.NewFederation([]provider.Provider{graph}, 2, nil)
	engine := core.NewEngine(fed, store, nil, nil, config.Default(), nil)

	g := model.QueryGraph{
		Nodes: map[string]model.NodeSpec{
			"n0": {IDs: []string{gene}, Categories: []string{"biolink:Gene"}},
			"n1": {Categories: []string{"biolink:SmallMolecule"}},
			"n2": {Categories: []string{"biolink:Disease"}},
		},
		Edges: map[string]model.EdgeSpec{
			"e0": {Subject: "n1", Object: "n0", Predicates: []string{"biolink:affects"}},
			"e1": {Subject: "n1", Object: "n2", Predicates: []string{"biolink:treats"}},
		},
	}

	start := time.Now()
	resp, err := engine.Query(ctx, g)
	require.NoError(t, err)
	t.Logf("first query took %s", time.Since(start))

	assert.Equal(t, core.StatusSuccess, resp.Status)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, []model.Binding{{ID: chem}}, resp.Results[0].NodeBindings["n1"])
	assert.Equal(t, []model.Binding{{ID: disease}}, resp.Results[0].NodeBindings["n2"])

	// second run is answered from the cache
	resp, err = engine.Query(ctx, g)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
}
