package scheduler

import (
	"context"

	"github.com/agenthands/kgfed/internal/core/model"
	"github.com/agenthands/kgfed/internal/core/querylog"
)

// Categorized splits edges into records already cached and edges that still
// need executing. CachedRecords are annotated for the edges they belong to.
type Categorized struct {
	CachedRecords   []model.Record
	NonCachedQEdges []*model.QEdge
}

// RecordCache is the cross-query record cache.
type RecordCache interface {
	CategorizeEdges(ctx context.Context, edges []*model.QEdge) (Categorized, error)
	CacheEdges(ctx context.Context, edge *model.QEdge, records []model.Record) error
}

// CachedExecutor answers edges from the cache when it can and stores fresh
// results. Cache failures are logged and behave like misses.
type CachedExecutor struct {
	Next  EdgeExecutor
	Cache RecordCache
	Log   querylog.Sink
}

func NewCachedExecutor(next EdgeExecutor, cache RecordCache, sink querylog.Sink) *CachedExecutor {
	if sink == nil {
		sink = querylog.Discard{}
	}
	return &CachedExecutor{Next: next, Cache: cache, Log: sink}
}

func (c *CachedExecutor) ExecuteEdge(ctx context.Context, edge *model.QEdge) (Batch, error) {
	if c.Cache == nil {
		return c.Next.ExecuteEdge(ctx, edge)
	}

	cat, err := c.Cache.CategorizeEdges(ctx, []*model.QEdge{edge})
	if err != nil {
		c.Log.Add(querylog.LevelWarning, "record cache lookup failed for qEdge %s: %v", edge.ID, err)
		cat = Categorized{NonCachedQEdges: []*model.QEdge{edge}}
	}

	var out Batch
	if n := len(cat.CachedRecords); n > 0 {
		cacheHits.Inc()
		c.Log.Add(querylog.LevelInfo, "qEdge %s: %d records served from cache", edge.ID, n)
		out.Records = append(out.Records, cat.CachedRecords...)
	}

	for _, nc := range cat.NonCachedQEdges {
		batch, err := c.Next.ExecuteEdge(ctx, nc)
		if err != nil {
			return out, err
		}
		out.Records = append(out.Records, batch.Records...)
		out.Diagnostics.Merge(batch.Diagnostics)
		if len(batch.Records) == 0 {
			continue
		}
		if err := c.Cache.CacheEdges(ctx, nc, batch.Records); err != nil {
			c.Log.Add(querylog.LevelWarning, "failed to cache records for qEdge %s: %v", nc.ID, err)
		}
	}
	return out, nil
}
