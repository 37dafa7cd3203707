package cache

import (
	"context"
	"log/slog"

	"github.com/agenthands/kgfed/internal/config"
	"github.com/agenthands/kgfed/internal/core/model"
	"github.com/agenthands/kgfed/internal/core/scheduler"
)

// Noop never hits and never stores.
type Noop struct{}

func (Noop) CategorizeEdges(ctx context.Context, edges []*model.QEdge) (scheduler.Categorized, error) {
	return scheduler.Categorized{NonCachedQEdges: edges}, nil
}

func (Noop) CacheEdges(context.Context, *model.QEdge, []model.Record) error {
	return nil
}

// FromConfig opens the cache described by cfg. A disabled cache returns
// nil, which the engine treats as no caching.
func FromConfig(cfg config.CacheConfig, logger *slog.Logger) (*Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	c := DefaultConfig()
	c.Path = cfg.Path
	c.InMemory = cfg.InMemory
	c.TTL = cfg.TTL()
	c.Logger = logger
	return Open(c)
}
