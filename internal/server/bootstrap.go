package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/agenthands/kgfed/internal/cache"
	"github.com/agenthands/kgfed/internal/config"
	"github.com/agenthands/kgfed/internal/core"
	"github.com/agenthands/kgfed/internal/core/model"
	"github.com/agenthands/kgfed/internal/driver"
	"github.com/agenthands/kgfed/internal/provider"
	"github.com/agenthands/kgfed/internal/relatedness"
)

// GraphInfores names the Memgraph-backed provider.
const GraphInfores = "infores:kgfed-memgraph"

// Components holds what Build wired together, so callers can release it.
type Components struct {
	Engine      *core.Engine
	Driver      driver.GraphDriver
	Cache       *cache.Store
	Relatedness *relatedness.Client
}

func (c *Components) Close(ctx context.Context) error {
	var errs []error
	if c.Relatedness != nil {
		c.Relatedness.Close()
	}
	if c.Cache != nil {
		errs = append(errs, c.Cache.Close())
	}
	if c.Driver != nil {
		errs = append(errs, c.Driver.Close(ctx))
	}
	return errors.Join(errs...)
}

// Build wires providers, cache and relatedness client from cfg into an
// Engine. At least one provider must be configured.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	out := &Components{}

	var resolver model.Resolver = model.NopResolver{}
	if cfg.Providers.ResolverPath != "" {
		r, err := model.LoadStaticResolver(cfg.Providers.ResolverPath)
		if err != nil {
			return nil, err
		}
		resolver = r
	}

	var providers []provider.Provider
	if cfg.Providers.FixturePath != "" {
		p, err := provider.LoadFixtureProvider(cfg.Providers.FixturePath)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
		logger.Info("fixture provider loaded", slog.String("infores", p.Name()), slog.Int("associations", len(p.Associations)))
	}
	if cfg.Memgraph.URI != "" {
		d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password, logger)
		if err != nil {
			if len(providers) == 0 {
				return nil, fmt.Errorf("failed to connect to memgraph: %w", err)
			}
			logger.Warn("memgraph unavailable, continuing with other providers", slog.Any("error", err))
		} else {
			if err := d.BuildIndices(ctx); err != nil {
				logger.Warn("failed to build indices", slog.Any("error", err))
			}
			out.Driver = d
			providers = append(providers, provider.NewGraphProvider(d, GraphInfores, 0))
		}
	}
	if len(providers) == 0 {
		return nil, errors.New("no knowledge providers configured")
	}

	store, err := cache.FromConfig(cfg.Cache, logger)
	if err != nil {
		_ = out.Close(ctx)
		return nil, err
	}
	out.Cache = store

	if cfg.Relatedness.URL != "" {
		lookup, err := relatedness.NewClient(cfg.Relatedness.URL, cfg.Relatedness.Timeout(), logger)
		if err != nil {
			_ = out.Close(ctx)
			return nil, err
		}
		out.Relatedness = lookup
	}

	federation := provider.NewFederation(providers, cfg.Providers.Concurrency, logger)
	engine := core.NewEngine(federation, nil, nil, resolver, cfg, logger)
	// assign only non-nil values so the interfaces stay nil when disabled
	if store != nil {
		engine.Cache = store
	}
	if out.Relatedness != nil {
		engine.Relatedness = out.Relatedness
	}
	out.Engine = engine
	return out, nil
}
