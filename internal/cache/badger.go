// Package cache keeps edge records across queries so that repeated edge
// executions skip the providers.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/agenthands/kgfed/internal/core/model"
	"github.com/agenthands/kgfed/internal/core/scheduler"
)

const keyPrefix = "records/"

type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path     string
	InMemory bool
	// TTL expires cached records. Zero keeps them until removed.
	TTL        time.Duration
	SyncWrites bool
	Logger     *slog.Logger

	// GCInterval is how often to collect the value log. Zero disables it.
	GCInterval     time.Duration
	GCDiscardRatio float64
}

func DefaultConfig() Config {
	return Config{
		TTL:            24 * time.Hour,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is a badger-backed scheduler.RecordCache. Records are kept in
// execution direction without qNode ids and keyed by QEdge.HashKey, so any
// query issuing the same edge can reuse them.
type Store struct {
	db  *badger.DB
	cfg Config

	stop chan struct{}
	done chan struct{}
}

var _ scheduler.RecordCache = (*Store)(nil)

func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for a persistent cache")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open record cache: %w", err)
	}

	s := &Store{db: db, cfg: cfg}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.runGC()
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.stop != nil {
		close(s.stop)
		<-s.done
	}
	return s.db.Close()
}

func (s *Store) runGC() {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			// ErrNoRewrite just means there was nothing to collect
			if err := s.db.RunValueLogGC(s.cfg.GCDiscardRatio); err != nil && !errors.Is(err, badger.ErrNoRewrite) && s.cfg.Logger != nil {
				s.cfg.Logger.Warn("record cache gc failed", slog.Any("error", err))
			}
		}
	}
}

func key(e *model.QEdge) []byte {
	return []byte(keyPrefix + e.HashKey())
}

func (s *Store) CategorizeEdges(ctx context.Context, edges []*model.QEdge) (scheduler.Categorized, error) {
	var out scheduler.Categorized
	err := s.db.View(func(txn *badger.Txn) error {
		for _, e := range edges {
			if err := ctx.Err(); err != nil {
				return err
			}
			item, err := txn.Get(key(e))
			if errors.Is(err, badger.ErrKeyNotFound) {
				lookups.WithLabelValues("miss").Inc()
				out.NonCachedQEdges = append(out.NonCachedQEdges, e)
				continue
			}
			if err != nil {
				return fmt.Errorf("get qEdge %s: %w", e.ID, err)
			}

			var records []model.Record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &records)
			}); err != nil {
				return fmt.Errorf("decode qEdge %s: %w", e.ID, err)
			}
			lookups.WithLabelValues("hit").Inc()
			out.CachedRecords = append(out.CachedRecords, model.AnnotateForEdge(records, e)...)
		}
		return nil
	})
	if err != nil {
		return scheduler.Categorized{}, err
	}
	return out, nil
}

func (s *Store) CacheEdges(ctx context.Context, e *model.QEdge, records []model.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	val, err := json.Marshal(model.ExecutionDirection(records, e))
	if err != nil {
		return fmt.Errorf("encode qEdge %s: %w", e.ID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key(e), val)
		if s.cfg.TTL > 0 {
			entry = entry.WithTTL(s.cfg.TTL)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("store qEdge %s: %w", e.ID, err)
	}
	stored.Add(float64(len(records)))
	return nil
}

// Clear drops every cached record.
func (s *Store) Clear() error {
	return s.db.DropPrefix([]byte(keyPrefix))
}
