// Package cached wraps a TabularStore with a read-through table cache.
// Every write drops the cached snapshot of the table it touched, and a read
// that raced with a write never leaves its snapshot behind.
package cached

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tungkhanhbmt-a11y/alibaba2/internal/cache"
	"github.com/tungkhanhbmt-a11y/alibaba2/internal/store"
)

type Store struct {
	next   store.TabularStore
	cache  cache.TableCache
	ttl    time.Duration
	logger *logrus.Logger

	mu          sync.Mutex
	generations map[string]uint64
}

func New(next store.TabularStore, c cache.TableCache, ttl time.Duration, logger *logrus.Logger) *Store {
	if c == nil {
		c = cache.NoopTableCache{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{next: next, cache: c, ttl: ttl, logger: logger, generations: make(map[string]uint64)}
}

func (s *Store) ReadTable(ctx context.Context, table string) ([][]string, error) {
	rows, ok, err := s.cache.Get(ctx, table)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"module": "cache", "table": table}).WithError(err).Warn("table cache read failed")
	} else if ok {
		return store.CloneRows(rows), nil
	}

	gen := s.generation(table)
	rows, err = s.next.ReadTable(ctx, table)
	if err != nil {
		return nil, err
	}
	if s.generation(table) != gen {
		return store.CloneRows(rows), nil
	}
	if err := s.cache.Set(ctx, table, rows, s.ttl); err != nil {
		s.logger.WithFields(logrus.Fields{"module": "cache", "table": table}).WithError(err).Warn("table cache write failed")
	}
	// A write may have landed between the check and Set.
	if s.generation(table) != gen {
		s.invalidate(ctx, table)
	}
	return store.CloneRows(rows), nil
}

// ReadTableFresh reads from the wrapped store and leaves the cache alone.
func (s *Store) ReadTableFresh(ctx context.Context, table string) ([][]string, error) {
	return store.ReadFresh(ctx, s.next, table)
}

func (s *Store) WriteTable(ctx context.Context, table string, rows [][]string) error {
	defer s.written(ctx, table)
	return s.next.WriteTable(ctx, table, rows)
}

func (s *Store) AppendRows(ctx context.Context, table string, rows [][]string) error {
	defer s.written(ctx, table)
	return s.next.AppendRows(ctx, table, rows)
}

func (s *Store) ClearRow(ctx context.Context, table string, rowIndex int) error {
	defer s.written(ctx, table)
	return s.next.ClearRow(ctx, table, rowIndex)
}

func (s *Store) UpdateCell(ctx context.Context, table string, rowIndex int, colIndex int, value string) error {
	defer s.written(ctx, table)
	return s.next.UpdateCell(ctx, table, rowIndex, colIndex, value)
}

func (s *Store) generation(table string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[table]
}

// written bumps the table's generation before dropping its snapshot, so a
// concurrent reader either sees the bump or has its Set deleted here.
func (s *Store) written(ctx context.Context, table string) {
	s.mu.Lock()
	s.generations[table]++
	s.mu.Unlock()
	s.invalidate(ctx, table)
}

func (s *Store) invalidate(ctx context.Context, table string) {
	if err := s.cache.Delete(ctx, table); err != nil {
		s.logger.WithFields(logrus.Fields{"module": "cache", "table": table}).WithError(err).Warn("table cache invalidation failed")
	}
}
