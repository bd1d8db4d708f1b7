package cache

import (
	"context"
	"time"
)

// TableCache holds full table snapshots keyed by table name.
type TableCache interface {
	Get(ctx context.Context, key string) ([][]string, bool, error)
	Set(ctx context.Context, key string, rows [][]string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type NoopTableCache struct{}

func (NoopTableCache) Get(_ context.Context, _ string) ([][]string, bool, error) {
	return nil, false, nil
}

func (NoopTableCache) Set(_ context.Context, _ string, _ [][]string, _ time.Duration) error {
	return nil
}

func (NoopTableCache) Delete(_ context.Context, _ string) error {
	return nil
}
