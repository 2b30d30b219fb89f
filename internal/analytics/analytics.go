// Package analytics persists the usage counters behind the /api/usage endpoint.
package analytics

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/lychee-technology/datamimic"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// New opens the counter store selected by cfg.
func New(ctx context.Context, cfg datamimic.AnalyticsConfig) (datamimic.CounterStore, error) {
	switch cfg.Backend {
	case "file", "":
		return NewFileStore(cfg.Path), nil
	case "sqlite":
		return NewSQLiteStore(ctx, cfg.Path)
	case "postgres":
		store, err := NewPostgresStore(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return Guard(store, NewCircuitBreaker(3, time.Minute, 30*time.Second)), nil
	case "none":
		return NopStore{}, nil
	}
	return nil, fmt.Errorf("unsupported analytics backend: %s", cfg.Backend)
}

func validCounter(c datamimic.Counter) bool {
	return c == datamimic.CounterDataGeneration || c == datamimic.CounterEDAOperations
}

func applyCounter(stats *datamimic.UsageStats, name string, value int64) {
	switch datamimic.Counter(name) {
	case datamimic.CounterDataGeneration:
		stats.DataGenerationCount = value
	case datamimic.CounterEDAOperations:
		stats.EDAOperationsCount = value
	}
}

// NopStore discards increments and reports zero counters.
type NopStore struct{}

func (NopStore) Increment(ctx context.Context, counter datamimic.Counter) error { return nil }

func (NopStore) Load(ctx context.Context) (*datamimic.UsageStats, error) {
	return &datamimic.UsageStats{}, nil
}

func (NopStore) Close() error { return nil }
