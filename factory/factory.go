package factory

import (
	"context"
	"errors"
	"fmt"

	"github.com/lychee-technology/datamimic"
	"github.com/lychee-technology/datamimic/internal"
	"github.com/lychee-technology/datamimic/internal/analytics"
	"github.com/lychee-technology/datamimic/internal/codec"
	"github.com/lychee-technology/datamimic/internal/export"
	"go.uber.org/zap"
)

// Components holds a wired DatasetManager together with the resources it owns.
type Components struct {
	Manager  datamimic.DatasetManager
	Registry *internal.DatasetRegistry
	Janitor  *internal.SessionJanitor
	Counters datamimic.CounterStore

	duckdb  *internal.DuckDBClient
	exports datamimic.ExportStore
}

// NewDatasetManagerWithConfig validates config and builds the manager with its schema catalog,
// registry, parquet engine, export store and usage counters.
func NewDatasetManagerWithConfig(ctx context.Context, config *datamimic.Config) (*Components, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	catalog, err := internal.NewFileSchemaCatalog(config.Generation.SchemaDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to load schemas: %w", err)
	}

	duck, err := internal.NewDuckDBClient(config.Export.DuckDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	exports, err := export.New(ctx, config.Export)
	if err != nil {
		duck.Close()
		return nil, fmt.Errorf("failed to create export store: %w", err)
	}

	counters, err := analytics.New(ctx, config.Analytics)
	if err != nil {
		duck.Close()
		return nil, fmt.Errorf("failed to create counter store: %w", err)
	}

	registry := internal.NewDatasetRegistry()
	enc := &codec.Codec{DB: duck.DB, TempDir: config.Export.DuckDB.TempDirectory}

	zap.S().Infow("dataset manager ready",
		"schemas", len(catalog.List()),
		"exportBackend", config.Export.Backend,
		"analyticsBackend", config.Analytics.Backend,
	)

	return &Components{
		Manager:  internal.NewDatasetManager(config, catalog, registry, enc, exports, counters),
		Registry: registry,
		Janitor:  internal.NewSessionJanitor(registry, config.Registry),
		Counters: counters,
		duckdb:   duck,
		exports:  exports,
	}, nil
}

// Ready checks the parquet engine, the export store and the counter store.
func (c *Components) Ready(ctx context.Context) error {
	if err := c.duckdb.HealthCheck(ctx); err != nil {
		return fmt.Errorf("duckdb: %w", err)
	}
	if c.exports != nil {
		if err := export.Ping(ctx, c.exports); err != nil {
			return fmt.Errorf("export store: %w", err)
		}
	}
	if c.Counters != nil {
		if err := analytics.Ping(ctx, c.Counters); err != nil {
			return fmt.Errorf("counter store: %w", err)
		}
	}
	return nil
}

// Close releases the counter store and the parquet engine.
func (c *Components) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Counters != nil {
		if err := c.Counters.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close counters: %w", err))
		}
	}
	if err := c.duckdb.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close duckdb: %w", err))
	}
	return errors.Join(errs...)
}
