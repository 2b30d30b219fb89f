package internal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/lychee-technology/datamimic"
	"go.uber.org/zap"
)

// DuckDBClient wraps a database/sql DB opened with the DuckDB driver. It backs Parquet
// encoding of downloads and exports.
type DuckDBClient struct {
	DB  *sql.DB
	cfg datamimic.DuckDBConfig
}

// NewDuckDBClient opens DuckDB, loads the parquet extension and applies resource pragmas.
func NewDuckDBClient(cfg datamimic.DuckDBConfig) (*DuckDBClient, error) {
	if cfg.MemoryLimitMB < 0 {
		return nil, fmt.Errorf("invalid memory_limit_mb: must be >= 0")
	}

	dsn := cfg.DBPath
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	if _, err := db.ExecContext(ctx, "INSTALL parquet;"); err == nil {
		if _, err := db.ExecContext(ctx, "LOAD parquet;"); err != nil {
			zap.S().Warnw("duckdb: load parquet failed", "err", err)
		}
	} else {
		zap.S().Warnw("duckdb: install parquet failed", "err", err)
	}

	if cfg.MemoryLimitMB > 0 {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA memory_limit='%dMB';", cfg.MemoryLimitMB)); err != nil {
			zap.S().Warnw("duckdb: set memory_limit failed", "err", err, "memoryLimitMB", cfg.MemoryLimitMB)
		}
	}
	if cfg.TempDirectory != "" {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA temp_directory='%s';", cfg.TempDirectory)); err != nil {
			zap.S().Warnw("duckdb: set temp_directory failed", "err", err, "tempDirectory", cfg.TempDirectory)
		}
	}

	return &DuckDBClient{DB: db, cfg: cfg}, nil
}

// Close closes the underlying DuckDB DB.
func (c *DuckDBClient) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

// HealthCheck runs a trivial query against the connection.
func (c *DuckDBClient) HealthCheck(ctx context.Context) error {
	if c == nil || c.DB == nil {
		return fmt.Errorf("duckdb client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var v int
	if err := c.DB.QueryRowContext(ctx, "SELECT 1;").Scan(&v); err != nil {
		return fmt.Errorf("duckdb health query failed: %w", err)
	}
	if v != 1 {
		return fmt.Errorf("unexpected duckdb health result: %d", v)
	}
	return nil
}
