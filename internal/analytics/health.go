package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/lychee-technology/datamimic"
)

const defaultPingTimeout = 5 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks that store can be reached. Stores without a health check are assumed healthy.
func Ping(ctx context.Context, store datamimic.CounterStore) error {
	p, ok := store.(pinger)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	return p.Ping(ctx)
}

// Ping runs a trivial query to validate basic SQL execution.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("postgres simple query failed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

// Ping reads the counter file. A missing file is healthy.
func (s *FileStore) Ping(ctx context.Context) error {
	_, err := s.Load(ctx)
	return err
}
