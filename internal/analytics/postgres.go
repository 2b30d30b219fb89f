package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dsql/auth"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/datamimic"
	"go.uber.org/zap"
)

// counterPool is the subset of pgxpool.Pool used by PostgresStore.
type counterPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresStore keeps one row per counter and increments with an upsert.
type PostgresStore struct {
	pool  counterPool
	table string
	now   func() time.Time
}

// NewPostgresStore connects with pgxpool and creates the counter table if needed. With
// UseIAMAuth the password is replaced on every new connection by a DSQL auth token.
func NewPostgresStore(ctx context.Context, cfg datamimic.PostgresConfig) (*PostgresStore, error) {
	if !identifierPattern.MatchString(cfg.TableName) {
		return nil, datamimic.NewInvalidParameterError("analytics.postgres.tableName", "must be a plain SQL identifier")
	}

	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Username,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
		cfg.SSLMode,
	)
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.ConnConfig.ConnectTimeout = cfg.Timeout

	if cfg.UseIAMAuth {
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		endpoint := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		poolConfig.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
			token, err := auth.GenerateDbConnectAuthToken(ctx, endpoint, awsCfg.Region, awsCfg.Credentials)
			if err != nil {
				return fmt.Errorf("generate dsql auth token: %w", err)
			}
			cc.Password = token
			return nil
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := newPostgresStore(pool, cfg.TableName)
	if err := store.EnsureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	zap.S().Infow("analytics counters connected", "backend", "postgres", "host", cfg.Host, "table", cfg.TableName)
	return store, nil
}

func newPostgresStore(pool counterPool, table string) *PostgresStore {
	return &PostgresStore{pool: pool, table: table, now: time.Now}
}

// EnsureTable creates the counter table.
func (s *PostgresStore) EnsureTable(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	name TEXT PRIMARY KEY,
	value BIGINT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return datamimic.NewCounterError("create counter table", err)
	}
	return nil
}

// Increment adds one to counter.
func (s *PostgresStore) Increment(ctx context.Context, counter datamimic.Counter) error {
	if !validCounter(counter) {
		return datamimic.NewCounterError("unknown counter "+string(counter), nil)
	}
	stmt := fmt.Sprintf(`INSERT INTO %[1]s (name, value, updated_at) VALUES ($1, 1, $2)
ON CONFLICT (name) DO UPDATE SET value = %[1]s.value + 1, updated_at = EXCLUDED.updated_at`, s.table)
	if _, err := s.pool.Exec(ctx, stmt, string(counter), s.now().UTC()); err != nil {
		return datamimic.NewCounterError("increment "+string(counter), err)
	}
	return nil
}

// Load reads every counter. last_updated is the newest row timestamp.
func (s *PostgresStore) Load(ctx context.Context) (*datamimic.UsageStats, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT name, value, updated_at FROM %s", s.table))
	if err != nil {
		return nil, datamimic.NewCounterError("load counters", err)
	}
	defer rows.Close()

	stats := &datamimic.UsageStats{}
	for rows.Next() {
		var (
			name    string
			value   int64
			updated time.Time
		)
		if err := rows.Scan(&name, &value, &updated); err != nil {
			return nil, datamimic.NewCounterError("scan counter", err)
		}
		applyCounter(stats, name, value)
		if updated.After(stats.LastUpdated) {
			stats.LastUpdated = updated
		}
	}
	if err := rows.Err(); err != nil {
		return nil, datamimic.NewCounterError("iterate counters", err)
	}
	return stats, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
