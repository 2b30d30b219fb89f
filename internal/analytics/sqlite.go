package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lychee-technology/datamimic"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS usage_counters (
	name TEXT PRIMARY KEY,
	value INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
)`

// SQLiteStore keeps counters in a local SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (and if needed creates) the database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, datamimic.NewCounterError("create counter table", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Increment adds one to counter.
func (s *SQLiteStore) Increment(ctx context.Context, counter datamimic.Counter) error {
	if !validCounter(counter) {
		return datamimic.NewCounterError("unknown counter "+string(counter), nil)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO usage_counters (name, value, updated_at) VALUES (?, 1, ?)
ON CONFLICT(name) DO UPDATE SET value = value + 1, updated_at = excluded.updated_at`,
		string(counter), s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return datamimic.NewCounterError("increment "+string(counter), err)
	}
	return nil
}

// Load reads every counter.
func (s *SQLiteStore) Load(ctx context.Context) (*datamimic.UsageStats, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, value, updated_at FROM usage_counters")
	if err != nil {
		return nil, datamimic.NewCounterError("load counters", err)
	}
	defer rows.Close()

	stats := &datamimic.UsageStats{}
	for rows.Next() {
		var (
			name, updated string
			value         int64
		)
		if err := rows.Scan(&name, &value, &updated); err != nil {
			return nil, datamimic.NewCounterError("scan counter", err)
		}
		applyCounter(stats, name, value)
		if t, err := time.Parse(time.RFC3339Nano, updated); err == nil && t.After(stats.LastUpdated) {
			stats.LastUpdated = t
		}
	}
	if err := rows.Err(); err != nil {
		return nil, datamimic.NewCounterError("iterate counters", err)
	}
	return stats, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
