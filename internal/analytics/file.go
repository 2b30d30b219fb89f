package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lychee-technology/datamimic"
	"go.uber.org/zap"
)

// FileStore keeps counters in a JSON document. A mutex serializes read-modify-write cycles
// within the process.
type FileStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileStore creates a store backed by path. A missing file reads as zero counters.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Increment adds one to counter and stamps last_updated.
func (s *FileStore) Increment(ctx context.Context, counter datamimic.Counter) error {
	if !validCounter(counter) {
		return datamimic.NewCounterError("unknown counter "+string(counter), nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, err := s.read()
	if err != nil {
		return err
	}
	switch counter {
	case datamimic.CounterDataGeneration:
		stats.DataGenerationCount++
	case datamimic.CounterEDAOperations:
		stats.EDAOperationsCount++
	}
	stats.LastUpdated = s.now().UTC()
	return s.write(stats)
}

// Load returns the stored counters.
func (s *FileStore) Load(ctx context.Context) (*datamimic.UsageStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) read() (*datamimic.UsageStats, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &datamimic.UsageStats{}, nil
	}
	if err != nil {
		return nil, datamimic.NewCounterError("read analytics file", err)
	}
	var stats datamimic.UsageStats
	if err := json.Unmarshal(data, &stats); err != nil {
		zap.S().Warnw("analytics file is corrupt, starting from zero", "path", s.path, "error", err)
		return &datamimic.UsageStats{}, nil
	}
	return &stats, nil
}

func (s *FileStore) write(stats *datamimic.UsageStats) error {
	data, err := json.MarshalIndent(stats, "", "    ")
	if err != nil {
		return datamimic.NewCounterError("encode analytics", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return datamimic.NewCounterError("create analytics directory", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return datamimic.NewCounterError("write analytics file", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return datamimic.NewCounterError("replace analytics file", err)
	}
	return nil
}
