package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lychee-technology/datamimic"
	"go.uber.org/zap"
)

// LocalStore writes exports below a directory on the local filesystem.
type LocalStore struct {
	dir string
}

// NewLocalStore creates a store rooted at dir. The directory is created on first use.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

// Put writes body to dir/key, replacing any previous file.
func (s *LocalStore) Put(ctx context.Context, key string, body []byte, contentType string) (*datamimic.ExportResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key == "" || strings.Contains(key, "..") {
		return nil, datamimic.NewInvalidParameterError("key", "must be a relative path without '..'")
	}
	path := filepath.Join(s.dir, filepath.Clean("/"+key))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, datamimic.NewExportError("create export directory", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return nil, datamimic.NewExportError("write export file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return nil, datamimic.NewExportError("finalize export file", err)
	}

	zap.S().Infow("exported dataset", "backend", "local", "path", path, "bytes", len(body))
	return &datamimic.ExportResult{Location: path, Size: int64(len(body))}, nil
}

// Ping checks that the export directory can be created.
func (s *LocalStore) Ping(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("export directory: %w", err)
	}
	return nil
}
