// Package export publishes encoded datasets to a local directory or an S3 bucket.
package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/golang/snappy"
	"github.com/lychee-technology/datamimic"
)

// New builds the export store selected by cfg.
func New(ctx context.Context, cfg datamimic.ExportConfig) (datamimic.ExportStore, error) {
	var store datamimic.ExportStore
	switch cfg.Backend {
	case "local", "":
		store = NewLocalStore(cfg.Directory)
	case "s3":
		s3Store, err := NewS3Store(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		store = s3Store
	default:
		return nil, fmt.Errorf("unsupported export backend: %s", cfg.Backend)
	}

	if cfg.Compression == "snappy" {
		store = &SnappyStore{next: store}
	}
	return store, nil
}

// SnappyStore compresses bodies with the snappy framing format before handing them on.
type SnappyStore struct {
	next datamimic.ExportStore
}

// NewSnappyStore wraps next.
func NewSnappyStore(next datamimic.ExportStore) *SnappyStore {
	return &SnappyStore{next: next}
}

// Put compresses body and stores it under key + ".sz".
func (s *SnappyStore) Put(ctx context.Context, key string, body []byte, contentType string) (*datamimic.ExportResult, error) {
	var buf bytes.Buffer
	w := snappy.NewBufferedWriter(&buf)
	if _, err := w.Write(body); err != nil {
		return nil, datamimic.NewExportError("snappy compression failed", err)
	}
	if err := w.Close(); err != nil {
		return nil, datamimic.NewExportError("snappy compression failed", err)
	}
	return s.next.Put(ctx, key+".sz", buf.Bytes(), "application/x-snappy-framed")
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks that store can accept exports. Stores without a health check are assumed healthy.
func Ping(ctx context.Context, store datamimic.ExportStore) error {
	if p, ok := store.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *SnappyStore) Ping(ctx context.Context) error { return Ping(ctx, s.next) }
