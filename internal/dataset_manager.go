package internal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/lychee-technology/datamimic"
	"github.com/lychee-technology/datamimic/internal/codec"
	"go.uber.org/zap"
)

var _ datamimic.DatasetManager = (*DatasetManager)(nil)

// DatasetManager implements datamimic.DatasetManager over the in-memory registry.
type DatasetManager struct {
	catalog   datamimic.SchemaCatalog
	generator *DatasetGenerator
	registry  datamimic.DatasetRegistry
	codec     *codec.Codec
	exports   datamimic.ExportStore
	counters  datamimic.CounterStore
	config    *datamimic.Config
}

// NewDatasetManager wires the engine to its collaborators. exports and counters may be nil,
// which disables Export and usage tracking respectively.
func NewDatasetManager(
	config *datamimic.Config,
	catalog datamimic.SchemaCatalog,
	registry datamimic.DatasetRegistry,
	enc *codec.Codec,
	exports datamimic.ExportStore,
	counters datamimic.CounterStore,
) *DatasetManager {
	if enc == nil {
		enc = &codec.Codec{}
	}
	return &DatasetManager{
		catalog:   catalog,
		generator: NewDatasetGenerator(catalog, config.Generation),
		registry:  registry,
		codec:     enc,
		exports:   exports,
		counters:  counters,
		config:    config,
	}
}

// Generate builds a synthetic dataset and registers it under a new handle.
func (m *DatasetManager) Generate(ctx context.Context, params datamimic.GenerateParams) (*datamimic.GenerateResult, error) {
	start := time.Now()
	if params.Locality == "" {
		params.Locality = m.config.Generation.DefaultLocality
	}

	ds, err := m.generator.Generate(params)
	if err != nil {
		return nil, err
	}
	handle := m.registry.Create(ds, datamimic.OriginGenerated)
	m.count(ctx, datamimic.CounterDataGeneration)

	EmitLatency(ctx, "generate", time.Since(start).Milliseconds())
	EmitRowCount(ctx, "generate", int64(ds.NumRows()))
	return &datamimic.GenerateResult{
		Handle:  handle,
		Preview: previewOf(ds, m.config.Generation.PreviewRows),
		Summary: Summarize(ds),
	}, nil
}

// Upload parses a CSV or XLSX file and registers it. A superseded handle is deleted once
// the new dataset is stored.
func (m *DatasetManager) Upload(ctx context.Context, req datamimic.UploadRequest) (*datamimic.UploadResult, error) {
	start := time.Now()
	if req.FileName == "" {
		return nil, datamimic.NewMissingParameterError("file")
	}
	if !m.config.Upload.IsExtensionAllowed(req.FileName) {
		return nil, datamimic.NewUnsupportedFormatError(req.FileName).
			WithDetail("allowed", m.config.Upload.AllowedExtensions)
	}
	if req.Content == nil {
		return nil, datamimic.NewMissingParameterError("file")
	}

	limit := m.config.Upload.MaxContentLength
	content, err := io.ReadAll(io.LimitReader(req.Content, limit+1))
	if err != nil {
		return nil, datamimic.NewMalformedInputError("could not read upload", err)
	}
	if int64(len(content)) > limit {
		return nil, datamimic.NewContentTooLargeError(limit)
	}

	ds, err := codec.Decode(req.FileName, bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	handle := m.registry.Create(ds, datamimic.OriginUploaded)
	if req.Supersedes != "" && req.Supersedes != handle {
		m.registry.Delete(req.Supersedes)
		zap.S().Infow("removed superseded dataset", "handle", req.Supersedes, "replacement", handle)
	}

	zap.S().Infow("uploaded dataset", "handle", handle, "file", req.FileName,
		"rows", ds.NumRows(), "columns", ds.NumCols(), "bytes", len(content))
	EmitLatency(ctx, "upload", time.Since(start).Milliseconds())
	EmitRowCount(ctx, "upload", int64(ds.NumRows()))
	return &datamimic.UploadResult{
		Handle:  handle,
		Preview: previewOf(ds, m.config.Generation.PreviewRows),
		Summary: Summarize(ds),
	}, nil
}

// Apply runs one preprocessing action and replaces the dataset under handle. On failure
// the registered dataset is left as it was.
func (m *DatasetManager) Apply(ctx context.Context, handle datamimic.DatasetHandle, req datamimic.ActionRequest) (*datamimic.ApplyResult, error) {
	start := time.Now()
	ds, err := m.registry.Get(handle)
	if err != nil {
		return nil, err
	}

	out, message, err := Apply(ds, req)
	if err != nil {
		return nil, err
	}
	if err := m.registry.Replace(handle, out); err != nil {
		return nil, err
	}
	m.count(ctx, datamimic.CounterEDAOperations)

	zap.S().Infow("applied preprocessing action", "handle", handle, "action", req.Action,
		"rows", out.NumRows(), "columns", out.NumCols())
	EmitLatency(ctx, "apply", time.Since(start).Milliseconds())
	EmitRowCount(ctx, "apply", int64(out.NumRows()))
	return &datamimic.ApplyResult{
		Handle:  handle,
		Message: message,
		Preview: previewOf(out, m.config.Generation.PreviewRows),
		Summary: Summarize(out),
	}, nil
}

// Preview returns up to limit leading rows. Non-positive limits use the default preview
// size; limits above the configured maximum are capped.
func (m *DatasetManager) Preview(ctx context.Context, handle datamimic.DatasetHandle, limit int) (*datamimic.Preview, error) {
	ds, err := m.registry.Get(handle)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = m.config.Generation.PreviewRows
	}
	if limit > m.config.Registry.MaxPreviewRows {
		limit = m.config.Registry.MaxPreviewRows
	}
	return previewOf(ds, limit), nil
}

// Summary describes the dataset under handle.
func (m *DatasetManager) Summary(ctx context.Context, handle datamimic.DatasetHandle) (*datamimic.DatasetSummary, error) {
	ds, err := m.registry.Get(handle)
	if err != nil {
		return nil, err
	}
	summary := Summarize(ds)
	return &summary, nil
}

// Download encodes the dataset under handle.
func (m *DatasetManager) Download(ctx context.Context, handle datamimic.DatasetHandle, format datamimic.Format) (*datamimic.Download, error) {
	start := time.Now()
	name, body, err := m.encode(ctx, handle, format)
	if err != nil {
		return nil, err
	}
	EmitLatency(ctx, "download", time.Since(start).Milliseconds())
	return &datamimic.Download{
		FileName:    name,
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

// Export encodes the dataset under handle and publishes it to the export store.
func (m *DatasetManager) Export(ctx context.Context, handle datamimic.DatasetHandle, format datamimic.Format) (*datamimic.ExportResult, error) {
	if m.exports == nil {
		return nil, datamimic.NewExportError("no export store configured", nil)
	}
	start := time.Now()
	name, body, err := m.encode(ctx, handle, format)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s/%s", time.Now().UTC().Format("2006-01-02"), name)
	res, err := m.exports.Put(ctx, key, body, format.ContentType())
	if err != nil {
		return nil, err
	}
	EmitLatency(ctx, "export", time.Since(start).Milliseconds())
	return res, nil
}

// Delete removes handle. Unknown handles are ignored.
func (m *DatasetManager) Delete(ctx context.Context, handle datamimic.DatasetHandle) error {
	m.registry.Delete(handle)
	return nil
}

// ListSchemas returns the catalog's schema names.
func (m *DatasetManager) ListSchemas(ctx context.Context) []string {
	return m.catalog.List()
}

// SchemaColumns returns a schema's default columns.
func (m *DatasetManager) SchemaColumns(ctx context.Context, name string) ([]string, error) {
	return m.catalog.DefaultColumns(name)
}

// SchemaDocument describes the records generated from a schema as JSON Schema.
func (m *DatasetManager) SchemaDocument(ctx context.Context, name string) (*jsonschema.Schema, error) {
	schema, err := m.catalog.Get(name)
	if err != nil {
		return nil, err
	}
	return BuildSchemaDocument(schema, m.config.Generation.ClampVariance), nil
}

// Usage returns the persisted usage counters.
func (m *DatasetManager) Usage(ctx context.Context) (*datamimic.UsageStats, error) {
	if m.counters == nil {
		return &datamimic.UsageStats{}, nil
	}
	return m.counters.Load(ctx)
}

func (m *DatasetManager) encode(ctx context.Context, handle datamimic.DatasetHandle, format datamimic.Format) (string, []byte, error) {
	info, err := m.registry.Info(handle)
	if err != nil {
		return "", nil, err
	}
	ds, err := m.registry.Get(handle)
	if err != nil {
		return "", nil, err
	}
	body, err := m.codec.Encode(ctx, format, ds)
	if err != nil {
		return "", nil, err
	}
	return fileName(info.Origin, handle, format), body, nil
}

// count bumps a usage counter. Counter failures are logged and never fail the request.
func (m *DatasetManager) count(ctx context.Context, counter datamimic.Counter) {
	if m.counters == nil {
		return
	}
	if err := m.counters.Increment(ctx, counter); err != nil {
		zap.S().Warnw("failed to increment usage counter", "counter", counter, "error", err)
	}
}

func fileName(origin datamimic.Origin, handle datamimic.DatasetHandle, format datamimic.Format) string {
	prefix := "synthetic_data"
	if origin == datamimic.OriginUploaded {
		prefix = "processed_data"
	}
	return fmt.Sprintf("%s_%s.%s", prefix, handle, format.Extension())
}

func previewOf(ds *datamimic.Dataset, limit int) *datamimic.Preview {
	head := ds.Head(limit)
	rows := make([]datamimic.Row, len(head.Rows))
	copy(rows, head.Rows)
	return &datamimic.Preview{
		Columns:   append([]string{}, ds.Columns...),
		Rows:      rows,
		TotalRows: ds.NumRows(),
	}
}
