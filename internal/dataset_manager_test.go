package internal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lychee-technology/datamimic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExportStore struct {
	keys   []string
	bodies [][]byte
	err    error
}

func (s *recordingExportStore) Put(ctx context.Context, key string, body []byte, contentType string) (*datamimic.ExportResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.keys = append(s.keys, key)
	s.bodies = append(s.bodies, body)
	return &datamimic.ExportResult{Location: "mem://" + key, Size: int64(len(body))}, nil
}

type memoryCounters struct {
	mu    sync.Mutex
	stats datamimic.UsageStats
	err   error
}

func (c *memoryCounters) Increment(ctx context.Context, counter datamimic.Counter) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch counter {
	case datamimic.CounterDataGeneration:
		c.stats.DataGenerationCount++
	case datamimic.CounterEDAOperations:
		c.stats.EDAOperationsCount++
	}
	c.stats.LastUpdated = time.Now()
	return nil
}

func (c *memoryCounters) Load(ctx context.Context) (*datamimic.UsageStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	return &s, nil
}

func (c *memoryCounters) Close() error { return nil }

func newTestManager(t *testing.T) (*DatasetManager, *recordingExportStore, *memoryCounters) {
	t.Helper()
	cfg := datamimic.DefaultConfig()
	cfg.Upload.MaxContentLength = 1024
	exports := &recordingExportStore{}
	counters := &memoryCounters{}
	m := NewDatasetManager(cfg, NewSchemaCatalog(), NewDatasetRegistry(), nil, exports, counters)
	return m, exports, counters
}

const sampleCSV = "name,age,city\nalice,30,paris\nbob,,rome\ncarol,25,\nalice,30,paris\n"

func TestManagerGenerate(t *testing.T) {
	m, _, counters := newTestManager(t)
	ctx := context.Background()

	res, err := m.Generate(ctx, datamimic.GenerateParams{RecordCount: 40, SchemaName: "finance", Seed: seedPtr(1)})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Handle)
	assert.Len(t, res.Preview.Rows, 10)
	assert.Equal(t, 40, res.Preview.TotalRows)
	assert.Equal(t, 40, res.Summary.TotalRows)

	usage, err := m.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), usage.DataGenerationCount)
	assert.Equal(t, int64(1), counters.stats.DataGenerationCount)

	_, err = m.Generate(ctx, datamimic.GenerateParams{RecordCount: 0, SchemaName: "finance"})
	assert.True(t, errors.Is(err, datamimic.ErrInvalidParameter))
}

func TestManagerUploadApplyAndDownload(t *testing.T) {
	m, _, counters := newTestManager(t)
	ctx := context.Background()

	up, err := m.Upload(ctx, datamimic.UploadRequest{FileName: "people.csv", Content: strings.NewReader(sampleCSV)})
	require.NoError(t, err)
	assert.Equal(t, 4, up.Summary.TotalRows)
	assert.Equal(t, []string{"name", "age", "city"}, up.Preview.Columns)

	applied, err := m.Apply(ctx, up.Handle, datamimic.ActionRequest{Action: datamimic.ActionRemoveDuplicateRows})
	require.NoError(t, err)
	assert.Equal(t, "Removed 1 duplicate rows.", applied.Message)
	assert.Equal(t, 3, applied.Summary.TotalRows)
	assert.Equal(t, int64(1), counters.stats.EDAOperationsCount)

	summary, err := m.Summary(ctx, up.Handle)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalRows)

	dl, err := m.Download(ctx, up.Handle, datamimic.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "processed_data_"+up.Handle.String()+".csv", dl.FileName)
	assert.Equal(t, "text/csv", dl.ContentType)
	assert.Equal(t, "name,age,city\nalice,30,paris\nbob,,rome\ncarol,25,\n", string(dl.Body))
}

func TestManagerApplyFailureKeepsDataset(t *testing.T) {
	m, _, counters := newTestManager(t)
	ctx := context.Background()

	up, err := m.Upload(ctx, datamimic.UploadRequest{FileName: "people.csv", Content: strings.NewReader(sampleCSV)})
	require.NoError(t, err)

	_, err = m.Apply(ctx, up.Handle, datamimic.ActionRequest{Action: datamimic.ActionScaleColumns,
		Params: datamimic.ActionParams{Columns: []string{"name"}, Method: "min_max"}})
	assert.True(t, errors.Is(err, datamimic.ErrInvalidColumnType))
	assert.Equal(t, int64(0), counters.stats.EDAOperationsCount)

	preview, err := m.Preview(ctx, up.Handle, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, preview.TotalRows)

	_, err = m.Apply(ctx, "unknown", datamimic.ActionRequest{Action: datamimic.ActionRemoveDuplicateRows})
	assert.True(t, errors.Is(err, datamimic.ErrHandleNotFound))
}

func TestManagerUploadValidation(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Upload(ctx, datamimic.UploadRequest{})
	assert.True(t, errors.Is(err, datamimic.ErrMissingParameter))

	_, err = m.Upload(ctx, datamimic.UploadRequest{FileName: "notes.txt", Content: strings.NewReader("a\n1\n")})
	assert.True(t, errors.Is(err, datamimic.ErrUnsupportedFormat))

	_, err = m.Upload(ctx, datamimic.UploadRequest{FileName: "big.csv", Content: strings.NewReader(strings.Repeat("x", 2048))})
	var de *datamimic.DatamimicError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, datamimic.ErrCodeContentTooLarge, de.Code)

	_, err = m.Upload(ctx, datamimic.UploadRequest{FileName: "header.csv", Content: strings.NewReader("a,b\n")})
	assert.True(t, errors.Is(err, datamimic.ErrEmptyDataset))
}

func TestManagerUploadSupersedes(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	first, err := m.Upload(ctx, datamimic.UploadRequest{FileName: "a.csv", Content: strings.NewReader(sampleCSV)})
	require.NoError(t, err)

	_, err = m.Upload(ctx, datamimic.UploadRequest{FileName: "b.txt", Content: strings.NewReader(sampleCSV), Supersedes: first.Handle})
	require.Error(t, err)
	_, err = m.Summary(ctx, first.Handle)
	require.NoError(t, err, "a failed upload keeps the previous dataset")

	second, err := m.Upload(ctx, datamimic.UploadRequest{FileName: "b.csv", Content: strings.NewReader(sampleCSV), Supersedes: first.Handle})
	require.NoError(t, err)
	_, err = m.Summary(ctx, first.Handle)
	assert.True(t, errors.Is(err, datamimic.ErrHandleNotFound))
	_, err = m.Summary(ctx, second.Handle)
	assert.NoError(t, err)
}

func TestManagerPreviewLimits(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	res, err := m.Generate(ctx, datamimic.GenerateParams{RecordCount: 150, SchemaName: "retail"})
	require.NoError(t, err)

	p, err := m.Preview(ctx, res.Handle, 5)
	require.NoError(t, err)
	assert.Len(t, p.Rows, 5)

	p, err = m.Preview(ctx, res.Handle, -1)
	require.NoError(t, err)
	assert.Len(t, p.Rows, 10)

	p, err = m.Preview(ctx, res.Handle, 1000)
	require.NoError(t, err)
	assert.Len(t, p.Rows, 100)
	assert.Equal(t, 150, p.TotalRows)
}

func TestManagerExport(t *testing.T) {
	m, exports, _ := newTestManager(t)
	ctx := context.Background()

	res, err := m.Generate(ctx, datamimic.GenerateParams{RecordCount: 3, SchemaName: "medical"})
	require.NoError(t, err)

	out, err := m.Export(ctx, res.Handle, datamimic.FormatJSON)
	require.NoError(t, err)
	require.Len(t, exports.keys, 1)
	assert.True(t, strings.HasSuffix(exports.keys[0], "/synthetic_data_"+res.Handle.String()+".json"))
	assert.Equal(t, "mem://"+exports.keys[0], out.Location)

	exports.err = datamimic.NewExportError("bucket unavailable", nil)
	_, err = m.Export(ctx, res.Handle, datamimic.FormatCSV)
	assert.Error(t, err)

	noStore := NewDatasetManager(datamimic.DefaultConfig(), NewSchemaCatalog(), NewDatasetRegistry(), nil, nil, nil)
	_, err = noStore.Export(ctx, res.Handle, datamimic.FormatCSV)
	var de *datamimic.DatamimicError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, datamimic.ErrCodeExportFailed, de.Code)
}

func TestManagerParquetWithoutEngine(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	res, err := m.Generate(ctx, datamimic.GenerateParams{RecordCount: 3, SchemaName: "medical"})
	require.NoError(t, err)
	_, err = m.Download(ctx, res.Handle, datamimic.FormatParquet)
	assert.True(t, errors.Is(err, datamimic.ErrUnsupportedFormat))
}

func TestManagerCounterFailureDoesNotFailRequest(t *testing.T) {
	m, _, counters := newTestManager(t)
	counters.err = errors.New("disk full")

	_, err := m.Generate(context.Background(), datamimic.GenerateParams{RecordCount: 2, SchemaName: "retail"})
	assert.NoError(t, err)
}

func TestManagerSchemas(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	assert.Contains(t, m.ListSchemas(ctx), "education")
	cols, err := m.SchemaColumns(ctx, "education")
	require.NoError(t, err)
	assert.Contains(t, cols, "GPA")

	doc, err := m.SchemaDocument(ctx, "education")
	require.NoError(t, err)
	assert.Equal(t, "education", doc.Title)

	_, err = m.SchemaColumns(ctx, "space")
	assert.True(t, errors.Is(err, datamimic.ErrUnknownSchema))
}

func TestManagerDelete(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	res, err := m.Generate(ctx, datamimic.GenerateParams{RecordCount: 2, SchemaName: "retail"})
	require.NoError(t, err)
	require.NoError(t, m.Delete(ctx, res.Handle))
	require.NoError(t, m.Delete(ctx, res.Handle))
	_, err = m.Preview(ctx, res.Handle, 1)
	assert.True(t, errors.Is(err, datamimic.ErrHandleNotFound))
}
