package datamimic

import (
	"context"
	"io"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// GenerateParams carries a synthetic generation request.
type GenerateParams struct {
	RecordCount     int                `json:"numRecords"`
	MissingPercent  float64            `json:"missingRatio"`
	VarianceRatio   float64            `json:"varianceRatio"`
	SchemaName      string             `json:"schemaSelect"`
	Locality        string             `json:"localitySelect"`
	SelectedColumns []string           `json:"selectedColumns"`
	CustomColumns   []CustomColumnSpec `json:"customColumns,omitempty"`
	// Seed makes a run reproducible. Nil draws a fresh seed.
	Seed *uint64 `json:"seed,omitempty"`
}

// ActionParams holds the union of preprocessing parameters. Each action reads its own subset.
type ActionParams struct {
	Threshold  *float64 `json:"threshold,omitempty"`
	Columns    []string `json:"columns,omitempty"`
	Column     string   `json:"column,omitempty"`
	Strategy   string   `json:"strategy,omitempty"`
	TargetType string   `json:"target_type,omitempty"`
	Method     string   `json:"method,omitempty"`
	CaseType   string   `json:"case_type,omitempty"`
}

// Action names a preprocessing operation.
type Action string

const (
	ActionRemoveRowsMissing       Action = "remove_rows_missing"
	ActionRemoveColsHighMissing   Action = "remove_cols_high_missing"
	ActionImputeNumerical         Action = "impute_numerical"
	ActionImputeCategorical       Action = "impute_categorical"
	ActionRemoveDuplicateRows     Action = "remove_duplicate_rows"
	ActionRemoveColumns           Action = "remove_columns"
	ActionChangeDataType          Action = "change_data_type"
	ActionScaleColumns            Action = "scale_columns"
	ActionCleanTextCapitalization Action = "clean_text_capitalization"
)

// Actions lists every supported preprocessing action.
func Actions() []Action {
	return []Action{
		ActionRemoveRowsMissing,
		ActionRemoveColsHighMissing,
		ActionImputeNumerical,
		ActionImputeCategorical,
		ActionRemoveDuplicateRows,
		ActionRemoveColumns,
		ActionChangeDataType,
		ActionScaleColumns,
		ActionCleanTextCapitalization,
	}
}

// ActionRequest is one preprocessing step.
type ActionRequest struct {
	Action Action       `json:"action"`
	Params ActionParams `json:"params"`
}

// Format is a download/export encoding.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatXLSX    Format = "xlsx"
	FormatParquet Format = "parquet"
)

// ParseFormat resolves a format name.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatCSV, FormatJSON, FormatXLSX, FormatParquet:
		return Format(name), nil
	}
	return "", NewUnsupportedFormatError(name)
}

// Extension returns the file extension for the format.
func (f Format) Extension() string { return string(f) }

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatParquet:
		return "application/vnd.apache.parquet"
	default:
		return "application/octet-stream"
	}
}

// Origin records how a dataset entered the registry.
type Origin string

const (
	OriginGenerated Origin = "generated"
	OriginUploaded  Origin = "uploaded"
)

// GenerateResult is returned by DatasetManager.Generate.
type GenerateResult struct {
	Handle  DatasetHandle  `json:"handle"`
	Preview *Preview       `json:"preview"`
	Summary DatasetSummary `json:"summary"`
}

// UploadResult is returned by DatasetManager.Upload.
type UploadResult struct {
	Handle  DatasetHandle  `json:"handle"`
	Preview *Preview       `json:"preview"`
	Summary DatasetSummary `json:"summary"`
}

// ApplyResult is returned by DatasetManager.Apply.
type ApplyResult struct {
	Handle  DatasetHandle  `json:"handle"`
	Message string         `json:"message"`
	Preview *Preview       `json:"preview"`
	Summary DatasetSummary `json:"summary"`
}

// Preview is a bounded prefix of a dataset. Null cells serialize as JSON null.
type Preview struct {
	Columns   []string `json:"columns"`
	Rows      []Row    `json:"rows"`
	TotalRows int      `json:"totalRows"`
}

// Download is an encoded dataset ready to stream.
type Download struct {
	FileName    string
	ContentType string
	Body        []byte
}

// ExportResult describes a published object.
type ExportResult struct {
	Location string `json:"location"`
	Size     int64  `json:"size"`
}

// UploadRequest carries raw file content.
type UploadRequest struct {
	FileName string
	Content  io.Reader
	// Supersedes names a previous upload that is deleted once this one is stored.
	Supersedes DatasetHandle
}

// UsageStats are the persisted analytics counters.
type UsageStats struct {
	DataGenerationCount int64     `json:"data_generation_count"`
	EDAOperationsCount  int64     `json:"eda_operations_count"`
	LastUpdated         time.Time `json:"last_updated"`
}

// Counter names a usage counter.
type Counter string

const (
	CounterDataGeneration Counter = "data_generation_count"
	CounterEDAOperations  Counter = "eda_operations_count"
)

// DatasetInfo is registry bookkeeping for one handle.
type DatasetInfo struct {
	Handle     DatasetHandle `json:"handle"`
	Origin     Origin        `json:"origin"`
	CreatedAt  time.Time     `json:"createdAt"`
	LastAccess time.Time     `json:"lastAccess"`
	Rows       int           `json:"rows"`
	Columns    int           `json:"columns"`
}

// DatasetRegistry is the process-wide store of in-memory datasets. Create and Replace take
// ownership of the dataset; callers must not mutate it afterwards.
type DatasetRegistry interface {
	Create(ds *Dataset, origin Origin) DatasetHandle
	Get(handle DatasetHandle) (*Dataset, error)
	Replace(handle DatasetHandle, ds *Dataset) error
	Delete(handle DatasetHandle)
	Info(handle DatasetHandle) (*DatasetInfo, error)
	Len() int
	Handles() []DatasetHandle
}

// ExportStore publishes encoded datasets to durable storage.
type ExportStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (*ExportResult, error)
}

// CounterStore persists usage counters.
type CounterStore interface {
	Increment(ctx context.Context, counter Counter) error
	Load(ctx context.Context) (*UsageStats, error)
	Close() error
}

// DatasetManager is the facade used by the HTTP layer and the CLI.
type DatasetManager interface {
	Generate(ctx context.Context, params GenerateParams) (*GenerateResult, error)
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
	Apply(ctx context.Context, handle DatasetHandle, req ActionRequest) (*ApplyResult, error)
	Preview(ctx context.Context, handle DatasetHandle, limit int) (*Preview, error)
	Summary(ctx context.Context, handle DatasetHandle) (*DatasetSummary, error)
	Download(ctx context.Context, handle DatasetHandle, format Format) (*Download, error)
	Export(ctx context.Context, handle DatasetHandle, format Format) (*ExportResult, error)
	Delete(ctx context.Context, handle DatasetHandle) error
	ListSchemas(ctx context.Context) []string
	SchemaColumns(ctx context.Context, name string) ([]string, error)
	SchemaDocument(ctx context.Context, name string) (*jsonschema.Schema, error)
	Usage(ctx context.Context) (*UsageStats, error)
}
