// Package codec reads uploaded tables and encodes datasets for download.
package codec

import (
	"context"
	"database/sql"
	"io"
	"path/filepath"
	"strings"

	"github.com/lychee-technology/datamimic"
)

// Codec encodes datasets in every download format. DB is the DuckDB handle used for
// Parquet; nil disables that format.
type Codec struct {
	DB      *sql.DB
	TempDir string
}

// Decode parses an uploaded file by its extension. Tables without data rows are rejected.
func Decode(filename string, r io.Reader) (*datamimic.Dataset, error) {
	var (
		ds  *datamimic.Dataset
		err error
	)
	switch ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."); ext {
	case "csv":
		ds, err = DecodeCSV(r)
	case "xlsx":
		ds, err = DecodeXLSX(r)
	default:
		return nil, datamimic.NewUnsupportedFormatError(ext).WithField("filename")
	}
	if err != nil {
		return nil, err
	}
	if ds.NumRows() == 0 || ds.NumCols() == 0 {
		return nil, datamimic.NewEmptyDatasetError()
	}
	return ds, nil
}

// Encode renders ds in format.
func (c *Codec) Encode(ctx context.Context, format datamimic.Format, ds *datamimic.Dataset) ([]byte, error) {
	switch format {
	case datamimic.FormatCSV:
		return EncodeCSV(ds)
	case datamimic.FormatJSON:
		return EncodeJSON(ds)
	case datamimic.FormatXLSX:
		return EncodeXLSX(ds)
	case datamimic.FormatParquet:
		return EncodeParquet(ctx, c.DB, ds, c.TempDir)
	}
	return nil, datamimic.NewUnsupportedFormatError(string(format))
}
