package codec

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lychee-technology/datamimic"
	"go.uber.org/zap"
)

// EncodeParquet stages the dataset as CSV in a scratch directory and lets DuckDB copy it
// into a Parquet file, which is read back and returned.
func EncodeParquet(ctx context.Context, db *sql.DB, ds *datamimic.Dataset, tempDir string) ([]byte, error) {
	if db == nil {
		return nil, datamimic.NewUnsupportedFormatError(string(datamimic.FormatParquet)).
			WithDetail("reason", "duckdb is not configured")
	}
	if ds.NumCols() == 0 {
		return nil, datamimic.NewEmptyDatasetError()
	}

	dir, err := os.MkdirTemp(tempDir, "datamimic-parquet-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			zap.S().Warnw("failed to remove parquet scratch dir", "dir", dir, "error", err)
		}
	}()

	csvBytes, err := EncodeCSV(ds)
	if err != nil {
		return nil, err
	}
	csvPath := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(csvPath, csvBytes, 0o600); err != nil {
		return nil, fmt.Errorf("stage csv: %w", err)
	}

	parquetPath := filepath.Join(dir, "data.parquet")
	stmt := fmt.Sprintf("COPY (SELECT * FROM read_csv_auto('%s', header=true)) TO '%s' (FORMAT PARQUET);",
		sqlQuote(csvPath), sqlQuote(parquetPath))
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return nil, fmt.Errorf("duckdb copy to parquet: %w", err)
	}

	out, err := os.ReadFile(parquetPath)
	if err != nil {
		return nil, fmt.Errorf("read parquet output: %w", err)
	}
	return out, nil
}

func sqlQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
