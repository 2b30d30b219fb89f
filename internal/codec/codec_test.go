package codec

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/lychee-technology/datamimic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDecodeCSVInfersColumnTypes(t *testing.T) {
	input := "id,price,active,label,blank\n" +
		"1,2.5,True,a,\n" +
		"2,NA,false,b,\n" +
		",3,TRUE,,NaN\n"

	ds, err := DecodeCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, []string{"id", "price", "active", "label", "blank"}, ds.Columns)
	require.Equal(t, 3, ds.NumRows())

	assert.Equal(t, datamimic.Int(1), ds.Rows[0][0])
	assert.True(t, ds.Rows[2][0].IsNull())
	assert.Equal(t, datamimic.Float(2.5), ds.Rows[0][1])
	assert.Equal(t, datamimic.Float(3), ds.Rows[2][1])
	assert.True(t, ds.Rows[1][1].IsNull())
	assert.Equal(t, datamimic.Bool(false), ds.Rows[1][2])
	assert.Equal(t, datamimic.String("b"), ds.Rows[1][3])
	assert.True(t, ds.Rows[2][3].IsNull())

	assert.Equal(t, datamimic.ColumnTypeNumeric, ds.ColumnType(0))
	assert.Equal(t, datamimic.ColumnTypeBoolean, ds.ColumnType(2))
	assert.Equal(t, datamimic.ColumnTypeText, ds.ColumnType(3))
	assert.Equal(t, datamimic.ColumnTypeNumeric, ds.ColumnType(4), "all-missing columns are numeric")
}

func TestDecodeCSVHeaderHandling(t *testing.T) {
	input := "\ufeffa,a,,a.1,a\n1,2,3,4,5\n"
	ds, err := DecodeCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.1", "Unnamed: 2", "a.1.1", "a.2"}, ds.Columns)
}

func TestDecodeCSVStripsLeadingBOM(t *testing.T) {
	body := "\ufeffid,name\n1,alice\n2,bob\n"
	ds, err := Decode("export.csv", strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, ds.Columns)
	idx, ok := ds.ColumnIndex("id")
	require.True(t, ok)
	assert.Equal(t, datamimic.Int(2), ds.Rows[1][idx])
}

func TestDecodeCSVRowShapes(t *testing.T) {
	ds, err := DecodeCSV(strings.NewReader("a,b,c\n1\n\n2,3,4\n"))
	require.NoError(t, err)
	require.Equal(t, 2, ds.NumRows())
	assert.True(t, ds.Rows[0][1].IsNull())
	assert.True(t, ds.Rows[0][2].IsNull())

	_, err = DecodeCSV(strings.NewReader("a,b\n1,2,3\n"))
	var de *datamimic.DatamimicError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, datamimic.ErrCodeMalformedInput, de.Code)

	_, err = DecodeCSV(strings.NewReader(""))
	assert.True(t, errors.Is(err, datamimic.ErrEmptyDataset))
}

func TestDecodeDispatchesByExtension(t *testing.T) {
	_, err := Decode("data.CSV", strings.NewReader("a\n1\n"))
	assert.NoError(t, err)

	_, err = Decode("data.tsv", strings.NewReader("a\n1\n"))
	assert.True(t, errors.Is(err, datamimic.ErrUnsupportedFormat))

	_, err = Decode("data.csv", strings.NewReader("a,b\n"))
	assert.True(t, errors.Is(err, datamimic.ErrEmptyDataset))
}

func sampleDataset() *datamimic.Dataset {
	ds := datamimic.NewDataset([]string{"name", "qty", "price", "paid", "when"})
	ds.Rows = []datamimic.Row{
		{datamimic.String("alice, jr"), datamimic.Int(3), datamimic.Float(9.5), datamimic.Bool(true),
			datamimic.Date(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))},
		{datamimic.String("bob"), datamimic.Null(), datamimic.Float(1.25), datamimic.Bool(false), datamimic.Null()},
	}
	return ds
}

func TestEncodeCSV(t *testing.T) {
	out, err := EncodeCSV(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "name,qty,price,paid,when\n\"alice, jr\",3,9.5,true,2024-05-01\nbob,,1.25,false,\n", string(out))

	back, err := DecodeCSV(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, datamimic.Int(3), back.Rows[0][1])
	assert.Equal(t, datamimic.String("alice, jr"), back.Rows[0][0])
}

func TestEncodeJSON(t *testing.T) {
	out, err := EncodeJSON(sampleDataset())
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal(out, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "2024-05-01", records[0]["when"])
	assert.Nil(t, records[1]["qty"])
	assert.Equal(t, 1.25, records[1]["price"])

	text := string(out)
	assert.Less(t, strings.Index(text, `"name"`), strings.Index(text, `"qty"`), "keys follow column order")
	assert.True(t, strings.HasPrefix(text, "[\n    {\n        \"name\": \"alice, jr\""))

	empty, err := EncodeJSON(datamimic.NewDataset([]string{"a"}))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}

func TestXLSXRoundTrip(t *testing.T) {
	out, err := EncodeXLSX(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, []string{sheetName}, f.GetSheetList())
	require.NoError(t, f.Close())

	back, err := Decode("round.xlsx", bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, sampleDataset().Columns, back.Columns)
	require.Equal(t, 2, back.NumRows())
	assert.Equal(t, datamimic.String("alice, jr"), back.Rows[0][0])
	assert.Equal(t, datamimic.Int(3), back.Rows[0][1])
	assert.True(t, back.Rows[1][1].IsNull())
	assert.Equal(t, datamimic.Float(1.25), back.Rows[1][2])
	assert.Equal(t, datamimic.String("2024-05-01"), back.Rows[0][4])
}

func TestDecodeXLSXRejectsGarbage(t *testing.T) {
	_, err := DecodeXLSX(strings.NewReader("not a zip"))
	var de *datamimic.DatamimicError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, datamimic.ErrCodeMalformedInput, de.Code)
}

func TestEncodeParquetRequiresEngine(t *testing.T) {
	c := &Codec{}
	_, err := c.Encode(context.Background(), datamimic.FormatParquet, sampleDataset())
	assert.True(t, errors.Is(err, datamimic.ErrUnsupportedFormat))

	_, err = c.Encode(context.Background(), "yaml", sampleDataset())
	assert.True(t, errors.Is(err, datamimic.ErrUnsupportedFormat))
}

func TestEncodeParquetWithDuckDB(t *testing.T) {
	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	defer db.Close()

	c := &Codec{DB: db, TempDir: t.TempDir()}
	out, err := c.Encode(context.Background(), datamimic.FormatParquet, sampleDataset())
	require.NoError(t, err)
	require.Greater(t, len(out), 8)
	assert.Equal(t, "PAR1", string(out[:4]))
	assert.Equal(t, "PAR1", string(out[len(out)-4:]))

	path := filepath.Join(t.TempDir(), "check.parquet")
	require.NoError(t, os.WriteFile(path, out, 0o600))
	var rows int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM read_parquet('"+sqlQuote(path)+"')").Scan(&rows))
	assert.Equal(t, 2, rows)
}
