package codec

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lychee-technology/datamimic"
)

// DecodeCSV reads a header line followed by records. Rows wider than the header are
// rejected; shorter rows are padded with missing cells.
func DecodeCSV(r io.Reader) (*datamimic.Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, datamimic.NewEmptyDatasetError()
	}
	if err != nil {
		return nil, datamimic.NewMalformedInputError("could not read CSV header", err)
	}
	header = stripBOM(header)

	var records [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, datamimic.NewMalformedInputError("could not read CSV record", err)
		}
		if len(rec) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, datamimic.NewMalformedInputError(
				fmt.Sprintf("expected %d fields in line %d, saw %d", len(header), line, len(rec)), nil)
		}
		if len(rec) == 1 && rec[0] == "" && len(header) > 1 {
			continue
		}
		records = append(records, rec)
	}
	return buildDataset(header, records), nil
}

// EncodeCSV writes the header and every row. Missing cells are written as empty fields.
func EncodeCSV(ds *datamimic.Dataset) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ds.Columns); err != nil {
		return nil, err
	}
	record := make([]string, ds.NumCols())
	for _, row := range ds.Rows {
		for c, v := range row {
			record[c] = v.String()
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func stripBOM(header []string) []string {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	return header
}
