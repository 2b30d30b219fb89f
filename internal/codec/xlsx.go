package codec

import (
	"io"

	"github.com/lychee-technology/datamimic"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const sheetName = "Sheet1"

// DecodeXLSX reads the first worksheet. The first row is the header.
func DecodeXLSX(r io.Reader) (*datamimic.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, datamimic.NewMalformedInputError("could not open spreadsheet", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			zap.S().Warnw("failed to close spreadsheet", "error", err)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, datamimic.NewEmptyDatasetError()
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, datamimic.NewMalformedInputError("could not read worksheet "+sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, datamimic.NewEmptyDatasetError()
	}

	header := rows[0]
	records := rows[1:]
	// GetRows trims trailing empty cells, so a record may be wider than a header that ends
	// in blank titles; widen the header instead of rejecting the row.
	for _, rec := range records {
		for len(rec) > len(header) {
			header = append(header, "")
		}
	}
	return buildDataset(header, records), nil
}

// EncodeXLSX writes the dataset to a single worksheet using the streaming writer.
func EncodeXLSX(ds *datamimic.Dataset) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			zap.S().Warnw("failed to close spreadsheet", "error", err)
		}
	}()

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return nil, err
	}

	header := make([]interface{}, len(ds.Columns))
	for c, name := range ds.Columns {
		header[c] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, err
	}

	cells := make([]interface{}, ds.NumCols())
	for r, row := range ds.Rows {
		for c, v := range row {
			cells[c] = spreadsheetValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return nil, err
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func spreadsheetValue(v datamimic.Value) interface{} {
	switch v.Kind() {
	case datamimic.KindNull:
		return nil
	case datamimic.KindDate:
		return datamimic.FormatDate(v.Time())
	}
	return v.Interface()
}
