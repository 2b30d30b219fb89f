package internal

import (
	"fmt"
	"math"
	"time"

	"github.com/lychee-technology/datamimic"
	"github.com/shopspring/decimal"
)

// Approximate per-cell footprints of a dataframe-backed table.
const (
	indexBytes       = 128
	numericCellBytes = 8
	boolCellBytes    = 1
	objectRefBytes   = 8
	stringHeadBytes  = 49
	boxedCellBytes   = 24
)

// Summarize computes the dataset and per-column statistics. It never fails: empty tables
// and all-null columns report zeroed counts and "N/A" statistics.
func Summarize(ds *datamimic.Dataset) datamimic.DatasetSummary {
	rows, cols := ds.NumRows(), ds.NumCols()
	cells := rows * cols

	missing := "0.0%"
	if cells > 0 {
		missing = formatPercent(float64(ds.NullCount()) / float64(cells) * 100)
	}

	summary := datamimic.DatasetSummary{
		TotalRows:     rows,
		TotalColumns:  cols,
		MissingValues: missing,
		Columns:       make([]datamimic.ColumnSummary, 0, cols),
	}

	var covSum float64
	covCount := 0
	memory := int64(indexBytes)
	for c, name := range ds.Columns {
		column := ds.Column(c)
		typ := datamimic.InferColumnType(column)
		summary.Columns = append(summary.Columns, summarizeColumn(name, typ, column))
		memory += columnMemory(typ, column)

		if typ != datamimic.ColumnTypeNumeric {
			continue
		}
		xs := numericValues(column)
		if len(xs) == 0 {
			continue
		}
		mu, sigma := mean(xs), sampleStd(xs)
		if mu != 0 && !math.IsNaN(sigma) && sigma != 0 {
			covSum += sigma / math.Abs(mu)
			covCount++
		}
	}

	variance := 0.0
	if covCount > 0 {
		variance = covSum / float64(covCount) * 100
	}
	summary.DataVariance = formatPercent(variance)
	summary.MemoryBytes = memory
	summary.FileSize = FormatFileSize(memory)
	return summary
}

func summarizeColumn(name string, typ datamimic.ColumnType, cells []datamimic.Value) datamimic.ColumnSummary {
	values := nonNull(cells)
	missing := "0.0%"
	if len(cells) > 0 {
		missing = formatPercent(float64(len(cells)-len(values)) / float64(len(cells)) * 100)
	}
	cs := datamimic.ColumnSummary{
		Name:              name,
		Type:              typ,
		NonNullCount:      len(values),
		MissingPercentage: missing,
		UniqueValues:      distinctCount(values),
		Min:               datamimic.NotApplicableStat(),
		Max:               datamimic.NotApplicableStat(),
		Mean:              datamimic.NotApplicableStat(),
		Median:            datamimic.NotApplicableStat(),
		Mode:              datamimic.NotApplicableStat(),
		Std:               datamimic.NotApplicableStat(),
	}
	if len(values) == 0 {
		return cs
	}

	switch typ {
	case datamimic.ColumnTypeNumeric:
		xs := numericValues(values)
		lo, hi := minMax(xs)
		cs.Min = roundedStat(lo)
		cs.Max = roundedStat(hi)
		cs.Mean = roundedStat(mean(xs))
		cs.Median = roundedStat(median(xs))
		cs.Std = roundedStat(sampleStd(xs))
		if m, ok := modeValue(values); ok {
			f, _ := m.Float64()
			cs.Mode = roundedStat(f)
		}
	case datamimic.ColumnTypeDatetime:
		lo, hi := values[0].Time(), values[0].Time()
		for _, v := range values[1:] {
			if v.Time().Before(lo) {
				lo = v.Time()
			}
			if v.Time().After(hi) {
				hi = v.Time()
			}
		}
		cs.Min = datamimic.TextStat(lo.Format(time.RFC3339))
		cs.Max = datamimic.TextStat(hi.Format(time.RFC3339))
		if m, ok := modeValue(values); ok {
			cs.Mode = datamimic.TextStat(m.Time().Format(time.RFC3339))
		}
	default:
		if m, ok := modeValue(values); ok {
			cs.Mode = datamimic.TextStat(m.String())
		}
	}
	return cs
}

// roundedStat rounds to two decimal places; NaN and infinities are not applicable.
func roundedStat(v float64) datamimic.Statistic {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return datamimic.NotApplicableStat()
	}
	return datamimic.NumberStat(decimal.NewFromFloat(v).Round(2).InexactFloat64())
}

func formatPercent(p float64) string {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return "0.0%"
	}
	return decimal.NewFromFloat(p).StringFixed(1) + "%"
}

func columnMemory(typ datamimic.ColumnType, cells []datamimic.Value) int64 {
	n := int64(len(cells))
	switch typ {
	case datamimic.ColumnTypeNumeric, datamimic.ColumnTypeDatetime:
		return n * numericCellBytes
	case datamimic.ColumnTypeBoolean:
		if len(nonNull(cells)) == len(cells) {
			return n * boolCellBytes
		}
	}
	total := n * objectRefBytes
	for _, v := range cells {
		if v.Kind() == datamimic.KindString {
			total += int64(stringHeadBytes + len(v.Str()))
			continue
		}
		total += boxedCellBytes
	}
	return total
}

// FormatFileSize renders a byte count as Bytes, KB, MB or GB.
func FormatFileSize(bytes int64) string {
	const unit = 1024
	switch {
	case bytes < unit:
		return fmt.Sprintf("%d Bytes", bytes)
	case bytes < unit*unit:
		return fmt.Sprintf("%.2f KB", float64(bytes)/unit)
	case bytes < unit*unit*unit:
		return fmt.Sprintf("%.2f MB", float64(bytes)/(unit*unit))
	default:
		return fmt.Sprintf("%.2f GB", float64(bytes)/(unit*unit*unit))
	}
}
