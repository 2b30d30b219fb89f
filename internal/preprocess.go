package internal

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lychee-technology/datamimic"
	"github.com/spaolacci/murmur3"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Preprocessing operations. Each returns a replacement dataset and leaves its input untouched.

// Imputation strategies.
const (
	StrategyMean   = "mean"
	StrategyMedian = "median"
	StrategyMode   = "mode"
)

// Scaling methods.
const (
	MethodMinMax      = "min_max"
	MethodStandardize = "standard"
)

// Text cases.
const (
	CaseUpper = "upper"
	CaseLower = "lower"
	CaseTitle = "title"
)

// Conversion targets.
const (
	TargetInt      = "int"
	TargetFloat    = "float"
	TargetString   = "string"
	TargetBool     = "bool"
	TargetDatetime = "datetime"
)

// RemoveRowsMissing drops every row holding at least one null cell. An empty result is valid.
func RemoveRowsMissing(ds *datamimic.Dataset) *datamimic.Dataset {
	out := datamimic.NewDataset(ds.Columns)
	for _, row := range ds.Rows {
		if rowHasNull(row) {
			continue
		}
		out.Rows = append(out.Rows, cloneRow(row))
	}
	return out
}

// RemoveColsHighMissing drops columns whose null percentage is strictly greater than threshold.
func RemoveColsHighMissing(ds *datamimic.Dataset, threshold float64) (*datamimic.Dataset, error) {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 100 {
		return nil, datamimic.NewInvalidParameterError("threshold", "must be between 0 and 100")
	}
	rows := float64(ds.NumRows())
	var keep []string
	for c, name := range ds.Columns {
		nulls := 0
		for _, row := range ds.Rows {
			if row[c].IsNull() {
				nulls++
			}
		}
		// nulls/rows*100 > threshold, kept in integer-friendly form.
		if rows > 0 && float64(nulls)*100 > threshold*rows {
			continue
		}
		keep = append(keep, name)
	}
	return project(ds, keep), nil
}

// ImputeNumerical fills nulls in each named numeric column with that column's mean, median
// or mode. Columns with no values are left as they are.
func ImputeNumerical(ds *datamimic.Dataset, columns []string, strategy string) (*datamimic.Dataset, error) {
	if len(columns) == 0 {
		return nil, datamimic.NewMissingParameterError("columns")
	}
	switch strategy {
	case StrategyMean, StrategyMedian, StrategyMode:
	case "":
		return nil, datamimic.NewMissingParameterError("strategy")
	default:
		return nil, datamimic.NewInvalidParameterError("strategy", "must be one of mean, median, mode")
	}

	idx := resolveColumns(ds, columns, "imputation")
	if err := requireType(ds, idx, datamimic.ColumnTypeNumeric); err != nil {
		return nil, err
	}

	out := ds.Clone()
	for _, c := range idx {
		cells := out.Column(c)
		xs := numericValues(cells)
		if len(xs) == 0 {
			zap.S().Warnw("column has no values to impute from", "column", out.Columns[c], "strategy", strategy)
			continue
		}
		var fill datamimic.Value
		switch strategy {
		case StrategyMean:
			fill = datamimic.Float(mean(xs))
		case StrategyMedian:
			fill = datamimic.Float(median(xs))
		case StrategyMode:
			fill, _ = modeValue(cells)
		}
		fillNulls(out, c, fill)
	}
	return out, nil
}

// ImputeCategorical fills nulls in each named column with the column's mode.
func ImputeCategorical(ds *datamimic.Dataset, columns []string) (*datamimic.Dataset, error) {
	if len(columns) == 0 {
		return nil, datamimic.NewMissingParameterError("columns")
	}
	idx := resolveColumns(ds, columns, "imputation")

	out := ds.Clone()
	for _, c := range idx {
		fill, ok := modeValue(out.Column(c))
		if !ok {
			zap.S().Warnw("column has no values to impute from", "column", out.Columns[c], "strategy", StrategyMode)
			continue
		}
		fillNulls(out, c, fill)
	}
	return out, nil
}

// RemoveDuplicateRows keeps the first occurrence of every distinct row.
func RemoveDuplicateRows(ds *datamimic.Dataset) *datamimic.Dataset {
	out := datamimic.NewDataset(ds.Columns)
	buckets := make(map[uint64][]int)
	for _, row := range ds.Rows {
		h := hashRow(row)
		dup := false
		for _, i := range buckets[h] {
			if rowsEqual(out.Rows[i], row) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		buckets[h] = append(buckets[h], len(out.Rows))
		out.Rows = append(out.Rows, cloneRow(row))
	}
	return out
}

// RemoveColumns drops the named columns. Unknown names are ignored.
func RemoveColumns(ds *datamimic.Dataset, columns []string) (*datamimic.Dataset, error) {
	if len(columns) == 0 {
		return nil, datamimic.NewMissingParameterError("columns")
	}
	drop := NewSetFrom(columns...)
	keep := Filter(ds.Columns, func(name string) bool { return !drop.Contains(name) })
	if len(keep) == len(ds.Columns) {
		zap.S().Warnw("no listed columns found to remove", "columns", columns)
	}
	return project(ds, keep), nil
}

// ChangeDataType converts every cell of column to target. Cells that cannot be converted
// become null, or false for the bool target. Null cells stay null.
func ChangeDataType(ds *datamimic.Dataset, column, target string) (*datamimic.Dataset, error) {
	if column == "" {
		return nil, datamimic.NewMissingParameterError("column")
	}
	if target == "" {
		return nil, datamimic.NewMissingParameterError("target_type")
	}
	convert, ok := converters[normalizeTarget(target)]
	if !ok {
		return nil, datamimic.NewInvalidParameterError("target_type",
			"must be one of int, float, string, bool, datetime")
	}
	c, ok := ds.ColumnIndex(column)
	if !ok {
		return nil, datamimic.NewColumnNotFoundError(column)
	}

	out := ds.Clone()
	failures := 0
	var lastErr error
	for _, row := range out.Rows {
		if row[c].IsNull() {
			continue
		}
		v, ok := convert(row[c])
		if !ok {
			failures++
			lastErr = datamimic.NewConversionFailureError(column, row[c], target)
		}
		row[c] = v
	}
	if failures > 0 {
		zap.S().Warnw("cells could not be converted", "column", column, "target", target,
			"failures", failures, "error", lastErr)
	}
	return out, nil
}

// ScaleColumns rescales each named numeric column using its own statistics. Min-max maps
// onto [0,1]; standardize maps to zero mean and unit population variance.
func ScaleColumns(ds *datamimic.Dataset, columns []string, method string) (*datamimic.Dataset, error) {
	if len(columns) == 0 {
		return nil, datamimic.NewMissingParameterError("columns")
	}
	if method == "" {
		return nil, datamimic.NewMissingParameterError("method")
	}
	m, ok := normalizeMethod(method)
	if !ok {
		return nil, datamimic.NewInvalidParameterError("method", "must be min_max or standard")
	}
	idx := resolveColumns(ds, columns, "scaling")
	if err := requireType(ds, idx, datamimic.ColumnTypeNumeric); err != nil {
		return nil, err
	}

	out := ds.Clone()
	for _, c := range idx {
		xs := numericValues(out.Column(c))
		if len(xs) == 0 {
			zap.S().Warnw("column has no values to scale", "column", out.Columns[c])
			continue
		}

		var transform func(float64) float64
		switch m {
		case MethodMinMax:
			lo, hi := minMax(xs)
			span := hi - lo
			transform = func(x float64) float64 {
				if span == 0 {
					return 0
				}
				return (x - lo) / span
			}
		case MethodStandardize:
			mu, sigma := mean(xs), populationStd(xs)
			if math.IsNaN(sigma) || sigma == 0 {
				zap.S().Warnw("column has zero variance, not standardized", "column", out.Columns[c])
				continue
			}
			transform = func(x float64) float64 { return (x - mu) / sigma }
		}

		for _, row := range out.Rows {
			if x, ok := row[c].Float64(); ok {
				row[c] = datamimic.Float(transform(x))
			}
		}
	}
	return out, nil
}

// CleanTextCapitalization rewrites the casing of string cells in the named columns.
func CleanTextCapitalization(ds *datamimic.Dataset, columns []string, caseType string) (*datamimic.Dataset, error) {
	if len(columns) == 0 {
		return nil, datamimic.NewMissingParameterError("columns")
	}
	var caser cases.Caser
	switch caseType {
	case CaseUpper:
		caser = cases.Upper(language.Und)
	case CaseLower:
		caser = cases.Lower(language.Und)
	case CaseTitle:
		caser = cases.Title(language.Und)
	case "":
		return nil, datamimic.NewMissingParameterError("case_type")
	default:
		return nil, datamimic.NewInvalidParameterError("case_type", "must be one of upper, lower, title")
	}
	idx := resolveColumns(ds, columns, "text cleaning")

	out := ds.Clone()
	for _, c := range idx {
		for _, row := range out.Rows {
			if row[c].Kind() == datamimic.KindString {
				row[c] = datamimic.String(caser.String(row[c].Str()))
			}
		}
	}
	return out, nil
}

// resolveColumns maps names to positions. Unknown names are skipped with a warning.
func resolveColumns(ds *datamimic.Dataset, columns []string, purpose string) []int {
	var idx []int
	for _, name := range Dedupe(columns) {
		i, ok := ds.ColumnIndex(name)
		if !ok {
			zap.S().Warnw("column not found, skipped", "column", name, "purpose", purpose)
			continue
		}
		idx = append(idx, i)
	}
	return idx
}

func requireType(ds *datamimic.Dataset, idx []int, want datamimic.ColumnType) error {
	for _, c := range idx {
		if got := ds.ColumnType(c); got != want {
			return datamimic.NewInvalidColumnTypeError(ds.Columns[c], want, got)
		}
	}
	return nil
}

func fillNulls(ds *datamimic.Dataset, c int, fill datamimic.Value) {
	for _, row := range ds.Rows {
		if row[c].IsNull() {
			row[c] = fill
		}
	}
}

func rowHasNull(row datamimic.Row) bool {
	for _, v := range row {
		if v.IsNull() {
			return true
		}
	}
	return false
}

func cloneRow(row datamimic.Row) datamimic.Row {
	out := make(datamimic.Row, len(row))
	copy(out, row)
	return out
}

// hashRow hashes the cell keys of a row. Equal rows hash equally; collisions are
// resolved by rowsEqual.
func hashRow(row datamimic.Row) uint64 {
	h := murmur3.New64()
	for _, v := range row {
		_, _ = h.Write([]byte(v.Key()))
		_, _ = h.Write([]byte{0x1f})
	}
	return h.Sum64()
}

func rowsEqual(a, b datamimic.Row) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func normalizeMethod(method string) (string, bool) {
	switch strings.ToLower(method) {
	case "min_max", "min-max", "minmax":
		return MethodMinMax, true
	case "standard", "standardize", "zscore":
		return MethodStandardize, true
	}
	return "", false
}

func normalizeTarget(target string) string {
	switch strings.ToLower(target) {
	case "str", "string", "text":
		return TargetString
	case "integer":
		return TargetInt
	case "boolean":
		return TargetBool
	case "date":
		return TargetDatetime
	}
	return strings.ToLower(target)
}

// converters map a non-null cell to the target type. ok is false when the cell could not
// be converted and the returned value is the fallback.
var converters = map[string]func(datamimic.Value) (datamimic.Value, bool){
	TargetInt:      toInt,
	TargetFloat:    toFloat,
	TargetString:   toString,
	TargetBool:     toBool,
	TargetDatetime: toDatetime,
}

func numericOf(v datamimic.Value) (float64, bool) {
	switch v.Kind() {
	case datamimic.KindInt, datamimic.KindFloat:
		return v.Float64()
	case datamimic.KindBool:
		if v.BoolValue() {
			return 1, true
		}
		return 0, true
	case datamimic.KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str()), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func toInt(v datamimic.Value) (datamimic.Value, bool) {
	if v.Kind() == datamimic.KindInt {
		return v, true
	}
	f, ok := numericOf(v)
	if !ok || !datamimic.FitsInt64(f) {
		return datamimic.Null(), false
	}
	return datamimic.Int(int64(math.Trunc(f))), true
}

func toFloat(v datamimic.Value) (datamimic.Value, bool) {
	f, ok := numericOf(v)
	if !ok || math.IsNaN(f) {
		return datamimic.Null(), false
	}
	return datamimic.Float(f), true
}

func toString(v datamimic.Value) (datamimic.Value, bool) {
	return datamimic.String(v.String()), true
}

func toBool(v datamimic.Value) (datamimic.Value, bool) {
	switch v.Kind() {
	case datamimic.KindBool:
		return v, true
	case datamimic.KindInt, datamimic.KindFloat:
		f, _ := v.Float64()
		return datamimic.Bool(f != 0), true
	case datamimic.KindString:
		if b, ok := parseBoolToken(v.Str()); ok {
			return datamimic.Bool(b), true
		}
	}
	return datamimic.Bool(false), false
}

func parseBoolToken(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	}
	return false, false
}

// dateLayouts are tried in order when parsing datetime cells.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	datamimic.DateLayout,
	"2006/01/02",
	"01/02/2006",
	"02-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

func toDatetime(v datamimic.Value) (datamimic.Value, bool) {
	switch v.Kind() {
	case datamimic.KindDate:
		return v, true
	case datamimic.KindString:
		if t, ok := parseDate(v.Str()); ok {
			return datamimic.Date(t), true
		}
	}
	return datamimic.Null(), false
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
