package internal

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/lychee-technology/datamimic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	null = datamimic.Null()
	vi   = datamimic.Int
	vf   = datamimic.Float
	vs   = datamimic.String
	vb   = datamimic.Bool
)

func table(columns []string, rows ...datamimic.Row) *datamimic.Dataset {
	ds := datamimic.NewDataset(columns)
	ds.Rows = append(ds.Rows, rows...)
	return ds
}

func column(ds *datamimic.Dataset, name string) []datamimic.Value {
	idx, ok := ds.ColumnIndex(name)
	if !ok {
		return nil
	}
	return ds.Column(idx)
}

func TestRemoveRowsMissing(t *testing.T) {
	ds := table([]string{"a", "b"},
		datamimic.Row{vi(1), vs("x")},
		datamimic.Row{null, vs("y")},
		datamimic.Row{vi(3), null},
		datamimic.Row{vi(4), vs("z")},
	)
	out := RemoveRowsMissing(ds)
	assert.Equal(t, 2, out.NumRows())
	assert.Equal(t, []datamimic.Value{vi(1), vi(4)}, column(out, "a"))
	assert.Equal(t, 4, ds.NumRows(), "input must not change")

	allMissing := table([]string{"a"}, datamimic.Row{null}, datamimic.Row{null})
	empty := RemoveRowsMissing(allMissing)
	assert.Equal(t, 0, empty.NumRows())
	assert.Equal(t, []string{"a"}, empty.Columns)
}

func TestRemoveColsHighMissing(t *testing.T) {
	ds := table([]string{"full", "half", "most"},
		datamimic.Row{vi(1), null, null},
		datamimic.Row{vi(2), vi(2), null},
		datamimic.Row{vi(3), null, null},
		datamimic.Row{vi(4), vi(4), vi(4)},
	)

	out, err := RemoveColsHighMissing(ds, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"full", "half"}, out.Columns, "exactly 50% is kept")

	out, err = RemoveColsHighMissing(ds, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"full"}, out.Columns)

	out, err = RemoveColsHighMissing(ds, 100)
	require.NoError(t, err)
	assert.Equal(t, ds.Columns, out.Columns)

	_, err = RemoveColsHighMissing(ds, 101)
	assert.True(t, errors.Is(err, datamimic.ErrInvalidParameter))
	_, err = RemoveColsHighMissing(ds, -0.5)
	assert.True(t, errors.Is(err, datamimic.ErrInvalidParameter))
}

func TestImputeNumerical(t *testing.T) {
	ds := table([]string{"x", "label"},
		datamimic.Row{vi(1), vs("a")},
		datamimic.Row{null, vs("b")},
		datamimic.Row{vi(3), vs("c")},
		datamimic.Row{vi(3), null},
		datamimic.Row{vi(10), vs("d")},
	)

	tests := []struct {
		strategy string
		want     float64
	}{
		{StrategyMean, 4.25},
		{StrategyMedian, 3},
		{StrategyMode, 3},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			out, err := ImputeNumerical(ds, []string{"x", "ghost"}, tt.strategy)
			require.NoError(t, err)
			v, ok := out.Rows[1][0].Float64()
			require.True(t, ok)
			assert.InDelta(t, tt.want, v, 1e-9)
			assert.True(t, out.Rows[3][1].IsNull(), "other columns are untouched")
			assert.True(t, ds.Rows[1][0].IsNull(), "input must not change")
		})
	}
}

func TestImputeNumericalErrors(t *testing.T) {
	ds := table([]string{"x", "label"}, datamimic.Row{vi(1), vs("a")})

	_, err := ImputeNumerical(ds, nil, StrategyMean)
	assert.True(t, errors.Is(err, datamimic.ErrMissingParameter))
	_, err = ImputeNumerical(ds, []string{"x"}, "")
	assert.True(t, errors.Is(err, datamimic.ErrMissingParameter))
	_, err = ImputeNumerical(ds, []string{"x"}, "average")
	assert.True(t, errors.Is(err, datamimic.ErrInvalidParameter))
	_, err = ImputeNumerical(ds, []string{"label"}, StrategyMean)
	assert.True(t, errors.Is(err, datamimic.ErrInvalidColumnType))
}

func TestImputeNumericalAllNullColumnUnchanged(t *testing.T) {
	ds := table([]string{"x"}, datamimic.Row{null}, datamimic.Row{null})
	out, err := ImputeNumerical(ds, []string{"x"}, StrategyMean)
	require.NoError(t, err)
	assert.Equal(t, 2, out.NullCount())
}

func TestImputeCategorical(t *testing.T) {
	ds := table([]string{"color", "size"},
		datamimic.Row{vs("red"), vi(1)},
		datamimic.Row{null, vi(2)},
		datamimic.Row{vs("blue"), null},
		datamimic.Row{vs("red"), vi(2)},
	)
	out, err := ImputeCategorical(ds, []string{"color", "size"})
	require.NoError(t, err)
	assert.Equal(t, vs("red"), out.Rows[1][0])
	assert.Equal(t, vi(2), out.Rows[2][1])
	assert.Equal(t, 0, out.NullCount())

	_, err = ImputeCategorical(ds, []string{})
	assert.True(t, errors.Is(err, datamimic.ErrMissingParameter))
}

func TestRemoveDuplicateRows(t *testing.T) {
	ds := table([]string{"a", "b"},
		datamimic.Row{vi(1), vs("x")},
		datamimic.Row{vf(1), vs("x")},
		datamimic.Row{null, vs("y")},
		datamimic.Row{null, vs("y")},
		datamimic.Row{vi(2), vs("x")},
	)
	out := RemoveDuplicateRows(ds)
	require.Equal(t, 3, out.NumRows())
	assert.Equal(t, vi(1), out.Rows[0][0], "first occurrence wins")
	assert.True(t, out.Rows[1][0].IsNull())
	assert.Equal(t, vi(2), out.Rows[2][0])
}

func TestRemoveDuplicateRowsKeepsLargeDistinctIntegers(t *testing.T) {
	ds := table([]string{"id"},
		datamimic.Row{vi(9007199254740992)},
		datamimic.Row{vi(9007199254740993)},
		datamimic.Row{vi(9007199254740993)},
	)
	out := RemoveDuplicateRows(ds)
	require.Equal(t, 2, out.NumRows())
	assert.Equal(t, vi(9007199254740993), out.Rows[1][0])
	assert.Equal(t, 2, distinctCount(ds.Column(0)))

	mode, ok := modeValue(ds.Column(0))
	require.True(t, ok)
	assert.Equal(t, vi(9007199254740993), mode)
}

func TestRemoveDuplicateRowsProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	rowsGen := gen.SliceOf(gen.SliceOfN(3, gen.IntRange(-1, 3)))

	properties.Property("deduplication is idempotent and leaves distinct rows", prop.ForAll(
		func(raw [][]int) bool {
			ds := datamimic.NewDataset([]string{"a", "b", "c"})
			for _, r := range raw {
				row := make(datamimic.Row, len(r))
				for c, v := range r {
					if v < 0 {
						row[c] = null
					} else {
						row[c] = vi(int64(v))
					}
				}
				ds.Rows = append(ds.Rows, row)
			}

			once := RemoveDuplicateRows(ds)
			twice := RemoveDuplicateRows(once)
			if twice.NumRows() != once.NumRows() {
				return false
			}
			seen := map[string]bool{}
			for _, row := range once.Rows {
				key := row[0].Key() + "|" + row[1].Key() + "|" + row[2].Key()
				if seen[key] {
					return false
				}
				seen[key] = true
			}
			return true
		},
		rowsGen,
	))

	properties.TestingRun(t)
}

func TestRemoveColumns(t *testing.T) {
	ds := table([]string{"a", "b", "c"}, datamimic.Row{vi(1), vi(2), vi(3)})

	out, err := RemoveColumns(ds, []string{"b", "zzz"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, out.Columns)
	assert.Equal(t, datamimic.Row{vi(1), vi(3)}, out.Rows[0])

	out, err = RemoveColumns(ds, []string{"zzz"})
	require.NoError(t, err)
	assert.Equal(t, ds.Columns, out.Columns)

	_, err = RemoveColumns(ds, nil)
	assert.True(t, errors.Is(err, datamimic.ErrMissingParameter))
}

func TestChangeDataType(t *testing.T) {
	ds := table([]string{"v"},
		datamimic.Row{vs("12")},
		datamimic.Row{vs("3.9")},
		datamimic.Row{vs("abc")},
		datamimic.Row{null},
	)

	out, err := ChangeDataType(ds, "v", "int")
	require.NoError(t, err)
	assert.Equal(t, []datamimic.Value{vi(12), vi(3), null, null}, column(out, "v"))

	out, err = ChangeDataType(ds, "v", "float")
	require.NoError(t, err)
	assert.Equal(t, []datamimic.Value{vf(12), vf(3.9), null, null}, column(out, "v"))

	out, err = ChangeDataType(ds, "v", "bool")
	require.NoError(t, err)
	assert.Equal(t, []datamimic.Value{vb(false), vb(false), vb(false), null}, column(out, "v"))
}

func TestChangeDataTypeRoundTrip(t *testing.T) {
	ds := table([]string{"v"}, datamimic.Row{vi(7)}, datamimic.Row{vi(-2)}, datamimic.Row{null})

	asText, err := ChangeDataType(ds, "v", "string")
	require.NoError(t, err)
	assert.Equal(t, []datamimic.Value{vs("7"), vs("-2"), null}, column(asText, "v"))

	back, err := ChangeDataType(asText, "v", "int")
	require.NoError(t, err)
	assert.Equal(t, column(ds, "v"), column(back, "v"))
}

func TestChangeDataTypeDatetime(t *testing.T) {
	ds := table([]string{"when"},
		datamimic.Row{vs("2024-03-01")},
		datamimic.Row{vs("2024-03-01T10:30:00Z")},
		datamimic.Row{vs("not a date")},
		datamimic.Row{vi(5)},
	)
	out, err := ChangeDataType(ds, "when", "datetime")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), out.Rows[0][0].Time())
	assert.Equal(t, time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), out.Rows[1][0].Time())
	assert.True(t, out.Rows[2][0].IsNull())
	assert.True(t, out.Rows[3][0].IsNull())
	assert.Equal(t, datamimic.ColumnTypeDatetime, out.ColumnType(0))
}

func TestChangeDataTypeErrors(t *testing.T) {
	ds := table([]string{"v"}, datamimic.Row{vi(1)})

	_, err := ChangeDataType(ds, "", "int")
	assert.True(t, errors.Is(err, datamimic.ErrMissingParameter))
	_, err = ChangeDataType(ds, "v", "")
	assert.True(t, errors.Is(err, datamimic.ErrMissingParameter))
	_, err = ChangeDataType(ds, "v", "complex")
	assert.True(t, errors.Is(err, datamimic.ErrInvalidParameter))
	_, err = ChangeDataType(ds, "w", "int")
	assert.True(t, errors.Is(err, datamimic.ErrColumnNotFound))
}

func TestScaleColumnsMinMax(t *testing.T) {
	ds := table([]string{"x", "flat"},
		datamimic.Row{vi(2), vi(5)},
		datamimic.Row{vi(4), vi(5)},
		datamimic.Row{null, null},
		datamimic.Row{vi(6), vi(5)},
	)
	out, err := ScaleColumns(ds, []string{"x", "flat"}, "min-max")
	require.NoError(t, err)
	assert.Equal(t, []datamimic.Value{vf(0), vf(0.5), null, vf(1)}, column(out, "x"))
	assert.Equal(t, []datamimic.Value{vf(0), vf(0), null, vf(0)}, column(out, "flat"))
}

func TestScaleColumnsStandardize(t *testing.T) {
	ds := table([]string{"x"}, datamimic.Row{vi(1)}, datamimic.Row{vi(2)}, datamimic.Row{vi(3)},
		datamimic.Row{vi(4)}, datamimic.Row{vi(100)})

	out, err := ScaleColumns(ds, []string{"x"}, MethodStandardize)
	require.NoError(t, err)
	xs := numericValues(column(out, "x"))
	assert.InDelta(t, 0, mean(xs), 1e-9)
	assert.InDelta(t, 1, populationStd(xs), 1e-9)
}

func TestScaleColumnsErrors(t *testing.T) {
	ds := table([]string{"x", "label"}, datamimic.Row{vi(1), vs("a")})

	_, err := ScaleColumns(ds, nil, MethodMinMax)
	assert.True(t, errors.Is(err, datamimic.ErrMissingParameter))
	_, err = ScaleColumns(ds, []string{"x"}, "")
	assert.True(t, errors.Is(err, datamimic.ErrMissingParameter))
	_, err = ScaleColumns(ds, []string{"x"}, "log")
	assert.True(t, errors.Is(err, datamimic.ErrInvalidParameter))
	_, err = ScaleColumns(ds, []string{"label"}, MethodMinMax)
	assert.True(t, errors.Is(err, datamimic.ErrInvalidColumnType))
}

func TestCleanTextCapitalization(t *testing.T) {
	ds := table([]string{"name", "n"},
		datamimic.Row{vs("hello WORLD"), vi(1)},
		datamimic.Row{null, vi(2)},
		datamimic.Row{vs("mIxEd case"), vi(3)},
	)

	tests := []struct {
		caseType string
		want     []datamimic.Value
	}{
		{CaseUpper, []datamimic.Value{vs("HELLO WORLD"), null, vs("MIXED CASE")}},
		{CaseLower, []datamimic.Value{vs("hello world"), null, vs("mixed case")}},
		{CaseTitle, []datamimic.Value{vs("Hello World"), null, vs("Mixed Case")}},
	}
	for _, tt := range tests {
		t.Run(tt.caseType, func(t *testing.T) {
			out, err := CleanTextCapitalization(ds, []string{"name", "n"}, tt.caseType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, column(out, "name"))
			assert.Equal(t, column(ds, "n"), column(out, "n"))
		})
	}

	_, err := CleanTextCapitalization(ds, []string{"name"}, "")
	assert.True(t, errors.Is(err, datamimic.ErrMissingParameter))
	_, err = CleanTextCapitalization(ds, []string{"name"}, "sentence")
	assert.True(t, errors.Is(err, datamimic.ErrInvalidParameter))
}

func TestConverters(t *testing.T) {
	v, ok := toInt(vf(math.NaN()))
	assert.False(t, ok)
	assert.True(t, v.IsNull())

	v, ok = toInt(vf(1 << 63))
	assert.False(t, ok, "2^63 does not fit in int64")
	assert.True(t, v.IsNull())

	v, ok = toInt(vf(-(1 << 63)))
	assert.True(t, ok)
	assert.Equal(t, vi(math.MinInt64), v)

	v, ok = toInt(vb(true))
	assert.True(t, ok)
	assert.Equal(t, vi(1), v)

	v, ok = toBool(vs("Yes"))
	assert.True(t, ok)
	assert.Equal(t, vb(true), v)

	v, ok = toBool(vf(0))
	assert.True(t, ok)
	assert.Equal(t, vb(false), v)

	assert.Equal(t, TargetString, normalizeTarget("str"))
	assert.Equal(t, TargetInt, normalizeTarget("integer"))
	assert.Equal(t, TargetDatetime, normalizeTarget("date"))
}
