package internal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/lychee-technology/datamimic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statNumber(t *testing.T, s datamimic.Statistic) float64 {
	t.Helper()
	v, ok := s.Number()
	require.True(t, ok, "statistic %s is not numeric", s)
	return v
}

func TestSummarizeMixedDataset(t *testing.T) {
	ds := table([]string{"x", "name", "flag"},
		datamimic.Row{vi(1), vs("a"), vb(true)},
		datamimic.Row{vi(2), vs("bb"), vb(false)},
		datamimic.Row{vi(3), null, vb(true)},
		datamimic.Row{null, vs("a"), vb(true)},
	)

	summary := Summarize(ds)
	assert.Equal(t, 4, summary.TotalRows)
	assert.Equal(t, 3, summary.TotalColumns)
	assert.Equal(t, "16.7%", summary.MissingValues)
	assert.Equal(t, "50.0%", summary.DataVariance)
	assert.Equal(t, int64(371), summary.MemoryBytes)
	assert.Equal(t, "371 Bytes", summary.FileSize)
	require.Len(t, summary.Columns, 3)

	x := summary.Columns[0]
	assert.Equal(t, datamimic.ColumnTypeNumeric, x.Type)
	assert.Equal(t, 3, x.NonNullCount)
	assert.Equal(t, "25.0%", x.MissingPercentage)
	assert.Equal(t, 3, x.UniqueValues)
	assert.Equal(t, 1.0, statNumber(t, x.Min))
	assert.Equal(t, 3.0, statNumber(t, x.Max))
	assert.Equal(t, 2.0, statNumber(t, x.Mean))
	assert.Equal(t, 2.0, statNumber(t, x.Median))
	assert.Equal(t, 1.0, statNumber(t, x.Std))
	assert.Equal(t, 1.0, statNumber(t, x.Mode))

	name := summary.Columns[1]
	assert.Equal(t, datamimic.ColumnTypeText, name.Type)
	assert.Equal(t, 2, name.UniqueValues)
	assert.Equal(t, "a", name.Mode.String())
	assert.False(t, name.Mean.Defined())

	flag := summary.Columns[2]
	assert.Equal(t, datamimic.ColumnTypeBoolean, flag.Type)
	assert.Equal(t, "true", flag.Mode.String())
	assert.False(t, flag.Min.Defined())
}

func TestSummarizeEmptyDataset(t *testing.T) {
	summary := Summarize(datamimic.NewDataset(nil))
	assert.Equal(t, 0, summary.TotalRows)
	assert.Equal(t, 0, summary.TotalColumns)
	assert.Equal(t, "0.0%", summary.MissingValues)
	assert.Equal(t, "0.0%", summary.DataVariance)
	assert.Empty(t, summary.Columns)
}

func TestSummarizeAllNullColumn(t *testing.T) {
	ds := table([]string{"gone"}, datamimic.Row{null}, datamimic.Row{null})
	summary := Summarize(ds)
	assert.Equal(t, "100.0%", summary.MissingValues)

	col := summary.Columns[0]
	assert.Equal(t, 0, col.NonNullCount)
	assert.Equal(t, "100.0%", col.MissingPercentage)
	for _, stat := range []datamimic.Statistic{col.Min, col.Max, col.Mean, col.Median, col.Mode, col.Std} {
		assert.Equal(t, datamimic.NotApplicable, stat.String())
	}

	raw, err := json.Marshal(col)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"mean":"N/A"`)
}

func TestSummarizeSingleValueHasNoStd(t *testing.T) {
	ds := table([]string{"x"}, datamimic.Row{vf(2.345)})
	col := Summarize(ds).Columns[0]
	assert.Equal(t, 2.35, statNumber(t, col.Mean))
	assert.False(t, col.Std.Defined())
}

func TestSummarizeDatetimeColumn(t *testing.T) {
	d := func(day int) datamimic.Value {
		return datamimic.Date(time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC))
	}
	ds := table([]string{"when"}, datamimic.Row{d(5)}, datamimic.Row{d(2)}, datamimic.Row{d(5)})

	col := Summarize(ds).Columns[0]
	assert.Equal(t, datamimic.ColumnTypeDatetime, col.Type)
	assert.Equal(t, "2024-01-02T00:00:00Z", col.Min.String())
	assert.Equal(t, "2024-01-05T00:00:00Z", col.Max.String())
	assert.Equal(t, "2024-01-05T00:00:00Z", col.Mode.String())
}

func TestDataVarianceSkipsZeroMeanAndConstantColumns(t *testing.T) {
	ds := table([]string{"centered", "constant", "spread"},
		datamimic.Row{vi(-1), vi(4), vi(10)},
		datamimic.Row{vi(1), vi(4), vi(30)},
	)
	// spread: mean 20, sample std 14.142 -> CoV 70.7%.
	assert.Equal(t, "70.7%", Summarize(ds).DataVariance)
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 Bytes", FormatFileSize(512))
	assert.Equal(t, "1.00 KB", FormatFileSize(1024))
	assert.Equal(t, "1.50 KB", FormatFileSize(1536))
	assert.Equal(t, "5.00 MB", FormatFileSize(5*1024*1024))
	assert.Equal(t, "2.00 GB", FormatFileSize(2*1024*1024*1024))
}
