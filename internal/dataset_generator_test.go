package internal

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/lychee-technology/datamimic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(clamp bool) *DatasetGenerator {
	g := NewDatasetGenerator(NewSchemaCatalog(), datamimic.GenerationConfig{MaxRecords: 10000, ClampVariance: clamp})
	g.now = func() time.Time { return time.Date(2024, 6, 15, 13, 45, 0, 0, time.UTC) }
	return g
}

func seedPtr(v uint64) *uint64 { return &v }

func TestGenerateRetailWithMissingCells(t *testing.T) {
	g := newTestGenerator(false)
	ds, err := g.Generate(datamimic.GenerateParams{
		RecordCount:    100,
		MissingPercent: 10,
		SchemaName:     "retail",
		Locality:       "US",
		Seed:           seedPtr(42),
	})
	require.NoError(t, err)

	assert.Equal(t, 100, ds.NumRows())
	assert.Equal(t, []string{"Order_ID", "Customer_Name", "Product", "Quantity", "Price", "Payment_Method", "Order_Date"}, ds.Columns)
	assert.Equal(t, 70, ds.NullCount())
}

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	g := newTestGenerator(false)
	params := datamimic.GenerateParams{
		RecordCount:    25,
		MissingPercent: 5,
		VarianceRatio:  20,
		SchemaName:     "education",
		Locality:       "India",
		Seed:           seedPtr(7),
	}
	a, err := g.Generate(params)
	require.NoError(t, err)
	b, err := g.Generate(params)
	require.NoError(t, err)

	require.Equal(t, a.NumRows(), b.NumRows())
	for r := range a.Rows {
		for c := range a.Rows[r] {
			assert.True(t, a.Rows[r][c].Equal(b.Rows[r][c]), "row %d column %s", r, a.Columns[c])
		}
	}
}

func TestGenerateValuesRespectFieldSpecs(t *testing.T) {
	g := newTestGenerator(false)
	ds, err := g.Generate(datamimic.GenerateParams{
		RecordCount: 200,
		SchemaName:  "retail",
		Locality:    "UK",
		Seed:        seedPtr(3),
	})
	require.NoError(t, err)

	today := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	qty, _ := ds.ColumnIndex("Quantity")
	price, _ := ds.ColumnIndex("Price")
	date, _ := ds.ColumnIndex("Order_Date")
	for _, row := range ds.Rows {
		assert.Equal(t, datamimic.KindInt, row[qty].Kind())
		assert.GreaterOrEqual(t, row[qty].Int(), int64(1))
		assert.LessOrEqual(t, row[qty].Int(), int64(10))

		p, ok := row[price].Float64()
		require.True(t, ok)
		assert.GreaterOrEqual(t, p, 5.0)
		assert.LessOrEqual(t, p, 500.0)
		assert.InDelta(t, p, roundTo(p, 2), 1e-9)

		d := row[date].Time()
		assert.False(t, d.After(today))
		assert.False(t, d.Before(today.AddDate(0, 0, -365)))
	}
}

func TestGenerateModelDependsOnMake(t *testing.T) {
	g := newTestGenerator(false)
	ds, err := g.Generate(datamimic.GenerateParams{
		RecordCount:    300,
		MissingPercent: 20,
		SchemaName:     "automotive",
		Locality:       "US",
		Seed:           seedPtr(11),
	})
	require.NoError(t, err)

	mk, _ := ds.ColumnIndex("Make")
	model, _ := ds.ColumnIndex("Model")
	for _, row := range ds.Rows {
		// Missingness runs after generation, so a nulled make says nothing about its model.
		if row[mk].IsNull() || row[model].IsNull() {
			continue
		}
		models := modelsByMake[row[mk].Str()]
		require.NotEmpty(t, models)
		assert.Contains(t, models, row[model].Str())
	}
}

func TestGenerateModelWithoutMakeIsNotApplicable(t *testing.T) {
	g := newTestGenerator(false)
	ds, err := g.Generate(datamimic.GenerateParams{
		RecordCount:     20,
		SchemaName:      "automotive",
		Locality:        "US",
		SelectedColumns: []string{"Model"},
		CustomColumns: []datamimic.CustomColumnSpec{
			{Name: "Make", Type: "Categorical", Values: []any{nil}},
		},
		Seed: seedPtr(5),
	})
	require.NoError(t, err)
	for _, row := range ds.Rows {
		assert.Equal(t, datamimic.NotApplicable, row[0].Str())
	}
}

func TestGenerateCustomColumns(t *testing.T) {
	g := newTestGenerator(false)
	places := 1
	ds, err := g.Generate(datamimic.GenerateParams{
		RecordCount: 50,
		SchemaName:  "retail",
		Locality:    "Canada",
		CustomColumns: []datamimic.CustomColumnSpec{
			{Name: "Quantity", Type: "Integer", Range: []float64{100, 200}},
			{Name: "Score", Type: "Float", Range: []float64{0, 1}, DecimalPlaces: &places},
			{Name: "Tier", Type: "Sequence", Values: []any{"gold", "silver"}},
		},
		Seed: seedPtr(9),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Order_ID", "Customer_Name", "Product", "Quantity", "Price", "Payment_Method",
		"Order_Date", "Score", "Tier"}, ds.Columns)

	qty, _ := ds.ColumnIndex("Quantity")
	tier, _ := ds.ColumnIndex("Tier")
	counts := map[string]int{}
	for _, row := range ds.Rows {
		assert.GreaterOrEqual(t, row[qty].Int(), int64(100))
		counts[row[tier].Str()]++
	}
	assert.Equal(t, 25, counts["gold"])
	assert.Equal(t, 25, counts["silver"])
}

func TestGenerateExtremeBoundedRanges(t *testing.T) {
	g := newTestGenerator(false)
	places := 2
	ds, err := g.Generate(datamimic.GenerateParams{
		RecordCount: 200,
		SchemaName:  "retail",
		Locality:    "US",
		CustomColumns: []datamimic.CustomColumnSpec{
			{Name: "Big", Type: "Integer", Range: []float64{-9e18, 9e18}},
			{Name: "Huge", Type: "Float", Range: []float64{-1e308, 1e308}, DecimalPlaces: &places},
		},
		Seed: seedPtr(21),
	})
	require.NoError(t, err)

	big, _ := ds.ColumnIndex("Big")
	huge, _ := ds.ColumnIndex("Huge")
	for _, row := range ds.Rows {
		require.Equal(t, datamimic.KindInt, row[big].Kind())
		assert.GreaterOrEqual(t, row[big].Int(), int64(-9e18))
		assert.LessOrEqual(t, row[big].Int(), int64(9e18))

		f, ok := row[huge].Float64()
		require.True(t, ok)
		assert.False(t, math.IsInf(f, 0))
		assert.GreaterOrEqual(t, f, -1e308)
		assert.LessOrEqual(t, f, 1e308)
	}

	_, err = json.Marshal(ds)
	assert.NoError(t, err)
}

func TestBoundedGeneratorDegradesUnrepresentableRange(t *testing.T) {
	env := newGenEnv(1, nil, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))

	next := boundedGenerator(datamimic.BoundedField{Generator: datamimic.GeneratorInteger, Low: 0, High: 1e19}, env)
	v, err := next(0)
	assert.Error(t, err)
	assert.True(t, v.IsNull())

	next = boundedGenerator(datamimic.BoundedField{
		Generator: datamimic.GeneratorInteger,
		Low:       -(1 << 63),
		High:      9223372036854774784,
	}, env)
	for i := 0; i < 100; i++ {
		v, err := next(i)
		require.NoError(t, err)
		require.Equal(t, datamimic.KindInt, v.Kind())
		assert.LessOrEqual(t, v.Int(), int64(9223372036854774784))
	}
}

func TestGenerateLongDateSpans(t *testing.T) {
	g := newTestGenerator(false)
	years := datamimic.MaxYearsFromNow
	days := datamimic.MaxDaysAgo
	ds, err := g.Generate(datamimic.GenerateParams{
		RecordCount: 200,
		SchemaName:  "retail",
		Locality:    "US",
		CustomColumns: []datamimic.CustomColumnSpec{
			{Name: "Renewal", Type: "Date", YearsFromNow: &years},
			{Name: "Founded", Type: "Date", DaysAgo: &days},
		},
		Seed: seedPtr(5),
	})
	require.NoError(t, err)

	today := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	renewal, _ := ds.ColumnIndex("Renewal")
	founded, _ := ds.ColumnIndex("Founded")
	var farFuture, farPast bool
	for _, row := range ds.Rows {
		r, f := row[renewal].Time(), row[founded].Time()
		assert.False(t, r.Before(today))
		assert.False(t, r.After(today.AddDate(years, 0, 0)))
		assert.False(t, f.After(today))
		assert.False(t, f.Before(today.AddDate(0, 0, -days)))
		// past the ~292 year limit of time.Duration
		farFuture = farFuture || r.After(today.AddDate(300, 0, 0))
		farPast = farPast || f.Before(today.AddDate(-300, 0, 0))
	}
	assert.True(t, farFuture, "future dates cover the whole span")
	assert.True(t, farPast, "past dates cover the whole span")
}

func TestGenerateSelectedColumnsOrderAndDedupe(t *testing.T) {
	g := newTestGenerator(false)
	ds, err := g.Generate(datamimic.GenerateParams{
		RecordCount:     5,
		SchemaName:      "finance",
		Locality:        "Australia",
		SelectedColumns: []string{"Amount", "Name", "Amount", "Nope"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Amount", "Name"}, ds.Columns)
}

func TestGenerateRejectsInvalidInput(t *testing.T) {
	g := newTestGenerator(false)
	base := datamimic.GenerateParams{RecordCount: 10, SchemaName: "retail", Locality: "US"}

	tests := []struct {
		name   string
		mutate func(p *datamimic.GenerateParams)
		want   error
	}{
		{"zero records", func(p *datamimic.GenerateParams) { p.RecordCount = 0 }, datamimic.ErrInvalidParameter},
		{"too many records", func(p *datamimic.GenerateParams) { p.RecordCount = 10001 }, datamimic.ErrInvalidParameter},
		{"missing above 100", func(p *datamimic.GenerateParams) { p.MissingPercent = 101 }, datamimic.ErrInvalidParameter},
		{"negative variance", func(p *datamimic.GenerateParams) { p.VarianceRatio = -1 }, datamimic.ErrInvalidParameter},
		{"unknown schema", func(p *datamimic.GenerateParams) { p.SchemaName = "space" }, datamimic.ErrUnknownSchema},
		{"unknown locality", func(p *datamimic.GenerateParams) { p.Locality = "Mars" }, datamimic.ErrUnsupportedLocality},
		{"bad custom range", func(p *datamimic.GenerateParams) {
			p.CustomColumns = []datamimic.CustomColumnSpec{{Name: "X", Type: "Integer", Range: []float64{5}}}
		}, datamimic.ErrInvalidFieldDefinition},
		{"empty categorical", func(p *datamimic.GenerateParams) {
			p.CustomColumns = []datamimic.CustomColumnSpec{{Name: "X", Type: "Categorical"}}
		}, datamimic.ErrInvalidFieldDefinition},
		{"integer range beyond int64", func(p *datamimic.GenerateParams) {
			p.CustomColumns = []datamimic.CustomColumnSpec{{Name: "X", Type: "Integer", Range: []float64{-1e19, 0}}}
		}, datamimic.ErrInvalidFieldDefinition},
		{"days_ago too large", func(p *datamimic.GenerateParams) {
			days := datamimic.MaxDaysAgo + 1
			p.CustomColumns = []datamimic.CustomColumnSpec{{Name: "X", Type: "Date", DaysAgo: &days}}
		}, datamimic.ErrInvalidFieldDefinition},
		{"years_from_now too large", func(p *datamimic.GenerateParams) {
			years := datamimic.MaxYearsFromNow + 1
			p.CustomColumns = []datamimic.CustomColumnSpec{{Name: "X", Type: "Date", YearsFromNow: &years}}
		}, datamimic.ErrInvalidFieldDefinition},
		{"unknown generator", func(p *datamimic.GenerateParams) {
			p.CustomColumns = []datamimic.CustomColumnSpec{{Name: "X", Type: "Hologram"}}
		}, datamimic.ErrInvalidFieldDefinition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			_, err := g.Generate(p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestGenerateFullMissingness(t *testing.T) {
	g := newTestGenerator(false)
	ds, err := g.Generate(datamimic.GenerateParams{
		RecordCount:    12,
		MissingPercent: 100,
		SchemaName:     "finance",
		Locality:       "US",
	})
	require.NoError(t, err)
	assert.Equal(t, ds.NumRows()*ds.NumCols(), ds.NullCount())
}

func TestVarianceClampKeepsDeclaredRange(t *testing.T) {
	g := newTestGenerator(true)
	ds, err := g.Generate(datamimic.GenerateParams{
		RecordCount:   200,
		VarianceRatio: 100,
		SchemaName:    "education",
		Locality:      "US",
		Seed:          seedPtr(21),
	})
	require.NoError(t, err)

	age, _ := ds.ColumnIndex("Age")
	gpa, _ := ds.ColumnIndex("GPA")
	for _, row := range ds.Rows {
		assert.Equal(t, datamimic.KindInt, row[age].Kind())
		assert.GreaterOrEqual(t, row[age].Int(), int64(5))
		assert.LessOrEqual(t, row[age].Int(), int64(25))
		v, _ := row[gpa].Float64()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 4.0)
	}
}

func TestInjectMissingProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("exactly floor(rows*cols*p/100) distinct cells are nulled", prop.ForAll(
		func(rows, cols int, percent float64, seed uint64) bool {
			ds := filledDataset(rows, cols)
			n := injectMissing(ds, percent, rand.New(rand.NewPCG(seed, seed)))
			want := int(math.Floor(float64(rows*cols) * percent / 100))
			return n == want && ds.NullCount() == want
		},
		gen.IntRange(1, 60),
		gen.IntRange(1, 12),
		gen.IntRange(0, 100).Map(func(v int) float64 { return float64(v) }),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}

func TestInjectVarianceProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("mean is preserved and spread grows by the factor", prop.ForAll(
		func(xs []float64, ratio float64) bool {
			ds := datamimic.NewDataset([]string{"x"})
			for _, x := range xs {
				ds.Rows = append(ds.Rows, datamimic.Row{datamimic.Float(x)})
			}
			before := numericValues(ds.Column(0))
			mu, sigma := mean(before), sampleStd(before)

			injectVariance(ds, ratio, nil)

			after := numericValues(ds.Column(0))
			if sigma == 0 || math.IsNaN(sigma) {
				return math.Abs(mean(after)-mu) < 1e-9
			}
			return math.Abs(mean(after)-mu) < 1e-6*math.Max(1, math.Abs(mu)) &&
				math.Abs(sampleStd(after)-sigma*(1+ratio/100)) < 1e-6*math.Max(1, sigma)
		},
		gen.SliceOfN(20, gen.Float64Range(-1000, 1000)),
		gen.Float64Range(0, 100),
	))

	properties.TestingRun(t)
}

func TestMissingCellCountUsesDecimalFloor(t *testing.T) {
	assert.Equal(t, int64(70), missingCellCount(700, 10))
	assert.Equal(t, int64(333), missingCellCount(1000, 33.3))
	assert.Equal(t, int64(0), missingCellCount(3, 10))
	assert.Equal(t, int64(9), missingCellCount(9, 100))
}

func filledDataset(rows, cols int) *datamimic.Dataset {
	names := make([]string, cols)
	for c := range names {
		names[c] = string(rune('a' + c))
	}
	ds := datamimic.NewDataset(names)
	for r := 0; r < rows; r++ {
		row := make(datamimic.Row, cols)
		for c := range row {
			row[c] = datamimic.Int(int64(r*cols + c))
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds
}
