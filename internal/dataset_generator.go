package internal

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/lychee-technology/datamimic"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DatasetGenerator materializes synthetic datasets from the schema catalog.
type DatasetGenerator struct {
	catalog       datamimic.SchemaCatalog
	maxRecords    int
	clampVariance bool
	now           func() time.Time
}

// NewDatasetGenerator creates a generator bound to a catalog.
func NewDatasetGenerator(catalog datamimic.SchemaCatalog, cfg datamimic.GenerationConfig) *DatasetGenerator {
	return &DatasetGenerator{
		catalog:       catalog,
		maxRecords:    cfg.MaxRecords,
		clampVariance: cfg.ClampVariance,
		now:           time.Now,
	}
}

// effectiveField is a schema or custom field after overlay.
type effectiveField struct {
	name string
	spec datamimic.FieldSpec
}

// Generate builds a dataset of params.RecordCount rows projected onto params.SelectedColumns.
func (g *DatasetGenerator) Generate(params datamimic.GenerateParams) (*datamimic.Dataset, error) {
	if err := g.validateParams(params); err != nil {
		return nil, err
	}

	schema, err := g.catalog.Get(params.SchemaName)
	if err != nil {
		return nil, err
	}
	locality, err := datamimic.ParseLocality(params.Locality)
	if err != nil {
		return nil, err
	}
	locale, err := lookupLocale(locality)
	if err != nil {
		return nil, err
	}

	fields, err := overlayFields(schema, params.CustomColumns)
	if err != nil {
		return nil, err
	}

	seed := rand.Uint64()
	if params.Seed != nil {
		seed = *params.Seed
	}
	env := newGenEnv(seed, locale, g.now())

	columns := g.generateColumns(fields, params.RecordCount, env)

	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.name
	}
	ds := datamimic.NewDataset(names)
	ds.Rows = make([]datamimic.Row, params.RecordCount)
	for r := range ds.Rows {
		row := make(datamimic.Row, len(fields))
		for c := range fields {
			row[c] = columns[c][r]
		}
		ds.Rows[r] = row
	}

	injected := injectMissing(ds, params.MissingPercent, env.rng)
	scaled := injectVariance(ds, params.VarianceRatio, g.clampBounds(fields))

	selected := params.SelectedColumns
	if len(selected) == 0 {
		selected = defaultSelection(schema, params.CustomColumns)
	}
	out := project(ds, selected)

	zap.S().Infow("generated synthetic dataset",
		"schema", schema.Name,
		"locality", locality,
		"rows", out.NumRows(),
		"columns", out.NumCols(),
		"missingCells", injected,
		"varianceColumns", scaled,
		"seed", seed)
	return out, nil
}

func (g *DatasetGenerator) validateParams(p datamimic.GenerateParams) error {
	if p.RecordCount < 1 {
		return datamimic.NewInvalidParameterError("numRecords", "must be a positive integer")
	}
	if g.maxRecords > 0 && p.RecordCount > g.maxRecords {
		return datamimic.NewInvalidParameterError("numRecords",
			fmt.Sprintf("must not exceed %d", g.maxRecords))
	}
	if !inPercentRange(p.MissingPercent) {
		return datamimic.NewInvalidParameterError("missingRatio", "must be between 0 and 100")
	}
	if !inPercentRange(p.VarianceRatio) {
		return datamimic.NewInvalidParameterError("varianceRatio", "must be between 0 and 100")
	}
	return nil
}

func inPercentRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 100
}

// overlayFields applies custom columns over the schema fields. An override keeps the
// schema position; new columns are appended in request order.
func overlayFields(schema *datamimic.Schema, custom []datamimic.CustomColumnSpec) ([]effectiveField, error) {
	fields := make([]effectiveField, len(schema.Fields))
	index := make(map[string]int, len(schema.Fields))
	for i, f := range schema.Fields {
		fields[i] = effectiveField{name: f.Name, spec: f.Spec}
		index[f.Name] = i
	}

	for _, def := range custom {
		spec, err := def.FieldSpec()
		if err != nil {
			return nil, err
		}
		if i, ok := index[def.Name]; ok {
			zap.S().Warnw("custom column overrides schema column", "schema", schema.Name, "column", def.Name)
			fields[i].spec = spec
			continue
		}
		index[def.Name] = len(fields)
		fields = append(fields, effectiveField{name: def.Name, spec: spec})
	}
	return fields, nil
}

// generateColumns runs the two passes: independent fields first, then fields that read
// sibling values of the same row. Failed cells become null.
func (g *DatasetGenerator) generateColumns(fields []effectiveField, rows int, env *genEnv) [][]datamimic.Value {
	columns := make([][]datamimic.Value, len(fields))
	var dependent []int

	for c, f := range fields {
		if datamimic.IsDependent(f.spec) {
			dependent = append(dependent, c)
			continue
		}
		col := make([]datamimic.Value, rows)
		gen, err := newCellGenerator(f.spec, env)
		if err != nil {
			zap.S().Warnw("field generator unavailable, column left empty", "column", f.name, "error", err)
			columns[c] = col
			continue
		}
		failures := 0
		var lastErr error
		for r := 0; r < rows; r++ {
			v, err := gen(r)
			if err != nil {
				failures++
				lastErr = err
				v = datamimic.Null()
			}
			col[r] = v
		}
		if failures > 0 {
			zap.S().Warnw("cell generation failed", "column", f.name, "failures", failures, "error", lastErr)
		}
		columns[c] = col
	}

	source := -1
	for c, f := range fields {
		if f.name == datamimic.ModelSourceColumn && !datamimic.IsDependent(f.spec) {
			source = c
		}
	}
	for _, c := range dependent {
		col := make([]datamimic.Value, rows)
		for r := 0; r < rows; r++ {
			src := datamimic.Null()
			if source >= 0 {
				src = columns[source][r]
			}
			col[r] = resolveModelName(env, src)
		}
		columns[c] = col
	}
	return columns
}

// injectMissing nulls exactly floor(rows*cols*percent/100) distinct cells chosen uniformly
// without replacement. It returns the number of cells nulled.
func injectMissing(ds *datamimic.Dataset, percent float64, rng *rand.Rand) int {
	if percent <= 0 {
		return 0
	}
	total := int64(ds.NumRows()) * int64(ds.NumCols())
	if total == 0 {
		return 0
	}
	k := missingCellCount(total, percent)
	if k <= 0 {
		return 0
	}

	// Floyd's algorithm: k distinct draws from [0, total) in O(k).
	chosen := NewSet[int64]()
	for j := total - k; j < total; j++ {
		t := rng.Int64N(j + 1)
		if chosen.Contains(t) {
			chosen.Add(j)
		} else {
			chosen.Add(t)
		}
	}

	cols := int64(ds.NumCols())
	for _, coord := range chosen.ToSlice() {
		ds.Rows[coord/cols][coord%cols] = datamimic.Null()
	}
	return int(k)
}

// missingCellCount computes floor(total*percent/100) in decimal arithmetic so that
// percentages such as 10 or 33.3 are not perturbed by binary rounding.
func missingCellCount(total int64, percent float64) int64 {
	k := decimal.NewFromInt(total).
		Mul(decimal.NewFromFloat(percent)).
		Div(decimal.NewFromInt(100)).
		Floor().
		IntPart()
	if k > total {
		k = total
	}
	return k
}

// clampBounds returns declared ranges for bounded fields when clamping is enabled.
func (g *DatasetGenerator) clampBounds(fields []effectiveField) map[string]datamimic.BoundedField {
	if !g.clampVariance {
		return nil
	}
	out := make(map[string]datamimic.BoundedField)
	for _, f := range fields {
		if b, ok := f.spec.(datamimic.BoundedField); ok {
			out[f.name] = b
		}
	}
	return out
}

// injectVariance widens each numeric column's spread around its mean by (1 + ratio/100).
// Columns with no values or a zero or undefined sample deviation are skipped. It returns
// the number of columns rescaled.
func injectVariance(ds *datamimic.Dataset, ratio float64, bounds map[string]datamimic.BoundedField) int {
	if ratio <= 0 {
		return 0
	}
	factor := 1 + ratio/100
	scaled := 0
	for c, name := range ds.Columns {
		cells := ds.Column(c)
		if datamimic.InferColumnType(cells) != datamimic.ColumnTypeNumeric {
			continue
		}
		xs := numericValues(cells)
		if len(xs) == 0 {
			continue
		}
		mu, sigma := mean(xs), sampleStd(xs)
		if math.IsNaN(sigma) || math.IsInf(sigma, 0) || math.IsInf(mu, 0) || sigma == 0 {
			continue
		}

		bound, clamp := bounds[name]
		for _, row := range ds.Rows {
			x, ok := row[c].Float64()
			if !ok {
				continue
			}
			v := mu + (x-mu)*factor
			if math.IsInf(v, 0) {
				continue
			}
			if clamp {
				v = math.Min(math.Max(v, bound.Low), bound.High)
				if bound.Generator == datamimic.GeneratorInteger {
					row[c] = datamimic.Int(int64(math.Round(v)))
					continue
				}
				v = roundTo(v, bound.DecimalPlaces)
			}
			row[c] = datamimic.Float(v)
		}
		scaled++
	}
	return scaled
}

func defaultSelection(schema *datamimic.Schema, custom []datamimic.CustomColumnSpec) []string {
	out := append([]string{}, schema.DefaultColumns...)
	for _, def := range custom {
		out = append(out, def.Name)
	}
	return Dedupe(out)
}

// project keeps the requested columns in request order. Unknown names are ignored.
func project(ds *datamimic.Dataset, selected []string) *datamimic.Dataset {
	var names []string
	var idx []int
	for _, name := range Dedupe(selected) {
		if i, ok := ds.ColumnIndex(name); ok {
			names = append(names, name)
			idx = append(idx, i)
		}
	}
	out := datamimic.NewDataset(names)
	out.Rows = make([]datamimic.Row, len(ds.Rows))
	for r, row := range ds.Rows {
		nr := make(datamimic.Row, len(idx))
		for j, i := range idx {
			nr[j] = row[i]
		}
		out.Rows[r] = nr
	}
	return out
}
