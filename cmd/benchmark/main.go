package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lychee-technology/datamimic"
	"github.com/lychee-technology/datamimic/factory"
)

type options struct {
	schema       string
	sizes        []int
	missing      float64
	variance     float64
	formats      []datamimic.Format
	schemaDir    string
	seed         uint64
	seedProvided bool
	jsonOutput   bool
}

// stageTiming is one measured step of a run.
type stageTiming struct {
	Stage    string        `json:"stage"`
	Records  int           `json:"records"`
	Duration time.Duration `json:"duration_ns"`
	Bytes    int           `json:"bytes,omitempty"`
}

func main() {
	log.SetFlags(0)

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("invalid flags: %v", err)
	}
	ctx := context.Background()

	cfg := datamimic.DefaultConfig()
	cfg.Analytics.Backend = "none"
	cfg.Generation.SchemaDirectory = opts.schemaDir
	cfg.Generation.MaxRecords = maxSize(opts.sizes)
	cfg.Export.Directory = os.TempDir()

	components, err := factory.NewDatasetManagerWithConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize dataset manager: %v", err)
	}
	defer components.Close()

	if !opts.seedProvided {
		log.Printf("[info] Using random seed %d", opts.seed)
	}

	var timings []stageTiming
	for _, size := range opts.sizes {
		run, err := benchmarkSize(ctx, components.Manager, opts, size)
		if err != nil {
			log.Fatalf("benchmark with %d records failed: %v", size, err)
		}
		timings = append(timings, run...)
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(timings); err != nil {
			log.Fatalf("failed to encode results: %v", err)
		}
		return
	}

	log.Printf("[success] Benchmark for schema %q complete:", opts.schema)
	for _, t := range timings {
		line := fmt.Sprintf("  - %-28s %8d records %12s", t.Stage, t.Records, t.Duration.Round(time.Microsecond))
		if t.Bytes > 0 {
			line += fmt.Sprintf(" %10d bytes", t.Bytes)
		}
		log.Println(line)
	}
}

// benchmarkSize generates size records, then times the summary, a preprocessing pipeline and
// every requested encoding against the same dataset.
func benchmarkSize(ctx context.Context, manager datamimic.DatasetManager, opts options, size int) ([]stageTiming, error) {
	var timings []stageTiming
	measure := func(stage string, fn func() (int, error)) error {
		start := time.Now()
		n, err := fn()
		if err != nil {
			return fmt.Errorf("%s: %w", stage, err)
		}
		timings = append(timings, stageTiming{Stage: stage, Records: size, Duration: time.Since(start), Bytes: n})
		return nil
	}

	seed := opts.seed
	var generated *datamimic.GenerateResult
	err := measure("generate", func() (int, error) {
		var err error
		generated, err = manager.Generate(ctx, datamimic.GenerateParams{
			RecordCount:    size,
			MissingPercent: opts.missing,
			VarianceRatio:  opts.variance,
			SchemaName:     opts.schema,
			Seed:           &seed,
		})
		return 0, err
	})
	if err != nil {
		return nil, err
	}
	handle := generated.Handle
	defer manager.Delete(ctx, handle)

	var numeric, text []string
	for _, col := range generated.Summary.Columns {
		switch col.Type {
		case datamimic.ColumnTypeNumeric:
			numeric = append(numeric, col.Name)
		case datamimic.ColumnTypeText:
			text = append(text, col.Name)
		}
	}

	if err := measure("summary", func() (int, error) {
		_, err := manager.Summary(ctx, handle)
		return 0, err
	}); err != nil {
		return nil, err
	}

	pipeline := []datamimic.ActionRequest{
		{Action: datamimic.ActionRemoveDuplicateRows},
	}
	if len(numeric) > 0 {
		pipeline = append(pipeline,
			datamimic.ActionRequest{Action: datamimic.ActionImputeNumerical, Params: datamimic.ActionParams{Columns: numeric, Strategy: "median"}},
			datamimic.ActionRequest{Action: datamimic.ActionScaleColumns, Params: datamimic.ActionParams{Columns: numeric, Method: "standard"}},
		)
	}
	if len(text) > 0 {
		pipeline = append(pipeline,
			datamimic.ActionRequest{Action: datamimic.ActionImputeCategorical, Params: datamimic.ActionParams{Columns: text, Strategy: "mode"}},
			datamimic.ActionRequest{Action: datamimic.ActionCleanTextCapitalization, Params: datamimic.ActionParams{Columns: text, CaseType: "lower"}},
		)
	}
	for _, req := range pipeline {
		req := req
		if err := measure(string(req.Action), func() (int, error) {
			_, err := manager.Apply(ctx, handle, req)
			return 0, err
		}); err != nil {
			return nil, err
		}
	}

	for _, format := range opts.formats {
		if err := measure("encode_"+string(format), func() (int, error) {
			dl, err := manager.Download(ctx, handle, format)
			if err != nil {
				return 0, err
			}
			return len(dl.Body), nil
		}); err != nil {
			return nil, err
		}
	}
	return timings, nil
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("benchmark", flag.ContinueOnError)

	fs.StringVar(&opts.schema, "schema", getenvDefault("BENCH_SCHEMA", "retail"), "schema to generate")
	sizes := fs.String("records", getenvDefault("BENCH_RECORDS", "1000,10000,100000"), "comma separated record counts")
	fs.Float64Var(&opts.missing, "missing", 5, "missing value percentage")
	fs.Float64Var(&opts.variance, "variance", 0.1, "variance ratio")
	formats := fs.String("formats", "csv,json,xlsx,parquet", "comma separated encodings to time")
	fs.StringVar(&opts.schemaDir, "schema-dir", getenvDefault("SCHEMA_DIR", ""), "directory with additional schema files")
	fs.BoolVar(&opts.jsonOutput, "json", false, "print results as JSON")
	seed := fs.Uint64("seed", uint64(getenvDefaultInt("BENCH_SEED", 0)), "random seed (0 uses current time)")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	var err error
	if opts.sizes, err = parseSizes(*sizes); err != nil {
		return opts, err
	}
	for _, name := range splitList(*formats) {
		f, err := datamimic.ParseFormat(name)
		if err != nil {
			return opts, err
		}
		opts.formats = append(opts.formats, f)
	}

	if *seed == 0 {
		opts.seed = uint64(time.Now().UnixNano())
		opts.seedProvided = false
	} else {
		opts.seed = *seed
		opts.seedProvided = true
	}
	return opts, nil
}

func parseSizes(raw string) ([]int, error) {
	var sizes []int
	for _, part := range splitList(raw) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid record count %q", part)
		}
		if n <= 0 {
			return nil, fmt.Errorf("record counts must be positive, got %d", n)
		}
		sizes = append(sizes, n)
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("at least one record count is required")
	}
	return sizes, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func maxSize(sizes []int) int {
	m := 1
	for _, s := range sizes {
		if s > m {
			m = s
		}
	}
	return m
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getenvDefaultInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}
