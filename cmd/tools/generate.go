package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lychee-technology/datamimic"
	"github.com/lychee-technology/datamimic/factory"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type generateOptions struct {
	schema      string
	records     int
	missing     float64
	variance    float64
	locality    string
	columns     []string
	customFile  string
	seed        uint64
	format      string
	out         string
	export      bool
	showSummary bool
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic dataset and write it as csv, json, xlsx or parquet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, root, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.schema, "schema", "s", "", "schema name (required)")
	flags.IntVarP(&opts.records, "records", "n", 100, "number of records")
	flags.Float64Var(&opts.missing, "missing", 0, "percentage of cells to blank out (0-100)")
	flags.Float64Var(&opts.variance, "variance", 0, "percentage variance applied to numeric columns (0-100)")
	flags.StringVarP(&opts.locality, "locality", "l", "", "locality for names, addresses and phone numbers")
	flags.StringSliceVarP(&opts.columns, "columns", "c", nil, "columns to emit (defaults to the schema's default columns)")
	flags.StringVar(&opts.customFile, "custom", "", "YAML or JSON file with a list of custom column definitions")
	flags.Uint64Var(&opts.seed, "seed", 0, "seed for reproducible output")
	flags.StringVarP(&opts.format, "format", "f", "csv", "output format: csv, json, xlsx or parquet")
	flags.StringVarP(&opts.out, "out", "o", "", "output file (default: stdout)")
	flags.BoolVar(&opts.export, "export", false, "publish to the configured export store instead of writing locally")
	flags.BoolVar(&opts.showSummary, "summary", false, "print the dataset summary to stderr")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func runGenerate(cmd *cobra.Command, root *rootOptions, opts *generateOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	format, err := datamimic.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	params := datamimic.GenerateParams{
		RecordCount:     opts.records,
		MissingPercent:  opts.missing,
		VarianceRatio:   opts.variance,
		SchemaName:      opts.schema,
		Locality:        opts.locality,
		SelectedColumns: opts.columns,
	}
	if cmd.Flags().Changed("seed") {
		seed := opts.seed
		params.Seed = &seed
	}
	if opts.customFile != "" {
		custom, err := readCustomColumns(opts.customFile)
		if err != nil {
			return err
		}
		params.CustomColumns = custom
	}

	config, err := root.loadConfig()
	if err != nil {
		return err
	}
	components, err := factory.NewDatasetManagerWithConfig(ctx, config)
	if err != nil {
		return err
	}
	defer components.Close()
	manager := components.Manager

	result, err := manager.Generate(ctx, params)
	if err != nil {
		return err
	}
	if opts.showSummary {
		if err := printJSON(cmd.ErrOrStderr(), result.Summary); err != nil {
			return err
		}
	}

	if opts.export {
		exported, err := manager.Export(ctx, result.Handle, format)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d bytes to %s\n", exported.Size, exported.Location)
		return nil
	}

	download, err := manager.Download(ctx, result.Handle, format)
	if err != nil {
		return err
	}
	return writeOutput(cmd, opts.out, download.Body)
}

func readCustomColumns(path string) ([]datamimic.CustomColumnSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read custom columns: %w", err)
	}
	var custom []datamimic.CustomColumnSpec
	if err := yaml.Unmarshal(data, &custom); err != nil {
		return nil, fmt.Errorf("parse custom columns %s: %w", path, err)
	}
	return custom, nil
}
