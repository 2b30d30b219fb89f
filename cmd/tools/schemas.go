package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lychee-technology/datamimic"
	"github.com/lychee-technology/datamimic/factory"
	"github.com/lychee-technology/datamimic/internal"
	"github.com/spf13/cobra"
)

func newSchemasCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "Inspect generation schemas and validate files against them",
	}
	cmd.AddCommand(
		newSchemasListCmd(root),
		newSchemasColumnsCmd(root),
		newSchemasDocumentCmd(root),
		newSchemasValidateCmd(root),
	)
	return cmd
}

func newSchemasListCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List schema names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, root, nil, func(ctx context.Context, c *factory.Components) error {
				for _, name := range c.Manager.ListSchemas(ctx) {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			})
		},
	}
}

func newSchemasColumnsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "columns NAME",
		Short: "Print a schema's default columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, root, nil, func(ctx context.Context, c *factory.Components) error {
				columns, err := c.Manager.SchemaColumns(ctx, args[0])
				if err != nil {
					return err
				}
				for _, col := range columns {
					fmt.Fprintln(cmd.OutOrStdout(), col)
				}
				return nil
			})
		},
	}
}

func newSchemasDocumentCmd(root *rootOptions) *cobra.Command {
	var bounded bool
	cmd := &cobra.Command{
		Use:   "document NAME",
		Short: "Print the JSON Schema describing one generated record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, root, boundedOverride(cmd, bounded), func(ctx context.Context, c *factory.Components) error {
				doc, err := c.Manager.SchemaDocument(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), doc)
			})
		},
	}
	cmd.Flags().BoolVar(&bounded, "bounded", false, "include declared numeric ranges (matches clamped generation)")
	return cmd
}

func newSchemasValidateCmd(root *rootOptions) *cobra.Command {
	var (
		schemaName string
		bounded    bool
	)
	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Check that every row of a csv or xlsx file conforms to a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, root, boundedOverride(cmd, bounded), func(ctx context.Context, c *factory.Components) error {
				doc, err := c.Manager.SchemaDocument(ctx, schemaName)
				if err != nil {
					return err
				}

				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open %s: %w", args[0], err)
				}
				defer f.Close()

				uploaded, err := c.Manager.Upload(ctx, datamimic.UploadRequest{FileName: filepath.Base(args[0]), Content: f})
				if err != nil {
					return err
				}
				ds, err := c.Registry.Get(uploaded.Handle)
				if err != nil {
					return err
				}
				if err := internal.ValidateRecords(doc, ds); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows conform to schema %s\n", args[0], ds.NumRows(), schemaName)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&schemaName, "schema", "s", "", "schema name (required)")
	cmd.Flags().BoolVar(&bounded, "bounded", false, "enforce declared numeric ranges")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

// boundedOverride returns a config tweak when --bounded was passed explicitly.
func boundedOverride(cmd *cobra.Command, bounded bool) func(*datamimic.Config) {
	return func(cfg *datamimic.Config) {
		if cmd.Flags().Changed("bounded") {
			cfg.Generation.ClampVariance = bounded
		}
	}
}

// withManager builds the manager from the root config, runs fn, and releases resources.
func withManager(cmd *cobra.Command, root *rootOptions, tweak func(*datamimic.Config), fn func(context.Context, *factory.Components) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	config, err := root.loadConfig()
	if err != nil {
		return err
	}
	if tweak != nil {
		tweak(config)
	}
	components, err := factory.NewDatasetManagerWithConfig(ctx, config)
	if err != nil {
		return err
	}
	defer components.Close()
	return fn(ctx, components)
}
