package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lychee-technology/datamimic"
	"github.com/lychee-technology/datamimic/factory"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type profileOptions struct {
	actionsFile string
	out         string
	quiet       bool
}

func newProfileCmd(root *rootOptions) *cobra.Command {
	opts := &profileOptions{}
	cmd := &cobra.Command{
		Use:   "profile FILE",
		Short: "Summarize a csv or xlsx file, optionally applying preprocessing actions",
		Long: `Profile loads a csv or xlsx file, applies the actions listed in --actions in order
and prints the resulting summary as JSON. The actions file is a YAML or JSON list of
{action, params} objects, for example:

  - action: remove_duplicate_rows
  - action: impute_numerical
    params: {columns: [age], strategy: median}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd, root, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.actionsFile, "actions", "a", "", "YAML or JSON file listing preprocessing actions")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "write the processed dataset here; the extension selects the format")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "do not print the summary")
	return cmd
}

func runProfile(cmd *cobra.Command, root *rootOptions, opts *profileOptions, path string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var actions []datamimic.ActionRequest
	if opts.actionsFile != "" {
		var err error
		if actions, err = readActions(opts.actionsFile); err != nil {
			return err
		}
	}

	var outFormat datamimic.Format
	if opts.out != "" {
		var err error
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(opts.out)), ".")
		if outFormat, err = datamimic.ParseFormat(ext); err != nil {
			return err
		}
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

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	uploaded, err := manager.Upload(ctx, datamimic.UploadRequest{FileName: filepath.Base(path), Content: f})
	if err != nil {
		return err
	}

	summary := uploaded.Summary
	for i, action := range actions {
		applied, err := manager.Apply(ctx, uploaded.Handle, action)
		if err != nil {
			return fmt.Errorf("action %d (%s): %w", i+1, action.Action, err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), applied.Message)
		summary = applied.Summary
	}

	if opts.out != "" {
		download, err := manager.Download(ctx, uploaded.Handle, outFormat)
		if err != nil {
			return err
		}
		if err := writeOutput(cmd, opts.out, download.Body); err != nil {
			return err
		}
	}

	if opts.quiet {
		return nil
	}
	return printJSON(cmd.OutOrStdout(), summary)
}

func readActions(path string) ([]datamimic.ActionRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read actions: %w", err)
	}
	var raw []map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse actions %s: %w", path, err)
	}

	// Round-trip through JSON so the json tags on ActionParams apply.
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var actions []datamimic.ActionRequest
	if err := json.Unmarshal(encoded, &actions); err != nil {
		return nil, fmt.Errorf("parse actions %s: %w", path, err)
	}
	return actions, nil
}

// writeOutput writes body to path, or to the command's stdout when path is empty.
func writeOutput(cmd *cobra.Command, path string, body []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(body)
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
