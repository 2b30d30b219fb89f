package main

import (
	"fmt"
	"os"

	"github.com/lychee-technology/datamimic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Errorf("failed to set up logger: %w", err))
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "datamimic-tools",
		Short:         "Generate, profile and validate synthetic tabular datasets",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", getenvDefault("CONFIG_FILE", ""), "YAML or JSON configuration file")

	root.AddCommand(
		newGenerateCmd(opts),
		newProfileCmd(opts),
		newSchemasCmd(opts),
		newInitDBCmd(opts),
	)
	return root
}

// loadConfig reads the config file when one is given. Without one, usage counters are off.
func (o *rootOptions) loadConfig() (*datamimic.Config, error) {
	if o.configFile == "" {
		cfg := datamimic.DefaultConfig()
		cfg.Analytics.Backend = "none"
		return cfg, nil
	}
	return datamimic.LoadConfig(o.configFile)
}
