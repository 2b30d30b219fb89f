package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/lychee-technology/datamimic"
	"github.com/lychee-technology/datamimic/internal/analytics"
	"github.com/spf13/cobra"
)

type initDBOptions struct {
	host       string
	port       int
	database   string
	user       string
	password   string
	sslMode    string
	table      string
	useIAMAuth bool
	region     string
	timeout    time.Duration
}

func newInitDBCmd(root *rootOptions) *cobra.Command {
	opts := &initDBOptions{}
	cmd := &cobra.Command{
		Use:   "init-db",
		Short: "Create the PostgreSQL usage counter table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return initDatabase(ctx, cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.host, "db-host", getenvDefault("DB_HOST", "localhost"), "database host")
	flags.IntVar(&opts.port, "db-port", getenvDefaultInt("DB_PORT", 5432), "database port")
	flags.StringVar(&opts.database, "db-name", getenvDefault("DB_NAME", "datamimic"), "database name")
	flags.StringVar(&opts.user, "db-user", getenvDefault("DB_USER", "postgres"), "database user")
	flags.StringVar(&opts.password, "db-password", getenvDefault("DB_PASSWORD", "postgres"), "database password")
	flags.StringVar(&opts.sslMode, "db-ssl-mode", getenvDefault("DB_SSL_MODE", "disable"), "database sslmode")
	flags.StringVar(&opts.table, "table", getenvDefault("ANALYTICS_TABLE", "usage_counters"), "usage counter table name")
	flags.BoolVar(&opts.useIAMAuth, "iam-auth", false, "authenticate with a DSQL IAM token instead of a password")
	flags.StringVar(&opts.region, "region", getenvDefault("AWS_REGION", ""), "AWS region for IAM authentication")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "connection timeout")
	return cmd
}

func (o *initDBOptions) postgresConfig() datamimic.PostgresConfig {
	return datamimic.PostgresConfig{
		Host:           o.host,
		Port:           o.port,
		Database:       o.database,
		Username:       o.user,
		Password:       o.password,
		SSLMode:        o.sslMode,
		MaxConnections: 1,
		Timeout:        o.timeout,
		TableName:      o.table,
		UseIAMAuth:     o.useIAMAuth,
		Region:         o.region,
	}
}

func initDatabase(ctx context.Context, cmd *cobra.Command, opts *initDBOptions) error {
	// NewPostgresStore creates the table as part of connecting.
	store, err := analytics.NewPostgresStore(ctx, opts.postgresConfig())
	if err != nil {
		return fmt.Errorf("initialize counter table: %w", err)
	}
	defer store.Close()

	stats, err := store.Load(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Counter table %s ready (data_generation_count=%d, eda_operations_count=%d)\n",
		opts.table, stats.DataGenerationCount, stats.EDAOperationsCount)
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
