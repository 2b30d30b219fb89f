package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lychee-technology/datamimic"
	"go.uber.org/zap"
)

// loadConfig starts from the config file (or defaults) and applies environment overrides.
func loadConfig(path string) (*datamimic.Config, error) {
	config := datamimic.DefaultConfig()
	if path != "" {
		loaded, err := datamimic.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func applyEnvOverrides(config *datamimic.Config) {
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Addr = ":" + port
	}

	config.Generation.SchemaDirectory = getEnv("SCHEMA_DIR", config.Generation.SchemaDirectory)
	config.Generation.MaxRecords = getEnvInt("MAX_RECORDS", config.Generation.MaxRecords)
	config.Generation.ClampVariance = getEnvBool("CLAMP_VARIANCE", config.Generation.ClampVariance)

	if minutes := getEnvInt("SESSION_IDLE_TIMEOUT_MINUTES", -1); minutes >= 0 {
		config.Registry.IdleTimeout = time.Duration(minutes) * time.Minute
	}

	config.Export.Backend = getEnv("EXPORT_BACKEND", config.Export.Backend)
	config.Export.Directory = getEnv("EXPORT_DIR", config.Export.Directory)
	config.Export.Compression = getEnv("EXPORT_COMPRESSION", config.Export.Compression)
	config.Export.S3.Bucket = getEnv("S3_BUCKET", config.Export.S3.Bucket)
	config.Export.S3.Prefix = getEnv("S3_PREFIX", config.Export.S3.Prefix)
	config.Export.S3.Region = getEnv("AWS_REGION", config.Export.S3.Region)
	config.Export.S3.Endpoint = getEnv("S3_ENDPOINT", config.Export.S3.Endpoint)
	config.Export.S3.UsePathStyle = getEnvBool("S3_USE_PATH_STYLE", config.Export.S3.UsePathStyle)
	config.Export.DuckDB.MemoryLimitMB = getEnvInt("DUCKDB_MEMORY_LIMIT_MB", config.Export.DuckDB.MemoryLimitMB)

	config.Analytics.Backend = getEnv("ANALYTICS_BACKEND", config.Analytics.Backend)
	config.Analytics.Path = getEnv("ANALYTICS_PATH", config.Analytics.Path)

	pg := &config.Analytics.Postgres
	pg.Host = getEnv("DB_HOST", pg.Host)
	pg.Port = getEnvInt("DB_PORT", pg.Port)
	pg.Database = getEnv("DB_NAME", pg.Database)
	pg.Username = getEnv("DB_USER", pg.Username)
	pg.Password = getEnv("DB_PASSWORD", pg.Password)
	pg.SSLMode = getEnv("DB_SSL_MODE", pg.SSLMode)
	pg.MaxConnections = getEnvInt("DB_MAX_CONNECTIONS", pg.MaxConnections)
	pg.TableName = getEnv("ANALYTICS_TABLE", pg.TableName)
	pg.UseIAMAuth = getEnvBool("DB_USE_IAM_AUTH", pg.UseIAMAuth)
	pg.Region = getEnv("AWS_REGION", pg.Region)
	if seconds := getEnvInt("DB_TIMEOUT_SECONDS", 0); seconds > 0 {
		pg.Timeout = time.Duration(seconds) * time.Second
	}

	config.Logging.Level = getEnv("LOG_LEVEL", config.Logging.Level)
	config.Logging.Format = getEnv("LOG_FORMAT", config.Logging.Format)
}

// newLogger builds a production zap logger honouring the configured level and encoding.
func newLogger(cfg datamimic.LoggingConfig) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zapCfg.Level = level
	}
	if strings.EqualFold(cfg.Format, "console") {
		zapCfg.Encoding = "console"
	}
	return zapCfg.Build()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
