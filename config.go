package datamimic

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config consolidates settings for the generator, registry and collaborators
type Config struct {
	Server     ServerConfig     `json:"server" yaml:"server"`
	Generation GenerationConfig `json:"generation" yaml:"generation"`
	Registry   RegistryConfig   `json:"registry" yaml:"registry"`
	Upload     UploadConfig     `json:"upload" yaml:"upload"`
	Export     ExportConfig     `json:"export" yaml:"export"`
	Analytics  AnalyticsConfig  `json:"analytics" yaml:"analytics"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Addr         string        `json:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
}

// GenerationConfig contains synthetic data generation settings
type GenerationConfig struct {
	MaxRecords      int    `json:"maxRecords" yaml:"maxRecords"`
	DefaultLocality string `json:"defaultLocality" yaml:"defaultLocality"`
	PreviewRows     int    `json:"previewRows" yaml:"previewRows"`
	SchemaDirectory string `json:"schemaDirectory" yaml:"schemaDirectory"`
	// ClampVariance keeps variance-injected values inside a bounded field's declared range.
	ClampVariance bool `json:"clampVariance" yaml:"clampVariance"`
}

// RegistryConfig contains dataset lifetime settings
type RegistryConfig struct {
	IdleTimeout     time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
	JanitorInterval time.Duration `json:"janitorInterval" yaml:"janitorInterval"`
	MaxPreviewRows  int           `json:"maxPreviewRows" yaml:"maxPreviewRows"`
}

// UploadConfig contains upload limits
type UploadConfig struct {
	MaxContentLength  int64    `json:"maxContentLength" yaml:"maxContentLength"`
	AllowedExtensions []string `json:"allowedExtensions" yaml:"allowedExtensions"`
}

// ExportConfig selects where exported datasets are published
type ExportConfig struct {
	Backend     string       `json:"backend" yaml:"backend"` // local, s3
	Directory   string       `json:"directory" yaml:"directory"`
	Compression string       `json:"compression" yaml:"compression"` // none, snappy
	S3          S3Config     `json:"s3" yaml:"s3"`
	DuckDB      DuckDBConfig `json:"duckdb" yaml:"duckdb"`
}

// DuckDBConfig contains settings for the embedded engine that writes Parquet
type DuckDBConfig struct {
	DBPath        string `json:"dbPath" yaml:"dbPath"` // empty for in-memory
	MemoryLimitMB int    `json:"memoryLimitMb" yaml:"memoryLimitMb"`
	TempDirectory string `json:"tempDirectory" yaml:"tempDirectory"`
}

// S3Config contains object storage settings
type S3Config struct {
	Bucket          string `json:"bucket" yaml:"bucket"`
	Prefix          string `json:"prefix" yaml:"prefix"`
	Region          string `json:"region" yaml:"region"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	UsePathStyle    bool   `json:"usePathStyle" yaml:"usePathStyle"`
	AccessKeyID     string `json:"accessKeyId" yaml:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey" yaml:"secretAccessKey"`
}

// AnalyticsConfig selects the usage counter backend
type AnalyticsConfig struct {
	Backend  string         `json:"backend" yaml:"backend"` // file, postgres, sqlite, none
	Path     string         `json:"path" yaml:"path"`
	Postgres PostgresConfig `json:"postgres" yaml:"postgres"`
}

// PostgresConfig contains counter database connection settings
type PostgresConfig struct {
	Host           string        `json:"host" yaml:"host"`
	Port           int           `json:"port" yaml:"port"`
	Database       string        `json:"database" yaml:"database"`
	Username       string        `json:"username" yaml:"username"`
	Password       string        `json:"password" yaml:"password"`
	SSLMode        string        `json:"sslMode" yaml:"sslMode"`
	MaxConnections int           `json:"maxConnections" yaml:"maxConnections"`
	Timeout        time.Duration `json:"timeout" yaml:"timeout"`
	TableName      string        `json:"tableName" yaml:"tableName"`
	// UseIAMAuth swaps the static password for a short-lived DSQL auth token.
	UseIAMAuth bool   `json:"useIamAuth" yaml:"useIamAuth"`
	Region     string `json:"region" yaml:"region"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Generation: GenerationConfig{
			MaxRecords:      100000,
			DefaultLocality: "US",
			PreviewRows:     10,
		},
		Registry: RegistryConfig{
			IdleTimeout:     30 * time.Minute,
			JanitorInterval: time.Minute,
			MaxPreviewRows:  100,
		},
		Upload: UploadConfig{
			MaxContentLength:  100 * 1024 * 1024, // 100MB
			AllowedExtensions: []string{"csv", "xlsx"},
		},
		Export: ExportConfig{
			Backend:     "local",
			Directory:   "generated_data",
			Compression: "none",
		},
		Analytics: AnalyticsConfig{
			Backend: "file",
			Path:    "analytics.json",
			Postgres: PostgresConfig{
				Host:           "localhost",
				Port:           5432,
				SSLMode:        "disable",
				MaxConnections: 5,
				Timeout:        5 * time.Second,
				TableName:      "usage_counters",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Generation.MaxRecords <= 0 {
		return &ConfigError{Field: "generation.maxRecords", Message: "must be greater than 0"}
	}
	if c.Generation.PreviewRows < 0 {
		return &ConfigError{Field: "generation.previewRows", Message: "must not be negative"}
	}
	if c.Registry.MaxPreviewRows <= 0 {
		return &ConfigError{Field: "registry.maxPreviewRows", Message: "must be greater than 0"}
	}
	if c.Registry.IdleTimeout < 0 {
		return &ConfigError{Field: "registry.idleTimeout", Message: "must not be negative"}
	}
	if c.Registry.IdleTimeout > 0 && c.Registry.JanitorInterval <= 0 {
		return &ConfigError{Field: "registry.janitorInterval", Message: "must be greater than 0 when idleTimeout is set"}
	}
	if c.Upload.MaxContentLength <= 0 {
		return &ConfigError{Field: "upload.maxContentLength", Message: "must be greater than 0"}
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		return &ConfigError{Field: "upload.allowedExtensions", Message: "must list at least one extension"}
	}

	switch c.Export.Backend {
	case "local":
		if c.Export.Directory == "" {
			return &ConfigError{Field: "export.directory", Message: "required for local backend"}
		}
	case "s3":
		if c.Export.S3.Bucket == "" {
			return &ConfigError{Field: "export.s3.bucket", Message: "required for s3 backend"}
		}
		if (c.Export.S3.AccessKeyID == "") != (c.Export.S3.SecretAccessKey == "") {
			return &ConfigError{Field: "export.s3.accessKeyId", Message: "accessKeyId and secretAccessKey must be set together"}
		}
	default:
		return &ConfigError{Field: "export.backend", Message: "must be one of local, s3"}
	}
	switch c.Export.Compression {
	case "", "none", "snappy":
	default:
		return &ConfigError{Field: "export.compression", Message: "must be one of none, snappy"}
	}
	if c.Export.DuckDB.MemoryLimitMB < 0 {
		return &ConfigError{Field: "export.duckdb.memoryLimitMb", Message: "must be >= 0"}
	}

	switch c.Analytics.Backend {
	case "none":
	case "file", "sqlite":
		if c.Analytics.Path == "" {
			return &ConfigError{Field: "analytics.path", Message: "required for " + c.Analytics.Backend + " backend"}
		}
	case "postgres":
		if c.Analytics.Postgres.Host == "" || c.Analytics.Postgres.Database == "" {
			return &ConfigError{Field: "analytics.postgres", Message: "host and database are required"}
		}
		if c.Analytics.Postgres.Port <= 0 || c.Analytics.Postgres.Port > 65535 {
			return &ConfigError{Field: "analytics.postgres.port", Message: "must be a valid TCP port"}
		}
		if c.Analytics.Postgres.MaxConnections <= 0 {
			return &ConfigError{Field: "analytics.postgres.maxConnections", Message: "must be greater than 0"}
		}
		if c.Analytics.Postgres.UseIAMAuth && c.Analytics.Postgres.Region == "" {
			return &ConfigError{Field: "analytics.postgres.region", Message: "required when useIamAuth is set"}
		}
	default:
		return &ConfigError{Field: "analytics.backend", Message: "must be one of file, postgres, sqlite, none"}
	}

	return nil
}

// IsExtensionAllowed reports whether an upload file name carries an allowed extension.
func (c *UploadConfig) IsExtensionAllowed(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return false
	}
	for _, allowed := range c.AllowedExtensions {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}

// LoadConfig reads a YAML or JSON file over the defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
