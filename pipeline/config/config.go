package config

import (
	"os"
	"strings"

	"github.com/gear6io/wwi-etl/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables that override S3 settings from the file
const (
	EnvS3AccessKey = "WWI_S3_ACCESS_KEY"
	EnvS3SecretKey = "WWI_S3_SECRET_KEY"
	EnvS3Endpoint  = "WWI_S3_ENDPOINT"
)

// Bronze source kinds
const (
	SourceFilesystem = "filesystem"
	SourceS3         = "s3"
)

// DefaultNullTokens are the cell values read as "no value": the common
// spreadsheet and dataframe spellings of missing data.
var DefaultNullTokens = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// Config represents the pipeline configuration
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Paths      PathsConfig      `yaml:"paths"`
	Bronze     BronzeConfig     `yaml:"bronze"`
	Silver     SilverConfig     `yaml:"silver"`
	Dimensions DimensionsConfig `yaml:"dimensions"`
	Runtime    RuntimeConfig    `yaml:"runtime"`
	History    HistoryConfig    `yaml:"history"`
	S3         S3Config         `yaml:"s3"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`      // "json", "console" or "auto"
	FilePath   string `yaml:"file_path"`   // empty disables the file sink
	Console    bool   `yaml:"console"`     // write to stderr
	MaxSize    int    `yaml:"max_size"`    // MB
	MaxBackups int    `yaml:"max_backups"` // rotated files kept
	MaxAge     int    `yaml:"max_age"`     // days
}

// PathsConfig locates the Bronze and Silver trees on local disk
type PathsConfig struct {
	BronzeDir string `yaml:"bronze_dir"`
	SilverDir string `yaml:"silver_dir"`
}

// BronzeConfig controls how raw files are found and decoded
type BronzeConfig struct {
	Kind       string   `yaml:"kind"` // filesystem | s3
	Delimiter  string   `yaml:"delimiter"`
	NullTokens []string `yaml:"null_tokens"`
	Bucket     string   `yaml:"bucket"`
	Prefix     string   `yaml:"prefix"`
}

// SilverConfig controls the parquet output
type SilverConfig struct {
	Compression      string `yaml:"compression"`
	CompressionLevel int    `yaml:"compression_level"`
}

// DimensionsConfig points at the generic dimension declarations.
// An empty file uses the built-in set.
type DimensionsConfig struct {
	File string `yaml:"file"`
}

type RuntimeConfig struct {
	Workers int `yaml:"workers"`
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// S3Config holds the blob store connection used for s3 Bronze sources and
// for publishing Silver files.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
}

// LoadDefaultConfig returns a default configuration
func LoadDefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			Format:     "auto",
			Console:    true,
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     7,
		},
		Paths: PathsConfig{
			BronzeDir: "data/bronze/actual",
			SilverDir: "data/silver",
		},
		Bronze: BronzeConfig{
			Kind:       SourceFilesystem,
			Delimiter:  ",",
			NullTokens: append([]string(nil), DefaultNullTokens...),
		},
		Silver: SilverConfig{
			Compression: "snappy",
		},
		Runtime: RuntimeConfig{
			Workers: 1,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "data/wwi-etl.db",
		},
		S3: S3Config{
			Region: "us-east-1",
			Bucket: "silver",
		},
	}
}

// LoadConfig loads configuration from a file. Fields not present in the file
// keep their default values.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.New(ErrConfigFileReadFailed, "failed to read config file", err).AddContext("path", filename)
	}

	cfg := LoadDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(ErrConfigFileParseFailed, "failed to parse config file", err).AddContext("path", filename)
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, errors.New(ErrConfigValidationFailed, "configuration validation failed", err)
	}
	return cfg, nil
}

// LoadOrDefault loads filename when it exists and falls back to defaults
// otherwise.
func LoadOrDefault(filename string) (*Config, error) {
	if filename != "" {
		if _, err := os.Stat(filename); err == nil {
			return LoadConfig(filename)
		}
	}
	cfg := LoadDefaultConfig()
	cfg.ApplyEnv()
	return cfg, nil
}

// SaveConfig saves configuration to a file
func SaveConfig(cfg *Config, filename string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.New(ErrConfigFileMarshalFailed, "failed to marshal config", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return errors.New(ErrConfigFileWriteFailed, "failed to write config file", err)
	}
	return nil
}

// ApplyEnv overrides S3 settings from the environment when set
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvS3AccessKey); v != "" {
		c.S3.AccessKey = v
	}
	if v := os.Getenv(EnvS3SecretKey); v != "" {
		c.S3.SecretKey = v
	}
	if v := os.Getenv(EnvS3Endpoint); v != "" {
		c.S3.Endpoint = v
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Paths.Validate(); err != nil {
		return errors.New(ErrPathsValidationFailed, "paths validation failed", err)
	}
	if err := c.Bronze.Validate(); err != nil {
		return errors.New(ErrBronzeValidationFailed, "bronze validation failed", err)
	}
	if err := c.Silver.Validate(); err != nil {
		return errors.New(ErrSilverValidationFailed, "silver validation failed", err)
	}
	if c.Runtime.Workers < 0 {
		return errors.Newf(ErrRuntimeValidationFailed, "workers must be >= 0, got %d", c.Runtime.Workers)
	}
	if c.Bronze.Kind == SourceS3 {
		if err := c.S3.Validate(); err != nil {
			return errors.New(ErrS3ValidationFailed, "s3 validation failed", err)
		}
		if c.Bronze.Bucket == "" {
			return errors.New(ErrBronzeValidationFailed, "bronze.bucket is required for s3 sources", nil)
		}
	}
	return nil
}

func (p *PathsConfig) Validate() error {
	if p.BronzeDir == "" {
		return errors.New(errors.CommonValidation, "bronze_dir is required", nil)
	}
	if p.SilverDir == "" {
		return errors.New(errors.CommonValidation, "silver_dir is required", nil)
	}
	return nil
}

func (b *BronzeConfig) Validate() error {
	switch b.Kind {
	case SourceFilesystem, SourceS3:
	default:
		return errors.Newf(errors.CommonUnsupported, "unknown bronze kind %q", b.Kind)
	}
	if len([]rune(b.Delimiter)) != 1 {
		return errors.Newf(errors.CommonValidation, "delimiter must be a single character, got %q", b.Delimiter)
	}
	return nil
}

func (s *SilverConfig) Validate() error {
	switch strings.ToLower(s.Compression) {
	case "", "none", "uncompressed", "snappy", "gzip", "brotli", "lz4", "zstd":
		return nil
	}
	return errors.Newf(errors.CommonUnsupported, "unsupported compression %q", s.Compression)
}

// Validate checks the fields required to build a client
func (s *S3Config) Validate() error {
	if s.Endpoint == "" {
		return errors.New(errors.CommonValidation, "s3.endpoint is required", nil)
	}
	if s.AccessKey == "" || s.SecretKey == "" {
		return errors.New(errors.CommonValidation, "s3 credentials are required", nil)
	}
	return nil
}

// DelimiterRune returns the Bronze field separator
func (c *Config) DelimiterRune() rune {
	for _, r := range c.Bronze.Delimiter {
		return r
	}
	return ','
}
