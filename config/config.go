// SPDX-License-Identifier: MIT

// Package config loads the kcomplex CLI configuration from YAML or HCL files
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/kcomplex/ctm"
	"github.com/katalvlaran/kcomplex/partition"
)

// Environment variables that override file values.
const (
	EnvTablePath = "KCOMPLEX_TABLE_PATH"
	EnvLogLevel  = "KCOMPLEX_LOG_LEVEL"
)

// Table backends.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
	BackendMinIO = "minio"
)

// ErrInvalidConfig indicates a configuration value out of range.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds all kcomplex settings.
type Config struct {
	Estimator EstimatorConfig `yaml:"estimator"`
	Table     TableConfig     `yaml:"table"`
	Logging   LoggingConfig   `yaml:"logging"`
	// Workers bounds batch and generator goroutines.
	Workers int `yaml:"workers" hcl:"workers,optional"`
}

// EstimatorConfig selects the table configuration and the decomposition.
type EstimatorConfig struct {
	NDim     int   `yaml:"ndim" hcl:"ndim,optional"`
	Alphabet int   `yaml:"alphabet" hcl:"alphabet,optional"`
	Shape    []int `yaml:"shape" hcl:"shape,optional"` // empty: the table's recommended shape
	// Partition is one of partition.NameIgnore, NameStrict, NameRecursive, NameCorrelated.
	Partition string `yaml:"partition" hcl:"partition,optional"`
	Shift     int    `yaml:"shift" hcl:"shift,optional"`
	MinSize   int    `yaml:"min_size" hcl:"min_size,optional"`
}

// TableConfig locates reference tables.
type TableConfig struct {
	Backend     string `yaml:"backend" hcl:"backend,optional"`
	Path        string `yaml:"path" hcl:"path,optional"` // local root directory
	Bucket      string `yaml:"bucket" hcl:"bucket,optional"`
	Prefix      string `yaml:"prefix" hcl:"prefix,optional"`
	Endpoint    string `yaml:"endpoint" hcl:"endpoint,optional"`
	Region      string `yaml:"region" hcl:"region,optional"`
	AccessKey   string `yaml:"access_key" hcl:"access_key,optional"`
	SecretKey   string `yaml:"secret_key" hcl:"secret_key,optional"`
	UseSSL      bool   `yaml:"use_ssl" hcl:"use_ssl,optional"`
	// Name overrides the blob name derived from alphabet and ndim.
	Name        string `yaml:"name" hcl:"name,optional"`
	Compression string `yaml:"compression" hcl:"compression,optional"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level" hcl:"level,optional"`
	Format string `yaml:"format" hcl:"format,optional"` // json or console
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Estimator: EstimatorConfig{
			NDim:      2,
			Alphabet:  2,
			Partition: partition.NameIgnore,
			Shift:     1,
			MinSize:   partition.DefaultMinSize,
		},
		Table: TableConfig{
			Backend:     BackendLocal,
			Path:        "tables",
			Compression: ctm.CompressionZSTD.String(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Workers: 4,
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. The decoder is chosen by extension: .yaml/.yml or .hcl.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case ".hcl":
		if err := decodeHCL(path, data, cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("config: %s: unknown extension: %w", path, ErrInvalidConfig)
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// hclFile is the top level of an HCL configuration. Blocks are decoded in a
// second pass into pre-filled structs so that omitted attributes keep their
// defaults.
type hclFile struct {
	Workers   int       `hcl:"workers,optional"`
	Estimator *hclBlock `hcl:"estimator,block"`
	Table     *hclBlock `hcl:"table,block"`
	Logging   *hclBlock `hcl:"logging,block"`
}

type hclBlock struct {
	Body hcl.Body `hcl:",remain"`
}

func decodeHCL(path string, data []byte, cfg *Config) error {
	file, diags := hclparse.NewParser().ParseHCL(data, path)
	if diags.HasErrors() {
		return fmt.Errorf("config: parse %s: %w", path, diags)
	}
	top := hclFile{Workers: cfg.Workers}
	if diags := gohcl.DecodeBody(file.Body, nil, &top); diags.HasErrors() {
		return fmt.Errorf("config: decode %s: %w", path, diags)
	}
	cfg.Workers = top.Workers

	blocks := []struct {
		block  *hclBlock
		target any
	}{
		{top.Estimator, &cfg.Estimator},
		{top.Table, &cfg.Table},
		{top.Logging, &cfg.Logging},
	}
	for _, b := range blocks {
		if b.block == nil {
			continue
		}
		if diags := gohcl.DecodeBody(b.block.Body, nil, b.target); diags.HasErrors() {
			return fmt.Errorf("config: decode %s: %w", path, diags)
		}
	}

	return nil
}

// ApplyEnv applies KCOMPLEX_TABLE_PATH and KCOMPLEX_LOG_LEVEL.
func (c *Config) ApplyEnv() {
	if p := os.Getenv(EnvTablePath); p != "" {
		c.Table.Backend = BackendLocal
		c.Table.Path = p
	}
	if l := os.Getenv(EnvLogLevel); l != "" {
		c.Logging.Level = l
	}
}

// Validate checks every field and reports the first invalid one.
func (c *Config) Validate() error {
	invalid := func(field string, v any) error {
		return fmt.Errorf("config: %s = %v: %w", field, v, ErrInvalidConfig)
	}

	e := c.Estimator
	if e.NDim != 1 && e.NDim != 2 {
		return invalid("estimator.ndim", e.NDim)
	}
	if e.Alphabet < 2 || e.Alphabet > 36 {
		return invalid("estimator.alphabet", e.Alphabet)
	}
	if len(e.Shape) > 0 {
		if len(e.Shape) != e.NDim {
			return invalid("estimator.shape", e.Shape)
		}
		for _, d := range e.Shape {
			if d <= 0 {
				return invalid("estimator.shape", e.Shape)
			}
		}
	}
	switch e.Partition {
	case partition.NameIgnore, partition.NameStrict, partition.NameRecursive, partition.NameCorrelated:
	default:
		return invalid("estimator.partition", e.Partition)
	}
	if e.Shift < 1 {
		return invalid("estimator.shift", e.Shift)
	}
	if e.MinSize < 1 {
		return invalid("estimator.min_size", e.MinSize)
	}

	t := c.Table
	switch t.Backend {
	case BackendLocal:
		if t.Path == "" {
			return invalid("table.path", t.Path)
		}
	case BackendS3:
		if t.Bucket == "" {
			return invalid("table.bucket", t.Bucket)
		}
	case BackendMinIO:
		if t.Bucket == "" {
			return invalid("table.bucket", t.Bucket)
		}
		if t.Endpoint == "" {
			return invalid("table.endpoint", t.Endpoint)
		}
	default:
		return invalid("table.backend", t.Backend)
	}
	if _, err := ctm.ParseCompression(t.Compression); err != nil {
		return invalid("table.compression", t.Compression)
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return invalid("logging.level", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return invalid("logging.format", c.Logging.Format)
	}
	if c.Workers < 1 {
		return invalid("workers", c.Workers)
	}

	return nil
}

// ZapConfig returns a production zap configuration at the configured level
// and encoding. verbose forces the debug level.
func (c *Config) ZapConfig(verbose bool) zap.Config {
	zc := zap.NewProductionConfig()
	zc.Encoding = c.Logging.Format
	if zc.Encoding == "console" {
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	if lvl, err := zapcore.ParseLevel(c.Logging.Level); err == nil {
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	return zc
}
