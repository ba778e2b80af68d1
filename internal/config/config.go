// Package config loads the pipeline configuration: coded defaults, layered
// under an optional YAML file, layered under QMJ_-prefixed environment
// variables, validated before the pipeline sees it.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"qmjcli/internal/quality"
)

// Config is the complete application configuration.
type Config struct {
	Input    InputConfig    `yaml:"input" envconfig:"INPUT"`
	Output   OutputConfig   `yaml:"output" envconfig:"OUTPUT"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Metrics  MetricsConfig  `yaml:"metrics" envconfig:"METRICS"`
}

// InputConfig locates the input panel.
type InputConfig struct {
	Path   string `yaml:"path" envconfig:"PATH"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=csv xlsx"`
}

// OutputConfig locates the output tables.
type OutputConfig struct {
	Dir             string `yaml:"dir" envconfig:"DIR" validate:"required"`
	FactorFile      string `yaml:"factor_file" envconfig:"FACTOR_FILE" validate:"required"`
	AssignmentsFile string `yaml:"assignments_file" envconfig:"ASSIGNMENTS_FILE" validate:"required"`
}

// PipelineConfig carries the recognized pipeline options. DimensionMetricMap
// is YAML-only; the default QMJ mapping applies when it is omitted.
type PipelineConfig struct {
	MissingValuePolicy   string                `yaml:"missing_value_policy" envconfig:"MISSING_VALUE_POLICY" validate:"oneof=exclude zero-fill"`
	CompositePolicy      string                `yaml:"composite_policy" envconfig:"COMPOSITE_POLICY" validate:"oneof=lenient strict"`
	TopDecileFraction    float64               `yaml:"top_decile_fraction" envconfig:"TOP_DECILE_FRACTION" validate:"gt=0,lte=1"`
	BottomDecileFraction float64               `yaml:"bottom_decile_fraction" envconfig:"BOTTOM_DECILE_FRACTION" validate:"gt=0,lte=1"`
	TieBreakKey          string                `yaml:"tie_break_key" envconfig:"TIE_BREAK_KEY" validate:"oneof=entity_asc entity_desc"`
	Workers              int                   `yaml:"workers" envconfig:"WORKERS" validate:"gte=1"`
	DimensionMetricMap   *quality.DimensionMap `yaml:"dimension_metric_map" ignored:"true"`
}

// LoggingConfig configures the slog logger.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// MetricsConfig configures the optional Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"ENABLED"`
	Listen  string `yaml:"listen" envconfig:"LISTEN"`
}

// DefaultConfig returns the coded defaults every run starts from.
func DefaultConfig() Config {
	return Config{
		Input: InputConfig{
			Format: "csv",
		},
		Output: OutputConfig{
			Dir:             "output",
			FactorFile:      "qmj_factor.csv",
			AssignmentsFile: "qmj_assignments.csv",
		},
		Pipeline: PipelineConfig{
			MissingValuePolicy:   string(quality.MissingExclude),
			CompositePolicy:      string(quality.CompositeLenient),
			TopDecileFraction:    0.1,
			BottomDecileFraction: 0.1,
			TieBreakKey:          string(quality.TieBreakEntityAsc),
			Workers:              quality.DefaultMaxConcurrency,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "stdout",
			FilePath: "logs/app.log",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "localhost:9090",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file when it
// exists, then environment overrides, then validation. Fields carry no
// envconfig defaults, so an unset environment variable never disturbs a
// value loaded from the file.
func Load(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			if err := overlayFile(configFile, &cfg); err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
		}
	}

	if err := envconfig.Process("QMJ", &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// overlayFile merges a YAML file into cfg.
func overlayFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks the configuration with struct tags plus the cross-field
// rules the tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Pipeline.TopDecileFraction+c.Pipeline.BottomDecileFraction > 1 {
		return fmt.Errorf("pipeline: top and bottom decile fractions must not overlap")
	}
	return nil
}

// Params converts the pipeline section into quality.Params.
func (c *Config) Params() quality.Params {
	params := quality.DefaultParams()
	params.MissingPolicy = quality.MissingPolicy(c.Pipeline.MissingValuePolicy)
	params.CompositePolicy = quality.CompositePolicy(c.Pipeline.CompositePolicy)
	params.TopFraction = c.Pipeline.TopDecileFraction
	params.BottomFraction = c.Pipeline.BottomDecileFraction
	params.TieBreak = quality.TieBreak(c.Pipeline.TieBreakKey)
	if c.Pipeline.DimensionMetricMap != nil {
		params.Dimensions = *c.Pipeline.DimensionMetricMap
	}
	return params
}
