package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can use values like
// "30s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Format selects the input reader for the converter.
type Format string

const (
	FormatAuto Format = "auto"
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

// Config holds the global configuration for a conversion run.
type Config struct {
	// Input settings
	InputFiles []string `yaml:"-"`
	Format     Format   `yaml:"format"`

	// Output settings
	OutputFile string `yaml:"output"`
	Indent     int    `yaml:"indent"`

	// Conversion settings
	KeepUsed bool `yaml:"keep_used"` // keep elements consumed by relations
	Strict   bool `yaml:"strict"`    // abort on first element failure

	// Classification table files (empty = built-in tables)
	PolygonFeaturesFile string `yaml:"polygon_features"`
	AreaKeysFile        string `yaml:"area_keys"`

	// Overpass settings
	OverpassURL     string   `yaml:"overpass_url"`
	OverpassRetries int      `yaml:"overpass_retries"`
	OverpassDelay   Duration `yaml:"overpass_delay"`

	// Logging and metrics
	Verbose         bool     `yaml:"verbose"`
	LogFile         string   `yaml:"log_file"`
	MetricsInterval Duration `yaml:"metrics_interval"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Format:          FormatAuto,
		Indent:          0,
		OverpassRetries: 5,
		OverpassDelay:   Duration(5 * time.Second),
	}
}

// LoadFile overlays settings from a YAML config file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatAuto, FormatJSON, FormatXML:
	default:
		return fmt.Errorf("format must be auto, json or xml, got %q", c.Format)
	}
	if c.Indent < 0 {
		return fmt.Errorf("indent must not be negative")
	}
	if c.OverpassRetries < 0 {
		return fmt.Errorf("overpass retries must not be negative")
	}
	return nil
}
