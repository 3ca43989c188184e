// Package config provides configuration loading and management for electrocoords.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"electrocoords/pkg/affine"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// FreeSurfer locations
	FreeSurfer struct {
		// SubjectsDir is the FreeSurfer subjects directory. When empty the
		// SUBJECTS_DIR environment variable is used.
		SubjectsDir string `yaml:"subjectsDir"`

		// LUTPath is the FreeSurferColorLUT.txt used for anatomical labels
		LUTPath string `yaml:"lutPath"`
	} `yaml:"freesurfer"`

	// Conversion parameters
	Conversion struct {
		// Round rounds voxel coordinates to the nearest integer
		Round bool `yaml:"round"`

		// AbsTolerance is the absolute tolerance in mm when comparing image
		// geometries
		AbsTolerance float64 `yaml:"absTolerance"`

		// RelTolerance is the relative tolerance when comparing image
		// geometries
		RelTolerance float64 `yaml:"relTolerance"`
	} `yaml:"conversion"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Conversion.Round = true
	cfg.Conversion.AbsTolerance = affine.DefaultTolerance.Abs
	cfg.Conversion.RelTolerance = affine.DefaultTolerance.Rel

	cfg.Output.Verbose = false

	return cfg
}

// Tolerance returns the geometry tolerance of the configuration
func (c *Config) Tolerance() affine.Tolerance {
	return affine.Tolerance{Abs: c.Conversion.AbsTolerance, Rel: c.Conversion.RelTolerance}
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	if c.Conversion.AbsTolerance < 0 || c.Conversion.RelTolerance < 0 {
		return fmt.Errorf("tolerances must be non-negative")
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
