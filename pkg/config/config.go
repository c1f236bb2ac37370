// Package config provides configuration loading and management for
// voxelflow. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Processing parameters
	Processing struct {
		// Workers is the number of parallel workers; 0 uses the
		// detected hardware concurrency.
		Workers int `yaml:"workers"`

		// Seed is the global seed for stochastic voxel functions.
		Seed uint64 `yaml:"seed"`
	} `yaml:"processing"`

	// Peak extraction parameters
	Peaks struct {
		// NPeaks is the maximum number of peaks kept per voxel.
		NPeaks int `yaml:"nPeaks"`

		// RelativeThreshold drops peaks smaller than this fraction
		// of the voxel's largest peak.
		RelativeThreshold float64 `yaml:"relativeThreshold"`

		// AbsoluteThreshold zeroes profile values below it.
		AbsoluteThreshold float64 `yaml:"absoluteThreshold"`

		// Normalize rescales peak values relative to the largest.
		Normalize bool `yaml:"normalize"`
	} `yaml:"peaks"`

	// Scalar map parameters
	Maps struct {
		// AnisotropyThreshold gates the global-max aggregate.
		AnisotropyThreshold float64 `yaml:"anisotropyThreshold"`
	} `yaml:"maps"`

	// Randomized fit parameters
	Fit struct {
		// RandomIters is the number of random candidate parameter
		// sets tested per voxel.
		RandomIters int `yaml:"randomIters"`

		// Refine enables the deterministic refinement pass.
		Refine bool `yaml:"refine"`
	} `yaml:"fit"`

	// Output parameters
	Output struct {
		// SaveSlices writes JPEG slice sequences of each result
		// volume next to the binary outputs.
		SaveSlices bool `yaml:"saveSlices"`

		// SlicesDir is the directory for extracted slices.
		SlicesDir string `yaml:"slicesDir"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.Workers = 0 // auto
	cfg.Processing.Seed = 42

	cfg.Peaks.NPeaks = 5
	cfg.Peaks.RelativeThreshold = 0.5
	cfg.Peaks.AbsoluteThreshold = 0
	cfg.Peaks.Normalize = false

	cfg.Maps.AnisotropyThreshold = 0

	cfg.Fit.RandomIters = 50
	cfg.Fit.Refine = false

	cfg.Output.SaveSlices = false
	cfg.Output.SlicesDir = "result_slices"

	return cfg
}

// LoadConfig loads configuration from a YAML file. If the file doesn't
// exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

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

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
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
