// Package config provides the job specification of a neuroqc batch run.
// It handles loading the specification from YAML files and provides default
// values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"neuroqc/pkg/qcerr"
)

// Config represents a batch specification loaded from YAML
type Config struct {
	// Package names the output sub-directory of the run
	Package string `yaml:"package"`

	// Processing parameters
	Processing struct {
		// NumCores specifies how many jobs run in parallel
		NumCores int `yaml:"numCores"`

		// Rewrite regenerates outputs that already exist
		Rewrite bool `yaml:"rewrite"`

		// Format is the default document format (png or pdf)
		Format string `yaml:"format"`
	} `yaml:"processing"`

	// Jobs are the reports to produce
	Jobs []Job `yaml:"jobs"`
}

// Job is one report: a method, its arguments and the output file,
// relative to the package directory.
type Job struct {
	Name   string            `yaml:"name"`
	Method string            `yaml:"method"`
	Output string            `yaml:"output"`
	Args   map[string]string `yaml:"args"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{Package: "neuroqc"}
	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.Format = "png"
	return cfg
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the processing parameters and that every job names a
// method and an output.
func (c *Config) Validate() error {
	if c.Processing.NumCores <= 0 {
		return qcerr.Config("config", "numCores must be positive, got %d", c.Processing.NumCores)
	}
	seen := make(map[string]int, len(c.Jobs))
	for i, j := range c.Jobs {
		if j.Method == "" {
			return qcerr.Config("config", "job %d (%s) has no method", i, j.Name)
		}
		if j.Output == "" {
			return qcerr.Config("config", "job %d (%s) has no output", i, j.Name)
		}
		if prev, ok := seen[j.Output]; ok {
			return qcerr.Config("config", "jobs %d and %d both write %s", prev, i, j.Output)
		}
		seen[j.Output] = i
	}
	return nil
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

// ParseSet turns KEY=VALUE items into job arguments. Surrounding spaces
// are trimmed; the value may itself contain '='.
func ParseSet(items []string) (map[string]string, error) {
	args := make(map[string]string, len(items))
	for _, item := range items {
		key, value, ok := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, qcerr.Config("config", "argument %q is not KEY=VALUE", item)
		}
		args[key] = strings.TrimSpace(value)
	}
	return args, nil
}
