package pass

import (
	"os"

	"gopkg.in/yaml.v3"

	"sccp-opt/internal/sccp"
)

// Config tunes a single pass run the way spec.md section 5 describes:
// every field has a safe default and an explicit override.
type Config struct {
	Verbose           bool `yaml:"verbose"`
	MaxIterations     int  `yaml:"max_iterations"`
	MemoryLimitValues int  `yaml:"memory_limit_bytes"`
	SkipVerification  bool `yaml:"skip_verification"`
	Enabled           bool `yaml:"enabled"`
}

// DefaultConfig returns spec.md section 5's defaults: verbose off, 100
// safety iterations, a ~100KB-per-function proxy budget, verification on,
// pass enabled.
func DefaultConfig() Config {
	d := sccp.DefaultConfig()
	return Config{
		Verbose:           false,
		MaxIterations:     d.MaxIterations,
		MemoryLimitValues: d.MemoryLimitValues,
		SkipVerification:  false,
		Enabled:           true,
	}
}

// LoadConfig reads a YAML config file, defaulting any field the file
// leaves zero-valued to DefaultConfig()'s value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = DefaultConfig().MaxIterations
	}
	if cfg.MemoryLimitValues == 0 {
		cfg.MemoryLimitValues = DefaultConfig().MemoryLimitValues
	}
	return cfg, nil
}

func (c Config) sccpConfig() sccp.Config {
	return sccp.Config{MaxIterations: c.MaxIterations, MemoryLimitValues: c.MemoryLimitValues}
}
