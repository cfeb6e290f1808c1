// Package aliasing maps dataset URNs reported by different producers onto one
// canonical URN, so the collector indexes a table once even when two tools name
// it differently (e.g. "retail_staged/brands" and "postgresql://lake/retail.brands").
package aliasing

import (
	"errors"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/correlator-io/retail-lineage/internal/config"
)

const (
	// DefaultConfigPath is where the collector looks for alias patterns.
	DefaultConfigPath = ".retail-lineage.yaml"

	// ConfigPathEnvVar names a custom alias config path.
	ConfigPathEnvVar = "COLLECTOR_ALIASES_PATH"
)

type (
	// Config holds dataset alias patterns loaded from YAML:
	//
	//	dataset_patterns:
	//	  - pattern: "postgresql://lake/retail.{name}"
	//	    canonical: "retail_staged/{name}"
	Config struct {
		//nolint:tagliatelle // snake_case is intentional for YAML config files
		DatasetPatterns []DatasetPattern `yaml:"dataset_patterns"`
	}

	// DatasetPattern rewrites URNs matching Pattern into Canonical.
	DatasetPattern struct {
		Pattern   string `yaml:"pattern"`
		Canonical string `yaml:"canonical"`
	}
)

// LoadConfig loads alias patterns from path.
//
// Aliases are optional: a missing, unreadable or invalid file yields an empty config
// and a log line, never an error.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("Alias config not found, continuing without aliases",
				slog.String("path", path))

			return cfg, nil
		}

		slog.Warn("Failed to read alias config, continuing without aliases",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Warn("Failed to parse alias config, continuing without aliases",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return &Config{}, nil
	}

	return cfg, nil
}

// LoadConfigFromEnv loads the file named by COLLECTOR_ALIASES_PATH, falling back to
// DefaultConfigPath.
func LoadConfigFromEnv() (*Config, error) {
	return LoadConfig(config.GetEnvStr(ConfigPathEnvVar, DefaultConfigPath))
}
