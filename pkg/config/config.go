// Package config handles Graphvana configuration via YAML files and
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Command-line flags (--max-rows, --log-level, etc.)
//  2. Environment variables (GRAPHVANA_*)
//  3. Config file (graphvana.yaml)
//  4. Built-in defaults
//
// Environment variables (all use the GRAPHVANA_ prefix):
//
// Engine:
//   - GRAPHVANA_MAX_ROWS=100000
//   - GRAPHVANA_MAX_TRAVERSAL_STEPS=1000000
//
// Logging:
//   - GRAPHVANA_LOG_LEVEL="info"
//   - GRAPHVANA_LOG_FORMAT="text"
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all Graphvana configuration.
//
// Use LoadFromEnv to build one from defaults plus environment variables, or
// LoadFromFile to layer a YAML file underneath the environment.
type Config struct {
	// Engine holds query execution limits.
	Engine EngineConfig

	// Logging configuration.
	Logging LoggingConfig
}

// EngineConfig bounds query execution. Zero means unlimited; the step limit
// is what keeps unbounded quantifiers on cyclic graphs from running away.
type EngineConfig struct {
	// MaxRows caps the match-row count a single query may expand to.
	MaxRows int
	// MaxTraversalSteps caps edge traversals per query execution.
	MaxTraversalSteps int
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Format is text or json.
	Format string
}

// LoadDefaults returns the built-in default configuration.
func LoadDefaults() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxRows:           100000,
			MaxTraversalSteps: 1000000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromEnv returns the defaults overridden by GRAPHVANA_* environment
// variables.
func LoadFromEnv() *Config {
	config := LoadDefaults()
	applyEnvVars(config)
	return config
}

// yamlConfig mirrors the YAML configuration file structure.
type yamlConfig struct {
	Engine struct {
		MaxRows           int `yaml:"max_rows"`
		MaxTraversalSteps int `yaml:"max_traversal_steps"`
	} `yaml:"engine"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// LoadFromFile loads configuration with full precedence: defaults, then the
// YAML file at configPath (a missing file is not an error), then
// environment variables.
func LoadFromFile(configPath string) (*Config, error) {
	config := LoadDefaults()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvVars(config)
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.Engine.MaxRows > 0 {
		config.Engine.MaxRows = yamlCfg.Engine.MaxRows
	}
	if yamlCfg.Engine.MaxTraversalSteps > 0 {
		config.Engine.MaxTraversalSteps = yamlCfg.Engine.MaxTraversalSteps
	}
	if yamlCfg.Logging.Level != "" {
		config.Logging.Level = yamlCfg.Logging.Level
	}
	if yamlCfg.Logging.Format != "" {
		config.Logging.Format = yamlCfg.Logging.Format
	}

	applyEnvVars(config)
	return config, nil
}

// FindConfigFile returns the first config file path that exists, or the
// default name if none do.
func FindConfigFile() string {
	candidates := []string{"graphvana.yaml", "graphvana.yml", "config.yaml"}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return candidates[0]
}

func applyEnvVars(config *Config) {
	config.Engine.MaxRows = getEnvInt("GRAPHVANA_MAX_ROWS", config.Engine.MaxRows)
	config.Engine.MaxTraversalSteps = getEnvInt("GRAPHVANA_MAX_TRAVERSAL_STEPS", config.Engine.MaxTraversalSteps)
	config.Logging.Level = getEnv("GRAPHVANA_LOG_LEVEL", config.Logging.Level)
	config.Logging.Format = getEnv("GRAPHVANA_LOG_FORMAT", config.Logging.Format)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Engine.MaxRows < 0 {
		return fmt.Errorf("invalid max rows: %d", c.Engine.MaxRows)
	}
	if c.Engine.MaxTraversalSteps < 0 {
		return fmt.Errorf("invalid max traversal steps: %d", c.Engine.MaxTraversalSteps)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	return nil
}

// String returns a string representation of the Config, suitable for
// logging.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{MaxRows: %d, MaxTraversalSteps: %d, Log: %s/%s}",
		c.Engine.MaxRows, c.Engine.MaxTraversalSteps,
		c.Logging.Level, c.Logging.Format,
	)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
