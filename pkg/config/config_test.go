package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := LoadDefaults()
	assert.Equal(t, 100000, cfg.Engine.MaxRows)
	assert.Equal(t, 1000000, cfg.Engine.MaxTraversalSteps)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GRAPHVANA_MAX_ROWS", "500")
	t.Setenv("GRAPHVANA_LOG_LEVEL", "debug")

	cfg := LoadFromEnv()
	assert.Equal(t, 500, cfg.Engine.MaxRows)
	assert.Equal(t, 1000000, cfg.Engine.MaxTraversalSteps, "untouched values keep defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)

	t.Run("malformed int falls back", func(t *testing.T) {
		t.Setenv("GRAPHVANA_MAX_ROWS", "lots")
		cfg := LoadFromEnv()
		assert.Equal(t, 100000, cfg.Engine.MaxRows)
	})
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graphvana.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  max_rows: 42
logging:
  format: json
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Engine.MaxRows)
	assert.Equal(t, 1000000, cfg.Engine.MaxTraversalSteps)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	t.Run("environment wins over the file", func(t *testing.T) {
		t.Setenv("GRAPHVANA_MAX_ROWS", "7")
		cfg, err := LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.Engine.MaxRows)
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		cfg, err := LoadFromFile(filepath.Join(dir, "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, 100000, cfg.Engine.MaxRows)
	})

	t.Run("malformed YAML is", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte(`engine: [`), 0o644))
		_, err := LoadFromFile(bad)
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"negative max rows":  func(c *Config) { c.Engine.MaxRows = -1 },
		"negative max steps": func(c *Config) { c.Engine.MaxTraversalSteps = -1 },
		"bad log level":      func(c *Config) { c.Logging.Level = "chatty" },
		"bad log format":     func(c *Config) { c.Logging.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := LoadDefaults()
			mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}

	t.Run("warn alias accepted", func(t *testing.T) {
		cfg := LoadDefaults()
		cfg.Logging.Level = "warning"
		require.NoError(t, cfg.Validate())
	})
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	assert.Equal(t, "graphvana.yaml", FindConfigFile(), "default when nothing exists")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("{}"), 0o644))
	assert.Equal(t, "config.yaml", FindConfigFile())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "graphvana.yml"), []byte("{}"), 0o644))
	assert.Equal(t, "graphvana.yml", FindConfigFile())
}

func TestString(t *testing.T) {
	assert.Equal(t,
		"Config{MaxRows: 100000, MaxTraversalSteps: 1000000, Log: info/text}",
		LoadDefaults().String())
}
