package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Defaults
// ============================================================================

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, cfg.LLM.Model)
	assert.Equal(t, DefaultCallTimeout, cfg.LLM.CallTimeout)
	assert.Equal(t, 8.0, cfg.Generation.QualityThreshold)
	assert.Equal(t, 2, cfg.Generation.MaxReflectionCycles)
	assert.Equal(t, 10*time.Minute, cfg.Generation.RunBudget)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
	assert.Equal(t, "playbook-engine", cfg.Observability.ServiceName)
	assert.Equal(t, "dev", cfg.Observability.ServiceVersion)
	assert.Equal(t, 1.0, cfg.Observability.TraceSampleRatio)
}

// ============================================================================
// YAML file loading
// ============================================================================

func TestLoad_FromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
llm:
  model: claude-haiku-4-20250414
  max_tokens: 2048
generation:
  quality_threshold: 9.0
  max_reflection_cycles: 3
store:
  driver: memory
`)
	require.NoError(t, os.WriteFile(path, content, 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "claude-haiku-4-20250414", cfg.LLM.Model)
	assert.Equal(t, 2048, cfg.LLM.MaxTokens)
	assert.Equal(t, 9.0, cfg.Generation.QualityThreshold)
	assert.Equal(t, 3, cfg.Generation.MaxReflectionCycles)
	assert.Equal(t, "memory", cfg.Store.Driver)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}

// ============================================================================
// Environment overrides
// ============================================================================

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  model: from-file\n"), 0600))

	t.Setenv("PLAYBOOK_LLM_MODEL", "from-env")
	t.Setenv("PLAYBOOK_STORE_DRIVER", "memory")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.Model)
	assert.Equal(t, "memory", cfg.Store.Driver)
}

func TestEnvTransformer(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PLAYBOOK_LLM_API_KEY", "llm.api_key"},
		{"PLAYBOOK_GENERATION_QUALITY_THRESHOLD", "generation.quality_threshold"},
		{"PLAYBOOK_STORE_PATH", "store.path"},
		{"PLAYBOOK_OBSERVABILITY_SERVICE_NAME", "observability.service_name"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, envTransformer(tt.in))
	}
}

// ============================================================================
// Normalization and validation
// ============================================================================

func TestGenerationConfig_NormalizeClampsThreshold(t *testing.T) {
	g := GenerationConfig{QualityThreshold: 3.0}
	g.Normalize()
	assert.Equal(t, 8.0, g.QualityThreshold)

	g = GenerationConfig{QualityThreshold: 12.0}
	g.Normalize()
	assert.Equal(t, 9.5, g.QualityThreshold)

	g = GenerationConfig{}
	g.Normalize()
	assert.Equal(t, 8.0, g.QualityThreshold)
	assert.Equal(t, 2, g.MaxReflectionCycles)
}

func TestConfigValidate_UnknownStoreDriver(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	cfg.Store.Driver = "postgres"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")
}

func TestConfigValidate_TemperatureRange(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	cfg.LLM.Temperature = 1.5
	require.Error(t, cfg.Validate())
}

func TestConfigValidate_TraceSampleRatioRange(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	cfg.Observability.TraceSampleRatio = 1.5
	require.Error(t, cfg.Validate())
}
