package config

import (
	"fmt"
	"time"

	"github.com/playbookforge/playbook-engine/engine/state"
)

// Defaults for the generation knobs.
const (
	DefaultModel       = "claude-sonnet-4-20250514"
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.7

	DefaultCallTimeout = 120 * time.Second
	DefaultRunBudget   = 10 * time.Minute

	DefaultRequestsPerMinute = 50
)

// LLMConfig configures the model provider.
type LLMConfig struct {
	// APIKey authenticates against the provider. Usually supplied via
	// PLAYBOOK_LLM_API_KEY.
	APIKey string `koanf:"api_key" json:"-"`

	BaseURL     string  `koanf:"base_url" json:"base_url"`
	Model       string  `koanf:"model" json:"model"`
	MaxTokens   int     `koanf:"max_tokens" json:"max_tokens"`
	Temperature float64 `koanf:"temperature" json:"temperature"`

	// CallTimeout bounds a single completion request, including the one
	// retry the caller performs.
	CallTimeout time.Duration `koanf:"call_timeout" json:"call_timeout"`

	// RequestsPerMinute is the client-side rate limit.
	RequestsPerMinute int `koanf:"requests_per_minute" json:"requests_per_minute"`
}

// GenerationConfig carries the per-run knobs a caller may tune.
type GenerationConfig struct {
	// QualityThreshold is the reflection trigger score, clamped to the
	// supported band on Normalize.
	QualityThreshold float64 `koanf:"quality_threshold" json:"quality_threshold"`

	// MaxReflectionCycles bounds the critique loop.
	MaxReflectionCycles int `koanf:"max_reflection_cycles" json:"max_reflection_cycles"`

	// RunBudget is the wall-clock budget for one full run. When it
	// expires mid-pipeline the run finalizes with whatever sections exist.
	RunBudget time.Duration `koanf:"run_budget" json:"run_budget"`
}

// Normalize fills zero values with defaults and clamps the threshold.
func (g *GenerationConfig) Normalize() {
	if g.QualityThreshold == 0 {
		g.QualityThreshold = state.DefaultQualityThreshold
	}
	g.QualityThreshold = state.ClampThreshold(g.QualityThreshold)
	if g.MaxReflectionCycles <= 0 {
		g.MaxReflectionCycles = state.DefaultMaxReflectionCycles
	}
	if g.RunBudget <= 0 {
		g.RunBudget = DefaultRunBudget
	}
}

// StoreConfig configures result persistence.
type StoreConfig struct {
	// Driver selects the backend: "sqlite" or "memory".
	Driver string `koanf:"driver" json:"driver"`
	// Path is the sqlite database file. Ignored for the memory driver.
	Path string `koanf:"path" json:"path"`
}

// ObservabilityConfig configures logging and tracing.
type ObservabilityConfig struct {
	LogLevel       string `koanf:"log_level" json:"log_level"`
	ServiceName    string `koanf:"service_name" json:"service_name"`
	ServiceVersion string `koanf:"service_version" json:"service_version"`
	OTLPEndpoint   string `koanf:"otlp_endpoint" json:"otlp_endpoint"`
	// TracingEnabled gates the OTLP exporter; metrics are always
	// registered.
	TracingEnabled bool `koanf:"tracing_enabled" json:"tracing_enabled"`
	// TraceSampleRatio is the head sampling fraction in [0, 1].
	TraceSampleRatio float64 `koanf:"trace_sample_ratio" json:"trace_sample_ratio"`
}

// Config is the full service configuration.
type Config struct {
	LLM           LLMConfig           `koanf:"llm" json:"llm"`
	Generation    GenerationConfig    `koanf:"generation" json:"generation"`
	Store         StoreConfig         `koanf:"store" json:"store"`
	Observability ObservabilityConfig `koanf:"observability" json:"observability"`
}

// ApplyDefaults sets default values for missing configuration fields.
func (c *Config) ApplyDefaults() {
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.anthropic.com"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultModel
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = DefaultMaxTokens
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = DefaultTemperature
	}
	if c.LLM.CallTimeout == 0 {
		c.LLM.CallTimeout = DefaultCallTimeout
	}
	if c.LLM.RequestsPerMinute == 0 {
		c.LLM.RequestsPerMinute = DefaultRequestsPerMinute
	}

	c.Generation.Normalize()

	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Store.Driver == "sqlite" && c.Store.Path == "" {
		c.Store.Path = "playbooks.db"
	}

	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = "playbook-engine"
	}
	if c.Observability.ServiceVersion == "" {
		c.Observability.ServiceVersion = "dev"
	}
	if c.Observability.OTLPEndpoint == "" {
		c.Observability.OTLPEndpoint = "localhost:4317"
	}
	if c.Observability.TraceSampleRatio == 0 {
		c.Observability.TraceSampleRatio = 1
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown store driver: %s", c.Store.Driver)
	}

	if c.LLM.MaxTokens < 1 {
		return fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		return fmt.Errorf("llm.temperature must be in [0, 1], got %g", c.LLM.Temperature)
	}
	if c.Generation.MaxReflectionCycles < 0 {
		return fmt.Errorf("generation.max_reflection_cycles must not be negative")
	}
	if r := c.Observability.TraceSampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("observability.trace_sample_ratio must be in [0, 1], got %g", r)
	}

	return nil
}
