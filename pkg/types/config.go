// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"math"
	"time"
)

// HTTPConfig holds shared HTTP settings used by generators that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "specgrade/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// AIConfig holds shared settings for generators that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint. Empty uses the SDK default.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// MaxTokens caps the length of a generated document (default 8192).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GeneratorVariant names a Generator implementation.
type GeneratorVariant string

const (
	GeneratorStub   GeneratorVariant = "stub"
	GeneratorClaude GeneratorVariant = "claude"
	GeneratorOpenAI GeneratorVariant = "openai"
	GeneratorRemote GeneratorVariant = "remote"
)

// GeneratorConfig selects and configures the document generator.
type GeneratorConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`
	AIConfig   `yaml:",inline" mapstructure:",squash"`

	// Variant selects the implementation: stub, claude, openai, or remote.
	Variant GeneratorVariant `json:"variant" yaml:"variant" mapstructure:"variant"`

	// PipelineURL is the base URL of the remote generation service.
	PipelineURL string `json:"pipeline_url,omitempty" yaml:"pipeline_url,omitempty" mapstructure:"pipeline_url"`

	// PipelineToken is sent as a bearer token to the remote service.
	PipelineToken string `json:"pipeline_token,omitempty" yaml:"pipeline_token,omitempty" mapstructure:"pipeline_token"`

	// Sources maps an API identifier to a documentation URL that LLM
	// generators fetch and include in the prompt.
	Sources map[string]string `json:"sources,omitempty" yaml:"sources,omitempty" mapstructure:"sources"`
}

// CorpusConfig locates the golden fixtures.
type CorpusConfig struct {
	// GoldenDir contains one sub-directory per API with fixture files.
	GoldenDir string `json:"golden_dir" yaml:"golden_dir" mapstructure:"golden_dir"`

	// APIs lists the APIs expected to have fixtures, in priority order.
	APIs []string `json:"apis" yaml:"apis" mapstructure:"apis"`
}

// StoreDriver names a ResultStore implementation.
type StoreDriver string

const (
	StoreFiles    StoreDriver = "files"
	StoreMemory   StoreDriver = "memory"
	StoreSQLite3  StoreDriver = "sqlite3"
	StoreSQLite   StoreDriver = "sqlite"
	StorePostgres StoreDriver = "postgres"
)

// StoreConfig selects where generated documents and results are recorded.
type StoreConfig struct {
	// Driver is files, memory, sqlite3, sqlite, or postgres.
	Driver StoreDriver `json:"driver" yaml:"driver" mapstructure:"driver"`

	// GeneratedDir receives <endpoint_id>_generated.json (files driver).
	GeneratedDir string `json:"generated_dir" yaml:"generated_dir" mapstructure:"generated_dir"`

	// ResultsDir receives <endpoint_id>_results.json (files driver).
	ResultsDir string `json:"results_dir" yaml:"results_dir" mapstructure:"results_dir"`

	// DSN is the database path (sqlite drivers) or connection string (postgres).
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// Weights are the fixed coefficients of the overall score. They must be
// non-negative and sum to 1.0.
type Weights struct {
	EndpointCoverage float64 `json:"endpoint_coverage" yaml:"endpoint_coverage" mapstructure:"endpoint_coverage"`
	FieldAccuracy    float64 `json:"field_accuracy" yaml:"field_accuracy" mapstructure:"field_accuracy"`
	Hallucination    float64 `json:"hallucination" yaml:"hallucination" mapstructure:"hallucination"`
	SchemaValidity   float64 `json:"schema_validity" yaml:"schema_validity" mapstructure:"schema_validity"`
}

// DefaultWeights are the weights used when none are configured.
var DefaultWeights = Weights{
	EndpointCoverage: 0.30,
	FieldAccuracy:    0.30,
	Hallucination:    0.25,
	SchemaValidity:   0.15,
}

const weightTolerance = 1e-9

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.EndpointCoverage + w.FieldAccuracy + w.Hallucination + w.SchemaValidity
}

// Validate returns an ErrConfiguration error when a weight is negative or
// the weights do not sum to 1.0.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"endpoint_coverage": w.EndpointCoverage,
		"field_accuracy":    w.FieldAccuracy,
		"hallucination":     w.Hallucination,
		"schema_validity":   w.SchemaValidity,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: weight %s is %v", ErrConfiguration, name, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %v, want 1.0", ErrConfiguration, sum)
	}
	return nil
}

// Targets are the quality levels the generation pipeline aims for.
// HallucinationRate is a ceiling; the others are floors.
type Targets struct {
	EndpointCoverage  float64 `json:"endpoint_coverage" yaml:"endpoint_coverage" mapstructure:"endpoint_coverage"`
	FieldAccuracy     float64 `json:"field_accuracy" yaml:"field_accuracy" mapstructure:"field_accuracy"`
	HallucinationRate float64 `json:"hallucination_rate" yaml:"hallucination_rate" mapstructure:"hallucination_rate"`
	SchemaValidity    float64 `json:"schema_validity" yaml:"schema_validity" mapstructure:"schema_validity"`
}

// DefaultTargets are the targets used when none are configured.
var DefaultTargets = Targets{
	EndpointCoverage:  0.95,
	FieldAccuracy:     0.90,
	HallucinationRate: 0.05,
	SchemaValidity:    1.0,
}

// ObservabilityConfig holds logging, metrics, and tracing settings.
type ObservabilityConfig struct {
	// LogLevel is debug, info, warn, or error.
	LogLevel string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`

	// LogFormat is text or json.
	LogFormat string `json:"log_format" yaml:"log_format" mapstructure:"log_format"`

	// MetricsFile, when set, receives a Prometheus textfile after each run.
	MetricsFile string `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty" mapstructure:"metrics_file"`

	// OTLPEndpoint enables trace export when set (e.g. "localhost:4317").
	OTLPEndpoint string `json:"otlp_endpoint,omitempty" yaml:"otlp_endpoint,omitempty" mapstructure:"otlp_endpoint"`

	// OTLPInsecure disables TLS for the OTLP connection.
	OTLPInsecure bool `json:"otlp_insecure,omitempty" yaml:"otlp_insecure,omitempty" mapstructure:"otlp_insecure"`
}

// Config groups all settings for an evaluation run.
type Config struct {
	Corpus        CorpusConfig        `json:"corpus" yaml:"corpus" mapstructure:"corpus"`
	Generator     GeneratorConfig     `json:"generator" yaml:"generator" mapstructure:"generator"`
	Store         StoreConfig         `json:"store" yaml:"store" mapstructure:"store"`
	Weights       Weights             `json:"weights" yaml:"weights" mapstructure:"weights"`
	Targets       Targets             `json:"targets" yaml:"targets" mapstructure:"targets"`
	Observability ObservabilityConfig `json:"observability" yaml:"observability" mapstructure:"observability"`
}
