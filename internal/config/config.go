package config

import (
	"time"

	"ari/internal/assistant/ports"
)

// ValueSource describes where a configuration value originated from.
type ValueSource string

const (
	SourceDefault  ValueSource = "default"
	SourceFile     ValueSource = "file"
	SourceEnv      ValueSource = "environment"
	SourceOverride ValueSource = "override"
)

const (
	DefaultProvider          = "openai"
	DefaultModel             = "gpt-4o-mini"
	DefaultBaseURL           = "https://api.openai.com/v1"
	DefaultMaxTokens         = 8192
	DefaultTemperature       = 0.7
	DefaultHistoryWindow     = 10
	DefaultTransformCacheCap = 64
	DefaultTransformCacheTTL = 30 * time.Minute
	DefaultServerHost        = "127.0.0.1"
	DefaultServerPort        = 8420
	DefaultMetricsPort       = 9464
	DefaultMaterialsTopK     = 4
	DefaultMinSimilarity     = 0.35
)

// Config captures user-configurable settings shared across binaries.
type Config struct {
	Provider  ProviderConfig    `json:"provider" yaml:"provider"`
	Engine    EngineConfig      `json:"engine" yaml:"engine"`
	Storage   StorageConfig     `json:"storage" yaml:"storage"`
	Server    ServerConfig      `json:"server" yaml:"server"`
	Materials MaterialsConfig   `json:"materials" yaml:"materials"`
	Telemetry TelemetryConfig   `json:"telemetry" yaml:"telemetry"`
	Prefs     ports.Preferences `json:"preferences" yaml:"preferences"`

	// Sources records where each top-level section last came from.
	Sources map[string]ValueSource `json:"-" yaml:"-"`
}

// ProviderConfig selects and authenticates the generation backend.
type ProviderConfig struct {
	Name        string  `json:"name" yaml:"name"`
	Model       string  `json:"model" yaml:"model"`
	BaseURL     string  `json:"base_url" yaml:"base_url"`
	APIKey      string  `json:"api_key" yaml:"api_key"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
}

// EngineConfig tunes the generation orchestrator.
type EngineConfig struct {
	HistoryWindow     int           `json:"history_window" yaml:"history_window"`
	TransformCacheCap int           `json:"transform_cache_cap" yaml:"transform_cache_cap"`
	TransformCacheTTL time.Duration `json:"transform_cache_ttl" yaml:"transform_cache_ttl"`
	RetryEnabled      bool          `json:"retry_enabled" yaml:"retry_enabled"`
}

// StorageConfig selects the conversation store. Backend is one of
// memory, file, or sqlite; Path is the store directory (file) or the
// database file (sqlite).
type StorageConfig struct {
	Backend string `json:"backend" yaml:"backend"`
	Path    string `json:"path" yaml:"path"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host        string   `json:"host" yaml:"host"`
	Port        int      `json:"port" yaml:"port"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`
}

// MaterialsConfig configures the study-materials vector store.
type MaterialsConfig struct {
	Path           string  `json:"path" yaml:"path"`
	EmbeddingModel string  `json:"embedding_model" yaml:"embedding_model"`
	TopK           int     `json:"top_k" yaml:"top_k"`
	MinSimilarity  float32 `json:"min_similarity" yaml:"min_similarity"`
}

// TelemetryConfig configures logging, metrics, and tracing.
type TelemetryConfig struct {
	LogLevel       string  `json:"log_level" yaml:"log_level"`
	LogFormat      string  `json:"log_format" yaml:"log_format"`
	MetricsEnabled bool    `json:"metrics_enabled" yaml:"metrics_enabled"`
	MetricsPort    int     `json:"metrics_port" yaml:"metrics_port"`
	TracingEnabled bool    `json:"tracing_enabled" yaml:"tracing_enabled"`
	TraceExporter  string  `json:"trace_exporter" yaml:"trace_exporter"`
	OTLPEndpoint   string  `json:"otlp_endpoint" yaml:"otlp_endpoint"`
	ZipkinEndpoint string  `json:"zipkin_endpoint" yaml:"zipkin_endpoint"`
	SampleRate     float64 `json:"sample_rate" yaml:"sample_rate"`
}

// Default returns the baseline configuration before file and environment
// layers apply.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:        DefaultProvider,
			Model:       DefaultModel,
			BaseURL:     DefaultBaseURL,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
		},
		Engine: EngineConfig{
			HistoryWindow:     DefaultHistoryWindow,
			TransformCacheCap: DefaultTransformCacheCap,
			TransformCacheTTL: DefaultTransformCacheTTL,
			RetryEnabled:      true,
		},
		Storage: StorageConfig{
			Backend: "file",
			Path:    "~/.ari/conversations",
		},
		Server: ServerConfig{
			Host:        DefaultServerHost,
			Port:        DefaultServerPort,
			CORSOrigins: []string{"*"},
		},
		Materials: MaterialsConfig{
			EmbeddingModel: "text-embedding-3-small",
			TopK:           DefaultMaterialsTopK,
			MinSimilarity:  DefaultMinSimilarity,
		},
		Telemetry: TelemetryConfig{
			LogLevel:      "info",
			LogFormat:     "text",
			MetricsPort:   DefaultMetricsPort,
			TraceExporter: "otlp",
			SampleRate:    1.0,
		},
		Prefs:   ports.DefaultPreferences(),
		Sources: map[string]ValueSource{},
	}
}
