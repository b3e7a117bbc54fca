package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"ari/internal/assistant/ports"
)

// FileConfig mirrors Config for YAML decoding. Pointer fields distinguish
// "absent" from zero so a file can override exactly what it sets.
type FileConfig struct {
	Provider *struct {
		Name        string   `yaml:"name"`
		Model       string   `yaml:"model"`
		BaseURL     string   `yaml:"base_url"`
		APIKey      string   `yaml:"api_key"`
		MaxTokens   *int     `yaml:"max_tokens"`
		Temperature *float64 `yaml:"temperature"`
	} `yaml:"provider"`
	Engine *struct {
		HistoryWindow     *int  `yaml:"history_window"`
		TransformCacheCap *int  `yaml:"transform_cache_cap"`
		TransformCacheTTL *int  `yaml:"transform_cache_ttl_seconds"`
		RetryEnabled      *bool `yaml:"retry_enabled"`
	} `yaml:"engine"`
	Storage *struct {
		Backend string `yaml:"backend"`
		Path    string `yaml:"path"`
	} `yaml:"storage"`
	Server *struct {
		Host        string   `yaml:"host"`
		Port        *int     `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Materials *struct {
		Path           string   `yaml:"path"`
		EmbeddingModel string   `yaml:"embedding_model"`
		TopK           *int     `yaml:"top_k"`
		MinSimilarity  *float64 `yaml:"min_similarity"`
	} `yaml:"materials"`
	Telemetry *struct {
		LogLevel       string   `yaml:"log_level"`
		LogFormat      string   `yaml:"log_format"`
		MetricsEnabled *bool    `yaml:"metrics_enabled"`
		MetricsPort    *int     `yaml:"metrics_port"`
		TracingEnabled *bool    `yaml:"tracing_enabled"`
		TraceExporter  string   `yaml:"trace_exporter"`
		OTLPEndpoint   string   `yaml:"otlp_endpoint"`
		ZipkinEndpoint string   `yaml:"zipkin_endpoint"`
		SampleRate     *float64 `yaml:"sample_rate"`
	} `yaml:"telemetry"`
	Preferences *struct {
		AriEnabled     *bool  `yaml:"ari_enabled"`
		Expressiveness string `yaml:"expressiveness"`
		Vibe           string `yaml:"vibe"`
		Verbosity      string `yaml:"verbosity"`
	} `yaml:"preferences"`
}

// DefaultConfigPath returns ~/.ari/config.yaml, or a cwd-relative path
// when the home directory cannot be resolved.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "ari-config.yaml"
	}
	return filepath.Join(home, ".ari", "config.yaml")
}

// Load resolves configuration in layers: defaults, then the YAML file at
// path (skipped when absent), then ARI_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath()
	}
	if err := applyFile(cfg, path); err != nil {
		return nil, err
	}
	applyEnv(cfg)

	cfg.Prefs = cfg.Prefs.Normalize()
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.Provider != nil {
		p := fc.Provider
		setString(&cfg.Provider.Name, p.Name)
		setString(&cfg.Provider.Model, p.Model)
		setString(&cfg.Provider.BaseURL, p.BaseURL)
		setString(&cfg.Provider.APIKey, p.APIKey)
		setInt(&cfg.Provider.MaxTokens, p.MaxTokens)
		setFloat(&cfg.Provider.Temperature, p.Temperature)
		cfg.Sources["provider"] = SourceFile
	}
	if fc.Engine != nil {
		e := fc.Engine
		setInt(&cfg.Engine.HistoryWindow, e.HistoryWindow)
		setInt(&cfg.Engine.TransformCacheCap, e.TransformCacheCap)
		if e.TransformCacheTTL != nil {
			cfg.Engine.TransformCacheTTL = time.Duration(*e.TransformCacheTTL) * time.Second
		}
		setBool(&cfg.Engine.RetryEnabled, e.RetryEnabled)
		cfg.Sources["engine"] = SourceFile
	}
	if fc.Storage != nil {
		setString(&cfg.Storage.Backend, fc.Storage.Backend)
		setString(&cfg.Storage.Path, fc.Storage.Path)
		cfg.Sources["storage"] = SourceFile
	}
	if fc.Server != nil {
		s := fc.Server
		setString(&cfg.Server.Host, s.Host)
		setInt(&cfg.Server.Port, s.Port)
		if len(s.CORSOrigins) > 0 {
			cfg.Server.CORSOrigins = s.CORSOrigins
		}
		cfg.Sources["server"] = SourceFile
	}
	if fc.Materials != nil {
		m := fc.Materials
		setString(&cfg.Materials.Path, m.Path)
		setString(&cfg.Materials.EmbeddingModel, m.EmbeddingModel)
		setInt(&cfg.Materials.TopK, m.TopK)
		if m.MinSimilarity != nil {
			cfg.Materials.MinSimilarity = float32(*m.MinSimilarity)
		}
		cfg.Sources["materials"] = SourceFile
	}
	if fc.Telemetry != nil {
		t := fc.Telemetry
		setString(&cfg.Telemetry.LogLevel, t.LogLevel)
		setString(&cfg.Telemetry.LogFormat, t.LogFormat)
		setBool(&cfg.Telemetry.MetricsEnabled, t.MetricsEnabled)
		setInt(&cfg.Telemetry.MetricsPort, t.MetricsPort)
		setBool(&cfg.Telemetry.TracingEnabled, t.TracingEnabled)
		setString(&cfg.Telemetry.TraceExporter, t.TraceExporter)
		setString(&cfg.Telemetry.OTLPEndpoint, t.OTLPEndpoint)
		setString(&cfg.Telemetry.ZipkinEndpoint, t.ZipkinEndpoint)
		setFloat(&cfg.Telemetry.SampleRate, t.SampleRate)
		cfg.Sources["telemetry"] = SourceFile
	}
	if fc.Preferences != nil {
		p := fc.Preferences
		setBool(&cfg.Prefs.AriEnabled, p.AriEnabled)
		if p.Expressiveness != "" {
			cfg.Prefs.Expressiveness = ports.Expressiveness(p.Expressiveness)
		}
		if p.Vibe != "" {
			cfg.Prefs.Vibe = ports.Vibe(p.Vibe)
		}
		if p.Verbosity != "" {
			cfg.Prefs.Verbosity = ports.Verbosity(p.Verbosity)
		}
		cfg.Sources["preferences"] = SourceFile
	}

	return nil
}

// applyEnv layers ARI_* environment variables over whatever the file set.
// OPENAI_API_KEY is honored as a fallback key so existing shells work.
func applyEnv(cfg *Config) {
	overlay := func(section string, apply func() bool) {
		if apply() {
			cfg.Sources[section] = SourceEnv
		}
	}

	overlay("provider", func() bool {
		touched := false
		touched = envString("ARI_MODEL", &cfg.Provider.Model) || touched
		touched = envString("ARI_BASE_URL", &cfg.Provider.BaseURL) || touched
		touched = envString("ARI_API_KEY", &cfg.Provider.APIKey) || touched
		if cfg.Provider.APIKey == "" {
			touched = envString("OPENAI_API_KEY", &cfg.Provider.APIKey) || touched
		}
		touched = envInt("ARI_MAX_TOKENS", &cfg.Provider.MaxTokens) || touched
		return touched
	})

	overlay("storage", func() bool {
		touched := false
		touched = envString("ARI_STORAGE_BACKEND", &cfg.Storage.Backend) || touched
		touched = envString("ARI_STORAGE_PATH", &cfg.Storage.Path) || touched
		return touched
	})

	overlay("server", func() bool {
		touched := false
		touched = envString("ARI_SERVER_HOST", &cfg.Server.Host) || touched
		touched = envInt("ARI_SERVER_PORT", &cfg.Server.Port) || touched
		return touched
	})

	overlay("materials", func() bool {
		return envString("ARI_MATERIALS_PATH", &cfg.Materials.Path)
	})

	overlay("telemetry", func() bool {
		touched := false
		touched = envString("ARI_LOG_LEVEL", &cfg.Telemetry.LogLevel) || touched
		touched = envBool("ARI_METRICS_ENABLED", &cfg.Telemetry.MetricsEnabled) || touched
		touched = envBool("ARI_TRACING_ENABLED", &cfg.Telemetry.TracingEnabled) || touched
		touched = envString("ARI_OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint) || touched
		return touched
	})
}

// Save writes the current configuration to path as YAML, creating parent
// directories as needed.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func envString(key string, dst *string) bool {
	if v := os.Getenv(key); v != "" {
		*dst = v
		return true
	}
	return false
}

func envInt(key string, dst *int) bool {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
			return true
		}
	}
	return false
}

func envBool(key string, dst *bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
			return true
		}
	}
	return false
}
