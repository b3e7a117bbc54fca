package llm

import (
	"fmt"
	"strings"

	"ari/internal/assistant/ports"
)

// NewClient creates a provider client for the configured provider name.
// Every HTTP-based provider speaks the OpenAI chat completions dialect;
// "mock" returns an offline deterministic client.
func NewClient(cfg Config) (ports.Streamer, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	switch provider {
	case "", "openai", "openrouter", "deepseek", "openai-compatible":
		return NewOpenAIClient(cfg), nil
	case "ollama":
		if strings.TrimSpace(cfg.BaseURL) == "" {
			cfg.BaseURL = "http://localhost:11434/v1"
		}
		return NewOpenAIClient(cfg), nil
	case "mock":
		mock := NewMockClient()
		if cfg.Model != "" {
			mock.ModelName = cfg.Model
		}
		return mock, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
