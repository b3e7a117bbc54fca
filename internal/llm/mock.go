package llm

import (
	"context"
	"sync"
	"time"

	"ari/internal/assistant/ports"
	"ari/internal/token"
)

const defaultMockResponse = "This is a mock response. Configure a provider API key to talk to a real model."

// MockClient is a deterministic in-process provider used by tests and by
// `ari chat --mock`. Responses are consumed in order; the last one repeats.
type MockClient struct {
	ModelName string
	Responses []string
	Err       error         // returned by every call when set
	ChunkSize int           // runes per streamed delta, default 12
	Delay     time.Duration // pause between streamed deltas

	mu        sync.Mutex
	calls     int
	prompts   []ports.Prompt
	lastUsage ports.TokenUsage
}

var (
	_ ports.Streamer      = (*MockClient)(nil)
	_ ports.UsageReporter = (*MockClient)(nil)
)

// NewMockClient creates a mock provider that replies with the given
// responses in order.
func NewMockClient(responses ...string) *MockClient {
	return &MockClient{ModelName: "mock-model", Responses: responses}
}

func (m *MockClient) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

func (m *MockClient) Respond(ctx context.Context, prompt ports.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text, err := m.take(prompt)
	if err != nil {
		return "", err
	}
	return text, nil
}

func (m *MockClient) StreamRespond(ctx context.Context, prompt ports.Prompt, fn ports.StreamFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text, err := m.take(prompt)
	if err != nil {
		return err
	}

	chunkSize := m.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 12
	}

	runes := []rune(text)
	for start := 0; start < len(runes); start += chunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		if m.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.Delay):
			}
		}

		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if err := fn(ports.StreamDelta{Delta: string(runes[start:end])}); err != nil {
			return err
		}
	}

	return fn(ports.StreamDelta{Final: true})
}

func (m *MockClient) LastUsage() ports.TokenUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUsage
}

// CallCount reports how many calls the mock has served.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Prompts returns a copy of every prompt the mock has received.
func (m *MockClient) Prompts() []ports.Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.Prompt(nil), m.prompts...)
}

func (m *MockClient) take(prompt ports.Prompt) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}

	text := defaultMockResponse
	if len(m.Responses) > 0 {
		idx := m.calls
		if idx >= len(m.Responses) {
			idx = len(m.Responses) - 1
		}
		text = m.Responses[idx]
	}
	m.calls++

	m.lastUsage = ports.TokenUsage{
		PromptTokens:     token.EstimateFast(prompt.System + "\n" + prompt.User),
		CompletionTokens: token.EstimateFast(text),
	}
	m.lastUsage.TotalTokens = m.lastUsage.PromptTokens + m.lastUsage.CompletionTokens

	return text, nil
}
