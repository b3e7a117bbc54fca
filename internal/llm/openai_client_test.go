package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"ari/internal/assistant/ports"
	arierrors "ari/internal/errors"
)

func TestOpenAIClientRespondSuccess(t *testing.T) {
	t.Parallel()

	server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}

		if got := r.URL.Path; got != "/chat/completions" {
			t.Errorf("unexpected path: %s", got)
		}

		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("expected Authorization header, got %q", got)
		}

		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("expected Content-Type header, got %q", got)
		}

		var payload struct {
			Model    string `json:"model"`
			Stream   bool   `json:"stream"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}

		if payload.Model != "test-model" {
			t.Errorf("unexpected model: %v", payload.Model)
		}
		if payload.Stream {
			t.Errorf("expected stream=false")
		}
		if len(payload.Messages) != 2 || payload.Messages[0].Role != "system" || payload.Messages[1].Role != "user" {
			t.Errorf("unexpected messages: %+v", payload.Messages)
		}
		if payload.Messages[1].Content != "hi" {
			t.Errorf("unexpected user content: %q", payload.Messages[1].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"choices": []any{
				map[string]any{
					"message":       map[string]any{"content": "hello"},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{
				"prompt_tokens":     3,
				"completion_tokens": 4,
				"total_tokens":      7,
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("write response: %v", err)
		}
	}))

	client := NewOpenAIClient(Config{
		Model:   "test-model",
		APIKey:  "test-key",
		BaseURL: server.URL,
	})

	text, err := client.Respond(context.Background(), ports.Prompt{System: "be helpful", User: "hi"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}

	if text != "hello" {
		t.Fatalf("unexpected content: %q", text)
	}

	usage := client.(ports.UsageReporter).LastUsage()
	if usage.TotalTokens != 7 {
		t.Fatalf("unexpected tokens: %+v", usage)
	}
}

func TestOpenAIClientRespondInvalidAPIKey(t *testing.T) {
	t.Parallel()

	server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))

	client := NewOpenAIClient(Config{Model: "test-model", APIKey: "bad", BaseURL: server.URL})

	_, err := client.Respond(context.Background(), ports.Prompt{User: "hi"})
	if err == nil {
		t.Fatalf("expected error")
	}

	var perr *arierrors.PermanentError
	if !errors.As(err, &perr) {
		t.Fatalf("expected permanent error, got %T", err)
	}

	if perr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, perr.StatusCode)
	}
}

func TestOpenAIClientRespondRateLimited(t *testing.T) {
	t.Parallel()

	server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))

	client := NewOpenAIClient(Config{Model: "test-model", APIKey: "key", BaseURL: server.URL})

	_, err := client.Respond(context.Background(), ports.Prompt{User: "hi"})
	if err == nil {
		t.Fatalf("expected error")
	}

	var terr *arierrors.TransientError
	if !errors.As(err, &terr) {
		t.Fatalf("expected transient error, got %T", err)
	}

	if terr.RetryAfter != 3 {
		t.Fatalf("expected retry-after 3, got %d", terr.RetryAfter)
	}

	if terr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected status %d, got %d", http.StatusTooManyRequests, terr.StatusCode)
	}
}

func TestOpenAIClientRespondEmptyChoices(t *testing.T) {
	t.Parallel()

	server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[],"usage":{}}`))
	}))

	client := NewOpenAIClient(Config{Model: "test-model", BaseURL: server.URL})

	_, err := client.Respond(context.Background(), ports.Prompt{User: "hi"})
	if err == nil {
		t.Fatalf("expected error")
	}

	var terr *arierrors.TransientError
	if !errors.As(err, &terr) {
		t.Fatalf("expected transient error, got %T", err)
	}
}

func TestOpenAIClientStreamRespond(t *testing.T) {
	t.Parallel()

	server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Stream bool `json:"stream"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !payload.Stream {
			t.Errorf("expected stream=true")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`data: {"choices":[{"delta":{"role":"assistant","content":"Hel"}}]}`,
			``,
			`data: {"choices":[{"delta":{"content":"lo!"}}]}`,
			``,
			`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
			``,
			`data: {"choices":[],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`,
			``,
			`data: [DONE]`,
		}
		for _, chunk := range chunks {
			_, _ = w.Write([]byte(chunk + "\n"))
		}
	}))

	client := NewOpenAIClient(Config{Model: "test-model", BaseURL: server.URL})

	var deltas []ports.StreamDelta
	err := client.StreamRespond(context.Background(), ports.Prompt{User: "hi"}, func(delta ports.StreamDelta) error {
		deltas = append(deltas, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamRespond: %v", err)
	}

	want := []ports.StreamDelta{{Delta: "Hel"}, {Delta: "lo!"}, {Final: true}}
	if len(deltas) != len(want) {
		t.Fatalf("expected %d deltas, got %d: %+v", len(want), len(deltas), deltas)
	}
	for i := range want {
		if deltas[i] != want[i] {
			t.Fatalf("delta %d: expected %+v, got %+v", i, want[i], deltas[i])
		}
	}

	usage := client.(ports.UsageReporter).LastUsage()
	if usage.TotalTokens != 7 {
		t.Fatalf("unexpected tokens: %+v", usage)
	}
}

func TestOpenAIClientStreamRespondServerError(t *testing.T) {
	t.Parallel()

	server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	}))

	client := NewOpenAIClient(Config{Model: "test-model", BaseURL: server.URL})

	err := client.StreamRespond(context.Background(), ports.Prompt{User: "hi"}, func(ports.StreamDelta) error {
		t.Fatal("callback should not run on HTTP error")
		return nil
	})
	if err == nil {
		t.Fatalf("expected error")
	}

	var terr *arierrors.TransientError
	if !errors.As(err, &terr) {
		t.Fatalf("expected transient error, got %T", err)
	}
}

func TestOpenAIClientStreamRespondCallbackStopsStream(t *testing.T) {
	t.Parallel()

	server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(`data: {"choices":[{"delta":{"content":"one"}}]}` + "\n\n"))
		_, _ = w.Write([]byte(`data: {"choices":[{"delta":{"content":"two"}}]}` + "\n\n"))
		_, _ = w.Write([]byte("data: [DONE]\n"))
	}))

	client := NewOpenAIClient(Config{Model: "test-model", BaseURL: server.URL})

	stop := errors.New("stop")
	calls := 0
	err := client.StreamRespond(context.Background(), ports.Prompt{User: "hi"}, func(ports.StreamDelta) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 callback before stop, got %d", calls)
	}
}

func newIPv4TestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test: unable to create loopback listener: %v", err)
	}

	server := httptest.NewUnstartedServer(handler)
	server.Listener = ln
	server.Start()
	t.Cleanup(server.Close)

	return server
}
