package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"ari/internal/assistant/ports"
	arierrors "ari/internal/errors"
	"ari/internal/logging"
	id "ari/internal/utils/id"
)

// openaiClient talks to any OpenAI-compatible /chat/completions endpoint
// (OpenAI, OpenRouter, DeepSeek, Ollama's compat layer).
type openaiClient struct {
	model       string
	apiKey      string
	baseURL     string
	maxTokens   int
	temperature float64
	headers     map[string]string
	httpClient  *http.Client
	logger      logging.Logger

	usageMu   sync.RWMutex
	lastUsage ports.TokenUsage
}

var (
	_ ports.Streamer      = (*openaiClient)(nil)
	_ ports.UsageReporter = (*openaiClient)(nil)
)

// NewOpenAIClient creates a client for an OpenAI-compatible API.
func NewOpenAIClient(cfg Config) ports.Streamer {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &openaiClient{
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		headers:     cfg.Headers,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logging.NewComponentLogger("LLM"),
	}
}

func (c *openaiClient) Model() string {
	return c.model
}

// LastUsage returns token accounting from the most recent completed call.
func (c *openaiClient) LastUsage() ports.TokenUsage {
	c.usageMu.RLock()
	defer c.usageMu.RUnlock()
	return c.lastUsage
}

func (c *openaiClient) recordUsage(usage ports.TokenUsage) {
	c.usageMu.Lock()
	c.lastUsage = usage
	c.usageMu.Unlock()
}

func (c *openaiClient) requestPrefix(ctx context.Context) (string, string) {
	requestID := id.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = id.NewRequestID()
	}
	return requestID, fmt.Sprintf("[req:%s] ", requestID)
}

func (c *openaiClient) buildRequest(prompt ports.Prompt, stream bool) map[string]any {
	messages := make([]map[string]any, 0, 2)
	if prompt.System != "" {
		messages = append(messages, map[string]any{"role": "system", "content": prompt.System})
	}
	messages = append(messages, map[string]any{"role": "user", "content": prompt.User})

	req := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": c.temperature,
		"max_tokens":  c.maxTokens,
		"stream":      stream,
	}
	if stream {
		req["stream_options"] = map[string]any{"include_usage": true}
	}
	return req
}

func (c *openaiClient) doPost(ctx context.Context, body []byte) (*http.Response, error) {
	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	return c.httpClient.Do(httpReq)
}

// Respond sends one prompt and returns the full response text.
func (c *openaiClient) Respond(ctx context.Context, prompt ports.Prompt) (string, error) {
	_, prefix := c.requestPrefix(ctx)

	body, err := json.Marshal(c.buildRequest(prompt, false))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Debug("%s=== Completion Request ===", prefix)
	c.logger.Debug("%sURL: POST %s/chat/completions", prefix, c.baseURL)
	c.logger.Debug("%sModel: %s", prefix, c.model)

	resp, err := c.doPost(ctx, body)
	if err != nil {
		c.logger.Debug("%sHTTP request failed: %v", prefix, err)
		return "", wrapRequestError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("%sStatus: %d %s", prefix, resp.StatusCode, resp.Status)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Debug("%sFailed to read response body: %v", prefix, err)
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("%sError Response Body: %s", prefix, bodyPreview(respBody))
		return "", mapHTTPError(resp.StatusCode, respBody, resp.Header)
	}

	var oaiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
		Error *struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		c.logger.Debug("%sFailed to decode response: %v", prefix, err)
		return "", fmt.Errorf("decode response: %w", err)
	}

	if oaiResp.Error != nil && oaiResp.Error.Message != "" {
		errMsg := oaiResp.Error.Message
		if oaiResp.Error.Type != "" {
			errMsg = fmt.Sprintf("%s: %s", oaiResp.Error.Type, oaiResp.Error.Message)
		}
		return "", mapHTTPError(resp.StatusCode, []byte(errMsg), resp.Header)
	}

	if len(oaiResp.Choices) == 0 {
		c.logger.Debug("%sNo choices in response", prefix)
		return "", arierrors.NewTransientError(errors.New("no choices in response"),
			"The model returned an empty response. Please try again.")
	}

	c.recordUsage(ports.TokenUsage{
		PromptTokens:     oaiResp.Usage.PromptTokens,
		CompletionTokens: oaiResp.Usage.CompletionTokens,
		TotalTokens:      oaiResp.Usage.TotalTokens,
	})

	content := oaiResp.Choices[0].Message.Content
	c.logger.Debug("%sStop Reason: %s", prefix, oaiResp.Choices[0].FinishReason)
	c.logger.Debug("%sContent Length: %d chars", prefix, len(content))
	c.logger.Debug("%sUsage: %d prompt + %d completion = %d total tokens",
		prefix,
		oaiResp.Usage.PromptTokens,
		oaiResp.Usage.CompletionTokens,
		oaiResp.Usage.TotalTokens)

	return content, nil
}

// StreamRespond sends one prompt and delivers output incrementally through
// fn. Deltas carry newly generated text only; a final marker follows the
// last delta.
func (c *openaiClient) StreamRespond(ctx context.Context, prompt ports.Prompt, fn ports.StreamFunc) error {
	requestID, prefix := c.requestPrefix(ctx)
	provider := providerFromBaseURL(c.baseURL)

	body, err := json.Marshal(c.buildRequest(prompt, true))
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Debug("%s=== Streaming Request ===", prefix)
	c.logger.Debug("%sURL: POST %s/chat/completions", prefix, c.baseURL)
	c.logger.Debug("%sModel: %s", prefix, c.model)

	requestStarted := time.Now()
	resp, err := c.doPost(ctx, body)
	if err != nil {
		c.logger.Debug("%sHTTP request failed: %v", prefix, err)
		return wrapRequestError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("%sStatus: %d %s", prefix, resp.StatusCode, resp.Status)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			c.logger.Debug("%sFailed to read error response: %v", prefix, readErr)
			return fmt.Errorf("read response: %w", readErr)
		}
		c.logger.Debug("%sError Response Body: %s", prefix, bodyPreview(respBody))
		return mapHTTPError(resp.StatusCode, respBody, resp.Header)
	}

	type streamChunk struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
				Role    string `json:"role"`
			} `json:"delta"`
			FinishReason *string `json:"finish_reason"`
		} `json:"choices"`
		Usage *struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}

	scanner := newStreamScanner(resp.Body)
	usage := ports.TokenUsage{}
	finishReason := ""
	totalChars := 0
	loggedTTFB := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		if payload == "[DONE]" {
			break
		}

		if !loggedTTFB {
			loggedTTFB = true
			c.logger.Debug("%sFirst token after %.2fms provider=%s model=%s request_id=%s",
				prefix,
				float64(time.Since(requestStarted))/float64(time.Millisecond),
				provider,
				c.model,
				requestID)
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			c.logger.Debug("%sFailed to decode stream chunk: %v", prefix, err)
			continue
		}

		if chunk.Usage != nil {
			usage.PromptTokens = chunk.Usage.PromptTokens
			usage.CompletionTokens = chunk.Usage.CompletionTokens
			usage.TotalTokens = chunk.Usage.TotalTokens
		}

		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			finishReason = *choice.FinishReason
		}

		if text := choice.Delta.Content; text != "" {
			totalChars += len(text)
			if err := fn(ports.StreamDelta{Delta: text}); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		c.logger.Debug("%sStream read error: %v", prefix, err)
		return fmt.Errorf("read response stream: %w", err)
	}

	c.recordUsage(usage)

	if err := fn(ports.StreamDelta{Final: true}); err != nil {
		return err
	}

	c.logger.Debug("%s=== Streaming Summary ===", prefix)
	c.logger.Debug("%sStop Reason: %s", prefix, finishReason)
	c.logger.Debug("%sContent Length: %d chars", prefix, totalChars)
	c.logger.Debug("%sUsage: %d prompt + %d completion = %d total tokens",
		prefix,
		usage.PromptTokens,
		usage.CompletionTokens,
		usage.TotalTokens)

	return nil
}
