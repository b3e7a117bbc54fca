// Package llm provides HTTP clients for OpenAI-compatible chat completion
// APIs, plus decorators for retry, circuit breaking, and response caching.
// All clients implement ports.Streamer; wrap non-streaming providers with
// EnsureStreamer.
package llm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	arierrors "ari/internal/errors"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 120 * time.Second

	streamScannerInitialBuffer = 64 * 1024
	streamScannerMaxBuffer     = 2 * 1024 * 1024

	errBodyPreviewLimit = 320
)

// Config holds the connection settings for a provider client.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	Headers     map[string]string
	MaxRetries  int
}

func newStreamScanner(reader io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, streamScannerInitialBuffer), streamScannerMaxBuffer)
	return scanner
}

// mapHTTPError converts a non-2xx response into a classified error. Messages
// are left to errors.FormatForUser so user-facing text has a single source.
func mapHTTPError(status int, body []byte, header http.Header) error {
	preview := bodyPreview(body)
	base := fmt.Errorf("HTTP %d: %s", status, preview)

	switch {
	case status == http.StatusTooManyRequests:
		retryAfter := 0
		if v := header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
				retryAfter = secs
			}
		}
		return &arierrors.TransientError{Err: base, StatusCode: status, RetryAfter: retryAfter}
	case status >= 500:
		return &arierrors.TransientError{Err: base, StatusCode: status}
	case status == http.StatusUnauthorized,
		status == http.StatusForbidden,
		status == http.StatusNotFound,
		status == http.StatusBadRequest,
		status == http.StatusUnprocessableEntity:
		return &arierrors.PermanentError{Err: base, StatusCode: status}
	default:
		return base
	}
}

// wrapRequestError wraps transport failures while keeping context
// cancellation visible to errors.Is.
func wrapRequestError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("send request: %w", err)
}

// bodyPreview compacts an error body to a single short line for error text.
func bodyPreview(body []byte) string {
	compact := strings.Join(strings.Fields(strings.TrimSpace(string(body))), " ")
	if compact == "" {
		return "(empty body)"
	}
	runes := []rune(compact)
	if len(runes) <= errBodyPreviewLimit {
		return compact
	}
	return string(runes[:errBodyPreviewLimit-1]) + "…"
}

// providerFromBaseURL derives a provider label for logs and metrics.
func providerFromBaseURL(baseURL string) string {
	lower := strings.ToLower(baseURL)
	switch {
	case strings.Contains(lower, "api.openai.com"):
		return "openai"
	case strings.Contains(lower, "api.deepseek.com"):
		return "deepseek"
	case strings.Contains(lower, "openrouter.ai"):
		return "openrouter"
	case strings.Contains(lower, "11434"), strings.Contains(lower, "ollama"):
		return "ollama"
	default:
		return "openai-compatible"
	}
}
