package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ari/internal/assistant/ports"
	arierrors "ari/internal/errors"
	"ari/internal/logging"
)

// retryClient wraps a provider client with retry logic and a circuit breaker.
type retryClient struct {
	underlying     ports.Streamer
	retryConfig    arierrors.RetryConfig
	circuitBreaker *arierrors.CircuitBreaker
	logger         logging.Logger
}

var (
	_ ports.Streamer      = (*retryClient)(nil)
	_ ports.UsageReporter = (*retryClient)(nil)
)

// NewRetryClient wraps a provider client with retry and circuit breaker logic.
// Classified errors pass through unformatted; callers decide how to surface
// them to the user.
func NewRetryClient(client ports.Streamer, retryConfig arierrors.RetryConfig, circuitBreaker *arierrors.CircuitBreaker) ports.Streamer {
	return &retryClient{
		underlying:     client,
		retryConfig:    retryConfig,
		circuitBreaker: circuitBreaker,
		logger:         logging.NewComponentLogger("llm-retry"),
	}
}

// WrapWithRetry wraps a provider client with retry logic using the provided
// configuration, creating a dedicated circuit breaker for it.
func WrapWithRetry(client ports.Streamer, retryConfig arierrors.RetryConfig, circuitBreakerConfig arierrors.CircuitBreakerConfig) ports.Streamer {
	circuitBreaker := arierrors.NewCircuitBreaker(
		fmt.Sprintf("llm-%s", client.Model()),
		circuitBreakerConfig,
	)
	return NewRetryClient(client, retryConfig, circuitBreaker)
}

// Respond executes a single-shot completion with retry logic.
func (c *retryClient) Respond(ctx context.Context, prompt ports.Prompt) (string, error) {
	startTime := time.Now()

	text, err := arierrors.RetryWithResultAndLog(ctx, c.retryConfig, func(ctx context.Context) (string, error) {
		return arierrors.ExecuteFunc(c.circuitBreaker, ctx, func(ctx context.Context) (string, error) {
			response, err := c.underlying.Respond(ctx, prompt)
			if err != nil {
				return "", classifyProviderError(err)
			}
			return response, nil
		})
	}, c.logger)

	duration := time.Since(startTime)

	if err != nil {
		c.logger.Warn("Completion failed after retries (took %v): %v", duration, err)
		return "", err
	}

	if duration > 5*time.Second {
		c.logger.Debug("Completion succeeded after %v", duration)
	}

	return text, nil
}

// StreamRespond proxies streaming requests to the underlying client. Unlike
// Respond, streaming requests are not retried to avoid duplicating partial
// output when an upstream error occurs mid-stream. The circuit breaker still
// protects against a repeatedly failing provider.
func (c *retryClient) StreamRespond(ctx context.Context, prompt ports.Prompt, fn ports.StreamFunc) error {
	startTime := time.Now()

	_, err := arierrors.ExecuteFunc(c.circuitBreaker, ctx, func(ctx context.Context) (struct{}, error) {
		if streamErr := c.underlying.StreamRespond(ctx, prompt, fn); streamErr != nil {
			return struct{}{}, classifyProviderError(streamErr)
		}
		return struct{}{}, nil
	})

	duration := time.Since(startTime)

	if err != nil {
		c.logger.Warn("Streaming request failed after %v: %v", duration, err)
		return err
	}

	if duration > 5*time.Second {
		c.logger.Debug("Streaming request succeeded after %v", duration)
	}

	return nil
}

func (c *retryClient) Model() string {
	return c.underlying.Model()
}

func (c *retryClient) LastUsage() ports.TokenUsage {
	if reporter, ok := c.underlying.(ports.UsageReporter); ok {
		return reporter.LastUsage()
	}
	return ports.TokenUsage{}
}

// classifyProviderError detects transient errors from provider APIs so the
// retry loop makes the right call. Already-classified errors and context
// cancellation pass through unchanged.
func classifyProviderError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var transientErr *arierrors.TransientError
	var permanentErr *arierrors.PermanentError
	var degradedErr *arierrors.DegradedError
	if errors.As(err, &transientErr) || errors.As(err, &permanentErr) || errors.As(err, &degradedErr) {
		return err
	}

	lowerErr := strings.ToLower(err.Error())

	// Rate limit errors (429)
	if strings.Contains(lowerErr, "429") || strings.Contains(lowerErr, "rate limit") {
		return arierrors.NewTransientError(err, "")
	}

	// Server errors (500, 502, 503, 504)
	for _, pattern := range []string{
		"500", "internal server error",
		"502", "bad gateway",
		"503", "service unavailable",
		"504", "gateway timeout",
	} {
		if strings.Contains(lowerErr, pattern) {
			return arierrors.NewTransientError(err, "")
		}
	}

	// Network errors
	for _, pattern := range []string{
		"connection refused",
		"timeout", "deadline exceeded",
		"network", "dns",
		"connection reset", "broken pipe",
	} {
		if strings.Contains(lowerErr, pattern) {
			return arierrors.NewTransientError(err, "")
		}
	}

	return err
}
