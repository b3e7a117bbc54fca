package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"ari/internal/assistant/ports"
	"ari/internal/logging"
	"ari/internal/observability"
)

// cachingClient memoizes single-shot completions so repeating the same
// transform on unchanged text returns instantly. Streaming chat requests
// pass through untouched, and errors are never cached.
type cachingClient struct {
	underlying ports.Streamer
	cache      *lru.Cache[string, responseEntry]
	ttl        time.Duration
	logger     logging.Logger
	metrics    *observability.PromptMetrics

	usageMu   sync.RWMutex
	lastUsage ports.TokenUsage
}

type responseEntry struct {
	text      string
	usage     ports.TokenUsage
	expiresAt time.Time
}

var (
	_ ports.Streamer      = (*cachingClient)(nil)
	_ ports.UsageReporter = (*cachingClient)(nil)
)

// NewCachingClient wraps a provider client with an LRU response cache.
// A size <= 0 disables caching and returns the client unchanged. A TTL <= 0
// disables expiration.
func NewCachingClient(client ports.Streamer, size int, ttl time.Duration) ports.Streamer {
	if size <= 0 {
		return client
	}
	cache, err := lru.New[string, responseEntry](size)
	if err != nil {
		return client
	}
	return &cachingClient{
		underlying: client,
		cache:      cache,
		ttl:        ttl,
		logger:     logging.NewComponentLogger("llm-cache"),
		metrics:    observability.NewPromptMetrics(),
	}
}

func (c *cachingClient) Respond(ctx context.Context, prompt ports.Prompt) (string, error) {
	key := responseKey(c.underlying.Model(), prompt)

	if entry, ok := c.cache.Get(key); ok {
		if entry.expiresAt.IsZero() || time.Now().Before(entry.expiresAt) {
			c.logger.Debug("Cache hit for prompt %s", key[:12])
			c.metrics.RecordTransformCache(true)
			c.setLastUsage(entry.usage)
			return entry.text, nil
		}
		c.cache.Remove(key)
	}

	c.metrics.RecordTransformCache(false)
	text, err := c.underlying.Respond(ctx, prompt)
	if err != nil {
		return "", err
	}

	usage := ports.TokenUsage{}
	if reporter, ok := c.underlying.(ports.UsageReporter); ok {
		usage = reporter.LastUsage()
	}
	c.setLastUsage(usage)

	entry := responseEntry{text: text, usage: usage}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}
	c.cache.Add(key, entry)

	return text, nil
}

func (c *cachingClient) StreamRespond(ctx context.Context, prompt ports.Prompt, fn ports.StreamFunc) error {
	return c.underlying.StreamRespond(ctx, prompt, fn)
}

func (c *cachingClient) Model() string {
	return c.underlying.Model()
}

func (c *cachingClient) LastUsage() ports.TokenUsage {
	c.usageMu.RLock()
	defer c.usageMu.RUnlock()
	return c.lastUsage
}

func (c *cachingClient) setLastUsage(usage ports.TokenUsage) {
	c.usageMu.Lock()
	c.lastUsage = usage
	c.usageMu.Unlock()
}

func responseKey(model string, prompt ports.Prompt) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(prompt.System))
	h.Write([]byte{0})
	h.Write([]byte(prompt.User))
	return hex.EncodeToString(h.Sum(nil))
}
