package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PromptMetrics tracks health of the prompt assembly pipeline.
type PromptMetrics struct {
	tokensBySection prometheus.GaugeVec
	truncations     prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

var (
	defaultPromptMetrics     *PromptMetrics
	defaultPromptMetricsOnce sync.Once
)

// NewPromptMetrics builds a PromptMetrics recorder using the default registry.
func NewPromptMetrics() *PromptMetrics {
	defaultPromptMetricsOnce.Do(func() {
		defaultPromptMetrics = newPromptMetrics(prometheus.DefaultRegisterer)
	})
	return defaultPromptMetrics
}

// NewPromptMetricsWithRegisterer allows tests to provide a dedicated registry.
func NewPromptMetricsWithRegisterer(reg prometheus.Registerer) *PromptMetrics {
	return newPromptMetrics(reg)
}

func newPromptMetrics(reg prometheus.Registerer) *PromptMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PromptMetrics{
		tokensBySection: *factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ari",
			Subsystem: "prompt",
			Name:      "tokens_by_section",
			Help:      "Approximate tokens per prompt section for the most recent build",
		}, []string{"section"}),
		truncations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ari",
			Subsystem: "prompt",
			Name:      "history_truncation_total",
			Help:      "Number of times conversation history was cut to fit the token cap",
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ari",
			Subsystem: "prompt",
			Name:      "transform_cache_hit_total",
			Help:      "Transform responses served from the LRU cache",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ari",
			Subsystem: "prompt",
			Name:      "transform_cache_miss_total",
			Help:      "Transform requests that reached the provider",
		}),
	}
}

// RecordTokensBySection sets the latest token measurement for a section.
func (m *PromptMetrics) RecordTokensBySection(section string, tokens int) {
	if m == nil {
		return
	}
	gauge := m.tokensBySection.WithLabelValues(section)
	gauge.Set(float64(tokens))
}

// RecordHistoryTruncation increments the truncation counter.
func (m *PromptMetrics) RecordHistoryTruncation() {
	if m == nil || m.truncations == nil {
		return
	}
	m.truncations.Inc()
}

// RecordTransformCache tracks whether a transform was served from cache.
func (m *PromptMetrics) RecordTransformCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		if m.cacheHits != nil {
			m.cacheHits.Inc()
		}
		return
	}
	if m.cacheMisses != nil {
		m.cacheMisses.Inc()
	}
}
