package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ari/internal/assistant"
	"ari/internal/assistant/ports"
	"ari/internal/assistant/ports/storage"
	"ari/internal/config"
	arierrors "ari/internal/errors"
	"ari/internal/llm"
	"ari/internal/materials"
	"ari/internal/observability"
	"ari/internal/output"
	"ari/internal/prompts"
	"ari/internal/session/filestore"
	"ari/internal/session/memstore"
	"ari/internal/session/sqlitestore"
)

// container wires the assistant stack for one command invocation.
type container struct {
	cfg         *config.Config
	provider    ports.Streamer
	engine      *assistant.Engine
	coordinator *assistant.Coordinator
	store       storage.ConversationStore
	library     materials.Library
	embedder    materials.Embedder
	metrics     *observability.MetricsCollector
	tracer      *observability.TracerProvider
	renderer    *output.Renderer

	closers []func() error
}

func buildContainer(opts *cliOptions) (*container, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	c := &container{
		cfg:      cfg,
		renderer: output.NewRenderer(opts.plain),
	}

	provider, err := buildProvider(cfg, opts.mock)
	if err != nil {
		return nil, err
	}
	c.provider = provider

	loader, err := prompts.NewLoader()
	if err != nil {
		return nil, fmt.Errorf("load prompt templates: %w", err)
	}

	metrics, err := observability.NewMetricsCollector(observability.MetricsConfig{
		Enabled: cfg.Telemetry.MetricsEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	c.metrics = metrics
	c.closers = append(c.closers, func() error { return metrics.Shutdown(context.Background()) })

	tracer, err := observability.NewTracerProvider(observability.TracingConfig{
		Enabled:        cfg.Telemetry.TracingEnabled,
		Exporter:       cfg.Telemetry.TraceExporter,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		ZipkinEndpoint: cfg.Telemetry.ZipkinEndpoint,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	c.tracer = tracer
	c.closers = append(c.closers, func() error { return tracer.Shutdown(context.Background()) })

	store, err := buildStore(cfg.Storage)
	if err != nil {
		return nil, err
	}
	c.store = store

	engine := assistant.NewEngine(provider, loader,
		assistant.WithHistoryWindow(cfg.Engine.HistoryWindow),
		assistant.WithTransformCache(cfg.Engine.TransformCacheCap, cfg.Engine.TransformCacheTTL),
		assistant.WithMetrics(metrics),
		assistant.WithPromptMetrics(observability.NewPromptMetrics()),
	)
	c.engine = engine

	coordOpts := []assistant.CoordinatorOption{}
	if cfg.Materials.Path != "" {
		library, embedder, err := buildMaterials(cfg)
		if err != nil {
			return nil, err
		}
		c.library = library
		c.embedder = embedder
		c.closers = append(c.closers, library.Close)
		coordOpts = append(coordOpts, assistant.WithMaterials(
			materials.NewRetriever(library, cfg.Materials.TopK)))
	}
	c.coordinator = assistant.NewCoordinator(engine, store, coordOpts...)

	return c, nil
}

func (c *container) Close() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func buildProvider(cfg *config.Config, mock bool) (ports.Streamer, error) {
	var client ports.Streamer
	if mock {
		client = llm.NewMockClient()
	} else {
		built, err := llm.NewClient(llm.Config{
			Provider:    cfg.Provider.Name,
			Model:       cfg.Provider.Model,
			APIKey:      cfg.Provider.APIKey,
			BaseURL:     cfg.Provider.BaseURL,
			MaxTokens:   cfg.Provider.MaxTokens,
			Temperature: cfg.Provider.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("build provider: %w", err)
		}
		client = built
	}

	if cfg.Engine.RetryEnabled {
		client = llm.WrapWithRetry(client,
			arierrors.DefaultRetryConfig(),
			arierrors.DefaultCircuitBreakerConfig())
	}
	return client, nil
}

func buildStore(cfg config.StorageConfig) (storage.ConversationStore, error) {
	switch cfg.Backend {
	case "memory":
		return memstore.New(), nil
	case "sqlite":
		path := expandHome(cfg.Path)
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "conversations.db")
		}
		store, err := sqlitestore.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case "", "file":
		return filestore.New(expandHome(cfg.Path)), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func buildMaterials(cfg *config.Config) (materials.Library, materials.Embedder, error) {
	embedder, err := materials.NewEmbedder(materials.EmbedderConfig{
		Model:  cfg.Materials.EmbeddingModel,
		APIKey: cfg.Provider.APIKey,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build embedder: %w", err)
	}
	library, err := materials.NewLibrary(materials.StoreConfig{
		PersistPath:   expandHome(cfg.Materials.Path),
		TopK:          cfg.Materials.TopK,
		MinSimilarity: cfg.Materials.MinSimilarity,
	}, embedder)
	if err != nil {
		return nil, nil, fmt.Errorf("open materials library: %w", err)
	}
	return library, embedder, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
