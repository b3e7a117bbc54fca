// Package server exposes the orchestration core over HTTP: REST routes
// for conversations and transforms, an SSE stream and a WebSocket hub
// for live engine events, and a Prometheus scrape endpoint.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"ari/internal/assistant"
	"ari/internal/assistant/ports/storage"
	"ari/internal/config"
	"ari/internal/logging"
	"ari/internal/observability"
)

// Server wires the coordinator and store into a gin HTTP server.
type Server struct {
	coordinator *assistant.Coordinator
	store       storage.ConversationStore
	cfg         config.ServerConfig
	logger      logging.Logger
	metrics     *observability.MetricsCollector

	router      *gin.Engine
	httpServer  *http.Server
	broadcaster *Broadcaster
	hub         *WSHub
}

// Option configures a Server.
type Option func(*Server)

// WithServerLogger replaces the default component logger.
func WithServerLogger(logger logging.Logger) Option {
	return func(s *Server) { s.logger = logging.OrNop(logger) }
}

// WithServerMetrics tracks active SSE and WebSocket streams.
func WithServerMetrics(metrics *observability.MetricsCollector) Option {
	return func(s *Server) { s.metrics = metrics }
}

// New builds the server and registers it as an event listener on the
// coordinator and its engine, so SSE and WebSocket clients see turn,
// mood, state, and streaming events live.
func New(coordinator *assistant.Coordinator, store storage.ConversationStore, cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		coordinator: coordinator,
		store:       store,
		cfg:         cfg,
		logger:      logging.NewComponentLogger("Server"),
		broadcaster: NewBroadcaster(),
		hub:         NewWSHub(),
	}
	for _, opt := range opts {
		opt(s)
	}

	coordinator.AddListener(s.broadcaster)
	coordinator.AddListener(s.hub)
	coordinator.Engine().AddListener(s.broadcaster)
	coordinator.Engine().AddListener(s.hub)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLog())

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else if len(cfg.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", "Cache-Control")
	router.Use(cors.New(corsConfig))

	s.router = router
	s.registerRoutes(router)
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.hub.Close()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
