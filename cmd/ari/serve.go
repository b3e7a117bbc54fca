package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ari/internal/logging"
	"ari/internal/observability"
	"ari/internal/server"
)

func newServeCmd(opts *cliOptions) *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with SSE and websocket streams",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildContainer(opts)
			if err != nil {
				return err
			}
			defer c.Close()

			cfg := c.cfg.Server
			if host != "" {
				cfg.Host = host
			}
			if port > 0 {
				cfg.Port = port
			}

			if c.cfg.Telemetry.MetricsEnabled && c.cfg.Telemetry.MetricsPort > 0 {
				if err := c.metrics.StartPrometheusServer(c.cfg.Telemetry.MetricsPort); err != nil {
					return fmt.Errorf("start metrics server: %w", err)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			structured := observability.NewLogger(observability.LogConfig{
				Level:  c.cfg.Telemetry.LogLevel,
				Format: c.cfg.Telemetry.LogFormat,
			})

			fmt.Printf("%s listening on %s:%d\n", bold("ari"), cfg.Host, cfg.Port)
			return server.New(c.coordinator, c.store, cfg,
				server.WithServerLogger(logging.FromStructured(structured, "http")),
				server.WithServerMetrics(c.metrics)).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Bind host (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "Bind port (overrides config)")
	return cmd
}
