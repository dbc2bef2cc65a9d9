package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/c360studio/semgraph/canon"
	"github.com/c360studio/semgraph/config"
	"github.com/c360studio/semgraph/graph"
	"github.com/c360studio/semgraph/pipeline"
)

func watchCmd(global *globalFlags) *cobra.Command {
	var (
		publish     bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Canonicalize record files as they change",
		Long: `Watch indexes every .json record file below the directory, then
reprocesses files as they are created or modified. Unchanged content is
skipped. With --publish every canonical graph is sent to NATS.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := global.setup()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return runWatch(ctx, cfg, logger, args[0], publish, metricsAddr)
		},
	}

	cmd.Flags().BoolVar(&publish, "publish", false, "Publish entities to NATS (requires nats.url or NATS_URL)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}

func runWatch(ctx context.Context, cfg *config.Config, logger *slog.Logger, root string, publish bool, metricsAddr string) error {
	registry := prometheus.NewRegistry()
	p := pipeline.New(pipeline.FromConfig(cfg, canon.NewMetrics(registry), logger))

	if metricsAddr != "" {
		srv := serveMetrics(metricsAddr, registry, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	publisher := graph.NewPublisher(nil, cfg.NATS.Subject, logger)
	if publish {
		pub, closeFn, err := connectPublisher(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeFn()
		publisher = pub
	}

	w, err := pipeline.NewWatcher(pipeline.WatcherConfig{
		Root:          root,
		DebounceDelay: cfg.Watch.Debounce,
		Logger:        logger,
	}, p)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Stop()

	report, err := w.IndexDirectory(ctx)
	if err != nil {
		return fmt.Errorf("index %s: %w", root, err)
	}
	for _, f := range report.Failures {
		logger.Warn("Initial indexing failed", "path", f.Path, "error", f.Err)
	}
	if _, err := publisher.PublishGraph(ctx, report.Graph); err != nil {
		logger.Error("Failed to publish initial graph", "error", err)
	}

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	logger.Info("Semgraph watching",
		"root", root,
		"files", len(report.Outputs),
		"triples", report.Graph.Len())

	for {
		select {
		case <-ctx.Done():
			logger.Info("Received shutdown signal")
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			handleWatchEvent(ctx, ev, publisher, logger)
		}
	}
}

func handleWatchEvent(ctx context.Context, ev pipeline.WatchEvent, publisher *graph.Publisher, logger *slog.Logger) {
	if ev.Error != nil {
		logger.Error("Failed to process file", "path", ev.Path, "error", ev.Error)
		return
	}
	if ev.Output == nil {
		logger.Info("File removed", "path", ev.Path)
		return
	}

	logger.Info("File processed",
		"path", ev.Path,
		"op", ev.Operation,
		"roots", len(ev.Output.Roots),
		"triples", ev.Output.Graph.Len(),
		"diagnostics", len(ev.Output.Diagnostics))
	for _, f := range ev.Output.Failures {
		logger.Warn("Root not canonicalized", "path", ev.Path, "root", f.Root.String(), "error", f.Err)
	}

	if _, err := publisher.PublishGraph(ctx, ev.Output.Graph); err != nil {
		logger.Error("Failed to publish graph", "path", ev.Path, "error", err)
	}
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err)
		}
	}()
	logger.Info("Serving metrics", "addr", addr)
	return srv
}
