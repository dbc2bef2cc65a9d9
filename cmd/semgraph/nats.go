package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/c360studio/semstreams/natsclient"
	"github.com/nats-io/nats.go"

	"github.com/c360studio/semgraph/config"
	"github.com/c360studio/semgraph/graph"
)

// natsURL resolves the server URL. Environment overrides take precedence over
// the configuration; an empty result disables publishing.
func natsURL(cfg *config.Config) string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}
	if envURL := os.Getenv("SEMGRAPH_NATS_URL"); envURL != "" {
		return envURL
	}
	return cfg.NATS.URL
}

// connectPublisher connects to NATS and returns a graph publisher together
// with a function that closes the connection. Without a URL the publisher
// discards everything.
func connectPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*graph.Publisher, func(), error) {
	url := natsURL(cfg)
	if url == "" {
		return graph.NewPublisher(nil, cfg.NATS.Subject, logger), func() {}, nil
	}

	logger.Info("Connecting to NATS", "url", url, "jetstream", cfg.NATS.JetStream)

	if cfg.NATS.JetStream {
		client, err := connectStreamClient(ctx, url)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Close(context.Background()); err != nil {
				logger.Warn("Failed to close NATS client", "error", err)
			}
		}
		return graph.NewPublisher(client, cfg.NATS.Subject, logger), closeFn, nil
	}

	nc, err := nats.Connect(url,
		nats.Name(appName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, nil, wrapNATSError(err, url)
	}
	logger.Info("Connected to NATS", "url", url)
	return graph.NewPublisher(graph.ConnPublisher{Conn: nc}, cfg.NATS.Subject, logger), nc.Close, nil
}

func connectStreamClient(ctx context.Context, url string) (*natsclient.Client, error) {
	client, err := natsclient.NewClient(url,
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(-1),
		natsclient.WithReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, wrapNATSError(err, url)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, wrapNATSError(err, url)
	}
	return client, nil
}

// wrapNATSError provides helpful guidance when NATS connection fails.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

Start a server or set NATS_URL to point to one. Leave nats.url empty
to skip publishing.`, err, url)
	}

	return fmt.Errorf("NATS connection failed: %w", err)
}
