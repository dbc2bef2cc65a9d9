// Package main provides the semgraph binary entry point.
// Semgraph turns serialized object graphs into RDF graphs whose blank nodes
// carry stable canonical IRIs.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/semgraph/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semgraph"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Canonical IRIs for serialized object graphs",
		Long: `Semgraph flattens JSON object graphs into RDF, maps serializer type
names onto vocabulary classes and replaces blank nodes with canonical IRIs
derived from each root's key and the structural path to the node.

Canonical graphs produced from independent runs merge without duplicating
nodes. Results can be written as Turtle, N-Triples or JSON-LD and published
to the knowledge graph over NATS.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		canonicalizeCmd(flags),
		queryCmd(flags),
		watchCmd(flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

// setup configures logging and loads the layered configuration.
func (f *globalFlags) setup() (*config.Config, *slog.Logger, error) {
	level := slog.LevelInfo
	switch strings.ToLower(f.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.NewLoader(logger).Load(f.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger, nil
}
