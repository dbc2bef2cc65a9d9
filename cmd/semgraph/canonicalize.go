package main

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/c360studio/semgraph/canon"
	"github.com/c360studio/semgraph/config"
	"github.com/c360studio/semgraph/pipeline"
)

type canonicalizeFlags struct {
	output      outputFlags
	baseAddress string
	indexed     bool
	publish     bool
	metricsFile string
}

func canonicalizeCmd(global *globalFlags) *cobra.Command {
	flags := &canonicalizeFlags{}

	cmd := &cobra.Command{
		Use:   "canonicalize <file|dir|glob>...",
		Short: "Canonicalize record files and write the merged graph",
		Long: `Canonicalize flattens every matching record file, canonicalizes each
root it contains and writes the merged graph.

Directories are searched recursively for .json files. Globs support ** for
recursive matching.

Files that fail to parse and roots that cannot be canonicalized are
reported; the command still writes everything that succeeded and then exits
with an error.`,
		Aliases: []string{"canon"},
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := global.setup()
			if err != nil {
				return err
			}
			return runCanonicalize(cmd, cfg, logger, flags, args)
		},
	}

	flags.output.register(cmd)
	cmd.Flags().StringVar(&flags.baseAddress, "base", "", "Base address for canonical IRIs (overrides config)")
	cmd.Flags().BoolVar(&flags.indexed, "indexed", false,
		"Give collection members distinct IRIs (default: members of one collection share an IRI and merge)")
	cmd.Flags().BoolVar(&flags.publish, "publish", false, "Publish entities to NATS (requires nats.url or NATS_URL)")
	cmd.Flags().StringVar(&flags.metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file")

	return cmd
}

// applyOverrides copies command line overrides onto the configuration.
func (f *canonicalizeFlags) applyOverrides(cfg *config.Config) error {
	if f.baseAddress != "" {
		cfg.Canon.BaseAddress = f.baseAddress
	}
	if f.indexed {
		cfg.Canon.IndexedSiblings = config.Bool(true)
	}
	return cfg.Validate()
}

func runCanonicalize(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, flags *canonicalizeFlags, patterns []string) error {
	ctx := cmd.Context()

	if err := flags.applyOverrides(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	registry := prometheus.NewRegistry()
	p := pipeline.New(pipeline.FromConfig(cfg, canon.NewMetrics(registry), logger))

	report, err := p.ProcessGlobs(ctx, patterns)
	if err != nil {
		return err
	}

	for _, d := range report.Diagnostics() {
		logger.Warn("Canonicalization diagnostic", "diagnostic", d.Error())
	}
	for _, out := range report.Outputs {
		for _, f := range out.Failures {
			logger.Error("Root not canonicalized", "source", out.Source, "root", f.Root.String(), "error", f.Err)
		}
	}

	if err := flags.output.write(cmd, cfg, report.Graph); err != nil {
		return err
	}

	if flags.publish {
		publisher, closeFn, err := connectPublisher(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeFn()

		if _, err := publisher.PublishGraph(ctx, report.Graph); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
	}

	if flags.metricsFile != "" {
		if err := prometheus.WriteToTextfile(flags.metricsFile, registry); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	if n := len(report.Failures); n > 0 {
		return fmt.Errorf("%d of %d files failed", n, n+len(report.Outputs))
	}
	if n := report.RootFailures(); n > 0 {
		return fmt.Errorf("%d roots could not be canonicalized", n)
	}
	return nil
}
