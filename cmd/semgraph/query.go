package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/semgraph/pipeline"
	"github.com/c360studio/semgraph/query"
)

func queryCmd(global *globalFlags) *cobra.Command {
	var output outputFlags

	cmd := &cobra.Command{
		Use:   "query <expression> <file|dir|glob>...",
		Short: "Select triples from canonical graphs with a CEL expression",
		Long: `Query canonicalizes the matching record files and keeps the triples for
which the CEL expression is true. Each file is a separate graph named by its
path.

Variables: graph, subject, subject_kind, predicate, object, object_kind,
object_datatype, object_lang. Kinds are "named", "anonymous" or "literal".

Example:
  semgraph query 'predicate.endsWith("#id") && object_kind == "literal"' packages/`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := global.setup()
			if err != nil {
				return err
			}

			engine, err := query.NewCELEngine(logger)
			if err != nil {
				return err
			}

			p := pipeline.New(pipeline.FromConfig(cfg, nil, logger))
			report, err := p.ProcessGlobs(cmd.Context(), args[1:])
			if err != nil {
				return err
			}

			ds := make(query.Dataset, len(report.Outputs))
			for _, out := range report.Outputs {
				ds[out.Source] = out.Graph
			}

			result, err := engine.Evaluate(cmd.Context(), ds, args[0])
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			return output.write(cmd, cfg, result)
		},
	}

	output.register(cmd)
	return cmd
}
