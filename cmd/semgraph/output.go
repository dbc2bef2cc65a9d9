package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/c360studio/semgraph/config"
	"github.com/c360studio/semgraph/export"
	"github.com/c360studio/semgraph/rdf"
)

// outputFlags select how a result graph is serialized. Empty values fall
// back to the configuration.
type outputFlags struct {
	format     string
	profile    string
	path       string
	frameRoots []string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", "", "Output format (turtle, ntriples, jsonld, jsonld-framed)")
	cmd.Flags().StringSliceVar(&o.frameRoots, "frame-root", nil, "Root IRI for jsonld-framed output (default: subjects nothing references)")
	cmd.Flags().StringVar(&o.profile, "profile", "", "Export profile (full, minimal)")
	cmd.Flags().StringVarP(&o.path, "output", "o", "", "Output file (default: stdout)")
}

// write serializes g to the output file or to the command's stdout.
func (o *outputFlags) write(cmd *cobra.Command, cfg *config.Config, g *rdf.Graph) error {
	formatName := cfg.Output.Format
	if o.format != "" {
		formatName = o.format
	}
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}

	profile := export.Profile(cfg.Output.Profile)
	if o.profile != "" {
		profile = export.Profile(o.profile)
	}
	if _, ok := export.Profiles[profile]; !ok {
		return fmt.Errorf("unknown profile %q", profile)
	}

	opts := export.Options{Prefixes: cfg.Namespaces}
	for _, iri := range o.frameRoots {
		opts.FrameRoots = append(opts.FrameRoots, rdf.NamedNode(iri))
	}
	exporter := export.NewRDFExporter(profile, opts)
	exporter.AddGraph(g)

	if o.path == "" {
		return exporter.Write(cmd.OutOrStdout(), format)
	}

	f, err := os.Create(o.path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	return writeAndClose(f, exporter, format)
}

// writeAndClose writes the export to w and closes it. A failed close is an
// error because the written content may be incomplete.
func writeAndClose(w io.WriteCloser, exporter *export.RDFExporter, format export.Format) (err error) {
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()
	return exporter.Write(w, format)
}
