// Package pipeline runs record files through flattening, type mapping,
// canonicalization and merge.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/c360studio/semgraph/canon"
	"github.com/c360studio/semgraph/config"
	"github.com/c360studio/semgraph/flatten"
	"github.com/c360studio/semgraph/rdf"
	"github.com/c360studio/semgraph/typemap"
)

// Options configures a Pipeline.
type Options struct {
	Flatten      flatten.Options
	TypeMappings []typemap.Mapping

	// RootClass selects the typed subjects used as canonicalization roots.
	RootClass string

	BaseAddress  string
	CanonOptions []canon.Option

	// Workers bounds concurrent files and concurrent roots per file.
	Workers int

	Metrics *canon.Metrics
	Logger  *slog.Logger
}

// Pipeline turns record documents into canonical graphs. It is safe for
// concurrent use.
type Pipeline struct {
	flattener *flatten.Flattener
	mapper    *typemap.Mapper
	batch     *canon.Batch
	rootClass string
	workers   int
	logger    *slog.Logger
}

// New creates a pipeline.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	flattener := flatten.New(opts.Flatten, logger)
	canonOpts := append([]canon.Option{canon.WithLogger(logger)}, opts.CanonOptions...)
	c := canon.New(opts.BaseAddress, canonOpts...)

	return &Pipeline{
		flattener: flattener,
		mapper:    typemap.NewMapper(flattener.MarkerPredicate(), opts.TypeMappings, logger),
		batch:     canon.NewBatch(c, workers, opts.Metrics, logger),
		rootClass: opts.RootClass,
		workers:   workers,
		logger:    logger,
	}
}

// FromConfig builds pipeline options from configuration.
func FromConfig(cfg *config.Config, metrics *canon.Metrics, logger *slog.Logger) Options {
	canonOpts := []canon.Option{
		canon.WithRootKey(cfg.Canon.KeyPredicates...),
		canon.WithKeySeparator(cfg.Canon.KeySeparator),
	}
	if cfg.Canon.Indexed() {
		canonOpts = append(canonOpts, canon.WithIndexedSiblings())
	}

	return Options{
		Flatten: flatten.Options{
			Vocab:          cfg.Flatten.Vocab,
			TypeProperty:   cfg.Flatten.TypeProperty,
			ValuesProperty: cfg.Flatten.ValuesProperty,
			IDProperty:     cfg.Flatten.IDProperty,
			LowerCamel:     !cfg.Flatten.PreserveCase,
			IRIProperties:  cfg.Flatten.IRIProperties,
		},
		TypeMappings: cfg.TypeMappings,
		RootClass:    cfg.Canon.RootClass,
		BaseAddress:  cfg.Canon.BaseAddress,
		CanonOptions: canonOpts,
		Workers:      cfg.Canon.Workers,
		Metrics:      metrics,
		Logger:       logger,
	}
}

// Output is the result of processing one document.
type Output struct {
	// Source names the document, usually its path.
	Source string

	// Roots are the typed root subjects found in the flattened graph.
	Roots []rdf.Node

	*canon.BatchResult
}

// ProcessReader flattens one JSON document from r and canonicalizes every
// root it contains.
func (p *Pipeline) ProcessReader(ctx context.Context, source string, r io.Reader) (*Output, error) {
	g, err := p.flattener.Flatten(r)
	if err != nil {
		return nil, fmt.Errorf("flatten %s: %w", source, err)
	}

	typed := p.mapper.Apply(g)
	roots := typed.Subjects(p.rootClass)
	if len(roots) == 0 {
		p.logger.Warn("No roots found", "source", source, "root_class", p.rootClass)
	}

	res, err := p.batch.Run(ctx, g, roots)
	if err != nil {
		return nil, err
	}

	return &Output{Source: source, Roots: roots, BatchResult: res}, nil
}

// ProcessFile processes one file.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*Output, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return p.ProcessReader(ctx, path, f)
}

// FileFailure records a file that could not be processed.
type FileFailure struct {
	Path string
	Err  error
}

// Report is the result of processing many files.
type Report struct {
	// Graph is the merge of every successful output, in file order.
	Graph *rdf.Graph

	// Outputs holds the successful outputs in file order.
	Outputs []*Output

	// Failures lists files that could not be processed.
	Failures []FileFailure
}

// RootFailures counts failed roots across all outputs.
func (r *Report) RootFailures() int {
	n := 0
	for _, out := range r.Outputs {
		n += len(out.Failures)
	}
	return n
}

// Diagnostics returns the diagnostics of every output.
func (r *Report) Diagnostics() []canon.Diagnostic {
	var all []canon.Diagnostic
	for _, out := range r.Outputs {
		all = append(all, out.Diagnostics...)
	}
	return all
}

// ProcessFiles processes files concurrently and merges the outputs. A file
// that fails is reported and skipped; only context cancellation aborts.
func (p *Pipeline) ProcessFiles(ctx context.Context, paths []string) (*Report, error) {
	outputs := make([]*Output, len(paths))
	errs := make([]error, len(paths))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.workers)
	for i, path := range paths {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			outputs[i], errs[i] = p.ProcessFile(egCtx, path)
			if errs[i] != nil && (errors.Is(errs[i], context.Canceled) || errors.Is(errs[i], context.DeadlineExceeded)) {
				return errs[i]
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Graph: rdf.NewGraph()}
	for i, path := range paths {
		if errs[i] != nil {
			report.Failures = append(report.Failures, FileFailure{Path: path, Err: errs[i]})
			p.logger.Warn("File processing failed", "path", path, "error", errs[i])
			continue
		}
		report.Outputs = append(report.Outputs, outputs[i])
		report.Graph.Merge(outputs[i].Graph)
	}

	p.logger.Info("Processed files",
		"files", len(paths),
		"failed", len(report.Failures),
		"triples", report.Graph.Len())
	return report, nil
}

// ProcessGlobs resolves patterns and processes the matching files.
func (p *Pipeline) ProcessGlobs(ctx context.Context, patterns []string) (*Report, error) {
	paths, err := ResolveFiles(patterns)
	if err != nil {
		return nil, err
	}
	return p.ProcessFiles(ctx, paths)
}
