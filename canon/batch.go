package canon

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/c360studio/semgraph/rdf"
	"golang.org/x/sync/errgroup"
)

// RootFailure records a root whose canonicalization failed.
type RootFailure struct {
	Root rdf.Node
	Err  error
}

// BatchResult is the output of canonicalizing many roots of one graph.
type BatchResult struct {
	*Result

	// Failures lists roots that could not be planned, in root order. Their
	// anonymous nodes are left untouched in the output.
	Failures []RootFailure
}

// Batch canonicalizes many independent roots of one graph. Roots are planned
// concurrently, each on its own traversal state, and a single rewrite pass
// assembles the output so the output graph has exactly one writer.
type Batch struct {
	canon   *Canonicalizer
	workers int
	metrics *Metrics
	logger  *slog.Logger
}

// NewBatch creates a batch runner. workers <= 0 uses GOMAXPROCS.
func NewBatch(c *Canonicalizer, workers int, metrics *Metrics, logger *slog.Logger) *Batch {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Batch{canon: c, workers: workers, metrics: metrics, logger: logger}
}

// Run plans every root and rewrites g once. A failing root never affects the
// plans of other roots. The only error returned is context cancellation.
func (b *Batch) Run(ctx context.Context, g *rdf.Graph, roots []rdf.Node) (*BatchResult, error) {
	plans := make([]*Plan, len(roots))
	errs := make([]error, len(roots))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.workers)
	for i, root := range roots {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			plans[i], errs[i] = b.canon.Plan(g, root)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := &BatchResult{}
	planned := make([]*Plan, 0, len(roots))
	for i, root := range roots {
		b.metrics.observeRoot(errs[i])
		if errs[i] != nil {
			out.Failures = append(out.Failures, RootFailure{Root: root, Err: errs[i]})
			b.logger.Warn("Root canonicalization failed",
				"root", root.String(),
				"error", errs[i])
			continue
		}
		planned = append(planned, plans[i])
	}

	out.Result = b.canon.Rewrite(g, planned...)
	b.metrics.observeResult(out.Result)

	b.logger.Info("Canonicalized batch",
		"roots", len(roots),
		"failed", len(out.Failures),
		"triples", out.Graph.Len(),
		"remaining_anonymous", out.Remaining)
	return out, nil
}
