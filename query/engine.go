// Package query defines the boundary to declarative graph query engines.
//
// The core never interprets query text. An Engine receives a Dataset of named
// graphs plus a query string in whatever grammar it accepts, and returns a
// single result graph or an error. Engine errors are propagated unchanged.
//
// CELEngine, the engine shipped here, only selects: its result is a subset of
// the dataset's triples and it never constructs new ones. Engines that build
// new triples, such as a SPARQL CONSTRUCT evaluator, plug in through the
// Engine interface.
package query

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/c360studio/semgraph/rdf"
)

// ErrEvaluation classifies query parse and evaluation failures.
var ErrEvaluation = errors.New("query evaluation failed")

// EvaluationError wraps an engine failure with the query that caused it.
type EvaluationError struct {
	Query string
	Err   error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%s: %q: %v", ErrEvaluation, e.Query, e.Err)
}

func (e *EvaluationError) Unwrap() []error { return []error{ErrEvaluation, e.Err} }

// Dataset is a set of named graphs.
type Dataset map[string]*rdf.Graph

// Names returns the graph names in sorted order.
func (d Dataset) Names() []string {
	return slices.Sorted(maps.Keys(d))
}

// Engine evaluates a query over a dataset.
type Engine interface {
	Evaluate(ctx context.Context, ds Dataset, query string) (*rdf.Graph, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, ds Dataset, query string) (*rdf.Graph, error)

func (f EngineFunc) Evaluate(ctx context.Context, ds Dataset, query string) (*rdf.Graph, error) {
	return f(ctx, ds, query)
}

// Single wraps one graph as a dataset under name.
func Single(name string, g *rdf.Graph) Dataset {
	return Dataset{name: g}
}
