package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/c360studio/semgraph/rdf"
	"github.com/google/cel-go/cel"
)

// Variables available to CEL queries.
const (
	VarGraph          = "graph"
	VarSubject        = "subject"
	VarSubjectKind    = "subject_kind"
	VarPredicate      = "predicate"
	VarObject         = "object"
	VarObjectKind     = "object_kind"
	VarObjectDatatype = "object_datatype"
	VarObjectLang     = "object_lang"
)

// CELEngine treats the query as a boolean CEL expression evaluated once per
// triple. The result graph holds every triple, across all graphs of the
// dataset, for which the expression is true:
//
//	predicate == "http://www.w3.org/1999/02/22-rdf-syntax-ns#type" &&
//	    object.endsWith("#Package")
//
// Graphs are visited in name order and triples in insertion order.
type CELEngine struct {
	env    *cel.Env
	logger *slog.Logger
}

// NewCELEngine creates the CEL environment.
func NewCELEngine(logger *slog.Logger) (*CELEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	env, err := cel.NewEnv(
		cel.Variable(VarGraph, cel.StringType),
		cel.Variable(VarSubject, cel.StringType),
		cel.Variable(VarSubjectKind, cel.StringType),
		cel.Variable(VarPredicate, cel.StringType),
		cel.Variable(VarObject, cel.StringType),
		cel.Variable(VarObjectKind, cel.StringType),
		cel.Variable(VarObjectDatatype, cel.StringType),
		cel.Variable(VarObjectLang, cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}
	return &CELEngine{env: env, logger: logger}, nil
}

// Evaluate implements Engine.
func (e *CELEngine) Evaluate(ctx context.Context, ds Dataset, query string) (*rdf.Graph, error) {
	ast, iss := e.env.Compile(query)
	if iss != nil && iss.Err() != nil {
		return nil, &EvaluationError{Query: query, Err: iss.Err()}
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, &EvaluationError{Query: query, Err: fmt.Errorf("expression yields %s, want bool", ast.OutputType())}
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, &EvaluationError{Query: query, Err: err}
	}

	result := rdf.NewGraph()
	for _, name := range ds.Names() {
		g := ds[name]
		if g == nil {
			continue
		}
		for t := range g.AllTriples() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out, _, err := prg.Eval(bindings(name, t))
			if err != nil {
				return nil, &EvaluationError{Query: query, Err: err}
			}
			match, ok := out.Value().(bool)
			if !ok {
				return nil, &EvaluationError{Query: query, Err: fmt.Errorf("non-bool result %v", out)}
			}
			if match {
				result.AssertTriple(t)
			}
		}
	}

	e.logger.Debug("Evaluated CEL query",
		"graphs", len(ds),
		"matched", result.Len())
	return result, nil
}

func bindings(graph string, t rdf.Triple) map[string]any {
	return map[string]any{
		VarGraph:          graph,
		VarSubject:        t.Subject.Value(),
		VarSubjectKind:    t.Subject.Kind().String(),
		VarPredicate:      t.Predicate.Value(),
		VarObject:         t.Object.Value(),
		VarObjectKind:     t.Object.Kind().String(),
		VarObjectDatatype: t.Object.Datatype(),
		VarObjectLang:     t.Object.Language(),
	}
}
