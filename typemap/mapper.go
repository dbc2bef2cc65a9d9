// Package typemap bridges serializer type markers into graph-native types.
//
// An upstream flattener tags every record with the runtime type it came from,
// e.g. (_:b0, nuget:$type, "Transformation.Package, Transformation"). The
// mapper asserts the matching rdf:type triple on the same graph and hands back
// the typed subjects, which are the candidate roots for canonicalization.
package typemap

import (
	"log/slog"

	"github.com/c360studio/semgraph/rdf"
)

// MarkByExternalType asserts (s, canonicalPredicate, canonicalValue) for every
// triple matching (s, markerPredicate, externalValue) and returns every
// subject for which the canonical triple now holds, in insertion order.
// Calling it again on the same graph asserts nothing new.
func MarkByExternalType(g *rdf.Graph, markerPredicate, externalValue, canonicalPredicate, canonicalValue rdf.Node) []rdf.Node {
	for _, t := range g.TriplesWithPredicateObject(markerPredicate, externalValue) {
		g.Assert(t.Subject, canonicalPredicate, canonicalValue)
	}

	typed := g.TriplesWithPredicateObject(canonicalPredicate, canonicalValue)
	subjects := make([]rdf.Node, len(typed))
	for i, t := range typed {
		subjects[i] = t.Subject
	}
	return subjects
}

// Mapping pairs a serializer type name with a canonical class IRI.
type Mapping struct {
	External  string `yaml:"external"`
	Canonical string `yaml:"canonical"`
}

// Mapper applies a fixed set of mappings using one marker predicate and one
// canonical type predicate.
type Mapper struct {
	marker    rdf.Node
	predicate rdf.Node
	mappings  []Mapping
	logger    *slog.Logger
}

// NewMapper creates a mapper that reads markerPredicate literals and asserts
// rdf:type.
func NewMapper(markerPredicate string, mappings []Mapping, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{
		marker:    rdf.NamedNode(markerPredicate),
		predicate: rdf.Type,
		mappings:  mappings,
		logger:    logger,
	}
}

// Result holds the subjects typed by each mapping.
type Result struct {
	// ByClass lists the typed subjects per canonical class IRI.
	ByClass map[string][]rdf.Node

	// Order lists canonical class IRIs in mapping order.
	Order []string
}

// Subjects returns the typed subjects of class.
func (r *Result) Subjects(class string) []rdf.Node {
	return r.ByClass[class]
}

// Apply runs every mapping against g.
func (m *Mapper) Apply(g *rdf.Graph) *Result {
	res := &Result{ByClass: make(map[string][]rdf.Node, len(m.mappings))}
	for _, mp := range m.mappings {
		subjects := MarkByExternalType(g, m.marker, rdf.Literal(mp.External), m.predicate, rdf.NamedNode(mp.Canonical))
		if _, seen := res.ByClass[mp.Canonical]; !seen {
			res.Order = append(res.Order, mp.Canonical)
		}
		res.ByClass[mp.Canonical] = subjects
		m.logger.Debug("Mapped serialization type",
			"external", mp.External,
			"canonical", mp.Canonical,
			"subjects", len(subjects))
	}
	return res
}
