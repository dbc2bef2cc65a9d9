package rdf

import (
	"fmt"
	"iter"

	"github.com/google/uuid"
)

// Triple is a single (subject, predicate, object) statement. Triples are
// comparable values; two triples are the same statement when == holds.
type Triple struct {
	Subject   Node
	Predicate Node
	Object    Node
}

// String renders the triple as an N-Triples line without the trailing newline.
func (t Triple) String() string {
	return fmt.Sprintf("%s %s %s .", t.Subject, t.Predicate, t.Object)
}

type subjectPredicate struct {
	subject   Node
	predicate Node
}

type predicateObject struct {
	predicate Node
	object    Node
}

// Graph is a set of triples with lookup indices. Triples are kept in
// insertion order so every lookup is deterministic.
//
// A Graph is not safe for concurrent mutation. Concurrent producers should
// each build their own Graph and Merge the results.
type Graph struct {
	id      uuid.UUID
	triples []Triple
	present map[Triple]struct{}

	bySubject          map[Node][]int
	byPredicateObject  map[predicateObject][]int
	bySubjectPredicate map[subjectPredicate][]int
}

// NewGraph returns an empty graph with a fresh origin identity.
func NewGraph() *Graph {
	return &Graph{
		id:                 uuid.New(),
		present:            make(map[Triple]struct{}),
		bySubject:          make(map[Node][]int),
		byPredicateObject:  make(map[predicateObject][]int),
		bySubjectPredicate: make(map[subjectPredicate][]int),
	}
}

// ID returns the graph's origin identity, the discriminator stamped on every
// anonymous node it mints.
func (g *Graph) ID() uuid.UUID { return g.id }

// NewAnonymous mints a blank node scoped to this graph.
func (g *Graph) NewAnonymous(localID string) Node {
	return AnonymousNode(localID, g.id)
}

// Len returns the number of distinct triples.
func (g *Graph) Len() int { return len(g.triples) }

// Assert adds (s, p, o) unless it is already present and reports whether the
// triple was newly added.
func (g *Graph) Assert(s, p, o Node) bool {
	return g.AssertTriple(Triple{Subject: s, Predicate: p, Object: o})
}

// AssertTriple adds t unless it is already present and reports whether it was
// newly added.
func (g *Graph) AssertTriple(t Triple) bool {
	if _, ok := g.present[t]; ok {
		return false
	}
	idx := len(g.triples)
	g.triples = append(g.triples, t)
	g.present[t] = struct{}{}

	g.bySubject[t.Subject] = append(g.bySubject[t.Subject], idx)
	po := predicateObject{predicate: t.Predicate, object: t.Object}
	g.byPredicateObject[po] = append(g.byPredicateObject[po], idx)
	sp := subjectPredicate{subject: t.Subject, predicate: t.Predicate}
	g.bySubjectPredicate[sp] = append(g.bySubjectPredicate[sp], idx)
	return true
}

// Contains reports whether t is in the graph.
func (g *Graph) Contains(t Triple) bool {
	_, ok := g.present[t]
	return ok
}

// Merge adds every triple of other, in other's insertion order, and returns
// the number of triples that were new. Merging is a set union: repeating a
// merge is a no-op and merge order does not change the resulting set.
//
// Anonymous nodes keep the origin of the graph that minted them, so an entity
// that two sources each described with their own blank node stays two
// entities after the merge. Canonicalize before merging to collapse them.
func (g *Graph) Merge(other *Graph) int {
	if other == nil || other == g {
		return 0
	}
	added := 0
	for _, t := range other.triples {
		if g.AssertTriple(t) {
			added++
		}
	}
	return added
}

// TriplesWithSubject returns the triples whose subject is s.
func (g *Graph) TriplesWithSubject(s Node) []Triple {
	return g.collect(g.bySubject[s])
}

// TriplesWithPredicateObject returns the triples matching (?, p, o).
func (g *Graph) TriplesWithPredicateObject(p, o Node) []Triple {
	return g.collect(g.byPredicateObject[predicateObject{predicate: p, object: o}])
}

// TriplesWithSubjectPredicate returns the triples matching (s, p, ?).
func (g *Graph) TriplesWithSubjectPredicate(s, p Node) []Triple {
	return g.collect(g.bySubjectPredicate[subjectPredicate{subject: s, predicate: p}])
}

// AllTriples returns a lazy sequence over every triple in insertion order.
// The sequence can be ranged over any number of times.
func (g *Graph) AllTriples() iter.Seq[Triple] {
	return func(yield func(Triple) bool) {
		for _, t := range g.triples {
			if !yield(t) {
				return
			}
		}
	}
}

// Subjects returns the distinct subjects in order of first appearance.
func (g *Graph) Subjects() []Node {
	seen := make(map[Node]struct{}, len(g.bySubject))
	subjects := make([]Node, 0, len(g.bySubject))
	for _, t := range g.triples {
		if _, ok := seen[t.Subject]; ok {
			continue
		}
		seen[t.Subject] = struct{}{}
		subjects = append(subjects, t.Subject)
	}
	return subjects
}

// HasAnonymous reports whether any triple mentions an anonymous node.
func (g *Graph) HasAnonymous() bool {
	for _, t := range g.triples {
		if t.Subject.IsAnonymous() || t.Object.IsAnonymous() {
			return true
		}
	}
	return false
}

// Equal reports whether g and other hold the same set of triples, ignoring
// insertion order.
func (g *Graph) Equal(other *Graph) bool {
	if other == nil || g.Len() != other.Len() {
		return false
	}
	for _, t := range g.triples {
		if !other.Contains(t) {
			return false
		}
	}
	return true
}

// Clone returns a copy holding the same triples. The copy gets its own
// identity; anonymous nodes copied from g keep g's origin.
func (g *Graph) Clone() *Graph {
	c := NewGraph()
	c.Merge(g)
	return c
}

func (g *Graph) collect(indices []int) []Triple {
	out := make([]Triple, len(indices))
	for i, idx := range indices {
		out[i] = g.triples[idx]
	}
	return out
}

// Merge returns a new graph holding the union of graphs.
func Merge(graphs ...*Graph) *Graph {
	out := NewGraph()
	for _, g := range graphs {
		out.Merge(g)
	}
	return out
}
