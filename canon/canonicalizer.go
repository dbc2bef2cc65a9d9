// Package canon replaces anonymous nodes with deterministic named nodes.
//
// A blank node only has identity inside the graph that produced it, so two
// independent serializations of the same package never merge cleanly. The
// canonicalizer walks outward from a root, records the predicate path to
// every anonymous node it reaches, and renames the node to
//
//	<base>/<root key>#<local name>/<local name>/...
//
// For root key "MyPackage.1.0.0" and base "http://tempuri.org/package", a
// dependency reached via dependencyGroups then dependencies becomes
// http://tempuri.org/package/MyPackage.1.0.0#dependencyGroups/dependencies.
//
// The scheme is defined for tree-shaped data. When a node is reachable by more
// than one path the first path discovered in traversal order wins and the
// others are reported as diagnostics. A path that loops back onto itself is a
// fatal StructuralCycle for that root.
package canon

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/c360studio/semgraph/rdf"
	"github.com/c360studio/semgraph/vocabulary/nuget"
)

// DefaultKeySeparator joins root key parts.
const DefaultKeySeparator = "."

// Canonicalizer derives canonical IRIs for anonymous nodes. It holds only
// configuration and is safe for concurrent use.
type Canonicalizer struct {
	base          string
	keyPredicates []rdf.Node
	separator     string
	indexed       bool
	logger        *slog.Logger
}

// Option configures a Canonicalizer.
type Option func(*Canonicalizer)

// WithRootKey sets the predicates whose values, in order, form the root key.
func WithRootKey(predicates ...string) Option {
	return func(c *Canonicalizer) {
		c.keyPredicates = c.keyPredicates[:0]
		for _, p := range predicates {
			c.keyPredicates = append(c.keyPredicates, rdf.NamedNode(p))
		}
	}
}

// WithKeySeparator sets the string joining root key parts.
func WithKeySeparator(sep string) Option {
	return func(c *Canonicalizer) { c.separator = sep }
}

// WithIndexedSiblings suffixes every path segment with the ordinal of the
// object among the anonymous objects its subject has for that predicate, e.g.
// dependencyGroups[1]/dependencies[0]. Members of the same collection then
// keep distinct IRIs instead of collapsing onto one.
func WithIndexedSiblings() Option {
	return func(c *Canonicalizer) { c.indexed = true }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Canonicalizer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a canonicalizer minting IRIs under baseAddress. The root key
// defaults to the package id and version.
func New(baseAddress string, opts ...Option) *Canonicalizer {
	c := &Canonicalizer{
		base:          strings.TrimRight(baseAddress, "/"),
		keyPredicates: []rdf.Node{rdf.NamedNode(nuget.PropID), rdf.NamedNode(nuget.PropVersion)},
		separator:     DefaultKeySeparator,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseAddress returns the configured base address without trailing slash.
func (c *Canonicalizer) BaseAddress() string { return c.base }

// RootKey computes the key of root from the first value of each key predicate.
func (c *Canonicalizer) RootKey(g *rdf.Graph, root rdf.Node) (string, error) {
	parts := make([]string, 0, len(c.keyPredicates))
	for _, p := range c.keyPredicates {
		values := g.TriplesWithSubjectPredicate(root, p)
		if len(values) == 0 || values[0].Object.Value() == "" {
			return "", &RootError{Err: ErrMissingRootAttribute, Root: root, Predicate: p.Value()}
		}
		parts = append(parts, values[0].Object.Value())
	}
	return strings.Join(parts, c.separator), nil
}

// IRI builds the canonical IRI for a path below the root identified by key.
// An empty path names the root itself.
func (c *Canonicalizer) IRI(key string, path []string) string {
	if len(path) == 0 {
		return c.base + "/" + key
	}
	return c.base + "/" + key + "#" + strings.Join(path, "/")
}

// Plan is the outcome of traversing one root: the anonymous-to-canonical
// mapping plus any diagnostics. A Plan is owned by the caller and is not
// shared between passes.
type Plan struct {
	Root    rdf.Node
	RootKey string

	mapping     map[rdf.Node]rdf.Node
	paths       map[rdf.Node]string
	order       []rdf.Node
	Diagnostics []Diagnostic
}

// Lookup returns the canonical node assigned to an anonymous node.
func (p *Plan) Lookup(n rdf.Node) (rdf.Node, bool) {
	named, ok := p.mapping[n]
	return named, ok
}

// Path returns the predicate path recorded for an anonymous node.
func (p *Plan) Path(n rdf.Node) (string, bool) {
	path, ok := p.paths[n]
	return path, ok
}

// Len returns the number of anonymous nodes mapped.
func (p *Plan) Len() int { return len(p.order) }

// Nodes returns the mapped anonymous nodes in discovery order.
func (p *Plan) Nodes() []rdf.Node { return slices.Clone(p.order) }

func (p *Plan) assign(anon rdf.Node, path string, named rdf.Node) {
	p.mapping[anon] = named
	p.paths[anon] = path
	p.order = append(p.order, anon)
}

// frame is one level of the explicit traversal stack.
type frame struct {
	node     rdf.Node
	path     []string
	triples  []rdf.Triple
	next     int
	ordinals map[rdf.Node]int
}

// Plan traverses g from root and assigns canonical IRIs to every anonymous
// node it reaches. It only reads g.
func (c *Canonicalizer) Plan(g *rdf.Graph, root rdf.Node) (*Plan, error) {
	if root.IsZero() || root.IsLiteral() {
		return nil, &RootError{Err: ErrInvalidRoot, Root: root}
	}

	key, err := c.RootKey(g, root)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Root:    root,
		RootKey: key,
		mapping: make(map[rdf.Node]rdf.Node),
		paths:   make(map[rdf.Node]string),
	}
	byIRI := make(map[string]rdf.Node)

	if root.IsAnonymous() {
		iri := c.IRI(key, nil)
		plan.assign(root, "", rdf.NamedNode(iri))
		byIRI[iri] = root
	}

	onPath := map[rdf.Node]bool{root: true}
	stack := []*frame{{node: root, triples: g.TriplesWithSubject(root)}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.triples) {
			delete(onPath, top.node)
			stack = stack[:len(stack)-1]
			continue
		}
		t := top.triples[top.next]
		top.next++

		if !t.Object.IsAnonymous() {
			continue
		}

		segment := t.Predicate.LocalName()
		if c.indexed {
			if top.ordinals == nil {
				top.ordinals = make(map[rdf.Node]int)
			}
			segment = fmt.Sprintf("%s[%d]", segment, top.ordinals[t.Predicate])
			top.ordinals[t.Predicate]++
		}
		path := append(slices.Clone(top.path), segment)
		joined := strings.Join(path, "/")

		if onPath[t.Object] {
			return nil, &RootError{Err: ErrStructuralCycle, Root: root, RootKey: key, Path: path, Node: t.Object}
		}

		if kept, seen := plan.mapping[t.Object]; seen {
			d := Diagnostic{Kind: KindAmbiguousAnonymousPath, RootKey: key, Node: t.Object, Path: joined, Canonical: kept.Value()}
			plan.Diagnostics = append(plan.Diagnostics, d)
			c.logger.Debug("Anonymous node reachable by more than one path",
				"root_key", key,
				"path", joined,
				"kept", kept.Value())
			continue
		}

		iri := c.IRI(key, path)
		if peer, clash := byIRI[iri]; clash {
			d := Diagnostic{Kind: KindPathCollision, RootKey: key, Node: t.Object, Path: joined, Canonical: iri}
			plan.Diagnostics = append(plan.Diagnostics, d)
			c.logger.Debug("Distinct anonymous nodes share a canonical IRI",
				"root_key", key,
				"iri", iri,
				"first", peer.String())
		} else {
			byIRI[iri] = t.Object
		}

		plan.assign(t.Object, joined, rdf.NamedNode(iri))
		onPath[t.Object] = true
		stack = append(stack, &frame{node: t.Object, path: path, triples: g.TriplesWithSubject(t.Object)})
	}

	return plan, nil
}

// Result is the output of a rewrite.
type Result struct {
	// Graph is the rewritten graph.
	Graph *rdf.Graph

	// Plans are the plans applied, in order.
	Plans []*Plan

	// Diagnostics collects plan diagnostics plus rewrite findings.
	Diagnostics []Diagnostic

	// Rewritten counts distinct anonymous nodes replaced by a named node.
	Rewritten int

	// Remaining counts distinct anonymous nodes no plan reached.
	Remaining int
}

// Rewrite copies every triple of g into a new graph, replacing anonymous nodes
// mapped by plans with their canonical named nodes. When plans disagree about
// a node, the earlier plan wins.
func (c *Canonicalizer) Rewrite(g *rdf.Graph, plans ...*Plan) *Result {
	res := &Result{Graph: rdf.NewGraph(), Plans: plans}

	mapping := make(map[rdf.Node]rdf.Node)
	for _, p := range plans {
		res.Diagnostics = append(res.Diagnostics, p.Diagnostics...)
		for _, anon := range p.order {
			named := p.mapping[anon]
			if kept, ok := mapping[anon]; ok {
				if kept != named {
					res.Diagnostics = append(res.Diagnostics, Diagnostic{
						Kind:      KindAmbiguousAnonymousPath,
						RootKey:   p.RootKey,
						Node:      anon,
						Path:      p.paths[anon],
						Canonical: kept.Value(),
					})
				}
				continue
			}
			mapping[anon] = named
		}
	}
	res.Rewritten = len(mapping)

	unreached := make(map[rdf.Node]struct{})
	substitute := func(n rdf.Node) rdf.Node {
		if !n.IsAnonymous() {
			return n
		}
		if named, ok := mapping[n]; ok {
			return named
		}
		if _, seen := unreached[n]; !seen {
			unreached[n] = struct{}{}
			res.Diagnostics = append(res.Diagnostics, Diagnostic{Kind: KindUnreachable, Node: n})
		}
		return n
	}

	for t := range g.AllTriples() {
		res.Graph.Assert(substitute(t.Subject), t.Predicate, substitute(t.Object))
	}
	res.Remaining = len(unreached)

	if res.Remaining > 0 {
		c.logger.Warn("Anonymous nodes left after canonicalization", "count", res.Remaining)
	}
	return res
}

// Canonicalize plans root and rewrites g with that single plan.
func (c *Canonicalizer) Canonicalize(g *rdf.Graph, root rdf.Node) (*Result, error) {
	plan, err := c.Plan(g, root)
	if err != nil {
		return nil, err
	}
	res := c.Rewrite(g, plan)
	c.logger.Debug("Canonicalized root",
		"root_key", plan.RootKey,
		"anonymous_nodes", plan.Len(),
		"triples", res.Graph.Len())
	return res, nil
}
