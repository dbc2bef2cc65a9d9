// Package export serializes graphs to Turtle, N-Triples and JSON-LD.
package export

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/c360studio/semgraph/rdf"
	"github.com/c360studio/semgraph/vocabulary/nuget"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatTurtle produces Turtle (.ttl) output.
	FormatTurtle Format = "turtle"

	// FormatNTriples produces N-Triples (.nt) output.
	FormatNTriples Format = "ntriples"

	// FormatJSONLD produces JSON-LD (.jsonld) output.
	FormatJSONLD Format = "jsonld"

	// FormatJSONLDFramed produces JSON-LD with each object embedded in its
	// subject, one tree per root.
	FormatJSONLDFramed Format = "jsonld-framed"
)

// Options carries writer settings. Prefixes are never read from global state.
type Options struct {
	// Prefixes maps a prefix label to a namespace IRI.
	Prefixes map[string]string

	// FrameRoots are the top-level nodes of framed JSON-LD. When empty,
	// every subject that is never an object is a root.
	FrameRoots []rdf.Node
}

// DefaultPrefixes returns the prefixes used for package graphs.
func DefaultPrefixes() map[string]string {
	return map[string]string{
		"rdf":   rdf.RDFNamespace,
		"xsd":   rdf.XSDNamespace,
		"nuget": nuget.Namespace,
	}
}

// RDFExporter exports graphs with a configurable profile.
type RDFExporter struct {
	profile    ProfileConfig
	prefixes   map[string]string
	frameRoots []rdf.Node
	graphs     []*rdf.Graph
}

// NewRDFExporter creates a new RDF exporter with the specified profile.
func NewRDFExporter(profile Profile, opts Options) *RDFExporter {
	prefixes := make(map[string]string, len(opts.Prefixes))
	maps.Copy(prefixes, opts.Prefixes)
	return &RDFExporter{
		profile:    GetProfileConfig(profile),
		prefixes:   prefixes,
		frameRoots: slices.Clone(opts.FrameRoots),
	}
}

// AddGraph adds a graph to be exported. Graphs are merged in the order added.
func (e *RDFExporter) AddGraph(g *rdf.Graph) {
	if g != nil {
		e.graphs = append(e.graphs, g)
	}
}

// Export serializes all graphs to the specified format.
func (e *RDFExporter) Export(format Format) (string, error) {
	var sb strings.Builder
	if err := e.Write(&sb, format); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Write serializes all graphs to w.
func (e *RDFExporter) Write(w io.Writer, format Format) error {
	triples := e.triples()
	labels := newLabeler()

	var out string
	switch format {
	case FormatTurtle:
		out = e.toTurtle(triples, labels)
	case FormatNTriples:
		out = e.toNTriples(triples, labels)
	case FormatJSONLD:
		s, err := e.toJSONLD(triples, labels)
		if err != nil {
			return err
		}
		out = s
	case FormatJSONLDFramed:
		s, err := e.toJSONLDFramed(triples, labels)
		if err != nil {
			return err
		}
		out = s
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}

	if _, err := io.WriteString(w, out); err != nil {
		return fmt.Errorf("write %s: %w", format, err)
	}
	return nil
}

// triples merges the added graphs and applies the profile filter.
func (e *RDFExporter) triples() []rdf.Triple {
	merged := rdf.Merge(e.graphs...)
	out := make([]rdf.Triple, 0, merged.Len())
	for t := range merged.AllTriples() {
		if slices.Contains(e.profile.OmitPredicates, t.Predicate.Value()) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// toTurtle serializes to Turtle format, grouping by subject.
func (e *RDFExporter) toTurtle(triples []rdf.Triple, labels *labeler) string {
	w := NewTurtleWriter(e.prefixes)
	w.WritePrefixes()

	for i, group := range groupBySubject(triples) {
		if i > 0 {
			w.WriteBlank()
		}
		w.WriteSubject(w.term(group.subject, labels))

		preds := group.predicates()
		for j, p := range preds {
			objects := make([]string, 0, len(group.objects[p]))
			for _, o := range group.objects[p] {
				objects = append(objects, w.term(o, labels))
			}
			verb := w.compact(p.Value())
			if p == rdf.Type {
				verb = "a"
			}
			w.WritePredicate(verb, strings.Join(objects, ", "), j == len(preds)-1)
		}
	}
	return w.String()
}

// toNTriples serializes to N-Triples format.
func (e *RDFExporter) toNTriples(triples []rdf.Triple, labels *labeler) string {
	w := NewNTriplesWriter()
	for _, t := range triples {
		w.WriteTriple(ntriplesTerm(t.Subject, labels), ntriplesTerm(t.Predicate, labels), ntriplesTerm(t.Object, labels))
	}
	return w.String()
}

// toJSONLD serializes to a flattened JSON-LD document with one node object
// per subject.
func (e *RDFExporter) toJSONLD(triples []rdf.Triple, labels *labeler) (string, error) {
	w := NewJSONLDWriter()
	w.SetContext(e.prefixes)

	for _, group := range groupBySubject(triples) {
		types, props := e.nodeObject(group, func(o rdf.Node) any {
			return jsonldValue(o, labels, e.prefixes)
		})
		w.AddNode(jsonldID(group.subject, labels), types, props)
	}
	return w.Marshal()
}

// nodeObject returns the compacted types and properties of one subject,
// converting each object with value.
func (e *RDFExporter) nodeObject(group *subjectGroup, value func(rdf.Node) any) ([]string, map[string]any) {
	var types []string
	props := make(map[string]any)
	for _, p := range group.predicates() {
		if p == rdf.Type {
			for _, o := range group.objects[p] {
				if o.IsNamed() {
					types = append(types, compactIRI(e.prefixes, o.Value()))
				}
			}
			continue
		}
		values := make([]any, 0, len(group.objects[p]))
		for _, o := range group.objects[p] {
			values = append(values, value(o))
		}
		props[compactIRI(e.prefixes, p.Value())] = values
	}
	return types, props
}

type subjectGroup struct {
	subject rdf.Node
	order   []rdf.Node
	objects map[rdf.Node][]rdf.Node
}

func (g *subjectGroup) predicates() []rdf.Node { return g.order }

// groupBySubject groups triples by subject, keeping first-appearance order of
// subjects and of predicates within a subject.
func groupBySubject(triples []rdf.Triple) []*subjectGroup {
	var groups []*subjectGroup
	index := make(map[rdf.Node]*subjectGroup)
	for _, t := range triples {
		g, ok := index[t.Subject]
		if !ok {
			g = &subjectGroup{subject: t.Subject, objects: make(map[rdf.Node][]rdf.Node)}
			index[t.Subject] = g
			groups = append(groups, g)
		}
		if _, seen := g.objects[t.Predicate]; !seen {
			g.order = append(g.order, t.Predicate)
		}
		g.objects[t.Predicate] = append(g.objects[t.Predicate], t.Object)
	}
	return groups
}

// labeler assigns output labels to anonymous nodes. Nodes minted by different
// graphs may share a local label, so a clash gets a numeric suffix.
type labeler struct {
	assigned map[rdf.Node]string
	used     map[string]bool
}

func newLabeler() *labeler {
	return &labeler{assigned: make(map[rdf.Node]string), used: make(map[string]bool)}
}

func (l *labeler) label(n rdf.Node) string {
	if s, ok := l.assigned[n]; ok {
		return s
	}
	s := sanitizeLabel(n.Value())
	for i := 1; l.used[s]; i++ {
		s = sanitizeLabel(n.Value()) + "_" + strconv.Itoa(i)
	}
	l.assigned[n] = s
	l.used[s] = true
	return s
}

func sanitizeLabel(s string) string {
	if s == "" {
		return "b"
	}
	var sb strings.Builder
	for _, r := range s {
		if isLocalRune(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

func ntriplesTerm(n rdf.Node, labels *labeler) string {
	switch {
	case n.IsNamed():
		return "<" + n.Value() + ">"
	case n.IsAnonymous():
		return "_:" + labels.label(n)
	default:
		return literal(n, func(dt string) string { return "<" + dt + ">" })
	}
}

func literal(n rdf.Node, datatype func(string) string) string {
	s := "\"" + escapeString(n.Value()) + "\""
	if n.Language() != "" {
		return s + "@" + n.Language()
	}
	if n.Datatype() != "" && n.Datatype() != rdf.XSDString {
		return s + "^^" + datatype(n.Datatype())
	}
	return s
}

func jsonldID(n rdf.Node, labels *labeler) string {
	if n.IsAnonymous() {
		return "_:" + labels.label(n)
	}
	return n.Value()
}

func jsonldValue(n rdf.Node, labels *labeler, prefixes map[string]string) map[string]string {
	switch {
	case n.IsNamed(), n.IsAnonymous():
		return map[string]string{"@id": jsonldID(n, labels)}
	case n.Language() != "":
		return map[string]string{"@value": n.Value(), "@language": n.Language()}
	case n.Datatype() != "" && n.Datatype() != rdf.XSDString:
		return map[string]string{"@value": n.Value(), "@type": compactIRI(prefixes, n.Datatype())}
	default:
		return map[string]string{"@value": n.Value()}
	}
}

// compactIRI rewrites iri as prefix:local using the longest matching
// namespace. Any local part is accepted, which is valid for JSON-LD compact
// IRIs but not for Turtle prefixed names.
func compactIRI(prefixes map[string]string, iri string) string {
	prefix, ns := longestNamespace(prefixes, iri)
	if prefix == "" {
		return iri
	}
	return prefix + ":" + iri[len(ns):]
}

func longestNamespace(prefixes map[string]string, iri string) (string, string) {
	var bestPrefix, bestNS string
	for _, p := range slices.Sorted(maps.Keys(prefixes)) {
		ns := prefixes[p]
		if ns != "" && strings.HasPrefix(iri, ns) && len(ns) > len(bestNS) {
			bestPrefix, bestNS = p, ns
		}
	}
	return bestPrefix, bestNS
}

// escapeString escapes special characters in strings for RDF serialization.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}
