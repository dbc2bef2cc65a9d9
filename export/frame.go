package export

import (
	"github.com/c360studio/semgraph/rdf"
)

// framer embeds node objects under the subjects that reference them.
type framer struct {
	exporter *RDFExporter
	labels   *labeler
	groups   map[rdf.Node]*subjectGroup

	// onPath holds the nodes between the current tree root and the node
	// being embedded. embedded holds every node already written out.
	onPath   map[rdf.Node]bool
	embedded map[rdf.Node]bool
}

// toJSONLDFramed serializes to a JSON-LD document whose @graph holds one
// tree per root. A subject is embedded at its first occurrence; later
// occurrences and references back to an ancestor become {"@id": ...}.
// Subjects no root reaches are written as additional top-level trees, so
// every triple appears exactly once.
func (e *RDFExporter) toJSONLDFramed(triples []rdf.Triple, labels *labeler) (string, error) {
	groups := groupBySubject(triples)
	f := &framer{
		exporter: e,
		labels:   labels,
		groups:   make(map[rdf.Node]*subjectGroup, len(groups)),
		onPath:   make(map[rdf.Node]bool),
		embedded: make(map[rdf.Node]bool),
	}
	for _, g := range groups {
		f.groups[g.subject] = g
	}

	w := NewJSONLDWriter()
	w.SetContext(e.prefixes)

	emit := func(root rdf.Node) {
		if f.embedded[root] || f.groups[root] == nil {
			return
		}
		types, props := f.embed(root)
		w.AddNode(jsonldID(root, labels), types, props)
	}

	for _, root := range e.roots(triples, groups) {
		emit(root)
	}
	for _, g := range groups {
		emit(g.subject)
	}
	return w.Marshal()
}

// roots returns the configured frame roots, or every subject that never
// appears as an object, in first-appearance order.
func (e *RDFExporter) roots(triples []rdf.Triple, groups []*subjectGroup) []rdf.Node {
	if len(e.frameRoots) > 0 {
		return e.frameRoots
	}

	referenced := make(map[rdf.Node]bool, len(triples))
	for _, t := range triples {
		if !t.Object.IsLiteral() {
			referenced[t.Object] = true
		}
	}

	var roots []rdf.Node
	for _, g := range groups {
		if !referenced[g.subject] {
			roots = append(roots, g.subject)
		}
	}
	return roots
}

func (f *framer) embed(s rdf.Node) ([]string, map[string]any) {
	f.embedded[s] = true
	f.onPath[s] = true
	defer delete(f.onPath, s)

	return f.exporter.nodeObject(f.groups[s], f.value)
}

func (f *framer) value(o rdf.Node) any {
	if o.IsLiteral() || f.onPath[o] || f.embedded[o] || f.groups[o] == nil {
		return jsonldValue(o, f.labels, f.exporter.prefixes)
	}

	types, props := f.embed(o)
	obj := make(map[string]any, len(props)+2)
	for k, v := range props {
		obj[k] = v
	}
	obj["@id"] = jsonldID(o, f.labels)
	if len(types) > 0 {
		obj["@type"] = types
	}
	return obj
}
