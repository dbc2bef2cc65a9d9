package export

import (
	"encoding/json"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/c360studio/semgraph/rdf"
)

// FormatInfo provides metadata about an export format.
type FormatInfo struct {
	// Name is the format identifier.
	Name Format

	// MIMEType is the standard MIME type.
	MIMEType string

	// Extension is the file extension (with dot).
	Extension string

	// Description describes the format.
	Description string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatTurtle: {
		Name:        FormatTurtle,
		MIMEType:    "text/turtle",
		Extension:   ".ttl",
		Description: "Turtle - Terse RDF Triple Language",
	},
	FormatNTriples: {
		Name:        FormatNTriples,
		MIMEType:    "application/n-triples",
		Extension:   ".nt",
		Description: "N-Triples - Line-based RDF format",
	},
	FormatJSONLD: {
		Name:        FormatJSONLD,
		MIMEType:    "application/ld+json",
		Extension:   ".jsonld",
		Description: "JSON-LD - JSON for Linked Data",
	},
	FormatJSONLDFramed: {
		Name:        FormatJSONLDFramed,
		MIMEType:    "application/ld+json",
		Extension:   ".jsonld",
		Description: "Framed JSON-LD - objects embedded under their subjects",
	},
}

// GetFormatInfo returns metadata for a format.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// ParseFormat resolves a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := FormatRegistry[Format(s)]; ok {
		return Format(s), nil
	}
	switch s {
	case "ttl":
		return FormatTurtle, nil
	case "nt":
		return FormatNTriples, nil
	case "json-ld":
		return FormatJSONLD, nil
	case "framed":
		return FormatJSONLDFramed, nil
	}
	ext := filepath.Ext(s)
	if ext == "" {
		ext = "." + s
	}
	for _, f := range slices.Sorted(maps.Keys(FormatRegistry)) {
		if FormatRegistry[f].Extension == ext {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// TurtleWriter writes RDF in Turtle format.
type TurtleWriter struct {
	prefixes map[string]string
	sb       strings.Builder
}

// NewTurtleWriter creates a Turtle writer using the given prefixes.
func NewTurtleWriter(prefixes map[string]string) *TurtleWriter {
	w := &TurtleWriter{prefixes: make(map[string]string, len(prefixes))}
	maps.Copy(w.prefixes, prefixes)
	return w
}

// SetPrefix sets a namespace prefix.
func (w *TurtleWriter) SetPrefix(prefix, iri string) {
	w.prefixes[prefix] = iri
}

// WritePrefixes writes prefix declarations.
func (w *TurtleWriter) WritePrefixes() {
	if len(w.prefixes) == 0 {
		return
	}
	for _, prefix := range slices.Sorted(maps.Keys(w.prefixes)) {
		w.sb.WriteString(fmt.Sprintf("@prefix %s: <%s> .\n", prefix, w.prefixes[prefix]))
	}
	w.sb.WriteString("\n")
}

// WriteSubject starts a new subject block.
func (w *TurtleWriter) WriteSubject(term string) {
	w.sb.WriteString(term + "\n")
}

// WritePredicate writes a predicate with its rendered objects.
func (w *TurtleWriter) WritePredicate(verb, objects string, last bool) {
	terminator := " ;"
	if last {
		terminator = " ."
	}
	w.sb.WriteString(fmt.Sprintf("    %s %s%s\n", verb, objects, terminator))
}

// WriteBlank writes a blank line for readability.
func (w *TurtleWriter) WriteBlank() {
	w.sb.WriteString("\n")
}

// String returns the accumulated Turtle output.
func (w *TurtleWriter) String() string {
	return w.sb.String()
}

func (w *TurtleWriter) term(n rdf.Node, labels *labeler) string {
	switch {
	case n.IsNamed():
		return w.compact(n.Value())
	case n.IsAnonymous():
		return "_:" + labels.label(n)
	default:
		return literal(n, w.compact)
	}
}

// compact returns a prefixed name when the local part is a plain Turtle local
// name, otherwise the full IRI in angle brackets.
func (w *TurtleWriter) compact(iri string) string {
	prefix, ns := longestNamespace(w.prefixes, iri)
	if prefix != "" && isLocalName(iri[len(ns):]) {
		return prefix + ":" + iri[len(ns):]
	}
	return "<" + iri + ">"
}

func isLocalName(s string) bool {
	if strings.HasSuffix(s, ".") || strings.HasPrefix(s, "-") || strings.HasPrefix(s, ".") {
		return false
	}
	for _, r := range s {
		if !isLocalRune(r) && r != '.' {
			return false
		}
	}
	return true
}

func isLocalRune(r rune) bool {
	return r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// NTriplesWriter writes RDF in N-Triples format.
type NTriplesWriter struct {
	sb strings.Builder
}

// NewNTriplesWriter creates a new N-Triples writer.
func NewNTriplesWriter() *NTriplesWriter {
	return &NTriplesWriter{}
}

// WriteTriple writes a single triple from rendered terms.
func (w *NTriplesWriter) WriteTriple(subject, predicate, object string) {
	w.sb.WriteString(fmt.Sprintf("%s %s %s .\n", subject, predicate, object))
}

// String returns the accumulated N-Triples output.
func (w *NTriplesWriter) String() string {
	return w.sb.String()
}

// JSONLDDocument represents a JSON-LD document structure.
type JSONLDDocument struct {
	Context map[string]any `json:"@context,omitempty"`
	Graph   []JSONLDNode   `json:"@graph"`
}

// JSONLDNode represents a node in a JSON-LD graph.
type JSONLDNode struct {
	ID         string         `json:"@id"`
	Type       []string       `json:"@type,omitempty"`
	Properties map[string]any `json:"-"`
}

// MarshalJSON implements custom JSON marshaling for JSONLDNode.
func (n JSONLDNode) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(n.Properties)+2)
	for k, v := range n.Properties {
		m[k] = v
	}
	m["@id"] = n.ID
	if len(n.Type) > 0 {
		m["@type"] = n.Type
	}
	return json.Marshal(m)
}

// JSONLDWriter writes RDF in JSON-LD format.
type JSONLDWriter struct {
	doc JSONLDDocument
}

// NewJSONLDWriter creates a new JSON-LD writer.
func NewJSONLDWriter() *JSONLDWriter {
	return &JSONLDWriter{
		doc: JSONLDDocument{
			Context: make(map[string]any),
			Graph:   make([]JSONLDNode, 0),
		},
	}
}

// SetContext sets the @context with prefixes.
func (w *JSONLDWriter) SetContext(prefixes map[string]string) {
	for k, v := range prefixes {
		w.doc.Context[k] = v
	}
}

// AddNode adds a node to the graph.
func (w *JSONLDWriter) AddNode(id string, types []string, properties map[string]any) {
	w.doc.Graph = append(w.doc.Graph, JSONLDNode{
		ID:         id,
		Type:       types,
		Properties: properties,
	})
}

// Document returns the document built so far.
func (w *JSONLDWriter) Document() *JSONLDDocument {
	return &w.doc
}

// Marshal returns the indented JSON-LD output.
func (w *JSONLDWriter) Marshal() (string, error) {
	data, err := json.MarshalIndent(w.doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal json-ld: %w", err)
	}
	return string(data) + "\n", nil
}
