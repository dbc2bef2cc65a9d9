// Package rdf provides the in-memory graph model: nodes, triples and an
// indexed, set-based Graph with merge and triple-pattern lookups.
//
// Nodes are small comparable values. Two nodes are equal exactly when == holds,
// which lets them key maps and lets a Graph deduplicate triples without any
// custom hashing:
//
//	g := rdf.NewGraph()
//	pkg := rdf.NamedNode("http://tempuri.org/package/MyPackage.1.0.0")
//	g.Assert(pkg, rdf.NamedNode("http://nuget.org/schema#id"), rdf.Literal("MyPackage"))
//
// Anonymous (blank) nodes carry the identity of the Graph that minted them, so
// textually identical labels produced by two independent graphs never compare
// equal. Use Graph.NewAnonymous to mint them.
package rdf

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Kind discriminates the three node variants.
type Kind uint8

const (
	// KindNamed is a node with a global identifier (an IRI).
	KindNamed Kind = iota + 1

	// KindAnonymous is a blank node scoped to the graph that produced it.
	KindAnonymous

	// KindLiteral is a node holding a primitive value.
	KindLiteral
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNamed:
		return "named"
	case KindAnonymous:
		return "anonymous"
	case KindLiteral:
		return "literal"
	default:
		return "invalid"
	}
}

// Node is a graph node. The zero value is not a valid node.
type Node struct {
	kind     Kind
	value    string
	datatype string
	lang     string
	origin   uuid.UUID
}

// NamedNode returns a node identified by an absolute IRI.
func NamedNode(iri string) Node {
	return Node{kind: KindNamed, value: iri}
}

// AnonymousNode returns a blank node with a local label minted by the graph
// identified by origin.
func AnonymousNode(localID string, origin uuid.UUID) Node {
	return Node{kind: KindAnonymous, value: localID, origin: origin}
}

// Literal returns a plain string literal.
func Literal(value string) Node {
	return Node{kind: KindLiteral, value: value}
}

// TypedLiteral returns a literal with a datatype IRI.
func TypedLiteral(value, datatype string) Node {
	return Node{kind: KindLiteral, value: value, datatype: datatype}
}

// LangLiteral returns a language-tagged literal. Tags compare case-insensitively
// and are stored lower-cased.
func LangLiteral(value, lang string) Node {
	return Node{kind: KindLiteral, value: value, lang: strings.ToLower(lang)}
}

// Kind returns the node variant.
func (n Node) Kind() Kind { return n.kind }

// Value returns the IRI, the local blank label, or the literal's lexical form.
func (n Node) Value() string { return n.value }

// Datatype returns the literal datatype IRI, if any.
func (n Node) Datatype() string { return n.datatype }

// Language returns the literal language tag, if any.
func (n Node) Language() string { return n.lang }

// Origin returns the minting graph of an anonymous node, uuid.Nil otherwise.
func (n Node) Origin() uuid.UUID { return n.origin }

func (n Node) IsNamed() bool     { return n.kind == KindNamed }
func (n Node) IsAnonymous() bool { return n.kind == KindAnonymous }
func (n Node) IsLiteral() bool   { return n.kind == KindLiteral }

// IsZero reports whether n is the zero Node.
func (n Node) IsZero() bool { return n.kind == 0 }

// LocalName returns the part of a named node's IRI after the last '#', or
// after the last '/' when there is no fragment. Other kinds return Value.
func (n Node) LocalName() string {
	if n.kind != KindNamed {
		return n.value
	}
	if i := strings.LastIndexByte(n.value, '#'); i >= 0 {
		return n.value[i+1:]
	}
	if i := strings.LastIndexByte(n.value, '/'); i >= 0 && i < len(n.value)-1 {
		return n.value[i+1:]
	}
	return n.value
}

// String renders the node in an N-Triples like form. Anonymous nodes are
// rendered by label only; the origin is not part of the textual form.
func (n Node) String() string {
	switch n.kind {
	case KindNamed:
		return "<" + n.value + ">"
	case KindAnonymous:
		return "_:" + n.value
	case KindLiteral:
		s := strconv.Quote(n.value)
		if n.lang != "" {
			return s + "@" + n.lang
		}
		if n.datatype != "" {
			return s + "^^<" + n.datatype + ">"
		}
		return s
	default:
		return fmt.Sprintf("invalid(%q)", n.value)
	}
}

// Compare orders nodes by kind, value, datatype, language and finally origin.
// It returns 0 exactly when a == b.
func Compare(a, b Node) int {
	if c := cmp.Compare(a.kind, b.kind); c != 0 {
		return c
	}
	if c := strings.Compare(a.value, b.value); c != 0 {
		return c
	}
	if c := strings.Compare(a.datatype, b.datatype); c != 0 {
		return c
	}
	if c := strings.Compare(a.lang, b.lang); c != 0 {
		return c
	}
	for i := range a.origin {
		if c := cmp.Compare(a.origin[i], b.origin[i]); c != 0 {
			return c
		}
	}
	return 0
}
