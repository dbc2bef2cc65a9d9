package canon

import (
	"errors"
	"fmt"
	"strings"

	"github.com/c360studio/semgraph/rdf"
)

// Sentinel errors for canonicalization. Use errors.Is to classify failures
// returned as *RootError and diagnostics reported on a Result.
var (
	// ErrMissingRootAttribute indicates the root lacks a value for one of the
	// key predicates, so no root key can be computed.
	ErrMissingRootAttribute = errors.New("missing root attribute")

	// ErrStructuralCycle indicates an anonymous subtree points back at a node
	// already on the current traversal path.
	ErrStructuralCycle = errors.New("structural cycle")

	// ErrInvalidRoot indicates the root is a literal or the zero node.
	ErrInvalidRoot = errors.New("invalid root")

	// ErrAmbiguousAnonymousPath classifies the non-fatal diagnostic raised
	// when an anonymous node is reachable by more than one path.
	ErrAmbiguousAnonymousPath = errors.New("ambiguous anonymous path")

	// ErrPathCollision classifies the non-fatal diagnostic raised when two
	// distinct anonymous nodes derive the same canonical IRI.
	ErrPathCollision = errors.New("canonical path collision")

	// ErrUnreachable classifies anonymous nodes left in the output because
	// no planned root reaches them.
	ErrUnreachable = errors.New("anonymous node unreachable from root")
)

// RootError reports a fatal failure while canonicalizing one root. It carries
// enough context to locate the problem in the source graph.
type RootError struct {
	// Err is one of the sentinel errors above.
	Err error

	// Root is the traversal origin.
	Root rdf.Node

	// RootKey is the computed root key, empty when key computation failed.
	RootKey string

	// Predicate is the missing key predicate for ErrMissingRootAttribute.
	Predicate string

	// Path is the partial predicate path at which a cycle closed.
	Path []string

	// Node is the anonymous node that closed a cycle.
	Node rdf.Node
}

func (e *RootError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "canonicalize root %s", e.Root)
	if e.RootKey != "" {
		fmt.Fprintf(&sb, " (key %s)", e.RootKey)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Err.Error())
	if e.Predicate != "" {
		fmt.Fprintf(&sb, " %s", e.Predicate)
	}
	if len(e.Path) > 0 {
		fmt.Fprintf(&sb, " at path %s", strings.Join(e.Path, "/"))
	}
	return sb.String()
}

func (e *RootError) Unwrap() error { return e.Err }

// DiagnosticKind names a non-fatal condition found during canonicalization.
type DiagnosticKind string

const (
	KindAmbiguousAnonymousPath DiagnosticKind = "ambiguous_anonymous_path"
	KindPathCollision          DiagnosticKind = "path_collision"
	KindUnreachable            DiagnosticKind = "unreachable"
)

// Diagnostic is a non-fatal finding. It implements error so callers that want
// to escalate a diagnostic can do so with errors.Is against the sentinels.
type Diagnostic struct {
	Kind DiagnosticKind

	// RootKey identifies the root being traversed, empty for Unreachable.
	RootKey string

	// Node is the anonymous node concerned.
	Node rdf.Node

	// Path is the path that lost the tie-break, or the colliding path.
	Path string

	// Canonical is the IRI the node (or its colliding peer) kept.
	Canonical string
}

func (d Diagnostic) Error() string {
	switch d.Kind {
	case KindAmbiguousAnonymousPath:
		return fmt.Sprintf("%s: %s reached again via %s, keeping %s", ErrAmbiguousAnonymousPath, d.Node, d.Path, d.Canonical)
	case KindPathCollision:
		return fmt.Sprintf("%s: %s shares %s", ErrPathCollision, d.Node, d.Canonical)
	case KindUnreachable:
		return fmt.Sprintf("%s: %s", ErrUnreachable, d.Node)
	default:
		return string(d.Kind)
	}
}

func (d Diagnostic) Unwrap() error {
	switch d.Kind {
	case KindAmbiguousAnonymousPath:
		return ErrAmbiguousAnonymousPath
	case KindPathCollision:
		return ErrPathCollision
	case KindUnreachable:
		return ErrUnreachable
	default:
		return nil
	}
}
