// Package flatten turns a JSON record tree into a flat graph.
//
// It is the reference upstream collaborator for canonicalization: every
// nested record becomes an anonymous node, collections become repeated
// triples, and each record's runtime type name is kept as a marker triple so
// the type mapper can pick the roots. JSON.NET list wrappers of the form
// {"$type": "...List...", "$values": [...]} are unwrapped.
package flatten

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/c360studio/semgraph/rdf"
	"github.com/c360studio/semgraph/vocabulary/nuget"
)

// ErrUnsupportedValue is returned for JSON values that have no graph form.
var ErrUnsupportedValue = errors.New("unsupported value")

// Options controls how records map onto predicates.
type Options struct {
	// Vocab is prepended to property names to form predicate IRIs.
	Vocab string `yaml:"vocab"`

	// TypeProperty names the runtime type member. Its predicate is
	// Vocab + TypeProperty.
	TypeProperty string `yaml:"typeProperty"`

	// ValuesProperty names the member holding wrapped collection items.
	ValuesProperty string `yaml:"valuesProperty"`

	// IDProperty names a member whose value becomes the record's IRI.
	IDProperty string `yaml:"idProperty"`

	// LowerCamel lower-cases the first letter of property names.
	LowerCamel bool `yaml:"lowerCamel"`

	// IRIProperties lists property names (after case mapping) whose string
	// values are IRIs rather than literals.
	IRIProperties []string `yaml:"iriProperties"`
}

// DefaultOptions matches the package JSON-LD context: package schema
// vocabulary, JSON.NET markers, lower camel property names.
func DefaultOptions() Options {
	return Options{
		Vocab:          nuget.Namespace,
		TypeProperty:   "$type",
		ValuesProperty: "$values",
		IDProperty:     "@id",
		LowerCamel:     true,
		IRIProperties:  []string{"licenseUri"},
	}
}

// Flattener converts JSON documents to graphs.
type Flattener struct {
	opts   Options
	logger *slog.Logger
}

// New creates a flattener.
func New(opts Options, logger *slog.Logger) *Flattener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Flattener{opts: opts, logger: logger}
}

// MarkerPredicate returns the IRI of the runtime type marker predicate.
func (f *Flattener) MarkerPredicate() string {
	return f.opts.Vocab + f.opts.TypeProperty
}

// Flatten decodes one JSON document (a record or an array of records) from r.
func (f *Flattener) Flatten(r io.Reader) (*rdf.Graph, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return f.FlattenValue(v)
}

// FlattenBytes is Flatten over a byte slice.
func (f *Flattener) FlattenBytes(data []byte) (*rdf.Graph, error) {
	return f.Flatten(bytes.NewReader(data))
}

// FlattenValue flattens an already decoded JSON value. Numbers should be
// json.Number or float64.
func (f *Flattener) FlattenValue(v any) (*rdf.Graph, error) {
	w := &walker{opts: f.opts, g: rdf.NewGraph()}
	w.marker = rdf.NamedNode(f.MarkerPredicate())

	var records []any
	switch top := v.(type) {
	case map[string]any:
		if items, ok := top[f.opts.ValuesProperty].([]any); ok {
			records = items
		} else {
			records = []any{top}
		}
	case []any:
		records = top
	default:
		return nil, fmt.Errorf("top level %T: %w", v, ErrUnsupportedValue)
	}

	for i, rec := range records {
		obj, ok := rec.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %d is %T: %w", i, rec, ErrUnsupportedValue)
		}
		if _, err := w.record(obj); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}

	f.logger.Debug("Flattened records",
		"records", len(records),
		"anonymous_nodes", w.next,
		"triples", w.g.Len())
	return w.g, nil
}

type walker struct {
	opts   Options
	g      *rdf.Graph
	marker rdf.Node
	next   int
}

func (w *walker) subject(obj map[string]any) rdf.Node {
	if id, ok := obj[w.opts.IDProperty].(string); ok && id != "" {
		return rdf.NamedNode(id)
	}
	n := w.g.NewAnonymous("b" + strconv.Itoa(w.next))
	w.next++
	return n
}

func (w *walker) record(obj map[string]any) (rdf.Node, error) {
	s := w.subject(obj)
	return s, w.fill(s, obj)
}

func (w *walker) fill(s rdf.Node, obj map[string]any) error {
	if t, ok := obj[w.opts.TypeProperty].(string); ok {
		w.g.Assert(s, w.marker, rdf.Literal(t))
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		if k == w.opts.TypeProperty || k == w.opts.IDProperty {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		name := w.propertyName(k)
		if err := w.value(s, name, obj[k]); err != nil {
			return fmt.Errorf("property %s: %w", k, err)
		}
	}
	return nil
}

func (w *walker) value(s rdf.Node, name string, v any) error {
	p := rdf.NamedNode(w.opts.Vocab + name)

	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		for _, item := range val {
			if err := w.value(s, name, item); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		if items, ok := val[w.opts.ValuesProperty]; ok {
			return w.value(s, name, items)
		}
		child := w.subject(val)
		w.g.Assert(s, p, child)
		return w.fill(child, val)
	case string:
		if slices.Contains(w.opts.IRIProperties, name) {
			w.g.Assert(s, p, rdf.NamedNode(val))
		} else {
			w.g.Assert(s, p, rdf.Literal(val))
		}
		return nil
	case bool:
		w.g.Assert(s, p, rdf.TypedLiteral(strconv.FormatBool(val), rdf.XSDBoolean))
		return nil
	case json.Number:
		if _, err := val.Int64(); err == nil {
			w.g.Assert(s, p, rdf.TypedLiteral(val.String(), rdf.XSDInteger))
		} else {
			w.g.Assert(s, p, rdf.TypedLiteral(val.String(), rdf.XSDDouble))
		}
		return nil
	case float64:
		w.g.Assert(s, p, rdf.TypedLiteral(strconv.FormatFloat(val, 'g', -1, 64), rdf.XSDDouble))
		return nil
	default:
		return fmt.Errorf("%T: %w", v, ErrUnsupportedValue)
	}
}

func (w *walker) propertyName(k string) string {
	if !w.opts.LowerCamel || strings.HasPrefix(k, "$") || strings.HasPrefix(k, "@") {
		return k
	}
	r, size := utf8.DecodeRuneInString(k)
	if r == utf8.RuneError {
		return k
	}
	return string(unicode.ToLower(r)) + k[size:]
}
