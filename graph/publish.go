// Package graph publishes canonical entities to the knowledge graph.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/c360studio/semstreams/message"
	"github.com/nats-io/nats.go"

	"github.com/c360studio/semgraph/rdf"
	"github.com/c360studio/semgraph/vocabulary/nuget"
)

// GraphIngestSubject is the subject for graph ingestion.
const GraphIngestSubject = "graph.ingest.entity"

// DefaultSource tags triples produced by canonicalization.
const DefaultSource = "semgraph.canon"

// typePredicate is the dotted form of rdf:type used by graph consumers.
const typePredicate = "rdf.syntax.type"

// StreamPublisher publishes one message. *natsclient.Client from semstreams
// satisfies it, as does ConnPublisher.
type StreamPublisher interface {
	PublishToStream(ctx context.Context, subject string, data []byte) error
}

// ConnPublisher adapts a core NATS connection.
type ConnPublisher struct {
	Conn *nats.Conn
}

// PublishToStream publishes data on subject.
func (c ConnPublisher) PublishToStream(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Conn.Publish(subject, data)
}

// Flush waits until the server has processed everything published so far.
func (c ConnPublisher) Flush(ctx context.Context) error {
	return c.Conn.FlushWithContext(ctx)
}

// Publisher turns canonical graphs into entity ingest messages.
type Publisher struct {
	pub     StreamPublisher
	subject string
	source  string
	logger  *slog.Logger
	now     func() time.Time
}

// NewPublisher creates a publisher. A nil pub makes every publish a no-op.
func NewPublisher(pub StreamPublisher, subject string, logger *slog.Logger) *Publisher {
	if subject == "" {
		subject = GraphIngestSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		pub:     pub,
		subject: subject,
		source:  DefaultSource,
		logger:  logger,
		now:     time.Now,
	}
}

// PublishGraph publishes one message per named subject of g and returns the
// number of messages sent. Anonymous subjects are skipped.
func (p *Publisher) PublishGraph(ctx context.Context, g *rdf.Graph) (int, error) {
	if p.pub == nil {
		return 0, nil // Skip publishing if no NATS client (graceful degradation)
	}

	entities := Entities(g, p.source, p.now())
	for i := range entities {
		e := &entities[i]
		if err := e.Validate(); err != nil {
			return i, fmt.Errorf("entity %s: %w", e.ID, err)
		}
		data, err := json.Marshal(e)
		if err != nil {
			return i, fmt.Errorf("marshal entity %s: %w", e.ID, err)
		}
		if err := p.pub.PublishToStream(ctx, p.subject, data); err != nil {
			return i, fmt.Errorf("publish entity %s: %w", e.ID, err)
		}
	}

	if f, ok := p.pub.(interface{ Flush(context.Context) error }); ok {
		if err := f.Flush(ctx); err != nil {
			return len(entities), fmt.Errorf("flush: %w", err)
		}
	}

	p.logger.Info("Published entities",
		"subject", p.subject,
		"entities", len(entities))
	return len(entities), nil
}

// Entities groups the triples of g by named subject, in first-appearance
// order.
func Entities(g *rdf.Graph, source string, now time.Time) []CanonicalEntity {
	var entities []CanonicalEntity
	index := make(map[rdf.Node]int)

	for t := range g.AllTriples() {
		if !t.Subject.IsNamed() {
			continue
		}
		i, ok := index[t.Subject]
		if !ok {
			i = len(entities)
			index[t.Subject] = i
			entities = append(entities, CanonicalEntity{
				ID:        t.Subject.Value(),
				Root:      RootOf(t.Subject.Value()),
				UpdatedAt: now,
			})
		}
		entities[i].Statements = append(entities[i].Statements, message.Triple{
			Subject:    t.Subject.Value(),
			Predicate:  Predicate(t.Predicate),
			Object:     Object(t.Object),
			Source:     source,
			Timestamp:  now,
			Confidence: 1.0,
		})
	}
	return entities
}

// Predicate returns the dotted vocabulary predicate for p, or its IRI when
// none is registered.
func Predicate(p rdf.Node) string {
	if p.Value() == rdf.TypeIRI {
		return typePredicate
	}
	if pred, ok := nuget.PredicateForIRI(p.Value()); ok {
		return pred
	}
	return p.Value()
}

// Object converts a node to a triple object value. Typed boolean and numeric
// literals become Go values; everything else is a string.
func Object(n rdf.Node) any {
	switch {
	case n.IsAnonymous():
		return "_:" + n.Value()
	case !n.IsLiteral():
		return n.Value()
	}

	switch n.Datatype() {
	case rdf.XSDBoolean:
		if b, err := strconv.ParseBool(n.Value()); err == nil {
			return b
		}
	case rdf.XSDInteger:
		if i, err := strconv.ParseInt(n.Value(), 10, 64); err == nil {
			return i
		}
	case rdf.XSDDecimal, rdf.XSDDouble:
		if f, err := strconv.ParseFloat(n.Value(), 64); err == nil {
			return f
		}
	}
	return n.Value()
}
