package graph

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
)

func init() {
	err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      EntityType.Domain,
		Category:    EntityType.Category,
		Version:     EntityType.Version,
		Description: "Canonical subject of a record graph with its triples",
		Factory:     func() any { return &CanonicalEntity{} },
	})
	if err != nil {
		panic("failed to register CanonicalEntity: " + err.Error())
	}
}

// EntityType is the message type of canonical entities.
var EntityType = message.Type{Domain: "semgraph", Category: "entity", Version: "v1"}

// CanonicalEntity carries every triple whose subject is one canonical IRI.
// Root is the IRI of the record the subject was reached from, so consumers
// can group nested subjects under their package.
type CanonicalEntity struct {
	ID         string           `json:"id"`
	Root       string           `json:"root"`
	Statements []message.Triple `json:"triples"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func (e *CanonicalEntity) EntityID() string          { return e.ID }
func (e *CanonicalEntity) Triples() []message.Triple { return e.Statements }
func (e *CanonicalEntity) Schema() message.Type      { return EntityType }

// Validate checks that the entity is addressable and self-consistent.
func (e *CanonicalEntity) Validate() error {
	if e.ID == "" {
		return errors.New("entity ID is required")
	}
	if RootOf(e.ID) != e.Root {
		return fmt.Errorf("root %q does not contain entity %q", e.Root, e.ID)
	}
	if len(e.Statements) == 0 {
		return errors.New("entity has no triples")
	}
	for _, t := range e.Statements {
		if t.Subject != e.ID {
			return fmt.Errorf("triple subject %q is not the entity", t.Subject)
		}
	}
	return nil
}

// RootOf returns the root record IRI of a canonical IRI: everything before
// the path fragment.
func RootOf(iri string) string {
	root, _, _ := strings.Cut(iri, "#")
	return root
}
