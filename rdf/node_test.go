package rdf

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNodeEquality(t *testing.T) {
	originA := uuid.New()
	originB := uuid.New()

	tests := []struct {
		name  string
		a, b  Node
		equal bool
	}{
		{"named same iri", NamedNode("http://x/a"), NamedNode("http://x/a"), true},
		{"named different iri", NamedNode("http://x/a"), NamedNode("http://x/b"), false},
		{"anonymous same origin", AnonymousNode("b0", originA), AnonymousNode("b0", originA), true},
		{"anonymous different origin", AnonymousNode("b0", originA), AnonymousNode("b0", originB), false},
		{"literal plain", Literal("x"), Literal("x"), true},
		{"literal datatype differs", Literal("1"), TypedLiteral("1", XSDInteger), false},
		{"literal lang case folded", LangLiteral("hi", "EN"), LangLiteral("hi", "en"), true},
		{"literal vs named", Literal("http://x/a"), NamedNode("http://x/a"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, tt.a == tt.b)
			if tt.equal {
				assert.Zero(t, Compare(tt.a, tt.b))
			} else {
				assert.NotZero(t, Compare(tt.a, tt.b))
				assert.Equal(t, -Compare(tt.a, tt.b), Compare(tt.b, tt.a))
			}
		})
	}
}

func TestNodeLocalName(t *testing.T) {
	tests := []struct {
		iri  string
		want string
	}{
		{"http://nuget.org/schema#dependencyGroups", "dependencyGroups"},
		{"http://tempuri.org/schema/music/member", "member"},
		{"http://tempuri.org/a/b#", ""},
		{"urn:isbn", "urn:isbn"},
	}
	for _, tt := range tests {
		t.Run(tt.iri, func(t *testing.T) {
			assert.Equal(t, tt.want, NamedNode(tt.iri).LocalName())
		})
	}
}

func TestNodeString(t *testing.T) {
	assert.Equal(t, "<http://x/a>", NamedNode("http://x/a").String())
	assert.Equal(t, "_:b3", AnonymousNode("b3", uuid.New()).String())
	assert.Equal(t, `"a \"b\""`, Literal(`a "b"`).String())
	assert.Equal(t, `"true"^^<`+XSDBoolean+`>`, TypedLiteral("true", XSDBoolean).String())
	assert.Equal(t, `"hello"@en`, LangLiteral("hello", "en").String())
}

func TestNodeKinds(t *testing.T) {
	g := NewGraph()
	b := g.NewAnonymous("b0")

	assert.True(t, b.IsAnonymous())
	assert.Equal(t, g.ID(), b.Origin())
	assert.Equal(t, KindAnonymous, b.Kind())
	assert.True(t, NamedNode("http://x").IsNamed())
	assert.True(t, Literal("x").IsLiteral())
	assert.True(t, Node{}.IsZero())
	assert.Equal(t, "invalid", Node{}.Kind().String())
}
