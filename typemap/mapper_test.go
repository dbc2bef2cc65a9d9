package typemap

import (
	"testing"

	"github.com/c360studio/semgraph/rdf"
	"github.com/c360studio/semgraph/vocabulary/nuget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var marker = rdf.NamedNode(nuget.PropSerializationType)

func sampleGraph() *rdf.Graph {
	g := rdf.NewGraph()
	pkg := g.NewAnonymous("b0")
	group := g.NewAnonymous("b1")
	dep := g.NewAnonymous("b2")

	g.Assert(pkg, marker, rdf.Literal(nuget.TypeNamePackage))
	g.Assert(pkg, rdf.NamedNode(nuget.PropDependencyGroups), group)
	g.Assert(group, marker, rdf.Literal(nuget.TypeNameDependencyGroup))
	g.Assert(group, rdf.NamedNode(nuget.PropDependencies), dep)
	g.Assert(dep, marker, rdf.Literal(nuget.TypeNameDependency))
	return g
}

func TestMarkByExternalType(t *testing.T) {
	g := sampleGraph()
	class := rdf.NamedNode(nuget.ClassPackage)

	roots := MarkByExternalType(g, marker, rdf.Literal(nuget.TypeNamePackage), rdf.Type, class)
	require.Len(t, roots, 1)
	assert.Equal(t, "b0", roots[0].Value())
	assert.True(t, g.Contains(rdf.Triple{Subject: roots[0], Predicate: rdf.Type, Object: class}))

	t.Run("idempotent", func(t *testing.T) {
		before := g.Len()
		again := MarkByExternalType(g, marker, rdf.Literal(nuget.TypeNamePackage), rdf.Type, class)
		assert.Equal(t, roots, again)
		assert.Equal(t, before, g.Len())
	})

	t.Run("includes subjects already typed", func(t *testing.T) {
		extra := rdf.NamedNode("http://tempuri.org/package/Other.2.0.0")
		g.Assert(extra, rdf.Type, class)
		got := MarkByExternalType(g, marker, rdf.Literal(nuget.TypeNamePackage), rdf.Type, class)
		assert.Equal(t, []rdf.Node{roots[0], extra}, got)
	})

	t.Run("no marker matches", func(t *testing.T) {
		got := MarkByExternalType(g, marker, rdf.Literal("Nope"), rdf.Type, rdf.NamedNode("http://x/Nope"))
		assert.Empty(t, got)
	})
}

func TestMapper_Apply(t *testing.T) {
	g := sampleGraph()
	mappings := []Mapping{
		{External: nuget.TypeNamePackage, Canonical: nuget.ClassPackage},
		{External: nuget.TypeNameDependencyGroup, Canonical: nuget.ClassDependencyGroup},
		{External: nuget.TypeNameDependency, Canonical: nuget.ClassDependency},
	}

	res := NewMapper(nuget.PropSerializationType, mappings, nil).Apply(g)

	assert.Equal(t, []string{nuget.ClassPackage, nuget.ClassDependencyGroup, nuget.ClassDependency}, res.Order)
	require.Len(t, res.Subjects(nuget.ClassPackage), 1)
	assert.Equal(t, "b1", res.Subjects(nuget.ClassDependencyGroup)[0].Value())
	assert.Len(t, g.TriplesWithSubjectPredicate(g.NewAnonymous("b2"), rdf.Type), 1)
}
