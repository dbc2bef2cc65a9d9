package canon

import (
	"errors"
	"strconv"
	"testing"

	"github.com/c360studio/semgraph/rdf"
	"github.com/c360studio/semgraph/vocabulary/nuget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = "http://tempuri.org/package"

var (
	propID        = rdf.NamedNode(nuget.PropID)
	propVersion   = rdf.NamedNode(nuget.PropVersion)
	propGroups    = rdf.NamedNode(nuget.PropDependencyGroups)
	propDeps      = rdf.NamedNode(nuget.PropDependencies)
	propFramework = rdf.NamedNode(nuget.PropTargetFramework)
	propRange     = rdf.NamedNode(nuget.PropRange)
)

// buildPackage builds a package with one dependency group per framework,
// each holding the given dependency ids, the way the flattener does.
func buildPackage(root func(g *rdf.Graph) rdf.Node, groups map[string][]string, order []string) (*rdf.Graph, rdf.Node) {
	g := rdf.NewGraph()
	pkg := root(g)
	g.Assert(pkg, propID, rdf.Literal("MyPackage"))
	g.Assert(pkg, propVersion, rdf.Literal("1.0.0"))

	label := 0
	next := func() rdf.Node {
		label++
		return g.NewAnonymous("b" + strconv.Itoa(label))
	}
	for _, fw := range order {
		group := next()
		g.Assert(pkg, propGroups, group)
		g.Assert(group, propFramework, rdf.Literal(fw))
		for _, id := range groups[fw] {
			dep := next()
			g.Assert(group, propDeps, dep)
			g.Assert(dep, propID, rdf.Literal(id))
			g.Assert(dep, propRange, rdf.Literal("[1.0.0]"))
		}
	}
	return g, pkg
}

func namedRoot(g *rdf.Graph) rdf.Node {
	return rdf.NamedNode("http://tempuri.org/source/MyPackage")
}

func anonymousRoot(g *rdf.Graph) rdf.Node {
	return g.NewAnonymous("b0")
}

func singleGroup() (*rdf.Graph, rdf.Node) {
	return buildPackage(namedRoot, map[string][]string{"net40": {"a"}}, []string{"net40"})
}

func TestCanonicalize_PathIRIs(t *testing.T) {
	g, root := singleGroup()

	res, err := New(base).Canonicalize(g, root)
	require.NoError(t, err)

	groupIRI := rdf.NamedNode(base + "/MyPackage.1.0.0#dependencyGroups")
	depIRI := rdf.NamedNode(base + "/MyPackage.1.0.0#dependencyGroups/dependencies")

	assert.True(t, res.Graph.Contains(rdf.Triple{Subject: root, Predicate: propGroups, Object: groupIRI}))
	assert.True(t, res.Graph.Contains(rdf.Triple{Subject: groupIRI, Predicate: propDeps, Object: depIRI}))
	assert.True(t, res.Graph.Contains(rdf.Triple{Subject: depIRI, Predicate: propID, Object: rdf.Literal("a")}))
	assert.Equal(t, g.Len(), res.Graph.Len())
	assert.False(t, res.Graph.HasAnonymous())
	assert.Zero(t, res.Remaining)
	assert.Empty(t, res.Diagnostics)
}

func TestCanonicalize_AnonymousRoot(t *testing.T) {
	g, root := buildPackage(anonymousRoot, map[string][]string{"net40": {"a"}}, []string{"net40"})

	res, err := New(base + "/").Canonicalize(g, root)
	require.NoError(t, err)

	pkg := rdf.NamedNode(base + "/MyPackage.1.0.0")
	assert.Len(t, res.Graph.TriplesWithSubject(pkg), 3)
	assert.False(t, res.Graph.HasAnonymous())
}

func TestCanonicalize_Deterministic(t *testing.T) {
	c := New(base)

	g1, r1 := singleGroup()
	g2, r2 := singleGroup()
	require.False(t, rdf.Merge(g1, g2).Len() == g1.Len(), "uncanonicalized graphs must not collapse")

	res1, err := c.Canonicalize(g1, r1)
	require.NoError(t, err)
	res2, err := c.Canonicalize(g2, r2)
	require.NoError(t, err)

	assert.True(t, res1.Graph.Equal(res2.Graph))

	t.Run("merge collapses identical entities", func(t *testing.T) {
		merged := rdf.Merge(res1.Graph, res2.Graph)
		assert.Equal(t, res1.Graph.Len(), merged.Len())
		assert.Zero(t, merged.Merge(res2.Graph))
	})
}

func TestCanonicalize_StructuralCycle(t *testing.T) {
	g := rdf.NewGraph()
	root := rdf.NamedNode("http://tempuri.org/source/MyPackage")
	g.Assert(root, propID, rdf.Literal("MyPackage"))
	g.Assert(root, propVersion, rdf.Literal("1.0.0"))

	a := g.NewAnonymous("a")
	b := g.NewAnonymous("b")
	g.Assert(root, propGroups, a)
	g.Assert(a, propDeps, b)
	g.Assert(b, rdf.NamedNode(nuget.Namespace+"parent"), a)

	_, err := New(base).Canonicalize(g, root)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStructuralCycle))

	var rootErr *RootError
	require.True(t, errors.As(err, &rootErr))
	assert.Equal(t, "MyPackage.1.0.0", rootErr.RootKey)
	assert.Equal(t, []string{"dependencyGroups", "dependencies", "parent"}, rootErr.Path)
	assert.Equal(t, a, rootErr.Node)
	assert.Contains(t, err.Error(), "dependencyGroups/dependencies/parent")
}

func TestCanonicalize_CycleBackToAnonymousRoot(t *testing.T) {
	g, root := buildPackage(anonymousRoot, map[string][]string{"net40": {"a"}}, []string{"net40"})
	group := g.TriplesWithSubjectPredicate(root, propGroups)[0].Object
	g.Assert(group, rdf.NamedNode(nuget.Namespace+"owner"), root)

	_, err := New(base).Canonicalize(g, root)
	assert.ErrorIs(t, err, ErrStructuralCycle)
}

func TestCanonicalize_MissingRootAttribute(t *testing.T) {
	g := rdf.NewGraph()
	root := rdf.NamedNode("http://tempuri.org/source/Nameless")
	g.Assert(root, propID, rdf.Literal("Nameless"))

	_, err := New(base).Canonicalize(g, root)
	require.ErrorIs(t, err, ErrMissingRootAttribute)

	var rootErr *RootError
	require.ErrorAs(t, err, &rootErr)
	assert.Equal(t, nuget.PropVersion, rootErr.Predicate)
}

func TestCanonicalize_InvalidRoot(t *testing.T) {
	_, err := New(base).Canonicalize(rdf.NewGraph(), rdf.Literal("x"))
	assert.ErrorIs(t, err, ErrInvalidRoot)
}

func TestCanonicalize_CustomRootKey(t *testing.T) {
	g, root := singleGroup()
	c := New(base, WithRootKey(nuget.PropVersion, nuget.PropID), WithKeySeparator("-"))

	plan, err := c.Plan(g, root)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0-MyPackage", plan.RootKey)
}

func TestCanonicalize_DiamondFirstPathWins(t *testing.T) {
	g := rdf.NewGraph()
	root := rdf.NamedNode("http://tempuri.org/source/MyPackage")
	g.Assert(root, propID, rdf.Literal("MyPackage"))
	g.Assert(root, propVersion, rdf.Literal("1.0.0"))

	shared := g.NewAnonymous("shared")
	left := g.NewAnonymous("left")
	g.Assert(root, rdf.NamedNode(nuget.Namespace+"left"), left)
	g.Assert(root, rdf.NamedNode(nuget.Namespace+"right"), shared)
	g.Assert(left, rdf.NamedNode(nuget.Namespace+"child"), shared)

	c := New(base)
	plan, err := c.Plan(g, root)
	require.NoError(t, err)

	path, ok := plan.Path(shared)
	require.True(t, ok)
	assert.Equal(t, "left/child", path, "depth-first traversal discovers left/child first")

	require.Len(t, plan.Diagnostics, 1)
	d := plan.Diagnostics[0]
	assert.Equal(t, KindAmbiguousAnonymousPath, d.Kind)
	assert.Equal(t, "right", d.Path)
	assert.ErrorIs(t, d, ErrAmbiguousAnonymousPath)

	res := c.Rewrite(g, plan)
	assert.False(t, res.Graph.HasAnonymous())
	assert.Len(t, res.Graph.TriplesWithSubject(rdf.NamedNode(base+"/MyPackage.1.0.0#left/child")), 0)
	assert.Len(t, res.Graph.TriplesWithPredicateObject(rdf.NamedNode(nuget.Namespace+"right"), rdf.NamedNode(base+"/MyPackage.1.0.0#left/child")), 1)
}

func TestCanonicalize_SiblingCollections(t *testing.T) {
	groups := map[string][]string{"la": {"a", "b", "c"}, "de": {"x", "y"}, "da": {"z"}}
	order := []string{"la", "de", "da"}

	t.Run("path collisions are reported", func(t *testing.T) {
		g, root := buildPackage(namedRoot, groups, order)
		res, err := New(base).Canonicalize(g, root)
		require.NoError(t, err)

		collisions := 0
		for _, d := range res.Diagnostics {
			if d.Kind == KindPathCollision {
				collisions++
				assert.ErrorIs(t, d, ErrPathCollision)
			}
		}
		// 3 groups share one IRI, 6 dependencies share another
		assert.Equal(t, 2+5, collisions)
		assert.Len(t, res.Graph.TriplesWithSubjectPredicate(rdf.NamedNode(base+"/MyPackage.1.0.0#dependencyGroups"), propFramework), 3)
	})

	t.Run("indexed siblings stay distinct", func(t *testing.T) {
		g, root := buildPackage(namedRoot, groups, order)
		res, err := New(base, WithIndexedSiblings()).Canonicalize(g, root)
		require.NoError(t, err)

		assert.Empty(t, res.Diagnostics)
		assert.Equal(t, g.Len(), res.Graph.Len())
		de := rdf.NamedNode(base + "/MyPackage.1.0.0#dependencyGroups[1]")
		assert.Equal(t, []rdf.Triple{{Subject: de, Predicate: propFramework, Object: rdf.Literal("de")}},
			res.Graph.TriplesWithSubjectPredicate(de, propFramework))
		y := rdf.NamedNode(base + "/MyPackage.1.0.0#dependencyGroups[1]/dependencies[1]")
		assert.Equal(t, rdf.Literal("y"), res.Graph.TriplesWithSubjectPredicate(y, propID)[0].Object)
	})
}

func TestRewrite_UnreachableAnonymousNodes(t *testing.T) {
	g, root := singleGroup()
	stray := g.NewAnonymous("stray")
	g.Assert(stray, propID, rdf.Literal("orphan"))

	res, err := New(base).Canonicalize(g, root)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Remaining)
	require.Len(t, res.Diagnostics, 1)
	assert.ErrorIs(t, res.Diagnostics[0], ErrUnreachable)
	assert.True(t, res.Graph.Contains(rdf.Triple{Subject: stray, Predicate: propID, Object: rdf.Literal("orphan")}))
}

func TestPlan_NodesAndLookup(t *testing.T) {
	g, root := singleGroup()
	plan, err := New(base).Plan(g, root)
	require.NoError(t, err)

	nodes := plan.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, 2, plan.Len())

	named, ok := plan.Lookup(nodes[1])
	require.True(t, ok)
	assert.Equal(t, base+"/MyPackage.1.0.0#dependencyGroups/dependencies", named.Value())

	_, ok = plan.Lookup(rdf.NamedNode("http://x"))
	assert.False(t, ok)
}

func TestCanonicalizer_IRI(t *testing.T) {
	c := New(base)
	assert.Equal(t, base+"/MyPackage.1.0.0", c.IRI("MyPackage.1.0.0", nil))
	assert.Equal(t, "http://tempuri.org/package/MyPackage.1.0.0#dependencyGroups/dependencies",
		c.IRI("MyPackage.1.0.0", []string{"dependencyGroups", "dependencies"}))
	assert.Equal(t, base, c.BaseAddress())
}
