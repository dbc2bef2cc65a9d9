package query

import (
	"context"
	"errors"
	"testing"

	"github.com/c360studio/semgraph/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const music = "http://tempuri.org/schema/music#"

func band(member string, instrument string) *rdf.Graph {
	g := rdf.NewGraph()
	s := rdf.NamedNode("http://tempuri.org/british/music#" + member)
	g.Assert(s, rdf.Type, rdf.NamedNode(music+"Musician"))
	g.Assert(s, rdf.NamedNode(music+"plays"), rdf.Literal(instrument))
	return g
}

func newEngine(t *testing.T) *CELEngine {
	t.Helper()
	e, err := NewCELEngine(nil)
	require.NoError(t, err)
	return e
}

func TestCELEngine_Evaluate(t *testing.T) {
	ds := Dataset{
		"robert": band("robert", "vocals"),
		"jimmy":  band("jimmy", "guitar"),
		"bonzo":  band("bonzo", "drums"),
	}
	e := newEngine(t)

	t.Run("filters across named graphs in name order", func(t *testing.T) {
		got, err := e.Evaluate(context.Background(), ds, `predicate == "`+music+`plays"`)
		require.NoError(t, err)

		var members []string
		for tr := range got.AllTriples() {
			members = append(members, tr.Subject.LocalName())
		}
		assert.Equal(t, []string{"bonzo", "jimmy", "robert"}, members)
	})

	t.Run("graph variable", func(t *testing.T) {
		got, err := e.Evaluate(context.Background(), ds, `graph == "jimmy" && object_kind == "literal"`)
		require.NoError(t, err)
		require.Equal(t, 1, got.Len())
	})

	t.Run("string functions", func(t *testing.T) {
		got, err := e.Evaluate(context.Background(), ds, `object.endsWith("#Musician")`)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Len())
	})

	t.Run("no match", func(t *testing.T) {
		got, err := e.Evaluate(context.Background(), ds, `object == "banjo"`)
		require.NoError(t, err)
		assert.Zero(t, got.Len())
	})

	t.Run("result is a selection of dataset triples", func(t *testing.T) {
		got, err := e.Evaluate(context.Background(), ds, `true`)
		require.NoError(t, err)
		assert.Equal(t, 6, got.Len())
		for tr := range got.AllTriples() {
			found := false
			for _, g := range ds {
				found = found || g.Contains(tr)
			}
			assert.True(t, found, "unexpected triple %v", tr)
		}
	})
}

func TestCELEngine_Errors(t *testing.T) {
	e := newEngine(t)
	ds := Single("g", band("john", "guitar"))

	tests := []struct {
		name  string
		query string
	}{
		{"parse error", `predicate ==`},
		{"unknown variable", `colour == "red"`},
		{"non bool result", `subject + "x"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Evaluate(context.Background(), ds, tt.query)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrEvaluation)

			var evalErr *EvaluationError
			require.True(t, errors.As(err, &evalErr))
			assert.Equal(t, tt.query, evalErr.Query)
		})
	}
}

func TestCELEngine_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEngine(t).Evaluate(ctx, Single("g", band("john", "guitar")), `true`)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineFunc_PropagatesErrorsUnchanged(t *testing.T) {
	boom := errors.New("boom")
	var e Engine = EngineFunc(func(context.Context, Dataset, string) (*rdf.Graph, error) {
		return nil, boom
	})

	_, err := e.Evaluate(context.Background(), Dataset{}, "anything")
	assert.Same(t, boom, err)
}

func TestDataset_Names(t *testing.T) {
	ds := Dataset{"b": rdf.NewGraph(), "a": rdf.NewGraph()}
	assert.Equal(t, []string{"a", "b"}, ds.Names())
}
