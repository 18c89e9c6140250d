package mm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMandatoryHypotheses(t *testing.T) {
	t.Parallel()
	res, err := VerifyFile(context.Background(), "testdata/demo0.mm")
	require.NoError(t, err)
	db := res.Database

	tests := []struct {
		label    string
		expected []string
	}{
		{"tze", nil},
		{"tpl", []string{"tt", "tr"}},
		{"wim", []string{"wp", "wq"}},
		{"a1", []string{"tt", "tr", "ts"}},
		{"a2", []string{"tt"}},
		{"mp", []string{"wp", "wq", "min", "maj"}},
		{"th1", []string{"tt"}},
	}

	for _, tt := range tests {
		a, ok := db.Assertion(tt.label)
		require.True(t, ok, tt.label)
		assert.Equal(t, tt.expected, a.Hypotheses, tt.label)
		assert.Empty(t, a.Disjoint, tt.label)
	}
}

func TestDatabaseTables(t *testing.T) {
	t.Parallel()
	res, err := VerifyFile(context.Background(), "testdata/demo0.mm")
	require.NoError(t, err)

	assert.Equal(t, Stats{
		Constants: 9,
		Variables: 5,
		Floating:  5,
		Essential: 2,
		Axioms:    7,
		Theorems:  1,
	}, res.Stats)

	db := res.Database
	assert.True(t, db.IsConstant("|-"))
	assert.False(t, db.IsConstant("t"))
	assert.True(t, db.IsVariable("P"))
	assert.Equal(t, 1, db.Depth())

	hyp, ok := db.Hypothesis("min")
	require.True(t, ok)
	assert.False(t, hyp.Floating)
	assert.Equal(t, Expression{"|-", "P"}, hyp.Expression)
	assert.False(t, db.IsActiveHyp("min"), "min belongs to a closed scope")

	tt, ok := db.Hypothesis("tt")
	require.True(t, ok)
	assert.Equal(t, "term", tt.Typecode())
	assert.Equal(t, "t", tt.Variable())
	assert.True(t, db.IsActiveHyp("tt"))
}

func TestScopeVisibility(t *testing.T) {
	t.Parallel()
	db := NewDatabase()
	require.Nil(t, db.AddConstant("wff"))

	db.PushScope()
	require.Nil(t, db.AddVariable("p"))
	require.Nil(t, db.AddFloating("wp", "wff", "p"))
	require.Nil(t, db.AddVariable("q"))
	require.Nil(t, db.AddFloating("wq", "wff", "q"))
	require.Nil(t, db.AddDisjoint([]string{"p", "q"}))

	assert.True(t, db.IsActiveVariable("p"))
	assert.True(t, db.IsDisjoint("p", "q"))
	assert.True(t, db.IsDisjoint("q", "p"))
	assert.False(t, db.IsDisjoint("p", "p"))
	label, ok := db.FloatingHyp("p")
	assert.True(t, ok)
	assert.Equal(t, "wp", label)

	err := db.AddConstant("c")
	require.NotNil(t, err)
	assert.Equal(t, KindScopeViolation, err.Kind)

	require.Nil(t, db.PopScope())

	assert.False(t, db.IsActiveVariable("p"))
	assert.True(t, db.IsVariable("p"))
	assert.False(t, db.IsDisjoint("p", "q"))
	assert.False(t, db.IsActiveHyp("wp"))
	_, ok = db.FloatingHyp("p")
	assert.False(t, ok)
	_, ok = db.Hypothesis("wp")
	assert.True(t, ok, "records survive the scope")

	// a variable may be declared again once its scope is closed
	require.Nil(t, db.AddVariable("p"))
	require.Nil(t, db.AddFloating("wp2", "wff", "p"))

	err = db.PopScope()
	require.NotNil(t, err)
	assert.Equal(t, KindScopeViolation, err.Kind)
}

func TestOneFloatingHypothesisPerVariable(t *testing.T) {
	t.Parallel()
	db := NewDatabase()
	require.Nil(t, db.AddConstant("wff"))
	require.Nil(t, db.AddVariable("p"))
	require.Nil(t, db.AddFloating("wp", "wff", "p"))

	db.PushScope()
	err := db.AddFloating("wp2", "wff", "p")
	require.NotNil(t, err)
	assert.Equal(t, KindScopeViolation, err.Kind)
}

func TestDeclarationErrors(t *testing.T) {
	t.Parallel()
	db := NewDatabase()
	require.Nil(t, db.AddConstant("wff"))
	require.Nil(t, db.AddVariable("p"))
	require.Nil(t, db.AddFloating("wp", "wff", "p"))

	tests := []struct {
		name string
		run  func() *Error
		kind Kind
	}{
		{"constant twice", func() *Error { return db.AddConstant("wff") }, KindDuplicateSymbol},
		{"variable as constant", func() *Error { return db.AddConstant("p") }, KindDuplicateSymbol},
		{"label as constant", func() *Error { return db.AddConstant("wp") }, KindDuplicateSymbol},
		{"dollar in constant", func() *Error { return db.AddConstant("a$b") }, KindSyntax},
		{"active variable twice", func() *Error { return db.AddVariable("p") }, KindDuplicateSymbol},
		{"constant as variable", func() *Error { return db.AddVariable("wff") }, KindDuplicateSymbol},
		{"label reused", func() *Error { return db.CheckLabel("wp") }, KindDuplicateLabel},
		{"constant as label", func() *Error { return db.CheckLabel("wff") }, KindDuplicateLabel},
		{"floating on constant", func() *Error { return db.AddFloating("x", "wff", "wff") }, KindUndeclaredSymbol},
		{"floating with bad typecode", func() *Error { return db.AddFloating("x", "p", "p") }, KindUndeclaredSymbol},
		{"essential with unknown symbol", func() *Error { return db.AddEssential("e", Expression{"wff", "q"}) }, KindUndeclaredSymbol},
		{"disjoint with one variable", func() *Error { return db.AddDisjoint([]string{"p"}) }, KindSyntax},
		{"disjoint repeats a variable", func() *Error { return db.AddDisjoint([]string{"p", "p"}) }, KindSyntax},
		{"disjoint on a constant", func() *Error { return db.AddDisjoint([]string{"p", "wff"}) }, KindUndeclaredSymbol},
	}

	for _, tt := range tests {
		err := tt.run()
		require.NotNil(t, err, tt.name)
		assert.Equal(t, tt.kind, err.Kind, tt.name)
	}
}

func TestDisjointRestrictionsOfAssertion(t *testing.T) {
	t.Parallel()
	db := NewDatabase()
	require.Nil(t, db.AddConstant("|-"))
	require.Nil(t, db.AddConstant("set"))
	for _, v := range []string{"x", "y", "z"} {
		require.Nil(t, db.AddVariable(v))
		require.Nil(t, db.AddFloating("v"+v, "set", v))
	}

	db.PushScope()
	require.Nil(t, db.AddDisjoint([]string{"x", "y", "z"}))
	a, err := db.AddAssertion("ax", Axiom, Expression{"|-", "y", "x"})
	require.Nil(t, err)

	assert.Equal(t, []string{"vx", "vy"}, a.Hypotheses)
	assert.Equal(t, []DisjointPair{{X: "x", Y: "y"}}, a.Disjoint)
	assert.Equal(t, NewDisjointPair("y", "x"), a.Disjoint[0])
}
