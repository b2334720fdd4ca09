package analysis

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/ast"
)

func numbers(names ...string) []ast.Attribute {
	out := make([]ast.Attribute, len(names))
	for i, n := range names {
		out[i] = ast.Attribute{Name: n, Type: "number"}
	}
	return out
}

func pathProgram() *ast.Program {
	p := ast.NewProgram()
	p.MustAddRelation("Edge", numbers("x", "y")...)
	p.MustAddRelation("Path", numbers("x", "y")...)
	x, y, z := ast.Var("x"), ast.Var("y"), ast.Var("z")
	p.AddClause(ast.NewFact(ast.NewAtom("Edge", ast.Int(1), ast.Int(2))))
	p.AddClause(ast.NewRule(ast.NewAtom("Path", x, y), ast.NewAtom("Edge", x, y)))
	p.AddClause(ast.NewRule(ast.NewAtom("Path", x, z), ast.NewAtom("Path", x, y), ast.NewAtom("Edge", y, z)))
	p.AddDirective(ast.Directive{Kind: ast.DirectiveOutput, Relation: "Path"})
	return p
}

func TestPathSchedule(t *testing.T) {
	a, err := Run(pathProgram())
	require.NoError(t, err)

	require.Len(t, a.Strata, 2)
	edge, path := a.Strata[0], a.Strata[1]

	assert.Equal(t, []ast.RelationID{0}, edge.Relations)
	assert.False(t, edge.Recursive)
	assert.Empty(t, edge.Inputs)
	assert.Equal(t, []ast.RelationID{0}, edge.Outputs)
	assert.Empty(t, edge.Expired)

	assert.Equal(t, []ast.RelationID{1}, path.Relations)
	assert.True(t, path.Recursive)
	assert.Equal(t, []ast.RelationID{0}, path.Inputs)
	assert.Equal(t, []ast.RelationID{1}, path.Outputs)
	assert.Equal(t, []ast.RelationID{0}, path.Expired, "Edge is read for the last time while computing Path")

	clauses := a.Program.Clauses()
	assert.False(t, a.RecursiveClauses.IsRecursive(clauses[0]))
	assert.False(t, a.RecursiveClauses.IsRecursive(clauses[1]))
	assert.True(t, a.RecursiveClauses.IsRecursive(clauses[2]))
}

func TestSCCMutualRecursion(t *testing.T) {
	p := ast.NewProgram()
	p.MustAddRelation("Base", numbers("x")...)
	p.MustAddRelation("Even", numbers("x")...)
	p.MustAddRelation("Odd", numbers("x")...)
	p.MustAddRelation("Report", numbers("x")...)
	x, y := ast.Var("x"), ast.Var("y")
	p.AddClause(ast.NewRule(ast.NewAtom("Even", x), ast.NewAtom("Base", x)))
	p.AddClause(ast.NewRule(ast.NewAtom("Odd", y), ast.NewAtom("Even", x), ast.Cmp(y, "=", ast.Fn("+", x, ast.Num("1")))))
	p.AddClause(ast.NewRule(ast.NewAtom("Even", y), ast.NewAtom("Odd", x), ast.Cmp(y, "=", ast.Fn("+", x, ast.Num("1"))), ast.Cmp(y, "<", ast.Num("10"))))
	p.AddClause(ast.NewRule(ast.NewAtom("Report", x), ast.NewAtom("Odd", x)))

	g := BuildDependencyGraph(p)
	scc := ComputeSCC(g)
	assert.Equal(t, 3, scc.Count())
	assert.Equal(t, scc.Component(1), scc.Component(2))

	var order [][]ast.RelationID
	for _, c := range scc.Order() {
		order = append(order, scc.Relations(c))
	}
	want := [][]ast.RelationID{{0}, {1, 2}, {3}}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("evaluation order mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, scc.IsRecursive(scc.Component(1)))
	assert.False(t, scc.IsRecursive(scc.Component(3)))
}

func TestIndependentStrataFollowDeclarationOrder(t *testing.T) {
	p := ast.NewProgram()
	for _, name := range []ast.QualifiedName{"C", "B", "A"} {
		p.MustAddRelation(name, numbers("x")...)
		p.AddClause(ast.NewFact(ast.NewAtom(name, ast.Int(1))))
	}
	a, err := Run(p)
	require.NoError(t, err)

	var got []ast.RelationID
	for _, s := range a.Strata {
		got = append(got, s.Relations...)
	}
	assert.Equal(t, []ast.RelationID{0, 1, 2}, got)
}

func TestStoredRelationsNeverExpire(t *testing.T) {
	p := pathProgram()
	p.AddDirective(ast.Directive{Kind: ast.DirectivePrintSize, Relation: "Edge"})
	a, err := Run(p)
	require.NoError(t, err)
	for _, s := range a.Strata {
		assert.NotContains(t, s.Expired, ast.RelationID(0))
		assert.NotContains(t, s.Expired, ast.RelationID(1))
	}
	assert.Contains(t, a.Strata[0].Outputs, ast.RelationID(0))
}

func TestUnstratifiableNegation(t *testing.T) {
	p := ast.NewProgram()
	p.MustAddRelation("B", numbers("x")...)
	p.MustAddRelation("A", numbers("x")...)
	x := ast.Var("x")
	p.AddClause(ast.NewRule(ast.NewAtom("A", x), ast.NewAtom("B", x), ast.Not(ast.NewAtom("A", x))))

	_, err := Run(p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, datalog.ErrUnstratifiable))
}

func TestAggregateWithinComponentIsUnstratifiable(t *testing.T) {
	p := ast.NewProgram()
	p.MustAddRelation("A", numbers("n")...)
	n := ast.Var("n")
	agg := &ast.Aggregator{Op: "count", Body: []ast.Literal{ast.NewAtom("A", ast.Unnamed())}}
	p.AddClause(ast.NewRule(ast.NewAtom("A", n), ast.Cmp(n, "=", agg)))

	_, err := Run(p)
	assert.ErrorIs(t, err, datalog.ErrUnstratifiable)
}

func TestNegationAcrossStrata(t *testing.T) {
	p := pathProgram()
	p.MustAddRelation("Unreachable", numbers("x", "y")...)
	x, y := ast.Var("x"), ast.Var("y")
	p.AddClause(ast.NewRule(ast.NewAtom("Unreachable", x, y),
		ast.NewAtom("Edge", x, ast.Unnamed()), ast.NewAtom("Edge", ast.Unnamed(), y),
		ast.Not(ast.NewAtom("Path", x, y))))

	a, err := Run(p)
	require.NoError(t, err)
	require.Len(t, a.Strata, 3)
	assert.Equal(t, []ast.RelationID{2}, a.Strata[2].Relations)
	assert.True(t, a.Graph.Negative(2, 1))
	assert.False(t, a.Graph.Negative(2, 0))
}

func TestSubsumptiveClauses(t *testing.T) {
	p := ast.NewProgram()
	p.MustAddRelation("Cost", ast.Attribute{Name: "n", Type: "symbol"}, ast.Attribute{Name: "c", Type: "number"})
	p.MustAddRelation("Other", ast.Attribute{Name: "n", Type: "symbol"}, ast.Attribute{Name: "c", Type: "number"})
	n, c1, c2 := ast.Var("n"), ast.Var("c1"), ast.Var("c2")

	t.Run("self dependency makes the clause recursive", func(t *testing.T) {
		q := ast.NewProgram()
		q.MustAddRelation("Cost", ast.Attribute{Name: "n", Type: "symbol"}, ast.Attribute{Name: "c", Type: "number"})
		cl := q.AddClause(ast.NewSubsumptiveRule(ast.NewAtom("Cost", n, c1), ast.NewAtom("Cost", n, c2), ast.Cmp(c1, "<", c2)))
		a, err := Run(q)
		require.NoError(t, err)
		require.Len(t, a.Strata, 1)
		assert.True(t, a.Strata[0].Recursive)
		assert.True(t, a.RecursiveClauses.IsRecursive(cl))
	})

	t.Run("heads must name the same relation", func(t *testing.T) {
		p.AddClause(ast.NewSubsumptiveRule(ast.NewAtom("Cost", n, c1), ast.NewAtom("Other", n, c2), ast.Cmp(c1, "<", c2)))
		_, err := Run(p)
		assert.ErrorIs(t, err, datalog.ErrSubsumptiveHeadMismatch)
	})
}

func TestValidateErrors(t *testing.T) {
	x, y := ast.Var("x"), ast.Var("y")
	tests := []struct {
		name   string
		clause *ast.Clause
		want   error
	}{
		{"unknown body relation", ast.NewRule(ast.NewAtom("A", x), ast.NewAtom("Missing", x)), datalog.ErrUnknownRelation},
		{"arity mismatch", ast.NewRule(ast.NewAtom("A", x), ast.NewAtom("B", x, y)), datalog.ErrArityMismatch},
		{"ungrounded head", ast.NewRule(ast.NewAtom("A", y), ast.NewAtom("B", x)), datalog.ErrUngroundedVariable},
		{"ungrounded negation", ast.NewRule(ast.NewAtom("A", x), ast.NewAtom("B", x), ast.Not(ast.NewAtom("B", y))), datalog.ErrUngroundedVariable},
		{"variable in fact", ast.NewFact(ast.NewAtom("A", x)), datalog.ErrUngroundedVariable},
		{"unknown intrinsic", ast.NewRule(ast.NewAtom("A", y), ast.NewAtom("B", x), ast.Cmp(y, "=", ast.Fn("pow", x, x))), datalog.ErrUnknownFunctor},
		{"unknown user functor", ast.NewRule(ast.NewAtom("A", y), ast.NewAtom("B", x),
			ast.Cmp(y, "=", &ast.UserDefinedFunctor{Name: "hash", Args: []ast.Argument{x}})), datalog.ErrUnknownFunctor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ast.NewProgram()
			p.MustAddRelation("A", numbers("x")...)
			p.MustAddRelation("B", numbers("x")...)
			p.AddClause(tt.clause)
			err := Validate(p)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGeneratorsGroundVariables(t *testing.T) {
	p := ast.NewProgram()
	p.MustAddRelation("A", numbers("x")...)
	p.MustAddRelation("B", numbers("x")...)
	x, y, z := ast.Var("x"), ast.Var("y"), ast.Var("z")
	p.AddClause(ast.NewRule(ast.NewAtom("A", z),
		ast.Cmp(z, "=", ast.Fn("*", y, ast.Num("2"))),
		ast.Cmp(y, "=", ast.Fn("+", x, ast.Num("1"))),
		ast.NewAtom("B", x)))
	assert.NoError(t, Validate(p))
}

func TestUnknownDirectiveRelation(t *testing.T) {
	p := pathProgram()
	p.AddDirective(ast.Directive{Kind: ast.DirectiveInput, Relation: "Nope"})
	assert.ErrorIs(t, Validate(p), datalog.ErrUnknownRelation)
}
