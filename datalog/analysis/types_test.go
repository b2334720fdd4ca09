package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/ast"
)

func TestNumericConstantTakesContextType(t *testing.T) {
	p := ast.NewProgram()
	p.MustAddRelation("F", ast.Attribute{Name: "v", Type: "float"})
	x, y := ast.Var("x"), ast.Var("y")
	one := ast.Num("1")
	sum := ast.Fn("+", x, one)
	gen := ast.Cmp(y, "=", sum)
	bound := ast.Num("100")
	limit := ast.Cmp(y, "<", bound)
	cl := p.AddClause(ast.NewRule(ast.NewAtom("F", y), ast.NewAtom("F", x), gen, limit))

	a, err := Run(p)
	require.NoError(t, err)

	ty, ok := a.Types.VariableType(cl.ID, "y")
	require.True(t, ok)
	assert.Equal(t, datalog.TypeFloat, ty)
	assert.Equal(t, datalog.TypeFloat, a.Types.NumericConstantType(one))
	assert.Equal(t, datalog.TypeFloat, a.Types.NumericConstantType(bound))
	assert.Equal(t, datalog.TypeFloat, a.Types.FunctorType(sum))
	assert.Equal(t, datalog.TypeFloat, a.Types.ConstraintType(limit))
}

func TestUnconstrainedConstantDefaults(t *testing.T) {
	c := ast.Num("42")
	f := ast.Num("4.5")
	u := &ast.NumericConstant{Text: "7", Type: "u"}
	var ta TypeAnalysis
	assert.Equal(t, datalog.TypeSigned, ta.NumericConstantType(c))
	assert.Equal(t, datalog.TypeFloat, ta.NumericConstantType(f))
	assert.Equal(t, datalog.TypeUnsigned, ta.NumericConstantType(u))
}

func TestMixedComparisonIsRejected(t *testing.T) {
	p := ast.NewProgram()
	p.MustAddRelation("A", ast.Attribute{Name: "x", Type: "number"})
	p.MustAddRelation("F", ast.Attribute{Name: "v", Type: "float"})
	x, y := ast.Var("x"), ast.Var("y")
	p.AddClause(ast.NewRule(ast.NewAtom("A", x), ast.NewAtom("A", x), ast.NewAtom("F", y), ast.Cmp(x, "<", y)))

	_, err := Run(p)
	assert.ErrorIs(t, err, datalog.ErrTypeMismatch)
}

func TestConflictingAttributeTypes(t *testing.T) {
	p := ast.NewProgram()
	p.MustAddRelation("A", ast.Attribute{Name: "x", Type: "number"})
	p.MustAddRelation("S", ast.Attribute{Name: "s", Type: "symbol"})
	x := ast.Var("x")
	p.AddClause(ast.NewRule(ast.NewAtom("A", x), ast.NewAtom("S", x)))

	_, err := Run(p)
	assert.ErrorIs(t, err, datalog.ErrTypeMismatch)
}

func TestAggregatorTypes(t *testing.T) {
	p := ast.NewProgram()
	p.MustAddRelation("F", ast.Attribute{Name: "v", Type: "float"})
	p.MustAddRelation("Stats", ast.Attribute{Name: "n", Type: "number"}, ast.Attribute{Name: "avg", Type: "float"})
	n, m, v := ast.Var("n"), ast.Var("m"), ast.Var("v")
	count := &ast.Aggregator{Op: "count", Body: []ast.Literal{ast.NewAtom("F", ast.Unnamed())}}
	mean := &ast.Aggregator{Op: "mean", Target: v, Body: []ast.Literal{ast.NewAtom("F", v)}}
	cl := p.AddClause(ast.NewRule(ast.NewAtom("Stats", n, m), ast.Cmp(n, "=", count), ast.Cmp(m, "=", mean)))

	a, err := Run(p)
	require.NoError(t, err)
	assert.Equal(t, datalog.TypeFloat, a.Types.AggregatorType(mean))
	ty, _ := a.Types.VariableType(cl.ID, "n")
	assert.Equal(t, datalog.TypeSigned, ty)
	ty, _ = a.Types.VariableType(cl.ID, "v")
	assert.Equal(t, datalog.TypeFloat, ty)
}

func TestStringFunctors(t *testing.T) {
	p := ast.NewProgram()
	p.MustAddRelation("Name", ast.Attribute{Name: "s", Type: "symbol"})
	p.MustAddRelation("Len", ast.Attribute{Name: "s", Type: "symbol"}, ast.Attribute{Name: "n", Type: "number"})
	s, n := ast.Var("s"), ast.Var("n")
	cl := p.AddClause(ast.NewRule(ast.NewAtom("Len", ast.Fn("cat", s, ast.Str("!")), n),
		ast.NewAtom("Name", s), ast.Cmp(n, "=", ast.Fn("strlen", s))))

	a, err := Run(p)
	require.NoError(t, err)
	ty, _ := a.Types.VariableType(cl.ID, "n")
	assert.Equal(t, datalog.TypeSigned, ty)
}

func TestADTNumbering(t *testing.T) {
	p := ast.NewProgram()
	p.AddADT(&ast.ADTDecl{Name: "Shape", Branches: []ast.Branch{
		{Constructor: "Square", Fields: []string{"number"}},
		{Constructor: "Circle", Fields: []string{"number"}},
		{Constructor: "Empty"},
	}})
	p.AddADT(&ast.ADTDecl{Name: "Color", Branches: []ast.Branch{
		{Constructor: "Red"},
		{Constructor: "Green"},
	}})

	adts, err := AnalyseADTs(p)
	require.NoError(t, err)

	for constructor, id := range map[string]int{"Circle": 0, "Empty": 1, "Square": 2, "Green": 0, "Red": 1} {
		b, ok := adts.Branch(constructor)
		require.True(t, ok, constructor)
		assert.Equal(t, id, b.ID, constructor)
	}
	assert.False(t, adts.IsEnum("Shape"))
	assert.True(t, adts.IsEnum("Color"))
	sq, _ := adts.Branch("Square")
	assert.Equal(t, []datalog.TypeAttribute{datalog.TypeSigned}, sq.Fields)
}

func TestDuplicateConstructor(t *testing.T) {
	p := ast.NewProgram()
	p.AddADT(&ast.ADTDecl{Name: "A", Branches: []ast.Branch{{Constructor: "X"}}})
	p.AddADT(&ast.ADTDecl{Name: "B", Branches: []ast.Branch{{Constructor: "X"}}})
	_, err := AnalyseADTs(p)
	assert.Error(t, err)
}
