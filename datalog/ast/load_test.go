package ast

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pathYAML = `
relations:
  - name: Edge
    attributes: [{name: x, type: number}, {name: y, type: number}]
  - name: Path
    attributes: [{name: x, type: number}, {name: y, type: number}]
clauses:
  - head: {relation: Edge, args: [1, 2]}
  - head: {relation: Edge, args: [2, 3]}
  - head: {relation: Path, args: [x, y]}
    body:
      - atom: {relation: Edge, args: [x, y]}
  - head: {relation: Path, args: [x, z]}
    body:
      - atom: {relation: Edge, args: [x, y]}
      - atom: {relation: Path, args: [y, z]}
    plan: {0: [2, 1]}
directives:
  - {kind: output, relation: Path, params: {delimiter: ","}}
`

func TestLoadPathProgram(t *testing.T) {
	p, err := LoadYAML(strings.NewReader(pathYAML), "path.yaml")
	require.NoError(t, err)

	require.Len(t, p.Relations(), 2)
	assert.Equal(t, QualifiedName("Edge"), p.Relations()[0].Name)
	assert.Equal(t, 2, p.Relation("Path").Arity())

	clauses := p.Clauses()
	require.Len(t, clauses, 4)
	assert.True(t, clauses[0].IsFact())
	assert.Equal(t, "Edge(1, 2).", clauses[0].String())
	assert.Equal(t, KindRule, clauses[3].Kind)
	assert.Equal(t, "Path(x, z) :- Edge(x, y), Path(y, z). .plan 0:(2,1)", clauses[3].String())

	order, ok := clauses[3].Plan.Order(0)
	require.True(t, ok)
	assert.Equal(t, []int{2, 1}, order)

	assert.Equal(t, "path.yaml", clauses[2].Loc.File)
	assert.Positive(t, clauses[2].Loc.Line)

	require.Len(t, p.Directives(), 1)
	d := p.Directives()[0]
	assert.Equal(t, DirectiveOutput, d.Kind)
	assert.Equal(t, ",", d.Params["delimiter"])

	assert.Len(t, p.ClausesOf("Path"), 2)
}

func TestLoadArgumentForms(t *testing.T) {
	src := `
relations:
  - name: Best
    attributes: [{name: id, type: symbol}, {name: cost, type: number}]
    representation: btree_delete
    limitsize: 10
  - name: Out
    attributes: [{name: id, type: symbol}, {name: n, type: number}]
types:
  - name: Shape
    branches:
      - {constructor: Circle, fields: [number]}
      - {constructor: Empty}
functors:
  - {name: hash, params: [symbol], returns: number, stateful: false}
clauses:
  - head: {relation: Best, args: ["A", 10]}
  - head: {relation: Best, args: [id, cost]}
    subsumes: {relation: Best, args: [id, oldcost]}
    body:
      - constraint: {op: "<", lhs: cost, rhs: oldcost}
  - head: {relation: Out, args: [id, n]}
    body:
      - atom: {relation: Best, args: [id, _]}
      - not: {relation: Best, args: [id, 0]}
      - constraint:
          op: "="
          lhs: n
          rhs: {aggregate: count, body: [{atom: {relation: Best, args: [id, _]}}]}
      - constraint: {op: "<", lhs: {functor: "+", args: [n, 1.5]}, rhs: {call: hash, args: [id]}}
      - bool: true
      - constraint: {op: "!=", lhs: {branch: Circle, args: [n]}, rhs: {record: [n, $]}}
      - constraint: {op: "=", lhs: n, rhs: {number: "7", type: u}}
`
	p, err := LoadYAML(strings.NewReader(src), "best.yaml")
	require.NoError(t, err)

	best := p.Relation("Best")
	assert.Equal(t, RepresentationBTreeDelete, best.Representation)
	assert.Equal(t, 10, best.SizeLimit)

	_, ok := p.ADT("Shape")
	assert.True(t, ok)
	f, ok := p.Functor("hash")
	require.True(t, ok)
	assert.Equal(t, "number", f.Returns)

	clauses := p.Clauses()
	require.Len(t, clauses, 3)
	assert.Equal(t, `Best("A", 10).`, clauses[0].String())
	assert.True(t, clauses[1].IsSubsumptive())
	assert.Equal(t, "Best(id, cost) <= Best(id, oldcost) :- cost < oldcost.", clauses[1].String())

	body := clauses[2].Body
	require.Len(t, body, 7)
	assert.IsType(t, &Negation{}, body[1])
	agg, ok := body[2].(*BinaryConstraint).RHS.(*Aggregator)
	require.True(t, ok)
	assert.Equal(t, "count", agg.Op)
	assert.Nil(t, agg.Target)

	sum := body[3].(*BinaryConstraint).LHS.(*IntrinsicFunctor)
	assert.Equal(t, "f", sum.Args[1].(*NumericConstant).Type)
	assert.IsType(t, &UserDefinedFunctor{}, body[3].(*BinaryConstraint).RHS)
	assert.Equal(t, &BooleanConstraint{Value: true}, body[4])

	cmp := body[5].(*BinaryConstraint)
	assert.Equal(t, "$Circle(n)", cmp.LHS.String())
	assert.Equal(t, "[n, $]", cmp.RHS.String())

	u := body[6].(*BinaryConstraint).RHS.(*NumericConstant)
	assert.Equal(t, "u", u.Type)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := LoadYAML(strings.NewReader("relation: []\n"), "bad.yaml")
	assert.Error(t, err)

	_, err = LoadYAML(strings.NewReader(`
relations:
  - {name: A, attributes: [{name: x, type: number}], representation: hash}
`), "bad.yaml")
	assert.ErrorContains(t, err, "unknown representation")

	_, err = LoadYAML(strings.NewReader(`
relations:
  - {name: A, attributes: [{name: x, type: number}]}
directives:
  - {kind: explode, relation: A}
`), "bad.yaml")
	assert.ErrorContains(t, err, "unknown directive")
}

func TestDuplicateRelation(t *testing.T) {
	p := NewProgram()
	_, err := p.AddRelation("A")
	require.NoError(t, err)
	_, err = p.AddRelation("A")
	assert.Error(t, err)
	assert.Panics(t, func() { p.MustAddRelation("A") })
}

func TestArgumentVariablesSkipAggregateBodies(t *testing.T) {
	agg := &Aggregator{Op: "sum", Target: Var("c"), Body: []Literal{NewAtom("Cost", Var("x"), Var("c"))}}
	f := Fn("+", Var("a"), agg)
	assert.Equal(t, []string{"a"}, ArgumentVariables(f, nil))
	assert.Equal(t, []*Aggregator{agg}, ArgumentAggregators(f, nil))
	assert.Equal(t, "(a + sum c : { Cost(x, c) })", f.String())

	lit := Cmp(Var("n"), "=", agg)
	assert.Equal(t, []string{"n"}, LiteralVariables(lit, nil))
	assert.Equal(t, []*Aggregator{agg}, Aggregators(lit))
}

func TestNewRuleWithoutBodyIsFact(t *testing.T) {
	c := NewRule(NewAtom("A", Int(1)))
	assert.True(t, c.IsFact())
	assert.Equal(t, "A(1).", c.String())
}
