package ast

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const intervalYAML = `
functors:
  - {name: ilub, params: [pair, pair], returns: pair, stateful: true}
  - {name: iglb, params: [pair, pair], returns: pair, stateful: true}
lattices:
  - {name: Interval, type: pair, lub: ilub, glb: iglb, bottom: {record: [1000, -1000]}}
relations:
  - name: Range
    attributes: [{name: v, type: symbol}, {name: i, type: Interval}]
  - name: Window
    attributes: [{name: v, type: symbol}, {name: i, type: Interval}]
  - name: Overlap
    attributes: [{name: v, type: symbol}, {name: i, type: pair}]
clauses:
  - head: {relation: Overlap, args: [v, i]}
    body:
      - atom: {relation: Range, args: [v, i]}
      - atom: {relation: Window, args: [v, i]}
`

func clauseStrings(p *Program) []string {
	var out []string
	for _, c := range p.Clauses() {
		out = append(out, c.String())
	}
	return out
}

func TestExpandLattices(t *testing.T) {
	p, err := LoadYAML(strings.NewReader(intervalYAML), "lattice.yaml")
	require.NoError(t, err)

	rng := p.Relation("Range")
	require.NotNil(t, rng)
	assert.Equal(t, Attribute{Name: "i", Type: "pair", Lattice: "Interval"}, rng.Attributes[1])
	assert.Equal(t, []int{1}, p.LatticePositions(rng))

	require.NoError(t, p.ExpandLattices())
	assert.Equal(t, []string{
		"Overlap(v, i) :- Range(v, i<lattice0>), Window(v, i<lattice1>), i = @iglb(i<lattice1>, i<lattice0>), i != [1000, -1000].",
		"Range(<key0>, @ilub(<a1>, <b1>)) :- Range(<key0>, <a1>), Range(<key0>, <b1>).",
		"Range(<key0>, <b1>) <= Range(<key0>, <a1>) :- @ilub(<a1>, <b1>) = <b1>.",
		"Window(<key0>, @ilub(<a1>, <b1>)) :- Window(<key0>, <a1>), Window(<key0>, <b1>).",
		"Window(<key0>, <b1>) <= Window(<key0>, <a1>) :- @ilub(<a1>, <b1>) = <b1>.",
	}, clauseStrings(p))

	before := len(p.Clauses())
	require.NoError(t, p.ExpandLattices())
	assert.Len(t, p.Clauses(), before, "expansion runs once")
}

func TestLatticeConstantReadsMeetBottom(t *testing.T) {
	p, err := LoadYAML(strings.NewReader(intervalYAML+`
  - head: {relation: Overlap, args: [v, {record: [0, 5]}]}
    body:
      - atom: {relation: Range, args: [v, {record: [0, 5]}]}
`), "lattice.yaml")
	require.NoError(t, err)
	require.NoError(t, p.ExpandLattices())
	assert.Contains(t, clauseStrings(p),
		"Overlap(v, [0, 5]) :- Range(v, <lattice0>), @iglb(<lattice0>, [0, 5]) != [1000, -1000].")
}

func TestLatticeErrors(t *testing.T) {
	_, err := LoadYAML(strings.NewReader(`
lattices:
  - {name: Interval, type: pair}
`), "bad.yaml")
	assert.ErrorContains(t, err, "lub functor is required")

	p, err := LoadYAML(strings.NewReader(`
lattices:
  - {name: Interval, type: pair, lub: ilub}
relations:
  - name: Range
    attributes: [{name: i, type: Interval}]
`), "bad.yaml")
	require.NoError(t, err)
	assert.ErrorContains(t, p.ExpandLattices(), "functor @ilub is not declared")

	p, err = LoadYAML(strings.NewReader(`
functors:
  - {name: ilub, params: [pair], returns: pair}
lattices:
  - {name: Interval, type: pair, lub: ilub}
relations:
  - name: Range
    attributes: [{name: i, type: Interval}]
`), "bad.yaml")
	require.NoError(t, err)
	assert.ErrorContains(t, p.ExpandLattices(), "must take two arguments")
}
