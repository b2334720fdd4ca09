package translator

import (
	"github.com/wbrown/janus-strata/datalog/ast"
	"github.com/wbrown/janus-strata/datalog/ram"
)

// binding is the RAM expression a variable or aggregate stands for, with
// the deepest loop level it reads
type binding struct {
	expr  ram.Expression
	level int
}

// ValueIndex maps the variables of one clause onto the loop levels that
// bind them. It lives only while the clause is translated.
type ValueIndex struct {
	vars       map[string]binding
	aggregates map[*ast.Aggregator]binding
}

func newValueIndex() *ValueIndex {
	return &ValueIndex{
		vars:       make(map[string]binding),
		aggregates: make(map[*ast.Aggregator]binding),
	}
}

// IsDefined reports whether a variable has a binding
func (vi *ValueIndex) IsDefined(name string) bool {
	_, ok := vi.vars[name]
	return ok
}

// Define binds a variable; the first definition wins
func (vi *ValueIndex) Define(name string, expr ram.Expression, level int) {
	if _, ok := vi.vars[name]; !ok {
		vi.vars[name] = binding{expr: expr, level: level}
	}
}

// Lookup returns the binding of a variable
func (vi *ValueIndex) Lookup(name string) (ram.Expression, int, bool) {
	b, ok := vi.vars[name]
	return b.expr, b.level, ok
}

// child returns an index that sees every binding of vi and whose own
// definitions stay local, as needed for aggregate bodies
func (vi *ValueIndex) child() *ValueIndex {
	c := newValueIndex()
	for k, v := range vi.vars {
		c.vars[k] = v
	}
	for k, v := range vi.aggregates {
		c.aggregates[k] = v
	}
	return c
}

// levelOf returns the deepest tuple level an expression reads, -1 when it
// reads none
func levelOf(nodes ...ram.Node) int {
	deepest := -1
	for _, n := range nodes {
		ram.Inspect(n, func(x ram.Node) bool {
			if te, ok := x.(*ram.TupleElement); ok && te.Level > deepest {
				deepest = te.Level
			}
			return true
		})
	}
	return deepest
}
