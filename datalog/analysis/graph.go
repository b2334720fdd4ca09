package analysis

import (
	"slices"

	"github.com/wbrown/janus-strata/datalog/ast"
)

// DependencyGraph has an edge B→A when a clause defining A mentions B in
// its body. Edges are stored on A as the list of relations it depends on.
type DependencyGraph struct {
	deps     [][]ast.RelationID
	negative map[[2]ast.RelationID]bool
}

// BuildDependencyGraph scans every clause of the program. Negated atoms
// and aggregate bodies produce negative edges; subsumptive clauses make
// their relation depend on itself.
func BuildDependencyGraph(p *ast.Program) *DependencyGraph {
	g := &DependencyGraph{
		deps:     make([][]ast.RelationID, len(p.Relations())),
		negative: make(map[[2]ast.RelationID]bool),
	}
	for _, c := range p.Clauses() {
		head := p.Relation(c.Head.Relation)
		if head == nil {
			continue
		}
		add := func(name ast.QualifiedName, negative bool) {
			if dep := p.Relation(name); dep != nil {
				g.addEdge(head.ID, dep.ID, negative)
			}
		}
		if c.IsSubsumptive() {
			add(c.SubsumptiveHead.Relation, false)
		}
		for _, lit := range c.Body {
			visitLiteralAtoms(lit, false, add)
		}
		for _, arg := range c.Head.Args {
			visitArgumentAtoms(arg, add)
		}
	}
	for i := range g.deps {
		slices.Sort(g.deps[i])
		g.deps[i] = slices.Compact(g.deps[i])
	}
	return g
}

// visitLiteralAtoms calls fn for every relation a literal reads, including
// atoms nested inside aggregates; negative is true for negated and
// aggregated reads
func visitLiteralAtoms(lit ast.Literal, negative bool, fn func(ast.QualifiedName, bool)) {
	switch l := lit.(type) {
	case *ast.Atom:
		fn(l.Relation, negative)
		for _, a := range l.Args {
			visitArgumentAtoms(a, fn)
		}
	case *ast.Negation:
		fn(l.Atom.Relation, true)
	case *ast.BinaryConstraint:
		visitArgumentAtoms(l.LHS, fn)
		visitArgumentAtoms(l.RHS, fn)
	}
}

func visitArgumentAtoms(arg ast.Argument, fn func(ast.QualifiedName, bool)) {
	for _, agg := range ast.ArgumentAggregators(arg, nil) {
		for _, lit := range agg.Body {
			visitLiteralAtoms(lit, true, fn)
		}
		if agg.Target != nil {
			visitArgumentAtoms(agg.Target, fn)
		}
	}
}

func (g *DependencyGraph) addEdge(a, b ast.RelationID, negative bool) {
	g.deps[a] = append(g.deps[a], b)
	if negative {
		g.negative[[2]ast.RelationID{a, b}] = true
	}
}

// Size returns the number of relations
func (g *DependencyGraph) Size() int { return len(g.deps) }

// DependsOn lists the relations a reads, ascending
func (g *DependencyGraph) DependsOn(a ast.RelationID) []ast.RelationID { return g.deps[a] }

// Negative reports whether a reads b through a negation or an aggregate
func (g *DependencyGraph) Negative(a, b ast.RelationID) bool {
	return g.negative[[2]ast.RelationID{a, b}]
}

// SCCGraph is the condensation of a dependency graph
type SCCGraph struct {
	components [][]ast.RelationID
	of         []int
	recursive  []bool
	deps       [][]int
	order      []int
}

// ComputeSCC runs Tarjan's algorithm and orders the condensation
// topologically with Kahn's algorithm. Among components that are ready at
// the same time the one holding the smallest relation id goes first, which
// keeps the order tied to declaration order.
func ComputeSCC(g *DependencyGraph) *SCCGraph {
	n := g.Size()
	s := &SCCGraph{of: make([]int, n)}

	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}
	var stack []ast.RelationID
	next := 0

	var strongConnect func(v ast.RelationID)
	strongConnect = func(v ast.RelationID) {
		index[v], low[v] = next, next
		next++
		stack = append(stack, v)
		onStack[v] = true
		for _, w := range g.deps[v] {
			if index[w] < 0 {
				strongConnect(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}
		if low[v] != index[v] {
			return
		}
		id := len(s.components)
		var comp []ast.RelationID
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			s.of[w] = id
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		slices.Sort(comp)
		s.components = append(s.components, comp)
	}
	for v := 0; v < n; v++ {
		if index[v] < 0 {
			strongConnect(ast.RelationID(v))
		}
	}

	s.recursive = make([]bool, len(s.components))
	s.deps = make([][]int, len(s.components))
	for c, comp := range s.components {
		if len(comp) > 1 {
			s.recursive[c] = true
		}
		for _, a := range comp {
			for _, b := range g.deps[a] {
				if b == a {
					s.recursive[c] = true
				}
				if d := s.of[b]; d != c {
					s.deps[c] = append(s.deps[c], d)
				}
			}
		}
		slices.Sort(s.deps[c])
		s.deps[c] = slices.Compact(s.deps[c])
	}
	s.order = s.topologicalOrder()
	return s
}

func (s *SCCGraph) topologicalOrder() []int {
	pending := make([]int, len(s.components))
	dependents := make([][]int, len(s.components))
	for c, deps := range s.deps {
		pending[c] = len(deps)
		for _, d := range deps {
			dependents[d] = append(dependents[d], c)
		}
	}
	first := func(c int) ast.RelationID { return s.components[c][0] }

	var ready, order []int
	for c := range s.components {
		if pending[c] == 0 {
			ready = append(ready, c)
		}
	}
	for len(ready) > 0 {
		slices.SortFunc(ready, func(a, b int) int { return int(first(a)) - int(first(b)) })
		c := ready[0]
		ready = ready[1:]
		order = append(order, c)
		for _, d := range dependents[c] {
			pending[d]--
			if pending[d] == 0 {
				ready = append(ready, d)
			}
		}
	}
	return order
}

// Count returns the number of components
func (s *SCCGraph) Count() int { return len(s.components) }

// Component returns the component of a relation
func (s *SCCGraph) Component(r ast.RelationID) int { return s.of[r] }

// Relations returns the members of component c, ascending
func (s *SCCGraph) Relations(c int) []ast.RelationID { return s.components[c] }

// IsRecursive reports whether c has more than one member or a self-loop
func (s *SCCGraph) IsRecursive(c int) bool { return s.recursive[c] }

// DependsOn lists the components c reads, ascending
func (s *SCCGraph) DependsOn(c int) []int { return s.deps[c] }

// Order returns the components in evaluation order
func (s *SCCGraph) Order() []int { return s.order }
