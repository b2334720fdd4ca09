package ast

import (
	"fmt"
	"sort"
	"strconv"
)

// LatticeDecl declares a lattice over an underlying type. Lub joins two
// values and is required; Glb and Bottom are optional and enable meets
// when a lattice value is read from several atoms of one clause.
type LatticeDecl struct {
	Name   string
	Type   string // underlying type name
	Lub    string // user-defined functor (T, T) -> T
	Glb    string // user-defined functor (T, T) -> T, or ""
	Bottom Argument
}

// AddLattice declares a lattice
func (p *Program) AddLattice(l *LatticeDecl) {
	if p.lattices == nil {
		p.lattices = make(map[string]*LatticeDecl)
	}
	p.lattices[l.Name] = l
}

// Lattice looks up a lattice declaration
func (p *Program) Lattice(name string) (*LatticeDecl, bool) {
	l, ok := p.lattices[name]
	return l, ok
}

// LatticePositions returns the attribute positions of rel that hold
// lattice values
func (p *Program) LatticePositions(rel *Relation) []int {
	var out []int
	for i, a := range rel.Attributes {
		if a.Lattice != "" {
			out = append(out, i)
		}
	}
	return out
}

// ExpandLattices rewrites lattice attributes into ordinary clauses. For
// every relation with lattice attributes it adds
//
//	R(k.., @lub(a, b)..) :- R(k.., a..), R(k.., b..).
//	R(k.., b..) <= R(k.., a..) :- @lub(a, b) = b, ...
//
// so each key keeps the join of its values. In user clauses, lattice
// values read from body atoms are renamed apart and met with glb; a meet
// equal to bottom discards the binding. Running it twice is a no-op.
func (p *Program) ExpandLattices() error {
	if p.latticesExpanded {
		return nil
	}
	p.latticesExpanded = true

	lattices := make(map[QualifiedName]map[int]*LatticeDecl)
	for _, rel := range p.relations {
		for _, pos := range p.LatticePositions(rel) {
			name := rel.Attributes[pos].Lattice
			l, ok := p.lattices[name]
			if !ok {
				return fmt.Errorf("relation %s: unknown lattice %s", rel.Name, name)
			}
			if err := p.checkLatticeFunctor(l, l.Lub); err != nil {
				return err
			}
			if l.Glb != "" {
				if err := p.checkLatticeFunctor(l, l.Glb); err != nil {
					return err
				}
			}
			if lattices[rel.Name] == nil {
				lattices[rel.Name] = make(map[int]*LatticeDecl)
			}
			lattices[rel.Name][pos] = l
		}
	}
	if len(lattices) == 0 {
		return nil
	}

	for _, c := range p.clauses {
		if c.IsSubsumptive() {
			continue
		}
		meetLatticeReads(c, lattices)
	}

	for _, rel := range p.relations {
		if positions := lattices[rel.Name]; positions != nil {
			p.addLatticeJoin(rel, positions)
		}
	}
	return nil
}

func (p *Program) checkLatticeFunctor(l *LatticeDecl, name string) error {
	f, ok := p.Functor(name)
	if !ok {
		return fmt.Errorf("lattice %s: functor @%s is not declared", l.Name, name)
	}
	if len(f.Params) != 2 {
		return fmt.Errorf("lattice %s: @%s must take two arguments", l.Name, name)
	}
	return nil
}

// addLatticeJoin adds the join rule and the subsumptive clause for rel
func (p *Program) addLatticeJoin(rel *Relation, positions map[int]*LatticeDecl) {
	n := rel.Arity()
	joined := make([]Argument, n)
	left := make([]Argument, n)
	right := make([]Argument, n)
	dominating := make([]Argument, n)
	dominated := make([]Argument, n)
	var checks []Literal
	for i := 0; i < n; i++ {
		l, ok := positions[i]
		if !ok {
			key := "<key" + strconv.Itoa(i) + ">"
			joined[i], left[i], right[i] = Var(key), Var(key), Var(key)
			dominating[i], dominated[i] = Var(key), Var(key)
			continue
		}
		a, b := "<a"+strconv.Itoa(i)+">", "<b"+strconv.Itoa(i)+">"
		joined[i] = &UserDefinedFunctor{Name: l.Lub, Args: []Argument{Var(a), Var(b)}}
		left[i], right[i] = Var(a), Var(b)
		dominating[i], dominated[i] = Var(b), Var(a)
		checks = append(checks, Cmp(&UserDefinedFunctor{Name: l.Lub, Args: []Argument{Var(a), Var(b)}}, "=", Var(b)))
	}

	join := NewRule(NewAtom(rel.Name, joined...), NewAtom(rel.Name, left...), NewAtom(rel.Name, right...))
	join.Loc = rel.Loc
	p.AddClause(join)

	keep := NewSubsumptiveRule(NewAtom(rel.Name, dominating...), NewAtom(rel.Name, dominated...), checks...)
	keep.Loc = rel.Loc
	p.AddClause(keep)
}

// meetLatticeReads renames lattice values read by positive body atoms.
// A variable read at several lattice positions becomes the glb of the
// reads; a non-variable read only matches when its glb with the stored
// value is above bottom.
func meetLatticeReads(c *Clause, lattices map[QualifiedName]map[int]*LatticeDecl) {
	reads := make(map[string][]string)
	kinds := make(map[string]*LatticeDecl)
	var order []string
	var extra []Literal
	fresh := 0

	for _, atom := range c.BodyAtoms() {
		positions := make([]int, 0, len(lattices[atom.Relation]))
		for pos := range lattices[atom.Relation] {
			positions = append(positions, pos)
		}
		sort.Ints(positions)
		for _, pos := range positions {
			l := lattices[atom.Relation][pos]
			if l.Glb == "" || l.Bottom == nil {
				continue
			}
			switch arg := atom.Args[pos].(type) {
			case *UnnamedVariable:
			case *Variable:
				name := fmt.Sprintf("%s<lattice%d>", arg.Name, fresh)
				fresh++
				if _, seen := reads[arg.Name]; !seen {
					order = append(order, arg.Name)
				}
				reads[arg.Name] = append(reads[arg.Name], name)
				kinds[arg.Name] = l
				atom.Args[pos] = Var(name)
			default:
				name := fmt.Sprintf("<lattice%d>", fresh)
				fresh++
				meet := &UserDefinedFunctor{Name: l.Glb, Args: []Argument{Var(name), arg}}
				extra = append(extra, Cmp(meet, "!=", cloneArgument(l.Bottom)))
				atom.Args[pos] = Var(name)
			}
		}
	}

	sort.Strings(order)
	for _, v := range order {
		l := kinds[v]
		names := reads[v]
		var meet Argument = Var(names[0])
		for _, n := range names[1:] {
			meet = &UserDefinedFunctor{Name: l.Glb, Args: []Argument{Var(n), meet}}
		}
		extra = append(extra,
			Cmp(Var(v), "=", meet),
			Cmp(Var(v), "!=", cloneArgument(l.Bottom)))
	}
	c.Body = append(c.Body, extra...)
}

// cloneArgument copies a constant term so every use gets its own node
func cloneArgument(arg Argument) Argument {
	cloneAll := func(args []Argument) []Argument {
		out := make([]Argument, len(args))
		for i, a := range args {
			out[i] = cloneArgument(a)
		}
		return out
	}
	switch a := arg.(type) {
	case *NumericConstant:
		c := *a
		return &c
	case *StringConstant:
		c := *a
		return &c
	case *Variable:
		return Var(a.Name)
	case *IntrinsicFunctor:
		return &IntrinsicFunctor{Op: a.Op, Args: cloneAll(a.Args)}
	case *UserDefinedFunctor:
		return &UserDefinedFunctor{Name: a.Name, Args: cloneAll(a.Args)}
	case *RecordInit:
		return &RecordInit{Args: cloneAll(a.Args)}
	case *BranchInit:
		return &BranchInit{Constructor: a.Constructor, Args: cloneAll(a.Args)}
	}
	return arg
}
