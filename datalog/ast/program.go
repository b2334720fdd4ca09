// Package ast holds the type-checked program the compiler consumes: relation
// declarations, clauses, directives and the functor/ADT declarations the
// translator needs. Relations and clauses are owned by the Program arena and
// referred to by dense integer ids.
package ast

import (
	"fmt"
	"sort"
	"strings"
)

// QualifiedName is a dotted relation name such as "graph.Edge"
type QualifiedName string

// String returns the name
func (q QualifiedName) String() string { return string(q) }

// RelationID is the arena handle of a relation
type RelationID int

// ClauseID is the arena handle of a clause
type ClauseID int

// SrcLocation is carried for error messages only
type SrcLocation struct {
	File   string
	Line   int
	Column int
}

// String renders file:line:col, or "" when unknown
func (l SrcLocation) String() string {
	if l.File == "" && l.Line == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Representation selects the relation engine flavour
type Representation uint8

const (
	// RepresentationDefault lets the compiler choose; relations with
	// subsumptive clauses become deletable, everything else append-only.
	RepresentationDefault Representation = iota
	RepresentationBTree
	RepresentationBTreeDelete
)

// String returns the directive spelling of the representation
func (r Representation) String() string {
	switch r {
	case RepresentationBTree:
		return "btree"
	case RepresentationBTreeDelete:
		return "btree_delete"
	default:
		return "default"
	}
}

// Attribute is a named, typed relation column
type Attribute struct {
	Name string
	Type string // declared type name: number, unsigned, float, symbol, or an ADT/record type
	// Lattice names the lattice the column joins over; Type is then the
	// lattice's underlying type
	Lattice string
}

// Relation is a relation declaration
type Relation struct {
	ID             RelationID
	Name           QualifiedName
	Attributes     []Attribute
	AuxiliaryArity int
	Representation Representation
	SizeLimit      int // 0 = unlimited
	Loc            SrcLocation
}

// Arity returns the number of declared attributes
func (r *Relation) Arity() int { return len(r.Attributes) }

// String renders the declaration
func (r *Relation) String() string {
	parts := make([]string, len(r.Attributes))
	for i, a := range r.Attributes {
		parts[i] = a.Name + ":" + a.Type
		if a.Lattice != "" {
			parts[i] = a.Name + ":" + a.Lattice + "<>"
		}
	}
	return fmt.Sprintf(".decl %s(%s)", r.Name, strings.Join(parts, ", "))
}

// DirectiveKind distinguishes I/O directives
type DirectiveKind uint8

const (
	DirectiveInput DirectiveKind = iota
	DirectiveOutput
	DirectivePrintSize
)

// String returns the directive keyword
func (k DirectiveKind) String() string {
	switch k {
	case DirectiveInput:
		return "input"
	case DirectiveOutput:
		return "output"
	case DirectivePrintSize:
		return "printsize"
	default:
		return fmt.Sprintf("directive(%d)", uint8(k))
	}
}

// Directive is an I/O directive attached to a relation. Parameters are
// opaque to the compiler and handed to the I/O collaborator.
type Directive struct {
	Kind     DirectiveKind
	Relation QualifiedName
	Params   map[string]string
}

// FunctorDecl declares a user-defined functor
type FunctorDecl struct {
	Name     string
	Params   []string // type names
	Returns  string
	Stateful bool
}

// Branch is one constructor of an algebraic data type
type Branch struct {
	Constructor string
	Fields      []string // type names
}

// ADTDecl declares an algebraic data type
type ADTDecl struct {
	Name     string
	Branches []Branch
}

// Program is the arena owning all declarations of a translation unit
type Program struct {
	relations  []*Relation
	byName     map[QualifiedName]RelationID
	clauses    []*Clause
	directives []Directive
	functors   map[string]*FunctorDecl
	adts       map[string]*ADTDecl
	adtOrder   []string
	lattices   map[string]*LatticeDecl

	latticesExpanded bool
}

// NewProgram creates an empty program
func NewProgram() *Program {
	return &Program{
		byName:   make(map[QualifiedName]RelationID),
		functors: make(map[string]*FunctorDecl),
		adts:     make(map[string]*ADTDecl),
		lattices: make(map[string]*LatticeDecl),
	}
}

// AddRelation declares a relation and assigns its id.
// Redeclaring a name is a definition error.
func (p *Program) AddRelation(name QualifiedName, attrs ...Attribute) (*Relation, error) {
	if _, exists := p.byName[name]; exists {
		return nil, fmt.Errorf("relation %s declared twice", name)
	}
	rel := &Relation{
		ID:         RelationID(len(p.relations)),
		Name:       name,
		Attributes: attrs,
	}
	p.relations = append(p.relations, rel)
	p.byName[name] = rel.ID
	return rel, nil
}

// MustAddRelation is AddRelation for programs built in code and tests
func (p *Program) MustAddRelation(name QualifiedName, attrs ...Attribute) *Relation {
	rel, err := p.AddRelation(name, attrs...)
	if err != nil {
		panic(err)
	}
	return rel
}

// Relation looks up a relation by name; nil when undeclared
func (p *Program) Relation(name QualifiedName) *Relation {
	id, ok := p.byName[name]
	if !ok {
		return nil
	}
	return p.relations[id]
}

// RelationByID returns the relation with the given id
func (p *Program) RelationByID(id RelationID) *Relation {
	return p.relations[id]
}

// Relations returns relations in declaration order
func (p *Program) Relations() []*Relation {
	return p.relations
}

// AddClause appends a clause and assigns its id
func (p *Program) AddClause(c *Clause) *Clause {
	c.ID = ClauseID(len(p.clauses))
	p.clauses = append(p.clauses, c)
	return c
}

// Clauses returns clauses in declaration order
func (p *Program) Clauses() []*Clause {
	return p.clauses
}

// ClauseByID returns the clause with the given id
func (p *Program) ClauseByID(id ClauseID) *Clause {
	return p.clauses[id]
}

// ClausesOf returns the clauses whose head is the given relation
func (p *Program) ClausesOf(name QualifiedName) []*Clause {
	var out []*Clause
	for _, c := range p.clauses {
		if c.Head.Relation == name {
			out = append(out, c)
		}
	}
	return out
}

// AddDirective records an I/O directive
func (p *Program) AddDirective(d Directive) {
	p.directives = append(p.directives, d)
}

// Directives returns all directives in declaration order
func (p *Program) Directives() []Directive {
	return p.directives
}

// AddFunctor declares a user-defined functor
func (p *Program) AddFunctor(f *FunctorDecl) {
	p.functors[f.Name] = f
}

// Functor looks up a functor declaration
func (p *Program) Functor(name string) (*FunctorDecl, bool) {
	f, ok := p.functors[name]
	return f, ok
}

// Functors returns functor declarations ordered by name
func (p *Program) Functors() []*FunctorDecl {
	out := make([]*FunctorDecl, 0, len(p.functors))
	for _, f := range p.functors {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AddADT declares an algebraic data type
func (p *Program) AddADT(t *ADTDecl) {
	if _, ok := p.adts[t.Name]; !ok {
		p.adtOrder = append(p.adtOrder, t.Name)
	}
	p.adts[t.Name] = t
}

// ADT looks up an ADT declaration by type name
func (p *Program) ADT(name string) (*ADTDecl, bool) {
	t, ok := p.adts[name]
	return t, ok
}

// ADTs returns ADT declarations in declaration order
func (p *Program) ADTs() []*ADTDecl {
	out := make([]*ADTDecl, len(p.adtOrder))
	for i, n := range p.adtOrder {
		out[i] = p.adts[n]
	}
	return out
}
