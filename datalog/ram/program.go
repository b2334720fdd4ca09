// Package ram is the relational algebra machine: the imperative
// intermediate form clause translation produces and the interpreter runs.
// Statements drive control flow, operations form nested-loop pipelines
// over relations, and expressions and conditions are evaluated against the
// tuples those loops bind.
package ram

import (
	"fmt"
	"strings"

	"github.com/wbrown/janus-strata/datalog"
)

// Representation selects the relation engine flavour
type Representation uint8

const (
	RepresentationBTree Representation = iota
	RepresentationBTreeDelete
)

// String returns the flavour name
func (r Representation) String() string {
	if r == RepresentationBTreeDelete {
		return "btree_delete"
	}
	return "btree"
}

// Relation declares a RAM relation
type Relation struct {
	Name           string
	Arity          int
	AuxiliaryArity int
	AttributeNames []string
	AttributeTypes []datalog.TypeAttribute
	Representation Representation
	// Temporary relations are the delta/new/delete working sets
	Temporary bool
}

// String renders "name(a:i,b:s)"
func (r *Relation) String() string {
	parts := make([]string, len(r.AttributeNames))
	for i, n := range r.AttributeNames {
		parts[i] = fmt.Sprintf("%s:%s", n, r.AttributeTypes[i])
	}
	s := fmt.Sprintf("%s(%s)", r.Name, strings.Join(parts, ","))
	if r.Representation == RepresentationBTreeDelete {
		s += " btree_delete"
	}
	return s
}

// Program is a list of relation declarations and a main statement
type Program struct {
	relations []*Relation
	byName    map[string]*Relation
	Main      Statement
}

// NewProgram creates an empty program
func NewProgram() *Program {
	return &Program{byName: make(map[string]*Relation)}
}

// AddRelation declares a relation; redeclaring a name replaces nothing and
// returns the existing declaration
func (p *Program) AddRelation(r *Relation) *Relation {
	if existing, ok := p.byName[r.Name]; ok {
		return existing
	}
	p.relations = append(p.relations, r)
	p.byName[r.Name] = r
	return r
}

// Relation looks up a declaration
func (p *Program) Relation(name string) (*Relation, bool) {
	r, ok := p.byName[name]
	return r, ok
}

// Relations returns declarations in insertion order
func (p *Program) Relations() []*Relation {
	return p.relations
}

// Working relation name prefixes
const (
	DeltaPrefix  = "@delta_"
	NewPrefix    = "@new_"
	DeletePrefix = "@delete_"
)

// DeltaName returns the delta companion of a relation
func DeltaName(name string) string { return DeltaPrefix + name }

// NewName returns the new-tuples companion of a relation
func NewName(name string) string { return NewPrefix + name }

// DeleteName returns the subsumption-delete companion of a relation
func DeleteName(name string) string { return DeletePrefix + name }

// BaseName strips any working relation prefix
func BaseName(name string) string {
	for _, p := range []string{DeltaPrefix, NewPrefix, DeletePrefix} {
		if strings.HasPrefix(name, p) {
			return name[len(p):]
		}
	}
	return name
}
