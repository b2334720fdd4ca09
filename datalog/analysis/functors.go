package analysis

import (
	"fmt"
	"sort"

	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/ast"
)

// FunctorSignature is the resolved signature of a user-defined functor
type FunctorSignature struct {
	Params   []datalog.TypeAttribute
	Return   datalog.TypeAttribute
	Stateful bool
}

// ADTBranch describes one constructor after numbering
type ADTBranch struct {
	ADT    string
	ID     int
	Fields []datalog.TypeAttribute
}

// ADTAnalysis numbers constructors and classifies data types. Branch ids
// follow constructor name order within a type.
type ADTAnalysis struct {
	branches map[string]ADTBranch
	enums    map[string]bool
}

// typeOfName resolves a declared type name, treating declared ADT names
// as ADTs
func typeOfName(p *ast.Program, name string) datalog.TypeAttribute {
	if _, ok := p.ADT(name); ok {
		return datalog.TypeADT
	}
	return datalog.ParseTypeAttribute(name)
}

func analyseFunctors(p *ast.Program) map[string]FunctorSignature {
	out := make(map[string]FunctorSignature)
	for _, decl := range p.Functors() {
		sig := FunctorSignature{Return: typeOfName(p, decl.Returns), Stateful: decl.Stateful}
		for _, t := range decl.Params {
			sig.Params = append(sig.Params, typeOfName(p, t))
		}
		out[decl.Name] = sig
	}
	return out
}

// AnalyseADTs numbers the branches of every declared type
func AnalyseADTs(p *ast.Program) (*ADTAnalysis, error) {
	a := &ADTAnalysis{
		branches: make(map[string]ADTBranch),
		enums:    make(map[string]bool),
	}
	for _, adt := range p.ADTs() {
		branches := append([]ast.Branch(nil), adt.Branches...)
		sort.Slice(branches, func(i, j int) bool {
			return branches[i].Constructor < branches[j].Constructor
		})
		enum := true
		for id, b := range branches {
			if prev, dup := a.branches[b.Constructor]; dup {
				return nil, fmt.Errorf("constructor %s declared by both %s and %s", b.Constructor, prev.ADT, adt.Name)
			}
			branch := ADTBranch{ADT: adt.Name, ID: id}
			for _, f := range b.Fields {
				branch.Fields = append(branch.Fields, typeOfName(p, f))
			}
			if len(b.Fields) > 0 {
				enum = false
			}
			a.branches[b.Constructor] = branch
		}
		a.enums[adt.Name] = enum
	}
	return a, nil
}

// Branch looks up a constructor
func (a *ADTAnalysis) Branch(constructor string) (ADTBranch, bool) {
	b, ok := a.branches[constructor]
	return b, ok
}

// IsEnum reports whether every branch of the type has no fields
func (a *ADTAnalysis) IsEnum(adt string) bool { return a.enums[adt] }
