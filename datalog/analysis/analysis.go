// Package analysis computes the facts about a Datalog program that
// translation needs: the relation dependency graph and its strongly
// connected components, the stratum schedule, which clauses are
// recursive, how directives attach to relations, and the types of
// variables, constants and operators.
package analysis

import (
	"fmt"

	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/ast"
)

// Analyses bundles every analysis result for one program
type Analyses struct {
	Program          *ast.Program
	Graph            *DependencyGraph
	SCC              *SCCGraph
	Strata           []Stratum
	RecursiveClauses *RecursiveClauses
	IO               *IOAnalysis
	Functors         map[string]FunctorSignature
	ADTs             *ADTAnalysis
	Types            *TypeAnalysis
}

// Run expands lattice attributes, validates p and computes all analyses
func Run(p *ast.Program) (*Analyses, error) {
	if err := p.ExpandLattices(); err != nil {
		return nil, err
	}
	if err := Validate(p); err != nil {
		return nil, err
	}
	a := &Analyses{
		Program:  p,
		Graph:    BuildDependencyGraph(p),
		IO:       AnalyseIO(p),
		Functors: analyseFunctors(p),
	}
	a.SCC = ComputeSCC(a.Graph)
	strata, err := Schedule(p, a.Graph, a.SCC, a.IO)
	if err != nil {
		return nil, err
	}
	a.Strata = strata
	a.RecursiveClauses = AnalyseRecursiveClauses(p, a.SCC)
	if a.ADTs, err = AnalyseADTs(p); err != nil {
		return nil, fmt.Errorf("types: %w", err)
	}
	if a.Types, err = AnalyseTypes(p, a.Functors, a.ADTs); err != nil {
		return nil, err
	}
	return a, nil
}

// AttributeTypes resolves the declared attribute types of a relation
func (a *Analyses) AttributeTypes(rel *ast.Relation) []datalog.TypeAttribute {
	out := make([]datalog.TypeAttribute, len(rel.Attributes))
	for i, attr := range rel.Attributes {
		out[i] = typeOfName(a.Program, attr.Type)
	}
	return out
}
