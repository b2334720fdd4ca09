package analysis

import (
	"github.com/wbrown/janus-strata/datalog/ast"
)

// RecursiveClauses marks the clauses that must be evaluated inside a
// fixpoint loop
type RecursiveClauses struct {
	recursive map[ast.ClauseID]bool
}

// AnalyseRecursiveClauses marks a clause recursive when its head lives in a
// recursive component and either a positive body atom reads that component
// or the clause is subsumptive
func AnalyseRecursiveClauses(p *ast.Program, scc *SCCGraph) *RecursiveClauses {
	rc := &RecursiveClauses{recursive: make(map[ast.ClauseID]bool)}
	for _, c := range p.Clauses() {
		head := p.Relation(c.Head.Relation)
		if head == nil || c.IsFact() {
			continue
		}
		comp := scc.Component(head.ID)
		if !scc.IsRecursive(comp) {
			continue
		}
		if c.IsSubsumptive() {
			rc.recursive[c.ID] = true
			continue
		}
		for _, a := range c.BodyAtoms() {
			if rel := p.Relation(a.Relation); rel != nil && scc.Component(rel.ID) == comp {
				rc.recursive[c.ID] = true
				break
			}
		}
	}
	return rc
}

// IsRecursive reports whether clause c is recursive
func (rc *RecursiveClauses) IsRecursive(c *ast.Clause) bool { return rc.recursive[c.ID] }
