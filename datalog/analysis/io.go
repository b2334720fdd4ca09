package analysis

import (
	"github.com/wbrown/janus-strata/datalog/ast"
)

// IOAnalysis groups directives by relation
type IOAnalysis struct {
	loads  map[ast.RelationID][]ast.Directive
	stores map[ast.RelationID][]ast.Directive
}

// AnalyseIO resolves directives to relations. Directives naming unknown
// relations are reported by Validate.
func AnalyseIO(p *ast.Program) *IOAnalysis {
	a := &IOAnalysis{
		loads:  make(map[ast.RelationID][]ast.Directive),
		stores: make(map[ast.RelationID][]ast.Directive),
	}
	for _, d := range p.Directives() {
		rel := p.Relation(d.Relation)
		if rel == nil {
			continue
		}
		if d.Kind == ast.DirectiveInput {
			a.loads[rel.ID] = append(a.loads[rel.ID], d)
		} else {
			a.stores[rel.ID] = append(a.stores[rel.ID], d)
		}
	}
	return a
}

// Loads returns the input directives of a relation
func (a *IOAnalysis) Loads(r ast.RelationID) []ast.Directive { return a.loads[r] }

// Stores returns the output and printsize directives of a relation
func (a *IOAnalysis) Stores(r ast.RelationID) []ast.Directive { return a.stores[r] }

// IsLoaded reports whether a relation has input directives
func (a *IOAnalysis) IsLoaded(r ast.RelationID) bool { return len(a.loads[r]) > 0 }

// IsStored reports whether a relation has output directives
func (a *IOAnalysis) IsStored(r ast.RelationID) bool { return len(a.stores[r]) > 0 }
