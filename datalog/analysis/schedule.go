package analysis

import (
	"fmt"
	"slices"

	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/ast"
)

// Stratum is one SCC in evaluation order
type Stratum struct {
	Index     int
	SCC       int
	Relations []ast.RelationID
	Recursive bool
	// Inputs are read here and defined by an earlier stratum
	Inputs []ast.RelationID
	// Outputs are defined here and read by a later stratum or stored
	Outputs []ast.RelationID
	// Expired relations are used for the last time in this stratum and
	// are not stored, so their tuples may be released afterwards
	Expired []ast.RelationID
}

// Schedule orders strata and checks stratification
func Schedule(p *ast.Program, g *DependencyGraph, scc *SCCGraph, io *IOAnalysis) ([]Stratum, error) {
	for c := 0; c < scc.Count(); c++ {
		for _, a := range scc.Relations(c) {
			for _, b := range g.DependsOn(a) {
				if scc.Component(b) == c && g.Negative(a, b) {
					return nil, fmt.Errorf("%w: %s depends on %s through negation or aggregation within one stratum",
						datalog.ErrUnstratifiable, p.RelationByID(a).Name, p.RelationByID(b).Name)
				}
			}
		}
	}

	order := scc.Order()
	position := make([]int, scc.Count())
	for i, c := range order {
		position[c] = i
	}

	// lastUse is the last stratum that defines or reads a relation
	lastUse := make([]int, g.Size())
	for r := range lastUse {
		lastUse[r] = position[scc.Component(ast.RelationID(r))]
	}
	for a := 0; a < g.Size(); a++ {
		reader := position[scc.Component(ast.RelationID(a))]
		for _, b := range g.DependsOn(ast.RelationID(a)) {
			lastUse[b] = max(lastUse[b], reader)
		}
	}

	strata := make([]Stratum, len(order))
	for i, c := range order {
		s := Stratum{
			Index:     i,
			SCC:       c,
			Relations: scc.Relations(c),
			Recursive: scc.IsRecursive(c),
		}
		var inputs []ast.RelationID
		for _, a := range s.Relations {
			for _, b := range g.DependsOn(a) {
				if scc.Component(b) != c {
					inputs = append(inputs, b)
				}
			}
			if lastUse[a] > i || io.IsStored(a) {
				s.Outputs = append(s.Outputs, a)
			}
		}
		slices.Sort(inputs)
		s.Inputs = slices.Compact(inputs)
		strata[i] = s
	}
	for r, last := range lastUse {
		if io.IsStored(ast.RelationID(r)) {
			continue
		}
		strata[last].Expired = append(strata[last].Expired, ast.RelationID(r))
	}
	return strata, nil
}
