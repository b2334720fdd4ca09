package translator

import (
	"strings"

	"github.com/wbrown/janus-strata/datalog/ast"
	"github.com/wbrown/janus-strata/datalog/ram"
)

// orderAtoms greedily picks the best scoring atom given the variables bound
// so far. Ties go to the earlier atom, so SIPSStrict is declaration order.
func orderAtoms(metric SIPSMetric, atoms []atomSource, bound map[string]bool) []atomSource {
	if metric == SIPSStrict || len(atoms) < 2 {
		return atoms
	}
	bound = copyBound(bound)
	remaining := append([]atomSource(nil), atoms...)
	out := make([]atomSource, 0, len(atoms))
	for len(remaining) > 0 {
		best, bestScore := 0, score(metric, remaining[0], bound)
		for i := 1; i < len(remaining); i++ {
			if s := score(metric, remaining[i], bound); s > bestScore {
				best, bestScore = i, s
			}
		}
		chosen := remaining[best]
		out = append(out, chosen)
		remaining = append(remaining[:best], remaining[best+1:]...)
		for _, arg := range chosen.atom.Args {
			for _, v := range ast.ArgumentVariables(arg, nil) {
				bound[v] = true
			}
		}
	}
	return out
}

func copyBound(bound map[string]bool) map[string]bool {
	out := make(map[string]bool, len(bound))
	for k, v := range bound {
		out[k] = v
	}
	return out
}

// score rates an atom; higher is scheduled first
func score(metric SIPSMetric, src atomSource, bound map[string]bool) int {
	boundArgs, freeVars := 0, 0
	seen := make(map[string]bool)
	for _, arg := range src.atom.Args {
		switch a := arg.(type) {
		case *ast.UnnamedVariable:
		case *ast.Variable:
			if bound[a.Name] {
				boundArgs++
			} else if !seen[a.Name] {
				seen[a.Name] = true
				freeVars++
			}
		default:
			vars := ast.ArgumentVariables(arg, nil)
			ground := true
			for _, v := range vars {
				if !bound[v] {
					ground = false
					if !seen[v] {
						seen[v] = true
						freeVars++
					}
				}
			}
			if ground {
				boundArgs++
			}
		}
	}
	allBound := 0
	if freeVars == 0 {
		allBound = 1
	}
	switch metric {
	case SIPSAllBound:
		return allBound
	case SIPSMaxBound:
		return boundArgs
	case SIPSLeastFreeVars:
		return -freeVars
	case SIPSDelta:
		delta := 0
		if strings.HasPrefix(src.relation, ram.DeltaPrefix) {
			delta = 1
		}
		return delta<<16 | allBound<<8 | min(boundArgs, 255)
	}
	return 0
}
