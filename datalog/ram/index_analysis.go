package ram

import (
	"math/bits"
	"sort"
	"strconv"
	"strings"
)

// Signature is the set of attributes bound by equality at a search site,
// one bit per attribute
type Signature uint64

// With returns the signature with attribute i added
func (s Signature) With(i int) Signature { return s | 1<<uint(i) }

// Has reports whether attribute i is bound
func (s Signature) Has(i int) bool { return s&(1<<uint(i)) != 0 }

// Len returns the number of bound attributes
func (s Signature) Len() int { return bits.OnesCount64(uint64(s)) }

// StrictSubsetOf reports s ⊂ o
func (s Signature) StrictSubsetOf(o Signature) bool {
	return s != o && s&o == s
}

// Attributes lists the bound attributes in ascending order
func (s Signature) Attributes() []int {
	var out []int
	for v := uint64(s); v != 0; v &= v - 1 {
		out = append(out, bits.TrailingZeros64(v))
	}
	return out
}

// Format renders the signature as a bit string, attribute 0 first
func (s Signature) Format(arity int) string {
	var sb strings.Builder
	for i := 0; i < arity; i++ {
		if s.Has(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// IndexSelection is the set of index orders chosen for a relation cluster
// and the index serving each search signature
type IndexSelection struct {
	Orders [][]int
	Lookup map[Signature]int
}

// IndexFor returns the index serving sig. Signatures that were never
// collected fall back to the primary index.
func (s *IndexSelection) IndexFor(sig Signature) int {
	if s == nil {
		return 0
	}
	return s.Lookup[sig]
}

// String renders the orders as "[0 1] [1 0]"
func (s *IndexSelection) String() string {
	parts := make([]string, len(s.Orders))
	for i, o := range s.Orders {
		nums := make([]string, len(o))
		for j, c := range o {
			nums[j] = strconv.Itoa(c)
		}
		parts[i] = "[" + strings.Join(nums, " ") + "]"
	}
	return strings.Join(parts, " ")
}

// IndexAnalysis holds a selection per relation. Working relations share
// the selection of their base relation since they are swapped and merged
// with it.
type IndexAnalysis struct {
	selections map[string]*IndexSelection
}

// Selection returns the selection for a relation by any of its names
func (a *IndexAnalysis) Selection(name string) *IndexSelection {
	return a.selections[BaseName(name)]
}

// AnalyseIndexes collects search signatures from every index scan, indexed
// aggregate and existence check of the program and selects index orders
// per relation cluster.
//
// Selection is a greedy chain cover: signatures sorted by size then value
// each extend the first chain whose tail they strictly contain, or start a
// new chain. It is a heuristic and can use more indexes than a minimum
// chain cover would.
func AnalyseIndexes(p *Program) *IndexAnalysis {
	searches := make(map[string]map[Signature]bool)
	record := func(rel string, sig Signature) {
		base := BaseName(rel)
		if searches[base] == nil {
			searches[base] = make(map[Signature]bool)
		}
		searches[base][sig] = true
	}
	Inspect(p.Main, func(n Node) bool {
		switch x := n.(type) {
		case *IndexScan:
			record(x.Relation, PatternSignature(x.Values))
		case *Aggregate:
			if x.Indexed() {
				record(x.Relation, PatternSignature(x.Values))
			}
		case *ExistenceCheck:
			record(x.Relation, PatternSignature(x.Values))
		}
		return true
	})

	a := &IndexAnalysis{selections: make(map[string]*IndexSelection)}
	for _, rel := range p.relations {
		if rel.Temporary {
			continue
		}
		var sigs []Signature
		for s := range searches[rel.Name] {
			sigs = append(sigs, s)
		}
		a.selections[rel.Name] = SelectIndexes(rel.Arity, sigs)
	}
	return a
}

// SelectIndexes computes orders covering every signature for a relation of
// the given arity
func SelectIndexes(arity int, signatures []Signature) *IndexSelection {
	full := Signature(1<<uint(arity)) - 1
	if arity >= 64 {
		full = ^Signature(0)
	}

	var sigs []Signature
	seen := make(map[Signature]bool)
	for _, s := range signatures {
		// auxiliary attributes never take part in index orders
		s &= full
		if s == 0 || s == full || seen[s] {
			continue
		}
		seen[s] = true
		sigs = append(sigs, s)
	}
	sort.Slice(sigs, func(i, j int) bool {
		if sigs[i].Len() != sigs[j].Len() {
			return sigs[i].Len() < sigs[j].Len()
		}
		return sigs[i] < sigs[j]
	})

	var chains [][]Signature
	for _, s := range sigs {
		placed := false
		for i, c := range chains {
			if c[len(c)-1].StrictSubsetOf(s) {
				chains[i] = append(c, s)
				placed = true
				break
			}
		}
		if !placed {
			chains = append(chains, []Signature{s})
		}
	}

	sel := &IndexSelection{Lookup: make(map[Signature]int)}
	for i, chain := range chains {
		sel.Orders = append(sel.Orders, chainOrder(arity, chain))
		for _, s := range chain {
			sel.Lookup[s] = i
		}
	}
	if len(sel.Orders) == 0 {
		order := make([]int, arity)
		for i := range order {
			order[i] = i
		}
		sel.Orders = [][]int{order}
	}
	sel.Lookup[0] = 0
	sel.Lookup[full] = 0
	return sel
}

func chainOrder(arity int, chain []Signature) []int {
	var order []int
	var prev Signature
	for _, s := range chain {
		order = append(order, (s &^ prev).Attributes()...)
		prev = s
	}
	for i := 0; i < arity; i++ {
		if !prev.Has(i) {
			order = append(order, i)
		}
	}
	return order
}
