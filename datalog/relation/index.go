package relation

import (
	"fmt"
	"math/bits"

	"github.com/google/btree"

	"github.com/wbrown/janus-strata/datalog"
)

const btreeDegree = 16

// index is one ordering of a relation's tuples. The order is a permutation
// of the primary attributes; auxiliary attributes never take part in it.
type index[T tuple] struct {
	order []int
	less  btree.LessFunc[T]
	tree  *btree.BTreeG[T]
}

func newIndex[T tuple](order []int) *index[T] {
	less := orderLess[T](order)
	return &index[T]{
		order: order,
		less:  less,
		tree:  btree.NewG[T](btreeDegree, less),
	}
}

func orderLess[T tuple](order []int) btree.LessFunc[T] {
	return func(a, b T) bool {
		for _, c := range order {
			if a[c] != b[c] {
				return a[c] < b[c]
			}
		}
		return false
	}
}

// covers reports whether the attributes in mask form a prefix of the order
func (ix *index[T]) covers(mask uint64) bool {
	n := bits.OnesCount64(mask)
	for i := 0; i < n; i++ {
		if i >= len(ix.order) || mask&(1<<uint(ix.order[i])) == 0 {
			return false
		}
	}
	return true
}

// toArray copies a tuple into the fixed-width key; the width must match
// exactly, including auxiliary attributes
func toArray[T tuple](t Tuple) T {
	var a T
	if len(t) != len(a) {
		panic(fmt.Sprintf("tuple %v has %d values, relation stores %d", t, len(t), len(a)))
	}
	copy(a[:], t)
	return a
}

func toTuple[T tuple](a T) Tuple {
	out := make(Tuple, len(a))
	for i := range out {
		out[i] = a[i]
	}
	return out
}

// bounds turns user supplied lower/upper tuples into index keys plus the
// list of attributes that actually restrict the range. Nil bounds mean
// unbounded.
func bounds[T tuple](arity int, lo, hi Tuple) (T, T, []int) {
	var low, high T
	var restricted []int
	for i := 0; i < arity; i++ {
		l, h := datalog.MinDomain, datalog.MaxDomain
		if i < len(lo) {
			l = lo[i]
		}
		if i < len(hi) {
			h = hi[i]
		}
		low[i], high[i] = l, h
		if l != datalog.MinDomain || h != datalog.MaxDomain {
			restricted = append(restricted, i)
		}
	}
	return low, high, restricted
}
