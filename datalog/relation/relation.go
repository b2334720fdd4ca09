// Package relation is the indexed tuple store. Every relation is a generic
// specialisation over a fixed-width array type chosen at construction from
// a dispatch table keyed by arity, auxiliary arity and delete capability.
//
// All indexes of a relation hold the same tuple set between operations.
// Writers are serialised by a relation-level lock; readers iterate a
// copy-on-write snapshot of the index taken when the range is requested.
package relation

import (
	"fmt"
	"iter"
	"sync"

	"github.com/google/btree"

	"github.com/wbrown/janus-strata/datalog"
)

// Engine bounds
const (
	MaxArity          = 64
	MaxAuxiliaryArity = 2
)

// Tuple is the boundary representation of a stored row
type Tuple = []datalog.RamDomain

// Config describes a relation to construct
type Config struct {
	Name           string
	Arity          int
	AuxiliaryArity int
	// Orders lists index key orders; each must be a permutation of
	// 0..Arity-1. Empty means a single index in attribute order.
	Orders    [][]int
	Deletable bool
}

// Relation is the append-only flavour shared by every specialisation
type Relation interface {
	Name() string
	Arity() int
	AuxiliaryArity() int

	// Insert adds t to every index; false when an equal tuple exists
	Insert(t Tuple) bool
	Contains(t Tuple) bool
	// Exists reports whether any tuple on index pos lies within [lo, hi]
	Exists(pos int, lo, hi Tuple) bool
	Range(pos int, lo, hi Tuple) iter.Seq[Tuple]
	Scan() iter.Seq[Tuple]

	InsertAll(src Relation) int
	Purge()
	Swap(other Relation)
	Size() int
	Empty() bool

	IndexFor(mask uint64) int
	Orders() [][]int
}

// Deletable relations additionally support physical erasure
type Deletable interface {
	Relation
	Erase(t Tuple) bool
	EraseAll(src Relation) int
}

// New constructs a relation through the specialisation table.
// Unsupported shapes return ErrUnsupportedArity and create nothing.
func New(cfg Config) (Relation, error) {
	if cfg.Arity < 0 || cfg.AuxiliaryArity < 0 {
		return nil, fmt.Errorf("relation %s: %w: negative arity", cfg.Name, datalog.ErrUnsupportedArity)
	}
	f, ok := dispatch[specKey{cfg.Arity, cfg.AuxiliaryArity, cfg.Deletable}]
	if !ok {
		return nil, fmt.Errorf("relation %s: %w: arity %d with %d auxiliary (max total %d, max auxiliary %d)",
			cfg.Name, datalog.ErrUnsupportedArity, cfg.Arity, cfg.AuxiliaryArity, MaxArity, MaxAuxiliaryArity)
	}
	if len(cfg.Orders) == 0 {
		cfg.Orders = [][]int{identity(cfg.Arity)}
	}
	for _, order := range cfg.Orders {
		if err := checkOrder(order, cfg.Arity); err != nil {
			return nil, fmt.Errorf("relation %s: %w", cfg.Name, err)
		}
	}
	return f(cfg), nil
}

// MustNew is New for callers that already validated the shape
func MustNew(cfg Config) Relation {
	r, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return r
}

func identity(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func checkOrder(order []int, arity int) error {
	if len(order) != arity {
		return fmt.Errorf("index order %v has %d attributes, want %d", order, len(order), arity)
	}
	seen := make([]bool, arity)
	for _, c := range order {
		if c < 0 || c >= arity || seen[c] {
			return fmt.Errorf("index order %v is not a permutation", order)
		}
		seen[c] = true
	}
	return nil
}

type btreeRelation[T tuple] struct {
	mu        sync.RWMutex
	name      string
	arity     int
	auxiliary int
	indexes   []*index[T]
}

func newBTreeRelation[T tuple](cfg Config) *btreeRelation[T] {
	r := &btreeRelation[T]{
		name:      cfg.Name,
		arity:     cfg.Arity,
		auxiliary: cfg.AuxiliaryArity,
	}
	for _, order := range cfg.Orders {
		r.indexes = append(r.indexes, newIndex[T](append([]int(nil), order...)))
	}
	return r
}

func (r *btreeRelation[T]) Name() string        { return r.name }
func (r *btreeRelation[T]) Arity() int          { return r.arity }
func (r *btreeRelation[T]) AuxiliaryArity() int { return r.auxiliary }

func (r *btreeRelation[T]) Insert(t Tuple) bool {
	a := toArray[T](t)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(a)
}

func (r *btreeRelation[T]) insertLocked(a T) bool {
	if r.indexes[0].tree.Has(a) {
		return false
	}
	for _, ix := range r.indexes {
		ix.tree.ReplaceOrInsert(a)
	}
	return true
}

func (r *btreeRelation[T]) Contains(t Tuple) bool {
	a := toArray[T](t)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexes[0].tree.Has(a)
}

func (r *btreeRelation[T]) Exists(pos int, lo, hi Tuple) bool {
	for range r.Range(pos, lo, hi) {
		return true
	}
	return false
}

// snapshot clones an index tree. Clone rewires the copy-on-write context
// of the source so it needs the exclusive lock.
func (r *btreeRelation[T]) snapshot(pos int) *index[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	ix := r.indexes[pos]
	return &index[T]{order: ix.order, less: ix.less, tree: ix.tree.Clone()}
}

func (r *btreeRelation[T]) Range(pos int, lo, hi Tuple) iter.Seq[Tuple] {
	snap := r.snapshot(pos)
	low, high, restricted := bounds[T](r.arity, lo, hi)
	return func(yield func(Tuple) bool) {
		snap.tree.AscendGreaterOrEqual(low, func(item T) bool {
			if snap.less(high, item) {
				return false
			}
			for _, c := range restricted {
				if item[c] < low[c] || item[c] > high[c] {
					return true
				}
			}
			return yield(toTuple(item))
		})
	}
}

func (r *btreeRelation[T]) Scan() iter.Seq[Tuple] {
	snap := r.snapshot(0)
	return func(yield func(Tuple) bool) {
		snap.tree.Ascend(func(item T) bool {
			return yield(toTuple(item))
		})
	}
}

func (r *btreeRelation[T]) InsertAll(src Relation) int {
	added := 0
	for t := range src.Scan() {
		if r.Insert(t) {
			added++
		}
	}
	return added
}

func (r *btreeRelation[T]) Purge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ix := range r.indexes {
		ix.tree = btree.NewG[T](btreeDegree, ix.less)
	}
}

// Swap exchanges contents with another relation of the same shape.
// Index orders travel with the trees, so both sides must share a cluster.
func (r *btreeRelation[T]) Swap(other Relation) {
	o := unwrap[T](other)
	if o == r {
		return
	}
	if o == nil {
		panic(fmt.Sprintf("swap %s with %s: incompatible relations", r.name, other.Name()))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	o.mu.Lock()
	defer o.mu.Unlock()
	r.indexes, o.indexes = o.indexes, r.indexes
}

func (r *btreeRelation[T]) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexes[0].tree.Len()
}

func (r *btreeRelation[T]) Empty() bool { return r.Size() == 0 }

// IndexFor returns the first index whose order starts with the attributes
// in mask, or 0 when none does. Range filters every restricted attribute,
// so a non-covering index is slower but still correct.
func (r *btreeRelation[T]) IndexFor(mask uint64) int {
	for i, ix := range r.indexes {
		if ix.covers(mask) {
			return i
		}
	}
	return 0
}

func (r *btreeRelation[T]) Orders() [][]int {
	out := make([][]int, len(r.indexes))
	for i, ix := range r.indexes {
		out[i] = append([]int(nil), ix.order...)
	}
	return out
}

func (r *btreeRelation[T]) String() string {
	return fmt.Sprintf("%s/%d", r.name, r.arity)
}

type deletableRelation[T tuple] struct {
	*btreeRelation[T]
}

func (r *deletableRelation[T]) Erase(t Tuple) bool {
	a := toArray[T](t)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := false
	for _, ix := range r.indexes {
		if _, ok := ix.tree.Delete(a); ok {
			removed = true
		}
	}
	return removed
}

func (r *deletableRelation[T]) EraseAll(src Relation) int {
	erased := 0
	for t := range src.Scan() {
		if r.Erase(t) {
			erased++
		}
	}
	return erased
}

func unwrap[T tuple](rel Relation) *btreeRelation[T] {
	switch x := rel.(type) {
	case *btreeRelation[T]:
		return x
	case *deletableRelation[T]:
		return x.btreeRelation
	default:
		return nil
	}
}
