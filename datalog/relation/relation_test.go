package relation

import (
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/janus-strata/datalog"
)

func tup(vals ...int64) Tuple {
	out := make(Tuple, len(vals))
	for i, v := range vals {
		out[i] = datalog.RamDomain(v)
	}
	return out
}

func collect(seq func(func(Tuple) bool)) []Tuple {
	var out []Tuple
	for t := range seq {
		out = append(out, t)
	}
	return out
}

func sorted(ts []Tuple) []Tuple {
	out := slices.Clone(ts)
	slices.SortFunc(out, datalog.CompareTuples)
	return out
}

func TestInsertIsIdempotent(t *testing.T) {
	r := MustNew(Config{Name: "Edge", Arity: 2, Orders: [][]int{{0, 1}, {1, 0}}})

	assert.True(t, r.Insert(tup(1, 2)))
	before := [][]Tuple{collect(r.Range(0, nil, nil)), collect(r.Range(1, nil, nil))}

	assert.False(t, r.Insert(tup(1, 2)), "second insert must report no change")
	after := [][]Tuple{collect(r.Range(0, nil, nil)), collect(r.Range(1, nil, nil))}

	assert.Equal(t, before, after)
	assert.Equal(t, 1, r.Size())
}

func TestIndexConsistency(t *testing.T) {
	r := MustNew(Config{
		Name:      "Triple",
		Arity:     3,
		Orders:    [][]int{{0, 1, 2}, {2, 0, 1}, {1, 2, 0}},
		Deletable: true,
	})
	d := r.(Deletable)

	for i := int64(0); i < 50; i++ {
		d.Insert(tup(i%7, i%5, i))
	}
	for i := int64(0); i < 50; i += 3 {
		d.Erase(tup(i%7, i%5, i))
	}
	d.Erase(tup(99, 99, 99)) // absent

	primary := sorted(collect(d.Range(0, nil, nil)))
	for pos := 1; pos < len(d.Orders()); pos++ {
		assert.Equal(t, primary, sorted(collect(d.Range(pos, nil, nil))), "index %d", pos)
	}
	assert.Equal(t, len(primary), d.Size())
}

func TestIndexIterationOrder(t *testing.T) {
	r := MustNew(Config{Name: "R", Arity: 2, Orders: [][]int{{0, 1}, {1, 0}}})
	r.Insert(tup(1, 9))
	r.Insert(tup(2, 1))
	r.Insert(tup(3, 5))

	assert.Equal(t, []Tuple{tup(1, 9), tup(2, 1), tup(3, 5)}, collect(r.Range(0, nil, nil)))
	assert.Equal(t, []Tuple{tup(2, 1), tup(3, 5), tup(1, 9)}, collect(r.Range(1, nil, nil)))
}

func TestRangeByPartialKey(t *testing.T) {
	r := MustNew(Config{Name: "R", Arity: 3, Orders: [][]int{{0, 1, 2}, {1, 0, 2}}})
	for a := int64(0); a < 4; a++ {
		for b := int64(0); b < 4; b++ {
			r.Insert(tup(a, b, a*b))
		}
	}

	lowest, highest := datalog.MinDomain, datalog.MaxDomain
	lo := Tuple{lowest, 2, lowest}
	hi := Tuple{highest, 2, highest}

	tests := []struct {
		name string
		pos  int
	}{
		{"covering index", r.IndexFor(0b010)},
		{"non covering index", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sorted(collect(r.Range(tt.pos, lo, hi)))
			assert.Equal(t, []Tuple{tup(0, 2, 0), tup(1, 2, 2), tup(2, 2, 4), tup(3, 2, 6)}, got)
		})
	}
	assert.Equal(t, 1, r.IndexFor(0b010))
	assert.Equal(t, 0, r.IndexFor(0b001))
	assert.Equal(t, 0, r.IndexFor(0))

	assert.True(t, r.Exists(1, lo, hi))
	assert.False(t, r.Exists(1, Tuple{lowest, 7, lowest}, Tuple{highest, 7, highest}))
}

func TestRangeIsRestartable(t *testing.T) {
	r := MustNew(Config{Name: "R", Arity: 1})
	r.Insert(tup(1))
	r.Insert(tup(2))

	seq := r.Scan()
	first := collect(seq)
	second := collect(seq)
	assert.Equal(t, first, second)
}

func TestRangeIteratesSnapshot(t *testing.T) {
	r := MustNew(Config{Name: "R", Arity: 1, Deletable: true})
	for i := int64(0); i < 10; i++ {
		r.Insert(tup(i))
	}

	seq := r.Scan()
	r.Insert(tup(100))
	r.(Deletable).Erase(tup(0))

	got := collect(seq)
	require.Len(t, got, 10)
	assert.Equal(t, tup(0), got[0])
	assert.Equal(t, 10, r.Size())
}

func TestAppendOnlyIsNotDeletable(t *testing.T) {
	r := MustNew(Config{Name: "R", Arity: 2})
	_, ok := r.(Deletable)
	assert.False(t, ok)

	d := MustNew(Config{Name: "R", Arity: 2, Deletable: true})
	_, ok = d.(Deletable)
	assert.True(t, ok)
}

func TestUnsupportedArity(t *testing.T) {
	tests := []struct {
		name      string
		arity     int
		auxiliary int
	}{
		{"arity 200", 200, 0},
		{"arity 65", 65, 0},
		{"width over max", 63, 2},
		{"too many auxiliary", 2, 3},
		{"negative", -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(Config{Name: "Wide", Arity: tt.arity, AuxiliaryArity: tt.auxiliary})
			require.Error(t, err)
			assert.True(t, errors.Is(err, datalog.ErrUnsupportedArity))
			assert.Nil(t, r)
		})
	}

	r, err := New(Config{Name: "Widest", Arity: 62, AuxiliaryArity: 2, Deletable: true})
	require.NoError(t, err)
	assert.Equal(t, 62, r.Arity())
}

func TestBadOrderRejected(t *testing.T) {
	_, err := New(Config{Name: "R", Arity: 2, Orders: [][]int{{0, 0}}})
	assert.Error(t, err)
	_, err = New(Config{Name: "R", Arity: 2, Orders: [][]int{{0}}})
	assert.Error(t, err)
}

func TestAuxiliaryExcludedFromKey(t *testing.T) {
	r := MustNew(Config{Name: "Ranked", Arity: 1, AuxiliaryArity: 1})

	assert.True(t, r.Insert(tup(5, 1)))
	assert.False(t, r.Insert(tup(5, 2)), "same key with different auxiliary is a duplicate")
	assert.True(t, r.Contains(tup(5, 9)))
	assert.Equal(t, []Tuple{tup(5, 1)}, collect(r.Scan()))
}

func TestWrongWidthPanics(t *testing.T) {
	r := MustNew(Config{Name: "Ranked", Arity: 2, AuxiliaryArity: 1, Deletable: true})

	assert.Panics(t, func() { r.Insert(tup(1, 2)) }, "auxiliary value missing")
	assert.Panics(t, func() { r.Insert(tup(1, 2, 3, 4)) })
	assert.Panics(t, func() { r.Contains(tup(1)) })
	assert.Panics(t, func() { r.(Deletable).Erase(tup(1, 2)) })
	assert.True(t, r.Empty())
}

func TestNullaryRelation(t *testing.T) {
	r := MustNew(Config{Name: "Flag", Arity: 0})
	assert.True(t, r.Empty())
	assert.True(t, r.Insert(Tuple{}))
	assert.False(t, r.Insert(Tuple{}))
	assert.Equal(t, 1, r.Size())
	assert.True(t, r.Exists(0, nil, nil))
}

func TestSwapPurgeInsertAll(t *testing.T) {
	a := MustNew(Config{Name: "A", Arity: 2, Deletable: true})
	b := MustNew(Config{Name: "B", Arity: 2})
	a.Insert(tup(1, 1))
	b.Insert(tup(2, 2))
	b.Insert(tup(3, 3))

	a.Swap(b)
	assert.Equal(t, []Tuple{tup(2, 2), tup(3, 3)}, collect(a.Scan()))
	assert.Equal(t, []Tuple{tup(1, 1)}, collect(b.Scan()))

	assert.Equal(t, 1, a.InsertAll(b))
	assert.Equal(t, 0, a.InsertAll(b))
	assert.Equal(t, 3, a.Size())

	assert.Equal(t, 1, a.(Deletable).EraseAll(b))
	assert.Equal(t, 2, a.Size())

	a.Purge()
	assert.True(t, a.Empty())
	assert.Equal(t, 1, b.Size())
}

func TestSwapIncompatiblePanics(t *testing.T) {
	a := MustNew(Config{Name: "A", Arity: 2})
	b := MustNew(Config{Name: "B", Arity: 3})
	assert.Panics(t, func() { a.Swap(b) })
}

func TestConcurrentInsertAndRange(t *testing.T) {
	r := MustNew(Config{Name: "R", Arity: 2, Orders: [][]int{{0, 1}, {1, 0}}})

	var wg sync.WaitGroup
	for w := int64(0); w < 4; w++ {
		wg.Add(1)
		go func(w int64) {
			defer wg.Done()
			for i := int64(0); i < 250; i++ {
				r.Insert(tup(w, i))
				for range r.Range(1, Tuple{datalog.MinDomain, datalog.RamDomain(i)}, nil) {
					break
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 1000, r.Size())
	assert.Equal(t, sorted(collect(r.Range(0, nil, nil))), sorted(collect(r.Range(1, nil, nil))))
}
