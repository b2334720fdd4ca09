package datalog

import (
	"strings"
)

// CompareValues compares two domain values under the ordering of their
// type and returns:
//
//	-1 if left < right
//	 0 if left == right
//	 1 if left > right
//
// Symbols compare lexicographically by their text, records and ADTs by id.
func CompareValues(left, right RamDomain, t TypeAttribute, symbols *SymbolTable) int {
	switch t {
	case TypeUnsigned:
		return compareOrdered(AsUnsigned(left), AsUnsigned(right))
	case TypeFloat:
		return compareOrdered(AsFloat(left), AsFloat(right))
	case TypeSymbol:
		if left == right {
			return 0
		}
		return strings.Compare(symbols.Decode(left), symbols.Decode(right))
	default:
		return compareOrdered(left, right)
	}
}

// ValuesEqual checks equality. Every type except float is equal exactly
// when the raw words are equal; floats follow IEEE semantics.
func ValuesEqual(left, right RamDomain, t TypeAttribute) bool {
	if t == TypeFloat {
		return AsFloat(left) == AsFloat(right)
	}
	return left == right
}

// CompareTuples orders two raw tuples lexicographically by word value.
// This is the order indexes use, not a type-aware order.
func CompareTuples(a, b []RamDomain) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := compareOrdered(a[i], b[i]); c != 0 {
			return c
		}
	}
	return compareOrdered(len(a), len(b))
}

type ordered interface {
	~int | ~int64 | ~uint64 | ~float64
}

func compareOrdered[T ordered](a, b T) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}
