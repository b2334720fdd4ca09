package datalog

import (
	"math"
	"testing"
)

func TestCompareValuesByType(t *testing.T) {
	symbols := NewSymbolTable("zebra", "apple")

	tests := []struct {
		name        string
		left, right RamDomain
		typ         TypeAttribute
		want        int
	}{
		{"signed less", Signed(-3), Signed(2), TypeSigned, -1},
		{"signed equal", Signed(7), Signed(7), TypeSigned, 0},
		// -1 as unsigned is the largest value
		{"unsigned wraps", Signed(-1), Unsigned(5), TypeUnsigned, 1},
		{"float", Float(1.5), Float(-2.25), TypeFloat, 1},
		{"symbols by text", symbols.Encode("zebra"), symbols.Encode("apple"), TypeSymbol, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompareValues(tt.left, tt.right, tt.typ, symbols); got != tt.want {
				t.Errorf("CompareValues() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValuesEqualFloatZero(t *testing.T) {
	if !ValuesEqual(Float(0.0), Float(math.Copysign(0, -1)), TypeFloat) {
		t.Error("expected float zeros to be equal")
	}
	if ValuesEqual(Signed(1), Signed(2), TypeSigned) {
		t.Error("expected different signed values to differ")
	}
}

func TestCompareTuples(t *testing.T) {
	if CompareTuples([]RamDomain{1, 2}, []RamDomain{1, 3}) != -1 {
		t.Error("expected lexicographic order")
	}
	if CompareTuples([]RamDomain{1, 2}, []RamDomain{1, 2}) != 0 {
		t.Error("expected equal tuples")
	}
	if CompareTuples([]RamDomain{1}, []RamDomain{1, 0}) != -1 {
		t.Error("expected shorter prefix first")
	}
}
