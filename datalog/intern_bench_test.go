package datalog

import (
	"fmt"
	"testing"
)

// BenchmarkSymbolEncode measures interning with 100 distinct symbols
func BenchmarkSymbolEncode(b *testing.B) {
	st := NewSymbolTable()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			st.Encode(fmt.Sprintf("sym/%d", i%100))
			i++
		}
	})
}

// BenchmarkSymbolEncodeHighContention measures with only 10 distinct symbols
func BenchmarkSymbolEncodeHighContention(b *testing.B) {
	st := NewSymbolTable()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			st.Encode(fmt.Sprintf("sym/%d", i%10))
			i++
		}
	})
}

// BenchmarkRecordPack measures packing of pairs
func BenchmarkRecordPack(b *testing.B) {
	rt := NewRecordTable()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			rt.Pack([]RamDomain{RamDomain(i % 100), 1})
			i++
		}
	})
}
