package storage

import (
	"bytes"
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/interpreter"
	"github.com/wbrown/janus-strata/datalog/ram"
	"github.com/wbrown/janus-strata/datalog/relation"
)

func mixedDecl() *ram.Relation {
	return &ram.Relation{
		Name:           "Mixed",
		Arity:          4,
		AttributeNames: []string{"s", "i", "u", "f"},
		AttributeTypes: []datalog.TypeAttribute{
			datalog.TypeSymbol, datalog.TypeSigned, datalog.TypeUnsigned, datalog.TypeFloat,
		},
	}
}

func TestKeyEncodersRoundTrip(t *testing.T) {
	symbols := datalog.NewSymbolTable()
	tuples := []relation.Tuple{
		{symbols.Encode(""), datalog.Signed(0), datalog.Unsigned(0), datalog.Float(0)},
		{symbols.Encode("a\x00b"), datalog.Signed(-1), datalog.Unsigned(math.MaxUint64), datalog.Float(-2.5)},
		{symbols.Encode("héllo#world"), datalog.Signed(math.MinInt64), datalog.Unsigned(7), datalog.Float(math.Inf(1))},
	}
	for _, strategy := range []KeyEncodingStrategy{BinaryStrategy, L85Strategy} {
		enc := NewKeyEncoder(strategy)
		for _, tup := range tuples {
			key, err := enc.EncodeKey(mixedDecl(), "Mixed", tup, symbols)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(key, enc.EncodePrefix("Mixed")))

			back, err := enc.DecodeKey(mixedDecl(), "Mixed", key, symbols)
			require.NoError(t, err)
			assert.Equal(t, tup, back)
		}
	}
}

func TestBinaryKeysSortLikeTuples(t *testing.T) {
	decl := &ram.Relation{
		Name:           "N",
		Arity:          2,
		AttributeNames: []string{"x", "f"},
		AttributeTypes: []datalog.TypeAttribute{datalog.TypeSigned, datalog.TypeFloat},
	}
	values := []relation.Tuple{
		{datalog.Signed(math.MinInt64), datalog.Float(0)},
		{datalog.Signed(-3), datalog.Float(math.Inf(-1))},
		{datalog.Signed(-3), datalog.Float(-1)},
		{datalog.Signed(-3), datalog.Float(1)},
		{datalog.Signed(0), datalog.Float(0)},
		{datalog.Signed(5), datalog.Float(0)},
	}
	enc := &BinaryKeyEncoder{}
	var keys [][]byte
	for _, v := range values {
		key, err := enc.EncodeKey(decl, "N", v, nil)
		require.NoError(t, err)
		keys = append(keys, key)
	}
	assert.True(t, slices.IsSortedFunc(keys, bytes.Compare))

	symbols := datalog.NewSymbolTable()
	sdecl := &ram.Relation{Name: "S", Arity: 1, AttributeNames: []string{"s"}, AttributeTypes: []datalog.TypeAttribute{datalog.TypeSymbol}}
	a, _ := enc.EncodeKey(sdecl, "S", relation.Tuple{symbols.Encode("a")}, symbols)
	ab, _ := enc.EncodeKey(sdecl, "S", relation.Tuple{symbols.Encode("ab")}, symbols)
	assert.Negative(t, bytes.Compare(a, ab))
}

func TestPrefixesDoNotOverlap(t *testing.T) {
	for _, enc := range []KeyEncoder{&BinaryKeyEncoder{}, &L85KeyEncoder{}} {
		start, end := enc.EncodePrefixRange("Edge")
		other := enc.EncodePrefix("Edge2")
		inRange := bytes.Compare(other, start) >= 0 && bytes.Compare(other, end) < 0
		assert.False(t, inRange, "%T: Edge2 keys fall in the Edge range", enc)
	}
}

func TestEncodeRejectsRecords(t *testing.T) {
	decl := &ram.Relation{Name: "R", Arity: 1, AttributeNames: []string{"r"}, AttributeTypes: []datalog.TypeAttribute{datalog.TypeRecord}}
	for _, enc := range []KeyEncoder{&BinaryKeyEncoder{}, &L85KeyEncoder{}} {
		_, err := enc.EncodeKey(decl, "R", relation.Tuple{1}, nil)
		assert.ErrorIs(t, err, interpreter.ErrUnsupportedAttribute)
	}
}

func TestDecodeErrors(t *testing.T) {
	enc := &BinaryKeyEncoder{}
	_, err := enc.DecodeKey(mixedDecl(), "Mixed", []byte("nope"), datalog.NewSymbolTable())
	assert.Error(t, err)

	truncated := append(enc.EncodePrefix("Mixed"), 'a', 'b')
	_, err = enc.DecodeKey(mixedDecl(), "Mixed", truncated, datalog.NewSymbolTable())
	assert.ErrorContains(t, err, "unterminated symbol")

	_, err = (&L85KeyEncoder{}).DecodeKey(mixedDecl(), "Mixed", []byte("Mixed#a"), datalog.NewSymbolTable())
	assert.ErrorContains(t, err, "fields")
}

func TestParseStrategy(t *testing.T) {
	s, ok := ParseStrategy("l85")
	assert.True(t, ok)
	assert.Equal(t, L85Strategy, s)
	s, ok = ParseStrategy("")
	assert.True(t, ok)
	assert.Equal(t, BinaryStrategy, s)
	_, ok = ParseStrategy("base64")
	assert.False(t, ok)
}
