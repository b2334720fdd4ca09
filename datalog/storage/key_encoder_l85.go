package storage

import (
	"bytes"
	"fmt"

	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/codec"
	"github.com/wbrown/janus-strata/datalog/ram"
	"github.com/wbrown/janus-strata/datalog/relation"
)

// '#' is outside the L85 alphabet
const l85Separator = '#'

// L85KeyEncoder implements KeyEncoder with printable keys of the form
// "Name#field#field". Numeric fields are the L85 form of their ordered
// bytes; symbols are the L85 form of their text.
type L85KeyEncoder struct{}

// EncodeKey creates an L85 key from a tuple
func (e *L85KeyEncoder) EncodeKey(decl *ram.Relation, name string, t relation.Tuple, symbols *datalog.SymbolTable) ([]byte, error) {
	if len(t) != len(decl.AttributeTypes) {
		return nil, fmt.Errorf("%w: %d values for %s", datalog.ErrArityMismatch, len(t), decl)
	}
	key := e.EncodePrefix(name)
	for i, d := range t {
		ty := decl.AttributeTypes[i]
		if err := checkStorable(ty); err != nil {
			return nil, err
		}
		if i > 0 {
			key = append(key, l85Separator)
		}
		if ty == datalog.TypeSymbol {
			key = codec.AppendL85(key, []byte(symbols.Decode(d)))
		} else {
			key = codec.AppendL85(key, orderedWord(d, ty))
		}
	}
	return key, nil
}

// DecodeKey recovers a tuple from an L85 key
func (e *L85KeyEncoder) DecodeKey(decl *ram.Relation, name string, key []byte, symbols *datalog.SymbolTable) (relation.Tuple, error) {
	prefix := e.EncodePrefix(name)
	if !bytes.HasPrefix(key, prefix) {
		return nil, fmt.Errorf("key does not belong to %s", name)
	}
	var fields [][]byte
	if rest := key[len(prefix):]; len(rest) > 0 || len(decl.AttributeTypes) > 0 {
		fields = bytes.Split(rest, []byte{l85Separator})
	}
	if len(fields) != len(decl.AttributeTypes) {
		return nil, fmt.Errorf("key of %s has %d fields, want %d", name, len(fields), len(decl.AttributeTypes))
	}

	t := make(relation.Tuple, len(fields))
	for i, f := range fields {
		raw, err := codec.DecodeL85(string(f))
		if err != nil {
			return nil, fmt.Errorf("attribute %d of %s: %w", i, name, err)
		}
		ty := decl.AttributeTypes[i]
		if ty == datalog.TypeSymbol {
			t[i] = symbols.Encode(string(raw))
			continue
		}
		if t[i], err = wordFromOrdered(raw, ty); err != nil {
			return nil, fmt.Errorf("attribute %d of %s: %w", i, name, err)
		}
	}
	return t, nil
}

// EncodePrefix creates the L85 prefix of a relation's keys
func (e *L85KeyEncoder) EncodePrefix(name string) []byte {
	return append([]byte(name), l85Separator)
}

// EncodePrefixRange creates start and end keys for a prefix scan
func (e *L85KeyEncoder) EncodePrefixRange(name string) (start, end []byte) {
	start = e.EncodePrefix(name)
	return start, prefixEnd(start)
}
