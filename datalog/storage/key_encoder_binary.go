package storage

import (
	"bytes"
	"fmt"

	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/ram"
	"github.com/wbrown/janus-strata/datalog/relation"
)

const (
	// relationTag starts every tuple key so other namespaces can coexist
	relationTag byte = 0x01

	escape     byte = 0x00
	escapedNul byte = 0xFF
	terminator byte = 0x01
)

// BinaryKeyEncoder implements KeyEncoder using raw binary. Numbers are 8
// order-preserving bytes; symbols are NUL-escaped and terminated, so keys
// sort like the tuples they encode.
type BinaryKeyEncoder struct{}

// EncodeKey creates a binary key from a tuple
func (e *BinaryKeyEncoder) EncodeKey(decl *ram.Relation, name string, t relation.Tuple, symbols *datalog.SymbolTable) ([]byte, error) {
	if len(t) != len(decl.AttributeTypes) {
		return nil, fmt.Errorf("%w: %d values for %s", datalog.ErrArityMismatch, len(t), decl)
	}
	key := e.EncodePrefix(name)
	for i, d := range t {
		ty := decl.AttributeTypes[i]
		if err := checkStorable(ty); err != nil {
			return nil, err
		}
		if ty != datalog.TypeSymbol {
			key = append(key, orderedWord(d, ty)...)
			continue
		}
		for _, b := range []byte(symbols.Decode(d)) {
			if b == escape {
				key = append(key, escape, escapedNul)
				continue
			}
			key = append(key, b)
		}
		key = append(key, escape, terminator)
	}
	return key, nil
}

// DecodeKey recovers a tuple from a binary key
func (e *BinaryKeyEncoder) DecodeKey(decl *ram.Relation, name string, key []byte, symbols *datalog.SymbolTable) (relation.Tuple, error) {
	prefix := e.EncodePrefix(name)
	if !bytes.HasPrefix(key, prefix) {
		return nil, fmt.Errorf("key does not belong to %s", name)
	}
	key = key[len(prefix):]

	t := make(relation.Tuple, len(decl.AttributeTypes))
	for i, ty := range decl.AttributeTypes {
		if ty != datalog.TypeSymbol {
			if len(key) < 8 {
				return nil, fmt.Errorf("key too short for attribute %d of %s", i, name)
			}
			d, err := wordFromOrdered(key[:8], ty)
			if err != nil {
				return nil, err
			}
			t[i], key = d, key[8:]
			continue
		}

		var text []byte
	symbol:
		for {
			switch {
			case len(key) == 0:
				return nil, fmt.Errorf("unterminated symbol in attribute %d of %s", i, name)
			case key[0] != escape:
				text = append(text, key[0])
				key = key[1:]
			case len(key) < 2:
				return nil, fmt.Errorf("unterminated symbol in attribute %d of %s", i, name)
			case key[1] == escapedNul:
				text = append(text, escape)
				key = key[2:]
			case key[1] == terminator:
				key = key[2:]
				break symbol
			default:
				return nil, fmt.Errorf("bad escape in attribute %d of %s", i, name)
			}
		}
		t[i] = symbols.Encode(string(text))
	}
	if len(key) != 0 {
		return nil, fmt.Errorf("%d trailing bytes in key of %s", len(key), name)
	}
	return t, nil
}

// EncodePrefix creates the binary prefix of a relation's keys
func (e *BinaryKeyEncoder) EncodePrefix(name string) []byte {
	return concatBytes([]byte{relationTag}, []byte(name), []byte{escape})
}

// EncodePrefixRange creates start and end keys for a prefix scan
func (e *BinaryKeyEncoder) EncodePrefixRange(name string) (start, end []byte) {
	start = e.EncodePrefix(name)
	return start, prefixEnd(start)
}
