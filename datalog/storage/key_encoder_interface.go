package storage

import (
	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/ram"
	"github.com/wbrown/janus-strata/datalog/relation"
)

// KeyEncoder builds and parses the keys a relation's tuples are stored
// under. Keys of one relation share a prefix.
type KeyEncoder interface {
	// EncodeKey creates the key of a tuple of decl stored as name
	EncodeKey(decl *ram.Relation, name string, t relation.Tuple, symbols *datalog.SymbolTable) ([]byte, error)

	// DecodeKey recovers the tuple stored under key
	DecodeKey(decl *ram.Relation, name string, key []byte, symbols *datalog.SymbolTable) (relation.Tuple, error)

	// EncodePrefix creates the prefix shared by every key of a relation
	EncodePrefix(name string) []byte

	// EncodePrefixRange creates start and end keys for a prefix scan
	EncodePrefixRange(name string) (start, end []byte)
}

// KeyEncodingStrategy represents different encoding strategies
type KeyEncodingStrategy int

const (
	// L85Strategy uses L85 encoding for human-readable keys
	L85Strategy KeyEncodingStrategy = iota

	// BinaryStrategy uses raw binary for space efficiency
	BinaryStrategy
)

// ParseStrategy maps a strategy name to its value
func ParseStrategy(name string) (KeyEncodingStrategy, bool) {
	switch name {
	case "", "binary":
		return BinaryStrategy, true
	case "l85":
		return L85Strategy, true
	}
	return 0, false
}

// NewKeyEncoder creates a key encoder with the specified strategy
func NewKeyEncoder(strategy KeyEncodingStrategy) KeyEncoder {
	switch strategy {
	case L85Strategy:
		return &L85KeyEncoder{}
	default:
		return &BinaryKeyEncoder{}
	}
}
