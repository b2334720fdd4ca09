package datalog

import (
	"fmt"
	"math"
	"strconv"
)

// RamDomain is the single machine word every stored attribute is encoded in.
// Signed integers are stored directly, unsigned integers and floats are
// bit-cast, strings are symbol table ids and records are record table ids.
type RamDomain int64

// Typed views of a RamDomain
type (
	RamSigned   = int64
	RamUnsigned = uint64
	RamFloat    = float64
)

// Domain bounds used for unbound attributes in range queries
const (
	MinDomain RamDomain = math.MinInt64
	MaxDomain RamDomain = math.MaxInt64
)

// Helper functions for moving between typed values and the domain
func Signed(v RamSigned) RamDomain     { return RamDomain(v) }
func Unsigned(v RamUnsigned) RamDomain { return RamDomain(v) }
func Float(v RamFloat) RamDomain       { return RamDomain(math.Float64bits(v)) }

// AsSigned reinterprets a domain value as a signed integer
func AsSigned(d RamDomain) RamSigned { return RamSigned(d) }

// AsUnsigned reinterprets a domain value as an unsigned integer
func AsUnsigned(d RamDomain) RamUnsigned { return RamUnsigned(d) }

// AsFloat reinterprets a domain value as a float
func AsFloat(d RamDomain) RamFloat { return math.Float64frombits(uint64(d)) }

// Bool encodes a boolean as 1 or 0
func Bool(b bool) RamDomain {
	if b {
		return 1
	}
	return 0
}

// ParseConstant converts the textual form of a numeric constant into the
// domain according to its type attribute.
func ParseConstant(text string, t TypeAttribute) (RamDomain, error) {
	switch t {
	case TypeSigned:
		v, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid signed constant %q: %w", text, err)
		}
		return Signed(v), nil
	case TypeUnsigned:
		v, err := strconv.ParseUint(text, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid unsigned constant %q: %w", text, err)
		}
		return Unsigned(v), nil
	case TypeFloat:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid float constant %q: %w", text, err)
		}
		return Float(v), nil
	default:
		return 0, fmt.Errorf("%w: %s is not a numeric type", ErrTypeMismatch, t)
	}
}

// FormatValue renders a domain value for display given its type.
// Records and ADTs are shown by id.
func FormatValue(d RamDomain, t TypeAttribute, symbols *SymbolTable) string {
	switch t {
	case TypeUnsigned:
		return strconv.FormatUint(AsUnsigned(d), 10)
	case TypeFloat:
		return strconv.FormatFloat(AsFloat(d), 'g', -1, 64)
	case TypeSymbol:
		if symbols != nil {
			if s, ok := symbols.Lookup(d); ok {
				return s
			}
		}
		return fmt.Sprintf("#%d", d)
	case TypeRecord, TypeADT:
		return fmt.Sprintf("[%d]", d)
	default:
		return strconv.FormatInt(AsSigned(d), 10)
	}
}
