package datalog

import (
	"fmt"
)

// TypeAttribute is the machine-level kind of an attribute
type TypeAttribute uint8

const (
	TypeSigned TypeAttribute = iota
	TypeUnsigned
	TypeFloat
	TypeSymbol
	TypeRecord
	TypeADT
)

// String returns the single-letter qualifier used in relation signatures
func (t TypeAttribute) String() string {
	switch t {
	case TypeSigned:
		return "i"
	case TypeUnsigned:
		return "u"
	case TypeFloat:
		return "f"
	case TypeSymbol:
		return "s"
	case TypeRecord:
		return "r"
	case TypeADT:
		return "+"
	default:
		return fmt.Sprintf("?%d", uint8(t))
	}
}

// IsNumeric reports whether arithmetic is defined on the type
func (t TypeAttribute) IsNumeric() bool {
	return t == TypeSigned || t == TypeUnsigned || t == TypeFloat
}

// ParseTypeAttribute maps a declared type name onto its attribute.
// Unknown names are treated as records so user types fall through.
func ParseTypeAttribute(name string) TypeAttribute {
	switch name {
	case "number", "int", "i", "signed":
		return TypeSigned
	case "unsigned", "u":
		return TypeUnsigned
	case "float", "f":
		return TypeFloat
	case "symbol", "s", "string":
		return TypeSymbol
	default:
		return TypeRecord
	}
}

// Qualifier renders a type vector as "i:s:u", the form used by RAM
// relation declarations.
func Qualifier(types []TypeAttribute) string {
	b := make([]byte, 0, 2*len(types))
	for i, t := range types {
		if i > 0 {
			b = append(b, ':')
		}
		b = append(b, t.String()...)
	}
	return string(b)
}
