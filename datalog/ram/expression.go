package ram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wbrown/janus-strata/datalog"
)

// Node is any RAM construct
type Node interface {
	ramNode()
}

// Expression evaluates to a single domain value
type Expression interface {
	Node
	fmt.Stringer
	expression()
}

// TupleElement reads attribute Element of the tuple bound at Level
type TupleElement struct {
	Level   int
	Element int
}

// SignedConstant is a literal signed integer
type SignedConstant struct{ Value int64 }

// UnsignedConstant is a literal unsigned integer
type UnsignedConstant struct{ Value uint64 }

// FloatConstant is a literal float
type FloatConstant struct{ Value float64 }

// StringConstant is a symbol; interned when the program is loaded
type StringConstant struct{ Value string }

// FunctorOp enumerates intrinsic operators
type FunctorOp uint8

const (
	OpAdd FunctorOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpBAnd
	OpBOr
	OpBXor
	OpMin
	OpMax
	OpCat
	OpStrlen
	OpToString
	OpToNumber
	OpToFloat
	OpToUnsigned
)

var functorNames = map[FunctorOp]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%", OpNeg: "neg",
	OpBAnd: "band", OpBOr: "bor", OpBXor: "bxor", OpMin: "min", OpMax: "max",
	OpCat: "cat", OpStrlen: "strlen", OpToString: "to_string",
	OpToNumber: "to_number", OpToFloat: "to_float", OpToUnsigned: "to_unsigned",
}

// String returns the operator spelling
func (op FunctorOp) String() string {
	if s, ok := functorNames[op]; ok {
		return s
	}
	return fmt.Sprintf("functor(%d)", uint8(op))
}

// LookupFunctorOp maps a source spelling onto an operator
func LookupFunctorOp(name string) (FunctorOp, bool) {
	switch name {
	case "add":
		return OpAdd, true
	case "sub":
		return OpSub, true
	case "mul":
		return OpMul, true
	case "div":
		return OpDiv, true
	case "mod":
		return OpMod, true
	}
	for op, s := range functorNames {
		if s == name {
			return op, true
		}
	}
	return 0, false
}

// IntrinsicOperator applies a built-in operator. Type is the operand type
// the overload was resolved to.
type IntrinsicOperator struct {
	Op   FunctorOp
	Type datalog.TypeAttribute
	Args []Expression
}

// UserDefinedOperator calls an externally registered functor
type UserDefinedOperator struct {
	Name       string
	ArgTypes   []datalog.TypeAttribute
	ReturnType datalog.TypeAttribute
	Stateful   bool
	Args       []Expression
}

// PackRecord builds a record and yields its id
type PackRecord struct {
	Args []Expression
}

// AutoIncrement yields a fresh counter value per evaluation
type AutoIncrement struct{}

// UndefValue marks an unbound attribute in a search pattern
type UndefValue struct{}

// RelationSize yields the current size of a relation
type RelationSize struct {
	Relation string
}

func (*TupleElement) ramNode()        {}
func (*SignedConstant) ramNode()      {}
func (*UnsignedConstant) ramNode()    {}
func (*FloatConstant) ramNode()       {}
func (*StringConstant) ramNode()      {}
func (*IntrinsicOperator) ramNode()   {}
func (*UserDefinedOperator) ramNode() {}
func (*PackRecord) ramNode()          {}
func (*AutoIncrement) ramNode()       {}
func (*UndefValue) ramNode()          {}
func (*RelationSize) ramNode()        {}

func (*TupleElement) expression()        {}
func (*SignedConstant) expression()      {}
func (*UnsignedConstant) expression()    {}
func (*FloatConstant) expression()       {}
func (*StringConstant) expression()      {}
func (*IntrinsicOperator) expression()   {}
func (*UserDefinedOperator) expression() {}
func (*PackRecord) expression()          {}
func (*AutoIncrement) expression()       {}
func (*UndefValue) expression()          {}
func (*RelationSize) expression()        {}

func (e *TupleElement) String() string     { return fmt.Sprintf("t%d.%d", e.Level, e.Element) }
func (c *SignedConstant) String() string   { return fmt.Sprintf("NUMBER(%d)", c.Value) }
func (c *UnsignedConstant) String() string { return fmt.Sprintf("UNSIGNED(%d)", c.Value) }
func (c *FloatConstant) String() string {
	return "FLOAT(" + strconv.FormatFloat(c.Value, 'g', -1, 64) + ")"
}
func (c *StringConstant) String() string { return strconv.Quote(c.Value) }
func (*AutoIncrement) String() string    { return "AUTOINC()" }
func (*UndefValue) String() string       { return "_" }
func (s *RelationSize) String() string   { return fmt.Sprintf("size(%s)", s.Relation) }

func (o *IntrinsicOperator) String() string {
	if len(o.Args) == 2 && o.Op <= OpBXor && o.Op != OpNeg {
		return fmt.Sprintf("(%s %s%s %s)", o.Args[0], typePrefix(o.Type), o.Op, o.Args[1])
	}
	return fmt.Sprintf("%s%s(%s)", typePrefix(o.Type), o.Op, joinExpressions(o.Args))
}

func (o *UserDefinedOperator) String() string {
	return fmt.Sprintf("@%s_%s(%s)", o.Name, datalog.Qualifier(o.ArgTypes), joinExpressions(o.Args))
}

func (p *PackRecord) String() string { return "[" + joinExpressions(p.Args) + "]" }

func typePrefix(t datalog.TypeAttribute) string {
	switch t {
	case datalog.TypeUnsigned:
		return "u"
	case datalog.TypeFloat:
		return "f"
	default:
		return ""
	}
}

func joinExpressions(exprs []Expression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

// IsUndef reports whether e is an unbound pattern slot
func IsUndef(e Expression) bool {
	_, ok := e.(*UndefValue)
	return ok
}

// Undefs returns a pattern of n unbound slots
func Undefs(n int) []Expression {
	out := make([]Expression, n)
	for i := range out {
		out[i] = &UndefValue{}
	}
	return out
}

// PatternSignature computes the equality signature of a search pattern
func PatternSignature(values []Expression) Signature {
	var sig Signature
	for i, v := range values {
		if !IsUndef(v) {
			sig = sig.With(i)
		}
	}
	return sig
}
