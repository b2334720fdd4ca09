package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Argument is a term appearing in an atom or constraint
type Argument interface {
	fmt.Stringer
	argument()
}

// Literal is a body element
type Literal interface {
	fmt.Stringer
	literal()
}

// Variable is a named logic variable
type Variable struct {
	Name string
}

// UnnamedVariable is "_"
type UnnamedVariable struct{}

// NumericConstant keeps its source text; Type is "i", "u", "f" when
// written with an explicit suffix, "" when it must be inferred.
type NumericConstant struct {
	Text string
	Type string
}

// StringConstant is a symbol literal
type StringConstant struct {
	Value string
}

// IntrinsicFunctor is a built-in operator application such as "+" or "cat"
type IntrinsicFunctor struct {
	Op   string
	Args []Argument
}

// UserDefinedFunctor calls a declared external functor
type UserDefinedFunctor struct {
	Name string
	Args []Argument
}

// Aggregator is "op target : { body }". Target is nil for count.
// A user-defined aggregator names its functor as "@name" and folds the
// target into Init with it.
type Aggregator struct {
	Op     string
	Target Argument
	Init   Argument
	Body   []Literal
}

// IsUserDefined reports whether the aggregator folds with a functor
func (a *Aggregator) IsUserDefined() bool { return strings.HasPrefix(a.Op, "@") }

// Functor returns the folding functor of a user-defined aggregator
func (a *Aggregator) Functor() string { return strings.TrimPrefix(a.Op, "@") }

// BranchInit constructs an ADT value "$Constructor(args)"
type BranchInit struct {
	Constructor string
	Args        []Argument
}

// RecordInit constructs a record "[a, b]"
type RecordInit struct {
	Args []Argument
}

// Counter is the auto-increment "$"
type Counter struct{}

func (*Variable) argument()           {}
func (*UnnamedVariable) argument()    {}
func (*NumericConstant) argument()    {}
func (*StringConstant) argument()     {}
func (*IntrinsicFunctor) argument()   {}
func (*UserDefinedFunctor) argument() {}
func (*Aggregator) argument()         {}
func (*BranchInit) argument()         {}
func (*RecordInit) argument()         {}
func (*Counter) argument()            {}

func (v *Variable) String() string        { return v.Name }
func (*UnnamedVariable) String() string   { return "_" }
func (n *NumericConstant) String() string { return n.Text }
func (s *StringConstant) String() string  { return strconv.Quote(s.Value) }
func (*Counter) String() string           { return "$" }

func (f *IntrinsicFunctor) String() string {
	if len(f.Args) == 2 && isInfix(f.Op) {
		return fmt.Sprintf("(%s %s %s)", f.Args[0], f.Op, f.Args[1])
	}
	return fmt.Sprintf("%s(%s)", f.Op, joinArgs(f.Args))
}

func (f *UserDefinedFunctor) String() string {
	return fmt.Sprintf("@%s(%s)", f.Name, joinArgs(f.Args))
}

func (a *Aggregator) String() string {
	parts := make([]string, len(a.Body))
	for i, l := range a.Body {
		parts[i] = l.String()
	}
	op := a.Op
	if a.Init != nil {
		op = fmt.Sprintf("%s %s", a.Op, a.Init)
	}
	if a.Target == nil {
		return fmt.Sprintf("%s : { %s }", op, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s %s : { %s }", op, a.Target, strings.Join(parts, ", "))
}

func (b *BranchInit) String() string {
	return fmt.Sprintf("$%s(%s)", b.Constructor, joinArgs(b.Args))
}

func (r *RecordInit) String() string {
	return "[" + joinArgs(r.Args) + "]"
}

// Atom is "Relation(args)"
type Atom struct {
	Relation QualifiedName
	Args     []Argument
}

// Negation is "!Atom"
type Negation struct {
	Atom *Atom
}

// BinaryConstraint is "lhs op rhs" with op one of = != < <= > >= contains match
type BinaryConstraint struct {
	Op  string
	LHS Argument
	RHS Argument
}

// BooleanConstraint is "true" or "false"
type BooleanConstraint struct {
	Value bool
}

func (*Atom) literal()              {}
func (*Negation) literal()          {}
func (*BinaryConstraint) literal()  {}
func (*BooleanConstraint) literal() {}

func (a *Atom) String() string {
	return fmt.Sprintf("%s(%s)", a.Relation, joinArgs(a.Args))
}

func (n *Negation) String() string { return "!" + n.Atom.String() }

func (c *BinaryConstraint) String() string {
	if c.Op == "contains" || c.Op == "match" {
		return fmt.Sprintf("%s(%s, %s)", c.Op, c.LHS, c.RHS)
	}
	return fmt.Sprintf("%s %s %s", c.LHS, c.Op, c.RHS)
}

func (c *BooleanConstraint) String() string { return strconv.FormatBool(c.Value) }

// Constructors used by code-built programs and tests

// Var creates a variable
func Var(name string) *Variable { return &Variable{Name: name} }

// Unnamed creates "_"
func Unnamed() *UnnamedVariable { return &UnnamedVariable{} }

// Num creates a numeric constant whose type is inferred
func Num(text string) *NumericConstant { return &NumericConstant{Text: text} }

// Int creates a signed constant
func Int(v int64) *NumericConstant {
	return &NumericConstant{Text: strconv.FormatInt(v, 10), Type: "i"}
}

// Str creates a symbol constant
func Str(s string) *StringConstant { return &StringConstant{Value: s} }

// NewAtom creates an atom
func NewAtom(rel QualifiedName, args ...Argument) *Atom {
	return &Atom{Relation: rel, Args: args}
}

// Not negates an atom
func Not(a *Atom) *Negation { return &Negation{Atom: a} }

// Cmp creates a binary constraint
func Cmp(lhs Argument, op string, rhs Argument) *BinaryConstraint {
	return &BinaryConstraint{Op: op, LHS: lhs, RHS: rhs}
}

// Fn creates an intrinsic functor application
func Fn(op string, args ...Argument) *IntrinsicFunctor {
	return &IntrinsicFunctor{Op: op, Args: args}
}

// Visiting helpers

// ArgumentVariables appends the names of all variables in arg, including
// those nested in functors. Aggregator bodies are local scopes and are
// not descended into; only the aggregator's outer references count, which
// callers obtain from AggregatorFreeVariables.
func ArgumentVariables(arg Argument, out []string) []string {
	switch a := arg.(type) {
	case *Variable:
		out = append(out, a.Name)
	case *IntrinsicFunctor:
		for _, x := range a.Args {
			out = ArgumentVariables(x, out)
		}
	case *UserDefinedFunctor:
		for _, x := range a.Args {
			out = ArgumentVariables(x, out)
		}
	case *BranchInit:
		for _, x := range a.Args {
			out = ArgumentVariables(x, out)
		}
	case *RecordInit:
		for _, x := range a.Args {
			out = ArgumentVariables(x, out)
		}
	}
	return out
}

// LiteralVariables appends the variables referenced by a literal.
// Aggregators contribute nothing here.
func LiteralVariables(lit Literal, out []string) []string {
	switch l := lit.(type) {
	case *Atom:
		for _, a := range l.Args {
			out = ArgumentVariables(a, out)
		}
	case *Negation:
		for _, a := range l.Atom.Args {
			out = ArgumentVariables(a, out)
		}
	case *BinaryConstraint:
		out = ArgumentVariables(l.LHS, out)
		out = ArgumentVariables(l.RHS, out)
	}
	return out
}

// Aggregators returns the aggregators directly contained in a literal
func Aggregators(lit Literal) []*Aggregator {
	var out []*Aggregator
	switch l := lit.(type) {
	case *Atom:
		for _, a := range l.Args {
			out = ArgumentAggregators(a, out)
		}
	case *BinaryConstraint:
		out = ArgumentAggregators(l.LHS, out)
		out = ArgumentAggregators(l.RHS, out)
	}
	return out
}

// ArgumentAggregators appends the outermost aggregators found in arg
func ArgumentAggregators(arg Argument, out []*Aggregator) []*Aggregator {
	switch a := arg.(type) {
	case *Aggregator:
		out = append(out, a)
	case *IntrinsicFunctor:
		for _, x := range a.Args {
			out = ArgumentAggregators(x, out)
		}
	case *UserDefinedFunctor:
		for _, x := range a.Args {
			out = ArgumentAggregators(x, out)
		}
	case *BranchInit:
		for _, x := range a.Args {
			out = ArgumentAggregators(x, out)
		}
	case *RecordInit:
		for _, x := range a.Args {
			out = ArgumentAggregators(x, out)
		}
	}
	return out
}

func joinArgs(args []Argument) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

func isInfix(op string) bool {
	switch op {
	case "+", "-", "*", "/", "%", "band", "bor", "bxor":
		return true
	}
	return false
}
