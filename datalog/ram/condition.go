package ram

import (
	"fmt"
	"strings"

	"github.com/wbrown/janus-strata/datalog"
)

// Condition evaluates to true or false in the current tuple environment
type Condition interface {
	Node
	fmt.Stringer
	condition()
}

// True always holds
type True struct{}

// False never holds
type False struct{}

// Conjunction holds when every operand holds
type Conjunction struct {
	Operands []Condition
}

// Negation inverts its operand
type Negation struct {
	Operand Condition
}

// ConstraintOp enumerates binary comparisons
type ConstraintOp uint8

const (
	OpEq ConstraintOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpContains
	OpMatch
)

var constraintNames = [...]string{"=", "!=", "<", "<=", ">", ">=", "contains", "match"}

// String returns the operator spelling
func (op ConstraintOp) String() string {
	if int(op) < len(constraintNames) {
		return constraintNames[op]
	}
	return fmt.Sprintf("constraint(%d)", uint8(op))
}

// LookupConstraintOp maps a source spelling onto an operator
func LookupConstraintOp(name string) (ConstraintOp, bool) {
	for i, s := range constraintNames {
		if s == name {
			return ConstraintOp(i), true
		}
	}
	return 0, false
}

// Constraint compares two expressions under the ordering of Type
type Constraint struct {
	Op   ConstraintOp
	Type datalog.TypeAttribute
	LHS  Expression
	RHS  Expression
}

// ExistenceCheck holds when a tuple matching the pattern is in Relation.
// Unbound slots are UndefValue.
type ExistenceCheck struct {
	Relation string
	Values   []Expression
}

// EmptinessCheck holds when Relation has no tuples
type EmptinessCheck struct {
	Relation string
}

func (*True) ramNode()           {}
func (*False) ramNode()          {}
func (*Conjunction) ramNode()    {}
func (*Negation) ramNode()       {}
func (*Constraint) ramNode()     {}
func (*ExistenceCheck) ramNode() {}
func (*EmptinessCheck) ramNode() {}

func (*True) condition()           {}
func (*False) condition()          {}
func (*Conjunction) condition()    {}
func (*Negation) condition()       {}
func (*Constraint) condition()     {}
func (*ExistenceCheck) condition() {}
func (*EmptinessCheck) condition() {}

func (*True) String() string  { return "true" }
func (*False) String() string { return "false" }

func (c *Conjunction) String() string {
	parts := make([]string, len(c.Operands))
	for i, o := range c.Operands {
		parts[i] = o.String()
	}
	return "(" + strings.Join(parts, " AND ") + ")"
}

func (n *Negation) String() string { return "(NOT " + n.Operand.String() + ")" }

func (c *Constraint) String() string {
	if c.Op == OpContains || c.Op == OpMatch {
		return fmt.Sprintf("%s(%s, %s)", strings.ToUpper(c.Op.String()), c.LHS, c.RHS)
	}
	return fmt.Sprintf("(%s %s%s %s)", c.LHS, typePrefix(c.Type), c.Op, c.RHS)
}

func (e *ExistenceCheck) String() string {
	return fmt.Sprintf("(%s) IN %s", joinExpressions(e.Values), e.Relation)
}

func (e *EmptinessCheck) String() string { return fmt.Sprintf("(%s = ∅)", e.Relation) }

// And conjoins conditions, dropping True operands and flattening nested
// conjunctions. Nil or empty input yields True.
func And(conds ...Condition) Condition {
	var ops []Condition
	for _, c := range conds {
		switch x := c.(type) {
		case nil, *True:
		case *Conjunction:
			ops = append(ops, x.Operands...)
		default:
			ops = append(ops, c)
		}
	}
	switch len(ops) {
	case 0:
		return &True{}
	case 1:
		return ops[0]
	default:
		return &Conjunction{Operands: ops}
	}
}

// Not negates a condition
func Not(c Condition) Condition { return &Negation{Operand: c} }
