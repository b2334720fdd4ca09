package ram

import (
	"fmt"

	"github.com/wbrown/janus-strata/datalog"
)

// Operation is a step of a query's nested loop pipeline
type Operation interface {
	Node
	operation()
}

// Scan binds every tuple of Relation at Level
type Scan struct {
	Relation string
	Level    int
	Nested   Operation
}

// IndexScan binds the tuples of Relation matching Values at Level.
// Values has one entry per attribute; unbound ones are UndefValue.
type IndexScan struct {
	Relation string
	Level    int
	Values   []Expression
	Nested   Operation
}

// UnpackRecord destructures the record Expression into Level
type UnpackRecord struct {
	Expression Expression
	Arity      int
	Level      int
	Nested     Operation
}

// Filter continues only when Condition holds
type Filter struct {
	Condition Condition
	Nested    Operation
}

// Break stops the enclosing query when Condition holds
type Break struct {
	Condition Condition
	Nested    Operation
}

// AggregateOp enumerates aggregate functions
type AggregateOp uint8

const (
	AggCount AggregateOp = iota
	AggSum
	AggMin
	AggMax
	AggMean
	AggUser
)

var aggregateNames = [...]string{"count", "sum", "min", "max", "mean", "user"}

// String returns the aggregate name
func (op AggregateOp) String() string {
	if int(op) < len(aggregateNames) {
		return aggregateNames[op]
	}
	return fmt.Sprintf("aggregate(%d)", uint8(op))
}

// LookupAggregateOp maps a source name onto an aggregate
func LookupAggregateOp(name string) (AggregateOp, bool) {
	for i, s := range aggregateNames {
		if s == name {
			return AggregateOp(i), true
		}
	}
	return 0, false
}

// Aggregate folds Expression over the tuples of Relation that match Values
// and satisfy Condition; each candidate is bound at Level while Expression
// and Condition are evaluated. The result is then bound as element 0 of
// Level for Nested. Count and sum over no tuples yield 0; min, max and
// mean over no tuples produce no binding.
//
// AggUser folds with the user-defined functor Function, starting from
// Init: acc = Function(acc, Expression). Init is evaluated before Level
// is bound, and an empty fold yields Init.
type Aggregate struct {
	Op         AggregateOp
	Type       datalog.TypeAttribute
	Relation   string
	Level      int
	Values     []Expression
	Expression Expression
	Condition  Condition
	Nested     Operation

	Function string
	Stateful bool
	Init     Expression
}

// Insert adds the tuple built from Values to Relation
type Insert struct {
	Relation string
	Values   []Expression
}

func (*Scan) ramNode()         {}
func (*IndexScan) ramNode()    {}
func (*UnpackRecord) ramNode() {}
func (*Filter) ramNode()       {}
func (*Break) ramNode()        {}
func (*Aggregate) ramNode()    {}
func (*Insert) ramNode()       {}

func (*Scan) operation()         {}
func (*IndexScan) operation()    {}
func (*UnpackRecord) operation() {}
func (*Filter) operation()       {}
func (*Break) operation()        {}
func (*Aggregate) operation()    {}
func (*Insert) operation()       {}

// Indexed reports whether the aggregate has any bound pattern slot
func (a *Aggregate) Indexed() bool {
	return PatternSignature(a.Values) != 0
}
