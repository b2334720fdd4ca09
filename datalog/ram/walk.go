package ram

// Inspect traverses a RAM tree depth-first, calling fn for each node.
// Children are skipped when fn returns false.
func Inspect(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range children(n) {
		Inspect(c, fn)
	}
}

func children(n Node) []Node {
	var out []Node
	add := func(nodes ...Node) {
		for _, c := range nodes {
			if c != nil {
				out = append(out, c)
			}
		}
	}
	addExprs := func(exprs []Expression) {
		for _, e := range exprs {
			add(e)
		}
	}

	switch x := n.(type) {
	// statements
	case *Sequence:
		for _, s := range x.Statements {
			add(s)
		}
	case *Parallel:
		for _, s := range x.Statements {
			add(s)
		}
	case *Loop:
		add(x.Body)
	case *Exit:
		add(x.Condition)
	case *Query:
		add(x.Operation)
	case *DebugInfo:
		add(x.Statement)
	case *Stratum:
		add(x.Body)

	// operations
	case *Scan:
		add(x.Nested)
	case *IndexScan:
		addExprs(x.Values)
		add(x.Nested)
	case *UnpackRecord:
		add(x.Expression, x.Nested)
	case *Filter:
		add(x.Condition, x.Nested)
	case *Break:
		add(x.Condition, x.Nested)
	case *Aggregate:
		add(x.Init)
		addExprs(x.Values)
		add(x.Expression, x.Condition, x.Nested)
	case *Insert:
		addExprs(x.Values)

	// conditions
	case *Conjunction:
		for _, c := range x.Operands {
			add(c)
		}
	case *Negation:
		add(x.Operand)
	case *Constraint:
		add(x.LHS, x.RHS)
	case *ExistenceCheck:
		addExprs(x.Values)

	// expressions
	case *IntrinsicOperator:
		addExprs(x.Args)
	case *UserDefinedOperator:
		addExprs(x.Args)
	case *PackRecord:
		addExprs(x.Args)
	}
	return out
}

// HasStatefulCall reports whether any expression under n calls a stateful
// functor or the auto-increment counter
func HasStatefulCall(n Node) bool {
	found := false
	Inspect(n, func(c Node) bool {
		switch x := c.(type) {
		case *UserDefinedOperator:
			if x.Stateful {
				found = true
			}
		case *AutoIncrement:
			found = true
		case *Aggregate:
			if x.Stateful {
				found = true
			}
		}
		return !found
	})
	return found
}
