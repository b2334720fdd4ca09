package ram

// Statement is an imperative step of the RAM program
type Statement interface {
	Node
	statement()
}

// Sequence runs statements in order
type Sequence struct {
	Statements []Statement
}

// Parallel runs statements that write disjoint tuples; the interpreter may
// run them concurrently
type Parallel struct {
	Statements []Statement
}

// Loop repeats Body until an Exit fires
type Loop struct {
	Body Statement
}

// Exit leaves the innermost Loop when Condition holds
type Exit struct {
	Condition Condition
}

// Query evaluates an operation pipeline. Sequential is set when any part
// of it calls a stateful functor.
type Query struct {
	Operation  Operation
	Sequential bool
}

// Clear empties a relation
type Clear struct {
	Relation string
}

// Swap exchanges the contents of two relations
type Swap struct {
	First  string
	Second string
}

// Merge inserts every tuple of Source into Target
type Merge struct {
	Target string
	Source string
}

// EraseAll removes every tuple of Source from Target
type EraseAll struct {
	Target string
	Source string
}

// IO loads or stores a relation through the I/O system. Directives carries
// the operation ("input", "output", "printsize") under the "operation" key
// next to user parameters.
type IO struct {
	Relation   string
	Directives map[string]string
}

// Stratum groups the statements evaluating one stratum. Index is the
// position in evaluation order.
type Stratum struct {
	Index     int
	Relations []string
	// Inputs are computed by earlier strata; Outputs are read by later
	// strata or stored
	Inputs    []string
	Outputs   []string
	Recursive bool
	Body      Statement
}

// DebugInfo annotates a statement with a message, typically the clause
// it was translated from
type DebugInfo struct {
	Message   string
	Statement Statement
}

// Operation returns the I/O operation name
func (io *IO) Operation() string { return io.Directives["operation"] }

func (*Sequence) ramNode()  {}
func (*Parallel) ramNode()  {}
func (*Loop) ramNode()      {}
func (*Exit) ramNode()      {}
func (*Query) ramNode()     {}
func (*Clear) ramNode()     {}
func (*Swap) ramNode()      {}
func (*Merge) ramNode()     {}
func (*EraseAll) ramNode()  {}
func (*IO) ramNode()        {}
func (*DebugInfo) ramNode() {}
func (*Stratum) ramNode()   {}

func (*Sequence) statement()  {}
func (*Parallel) statement()  {}
func (*Loop) statement()      {}
func (*Exit) statement()      {}
func (*Query) statement()     {}
func (*Clear) statement()     {}
func (*Swap) statement()      {}
func (*Merge) statement()     {}
func (*EraseAll) statement()  {}
func (*IO) statement()        {}
func (*DebugInfo) statement() {}
func (*Stratum) statement()   {}

// Seq builds a sequence, dropping nil statements and collapsing singletons
func Seq(stmts ...Statement) Statement {
	var out []Statement
	for _, s := range stmts {
		switch x := s.(type) {
		case nil:
		case *Sequence:
			out = append(out, x.Statements...)
		default:
			out = append(out, s)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return &Sequence{Statements: out}
}
