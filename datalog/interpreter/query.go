package interpreter

import (
	"fmt"
	"iter"
	"strings"

	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/ram"
	"github.com/wbrown/janus-strata/datalog/relation"
)

// frame holds the tuples bound at each loop level of one query
type frame struct {
	e      *Engine
	tuples []relation.Tuple
}

func (e *Engine) query(q *ram.Query) error {
	depth := 0
	ram.Inspect(q.Operation, func(n ram.Node) bool {
		lvl := -1
		switch x := n.(type) {
		case *ram.Scan:
			lvl = x.Level
		case *ram.IndexScan:
			lvl = x.Level
		case *ram.UnpackRecord:
			lvl = x.Level
		case *ram.Aggregate:
			lvl = x.Level
		}
		if lvl+1 > depth {
			depth = lvl + 1
		}
		return true
	})
	f := &frame{e: e, tuples: make([]relation.Tuple, depth)}
	_, err := f.operation(q.Operation)
	return err
}

// operation evaluates op for the current bindings. It returns false once
// a Break fires so enclosing loops stop.
func (f *frame) operation(op ram.Operation) (bool, error) {
	switch x := op.(type) {
	case *ram.Scan:
		return f.loop(x.Level, f.e.relation(x.Relation).Scan(), x.Nested)

	case *ram.IndexScan:
		seq, err := f.matches(x.Relation, x.Values)
		if err != nil {
			return false, err
		}
		return f.loop(x.Level, seq, x.Nested)

	case *ram.UnpackRecord:
		id, err := f.expression(x.Expression)
		if err != nil {
			return false, err
		}
		fields, ok := f.e.records.Fields(id)
		if !ok || len(fields) != x.Arity {
			return true, nil
		}
		f.tuples[x.Level] = fields
		return f.operation(x.Nested)

	case *ram.Filter:
		ok, err := f.condition(x.Condition)
		if err != nil || !ok {
			return true, err
		}
		return f.operation(x.Nested)

	case *ram.Break:
		stop, err := f.condition(x.Condition)
		if err != nil {
			return false, err
		}
		if stop {
			return false, nil
		}
		return f.operation(x.Nested)

	case *ram.Aggregate:
		return f.aggregate(x)

	case *ram.Insert:
		t, err := f.expressions(x.Values)
		if err != nil {
			return false, err
		}
		f.e.relation(x.Relation).Insert(t)
		return true, nil
	}
	panic(fmt.Sprintf("interpreter: unknown operation %T", op))
}

func (f *frame) loop(level int, seq iter.Seq[relation.Tuple], nested ram.Operation) (bool, error) {
	for t := range seq {
		f.tuples[level] = t
		more, err := f.operation(nested)
		if err != nil || !more {
			return more, err
		}
	}
	return true, nil
}

// matches returns the tuples of a relation agreeing with a pattern. Bound
// primary attributes become range bounds on the best index; bound
// auxiliary attributes are compared per tuple.
func (f *frame) matches(name string, values []ram.Expression) (iter.Seq[relation.Tuple], error) {
	rel := f.e.relation(name)
	arity := rel.Arity()
	lo := make(relation.Tuple, arity)
	hi := make(relation.Tuple, arity)
	var mask uint64
	type auxValue struct {
		pos   int
		value datalog.RamDomain
	}
	var aux []auxValue

	for i, v := range values {
		if ram.IsUndef(v) {
			if i < arity {
				lo[i], hi[i] = datalog.MinDomain, datalog.MaxDomain
			}
			continue
		}
		d, err := f.expression(v)
		if err != nil {
			return nil, err
		}
		if i >= arity {
			aux = append(aux, auxValue{i, d})
			continue
		}
		lo[i], hi[i] = d, d
		mask |= 1 << uint(i)
	}

	seq := rel.Range(rel.IndexFor(mask), lo, hi)
	if len(aux) == 0 {
		return seq, nil
	}
	return func(yield func(relation.Tuple) bool) {
		for t := range seq {
			ok := true
			for _, a := range aux {
				if t[a.pos] != a.value {
					ok = false
					break
				}
			}
			if ok && !yield(t) {
				return
			}
		}
	}, nil
}

func (f *frame) aggregate(a *ram.Aggregate) (bool, error) {
	rel := f.e.relation(a.Relation)
	seq := rel.Scan()
	if a.Indexed() {
		var err error
		if seq, err = f.matches(a.Relation, a.Values); err != nil {
			return false, err
		}
	}

	var (
		count int64
		acc   datalog.RamDomain
		total float64
	)
	if a.Op == ram.AggUser {
		init, err := f.expression(a.Init)
		if err != nil {
			return false, err
		}
		acc = init
	}
	for t := range seq {
		f.tuples[a.Level] = t
		if a.Condition != nil {
			ok, err := f.condition(a.Condition)
			if err != nil {
				return false, err
			}
			if !ok {
				continue
			}
		}
		if a.Op == ram.AggCount {
			count++
			continue
		}
		v, err := f.expression(a.Expression)
		if err != nil {
			return false, err
		}
		switch a.Op {
		case ram.AggUser:
			acc, err = f.e.opts.Functors.call(a.Function, f.e.symbols, f.e.records, []datalog.RamDomain{acc, v})
			if err != nil {
				return false, fmt.Errorf("aggregate @%s: %w", a.Function, err)
			}
		case ram.AggSum:
			if count == 0 {
				acc = v
			} else {
				acc = add(acc, v, a.Type)
			}
		case ram.AggMean:
			total += toFloat(v, a.Type)
		case ram.AggMin:
			if count == 0 || datalog.CompareValues(v, acc, a.Type, f.e.symbols) < 0 {
				acc = v
			}
		case ram.AggMax:
			if count == 0 || datalog.CompareValues(v, acc, a.Type, f.e.symbols) > 0 {
				acc = v
			}
		}
		count++
	}

	var result datalog.RamDomain
	switch {
	case a.Op == ram.AggCount:
		result = datalog.Signed(count)
	case a.Op == ram.AggUser:
		result = acc
	case a.Op == ram.AggSum && count == 0:
		result = zero(a.Type)
	case count == 0:
		return true, nil
	case a.Op == ram.AggMean:
		result = datalog.Float(total / float64(count))
	default:
		result = acc
	}
	f.tuples[a.Level] = relation.Tuple{result}
	return f.operation(a.Nested)
}

func zero(t datalog.TypeAttribute) datalog.RamDomain {
	if t == datalog.TypeFloat {
		return datalog.Float(0)
	}
	return 0
}

func add(a, b datalog.RamDomain, t datalog.TypeAttribute) datalog.RamDomain {
	switch t {
	case datalog.TypeFloat:
		return datalog.Float(datalog.AsFloat(a) + datalog.AsFloat(b))
	case datalog.TypeUnsigned:
		return datalog.Unsigned(datalog.AsUnsigned(a) + datalog.AsUnsigned(b))
	}
	return datalog.Signed(datalog.AsSigned(a) + datalog.AsSigned(b))
}

func toFloat(d datalog.RamDomain, t datalog.TypeAttribute) float64 {
	switch t {
	case datalog.TypeFloat:
		return datalog.AsFloat(d)
	case datalog.TypeUnsigned:
		return float64(datalog.AsUnsigned(d))
	}
	return float64(datalog.AsSigned(d))
}

func (f *frame) condition(c ram.Condition) (bool, error) {
	switch x := c.(type) {
	case *ram.True:
		return true, nil
	case *ram.False:
		return false, nil

	case *ram.Conjunction:
		for _, op := range x.Operands {
			ok, err := f.condition(op)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil

	case *ram.Negation:
		ok, err := f.condition(x.Operand)
		return !ok, err

	case *ram.Constraint:
		return f.constraint(x)

	case *ram.ExistenceCheck:
		return f.exists(x)

	case *ram.EmptinessCheck:
		return f.e.relation(x.Relation).Empty(), nil
	}
	panic(fmt.Sprintf("interpreter: unknown condition %T", c))
}

func (f *frame) exists(x *ram.ExistenceCheck) (bool, error) {
	rel := f.e.relation(x.Relation)
	if len(x.Values) == rel.Arity() && ram.PatternSignature(x.Values).Len() == rel.Arity() {
		t, err := f.expressions(x.Values)
		if err != nil {
			return false, err
		}
		return rel.Contains(t), nil
	}
	seq, err := f.matches(x.Relation, x.Values)
	if err != nil {
		return false, err
	}
	for range seq {
		return true, nil
	}
	return false, nil
}

func (f *frame) constraint(c *ram.Constraint) (bool, error) {
	l, err := f.expression(c.LHS)
	if err != nil {
		return false, err
	}
	r, err := f.expression(c.RHS)
	if err != nil {
		return false, err
	}
	switch c.Op {
	case ram.OpEq:
		return datalog.ValuesEqual(l, r, c.Type), nil
	case ram.OpNe:
		return !datalog.ValuesEqual(l, r, c.Type), nil
	case ram.OpLt:
		return datalog.CompareValues(l, r, c.Type, f.e.symbols) < 0, nil
	case ram.OpLe:
		return datalog.CompareValues(l, r, c.Type, f.e.symbols) <= 0, nil
	case ram.OpGt:
		return datalog.CompareValues(l, r, c.Type, f.e.symbols) > 0, nil
	case ram.OpGe:
		return datalog.CompareValues(l, r, c.Type, f.e.symbols) >= 0, nil
	case ram.OpContains:
		// contains(needle, haystack)
		return strings.Contains(f.e.symbols.Decode(r), f.e.symbols.Decode(l)), nil
	case ram.OpMatch:
		re := f.e.compileMatch(f.e.symbols.Decode(l))
		return re != nil && re.MatchString(f.e.symbols.Decode(r)), nil
	}
	return false, fmt.Errorf("unsupported constraint %s", c.Op)
}

func (f *frame) expression(x ram.Expression) (datalog.RamDomain, error) {
	switch v := x.(type) {
	case *ram.TupleElement:
		return f.tuples[v.Level][v.Element], nil
	case *ram.SignedConstant:
		return datalog.Signed(v.Value), nil
	case *ram.UnsignedConstant:
		return datalog.Unsigned(v.Value), nil
	case *ram.FloatConstant:
		return datalog.Float(v.Value), nil
	case *ram.StringConstant:
		return f.e.symbols.Encode(v.Value), nil

	case *ram.IntrinsicOperator:
		args, err := f.expressions(v.Args)
		if err != nil {
			return 0, err
		}
		return f.e.intrinsic(v.Op, v.Type, args)

	case *ram.UserDefinedOperator:
		args, err := f.expressions(v.Args)
		if err != nil {
			return 0, err
		}
		d, err := f.e.opts.Functors.call(v.Name, f.e.symbols, f.e.records, args)
		if err != nil {
			return 0, fmt.Errorf("@%s: %w", v.Name, err)
		}
		return d, nil

	case *ram.PackRecord:
		args, err := f.expressions(v.Args)
		if err != nil {
			return 0, err
		}
		return f.e.records.Pack(args), nil

	case *ram.AutoIncrement:
		return datalog.Signed(f.e.counter.Add(1) - 1), nil

	case *ram.RelationSize:
		return datalog.Signed(int64(f.e.relation(v.Relation).Size())), nil

	case *ram.UndefValue:
		panic("interpreter: unbound value evaluated")
	}
	panic(fmt.Sprintf("interpreter: unknown expression %T", x))
}

func (f *frame) expressions(xs []ram.Expression) ([]datalog.RamDomain, error) {
	out := make([]datalog.RamDomain, len(xs))
	for i, x := range xs {
		d, err := f.expression(x)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}
