package translator

import (
	"fmt"

	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/ast"
	"github.com/wbrown/janus-strata/datalog/ram"
)

// translateValue lowers an argument in the clause scope
func (ct *clauseTranslator) translateValue(arg ast.Argument) (ram.Expression, error) {
	return ct.value(ct.vi, arg)
}

func (ct *clauseTranslator) value(vi *ValueIndex, arg ast.Argument) (ram.Expression, error) {
	switch a := arg.(type) {
	case *ast.Variable:
		expr, _, ok := vi.Lookup(a.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %s in %s", datalog.ErrUngroundedVariable, a.Name, ct.clause)
		}
		return expr, nil

	case *ast.UnnamedVariable:
		return &ram.UndefValue{}, nil

	case *ast.NumericConstant:
		return ct.numericConstant(a)

	case *ast.StringConstant:
		return &ram.StringConstant{Value: a.Value}, nil

	case *ast.Counter:
		return &ram.AutoIncrement{}, nil

	case *ast.IntrinsicFunctor:
		op, ty := ct.ctx.OverloadedFunctorOp(a)
		args, err := ct.values(vi, a.Args)
		if err != nil {
			return nil, err
		}
		return &ram.IntrinsicOperator{Op: op, Type: ty, Args: args}, nil

	case *ast.UserDefinedFunctor:
		sig := ct.ctx.FunctorSignature(a.Name)
		args, err := ct.values(vi, a.Args)
		if err != nil {
			return nil, err
		}
		return &ram.UserDefinedOperator{
			Name:       a.Name,
			ArgTypes:   sig.Params,
			ReturnType: sig.Return,
			Stateful:   ct.ctx.IsStatefulFunctor(a.Name),
			Args:       args,
		}, nil

	case *ast.RecordInit:
		args, err := ct.values(vi, a.Args)
		if err != nil {
			return nil, err
		}
		return &ram.PackRecord{Args: args}, nil

	case *ast.BranchInit:
		return ct.branch(vi, a)

	case *ast.Aggregator:
		if vi != ct.vi {
			return nil, errNestedAggregate
		}
		if b, ok := vi.aggregates[a]; ok {
			return b.expr, nil
		}
		return ct.aggregate(a)
	}
	return nil, fmt.Errorf("unsupported argument %T", arg)
}

func (ct *clauseTranslator) values(vi *ValueIndex, args []ast.Argument) ([]ram.Expression, error) {
	out := make([]ram.Expression, len(args))
	for i, a := range args {
		expr, err := ct.value(vi, a)
		if err != nil {
			return nil, err
		}
		if ram.IsUndef(expr) {
			return nil, fmt.Errorf("%w: _ used as a value in %s", datalog.ErrUngroundedVariable, ct.clause)
		}
		out[i] = expr
	}
	return out, nil
}

func (ct *clauseTranslator) numericConstant(n *ast.NumericConstant) (ram.Expression, error) {
	ty := ct.ctx.InferredNumericType(n)
	d, err := datalog.ParseConstant(n.Text, ty)
	if err != nil {
		return nil, fmt.Errorf("constant %s: %w", n.Text, err)
	}
	switch ty {
	case datalog.TypeUnsigned:
		return &ram.UnsignedConstant{Value: uint64(datalog.AsUnsigned(d))}, nil
	case datalog.TypeFloat:
		return &ram.FloatConstant{Value: datalog.AsFloat(d)}, nil
	default:
		return &ram.SignedConstant{Value: int64(datalog.AsSigned(d))}, nil
	}
}

// branch lowers an ADT constructor: enums are their branch id, simple
// branches a record [id, field], others [id, [fields...]]
func (ct *clauseTranslator) branch(vi *ValueIndex, b *ast.BranchInit) (ram.Expression, error) {
	branch := ct.ctx.ADTBranch(b)
	id := &ram.SignedConstant{Value: int64(branch.ID)}
	if ct.ctx.IsADTEnum(b) {
		return id, nil
	}
	args, err := ct.values(vi, b.Args)
	if err != nil {
		return nil, err
	}
	switch {
	case len(args) == 0:
		return &ram.PackRecord{Args: []ram.Expression{id, &ram.SignedConstant{}}}, nil
	case ct.ctx.IsADTBranchSimple(b):
		return &ram.PackRecord{Args: []ram.Expression{id, args[0]}}, nil
	default:
		return &ram.PackRecord{Args: []ram.Expression{id, &ram.PackRecord{Args: args}}}, nil
	}
}

// aggregate allocates a level for an aggregator. Its body must hold
// exactly one atom; variables it shares with the clause select the
// matching tuples, the rest are local to the body.
func (ct *clauseTranslator) aggregate(a *ast.Aggregator) (ram.Expression, error) {
	op, ty := ct.ctx.OverloadedAggregateOp(a)

	var atom *ast.Atom
	for _, lit := range a.Body {
		if at, ok := lit.(*ast.Atom); ok {
			if atom != nil {
				return nil, fmt.Errorf("aggregate %s: body must contain exactly one atom", a)
			}
			atom = at
		}
	}
	if atom == nil {
		return nil, fmt.Errorf("aggregate %s: body must contain exactly one atom", a)
	}

	var init ram.Expression
	if a.IsUserDefined() {
		expr, err := ct.value(ct.vi, a.Init)
		if err != nil {
			return nil, err
		}
		init = expr
	}

	decl := ct.ctx.Relation(atom.Relation)
	types := ct.ctx.AttributeTypes(decl)
	lvl := ct.addLevel(&loopLevel{kind: levelAggregate})
	local := ct.vi.child()
	values := ram.Undefs(len(atom.Args))
	var conds []ram.Condition

	for i, arg := range atom.Args {
		here := &ram.TupleElement{Level: lvl, Element: i}
		switch x := arg.(type) {
		case *ast.UnnamedVariable:
			continue
		case *ast.Variable:
			if !local.IsDefined(x.Name) {
				local.Define(x.Name, here, lvl)
				continue
			}
		}
		expr, err := ct.value(local, arg)
		if err != nil {
			return nil, err
		}
		if levelOf(expr) < lvl && types[i] != datalog.TypeFloat && !ram.HasStatefulCall(expr) && ram.IsUndef(values[i]) {
			values[i] = expr
			continue
		}
		conds = append(conds, &ram.Constraint{Op: ram.OpEq, Type: types[i], LHS: here, RHS: expr})
	}

	for _, lit := range a.Body {
		switch l := lit.(type) {
		case *ast.Atom:
		case *ast.BinaryConstraint:
			c, err := ct.translateConstraint(local, l)
			if err != nil {
				return nil, err
			}
			conds = append(conds, c)
		case *ast.Negation:
			c, err := ct.translateNegation(local, l)
			if err != nil {
				return nil, err
			}
			conds = append(conds, c)
		case *ast.BooleanConstraint:
			if !l.Value {
				conds = append(conds, &ram.False{})
			}
		}
	}

	var target ram.Expression
	if a.Target != nil {
		expr, err := ct.value(local, a.Target)
		if err != nil {
			return nil, err
		}
		target = expr
	}

	ct.levels[lvl].aggregate = &ram.Aggregate{
		Op:         op,
		Type:       ty,
		Relation:   string(decl.Name),
		Level:      lvl,
		Values:     values,
		Expression: target,
		Condition:  ram.And(conds...),
	}
	if a.IsUserDefined() {
		ct.levels[lvl].aggregate.Function = a.Functor()
		ct.levels[lvl].aggregate.Stateful = ct.ctx.IsStatefulFunctor(a.Functor())
		ct.levels[lvl].aggregate.Init = init
	}
	result := &ram.TupleElement{Level: lvl, Element: 0}
	ct.vi.aggregates[a] = binding{expr: result, level: lvl}
	return result, nil
}

// translateConstraint lowers a binary constraint
func (ct *clauseTranslator) translateConstraint(vi *ValueIndex, bc *ast.BinaryConstraint) (ram.Condition, error) {
	lhs, err := ct.value(vi, bc.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ct.value(vi, bc.RHS)
	if err != nil {
		return nil, err
	}
	if ram.IsUndef(lhs) || ram.IsUndef(rhs) {
		return nil, fmt.Errorf("%w: _ in constraint %s", datalog.ErrUngroundedVariable, bc)
	}
	op, ty := ct.ctx.OverloadedConstraintOp(bc)
	return &ram.Constraint{Op: op, Type: ty, LHS: lhs, RHS: rhs}, nil
}

// translateNegation lowers "!R(args)" to a failed existence check
func (ct *clauseTranslator) translateNegation(vi *ValueIndex, n *ast.Negation) (ram.Condition, error) {
	decl := ct.ctx.Relation(n.Atom.Relation)
	values := make([]ram.Expression, len(n.Atom.Args))
	for i, arg := range n.Atom.Args {
		expr, err := ct.value(vi, arg)
		if err != nil {
			return nil, err
		}
		values[i] = expr
	}
	return ram.Not(&ram.ExistenceCheck{
		Relation: string(decl.Name),
		Values:   primaryPattern(values, decl.AuxiliaryArity),
	}), nil
}
