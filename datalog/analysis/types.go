package analysis

import (
	"fmt"
	"strings"

	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/ast"
)

// TypeAnalysis is a small attribute-driven type inference. Variables take
// the type of the attribute positions they occur in, generators propagate
// types through "=", and numeric constants and overloaded operators take
// the type of their context. Results are keyed by AST node the way
// go/types keys its Info maps.
type TypeAnalysis struct {
	vars        map[ast.ClauseID]map[string]datalog.TypeAttribute
	numeric     map[*ast.NumericConstant]datalog.TypeAttribute
	functors    map[*ast.IntrinsicFunctor]datalog.TypeAttribute
	constraints map[*ast.BinaryConstraint]datalog.TypeAttribute
	aggregators map[*ast.Aggregator]datalog.TypeAttribute
}

// VariableType returns the inferred type of a clause variable
func (t *TypeAnalysis) VariableType(c ast.ClauseID, name string) (datalog.TypeAttribute, bool) {
	ty, ok := t.vars[c][name]
	return ty, ok
}

// NumericConstantType returns the type a numeric constant was resolved to
func (t *TypeAnalysis) NumericConstantType(n *ast.NumericConstant) datalog.TypeAttribute {
	if ty, ok := t.numeric[n]; ok {
		return ty
	}
	return explicitNumericType(n)
}

// FunctorType returns the operand type an intrinsic functor was resolved to
func (t *TypeAnalysis) FunctorType(f *ast.IntrinsicFunctor) datalog.TypeAttribute {
	return t.functors[f]
}

// ConstraintType returns the operand type of a binary constraint
func (t *TypeAnalysis) ConstraintType(c *ast.BinaryConstraint) datalog.TypeAttribute {
	return t.constraints[c]
}

// AggregatorType returns the type of an aggregator's target expression
func (t *TypeAnalysis) AggregatorType(a *ast.Aggregator) datalog.TypeAttribute {
	return t.aggregators[a]
}

func explicitNumericType(n *ast.NumericConstant) datalog.TypeAttribute {
	switch n.Type {
	case "u":
		return datalog.TypeUnsigned
	case "f":
		return datalog.TypeFloat
	case "i":
		return datalog.TypeSigned
	}
	if strings.ContainsAny(n.Text, ".eE") && !strings.HasPrefix(n.Text, "0x") {
		return datalog.TypeFloat
	}
	return datalog.TypeSigned
}

// AnalyseTypes infers types for every clause
func AnalyseTypes(p *ast.Program, functors map[string]FunctorSignature, adts *ADTAnalysis) (*TypeAnalysis, error) {
	t := &TypeAnalysis{
		vars:        make(map[ast.ClauseID]map[string]datalog.TypeAttribute),
		numeric:     make(map[*ast.NumericConstant]datalog.TypeAttribute),
		functors:    make(map[*ast.IntrinsicFunctor]datalog.TypeAttribute),
		constraints: make(map[*ast.BinaryConstraint]datalog.TypeAttribute),
		aggregators: make(map[*ast.Aggregator]datalog.TypeAttribute),
	}
	for _, c := range p.Clauses() {
		ci := &clauseInference{
			ta:       t,
			prog:     p,
			functors: functors,
			adts:     adts,
			env:      make(map[string]datalog.TypeAttribute),
		}
		if err := ci.run(c); err != nil {
			return nil, fmt.Errorf("clause %s: %w", c, err)
		}
		t.vars[c.ID] = ci.env
	}
	return t, nil
}

type clauseInference struct {
	ta       *TypeAnalysis
	prog     *ast.Program
	functors map[string]FunctorSignature
	adts     *ADTAnalysis
	env      map[string]datalog.TypeAttribute
}

func (ci *clauseInference) run(c *ast.Clause) error {
	atoms := clauseAtoms(c)

	// attribute positions bind variable types
	for _, a := range atoms {
		types := ci.attributeTypes(a)
		for i, arg := range a.Args {
			v, ok := arg.(*ast.Variable)
			if !ok || i >= len(types) {
				continue
			}
			if prev, seen := ci.env[v.Name]; seen && prev != types[i] {
				return fmt.Errorf("%w: variable %s is both %s and %s", datalog.ErrTypeMismatch, v.Name, prev, types[i])
			}
			ci.env[v.Name] = types[i]
		}
	}

	// generators propagate through equality until nothing changes
	constraints := clauseConstraints(c)
	for changed := true; changed; {
		changed = false
		for _, bc := range constraints {
			if bc.Op != "=" {
				continue
			}
			for _, pair := range [][2]ast.Argument{{bc.LHS, bc.RHS}, {bc.RHS, bc.LHS}} {
				v, ok := pair[0].(*ast.Variable)
				if !ok {
					continue
				}
				if _, known := ci.env[v.Name]; known {
					continue
				}
				if ty, ok, err := ci.infer(pair[1], nil); err != nil {
					return err
				} else if ok {
					ci.env[v.Name] = ty
					changed = true
				}
			}
		}
	}

	// final pass records every resolved node
	for _, a := range atoms {
		types := ci.attributeTypes(a)
		for i, arg := range a.Args {
			var hint *datalog.TypeAttribute
			if i < len(types) {
				hint = &types[i]
			}
			if _, _, err := ci.infer(arg, hint); err != nil {
				return err
			}
		}
	}
	for _, bc := range constraints {
		if err := ci.constraint(bc); err != nil {
			return err
		}
	}
	return nil
}

func (ci *clauseInference) attributeTypes(a *ast.Atom) []datalog.TypeAttribute {
	rel := ci.prog.Relation(a.Relation)
	if rel == nil {
		return nil
	}
	out := make([]datalog.TypeAttribute, len(rel.Attributes))
	for i, attr := range rel.Attributes {
		out[i] = typeOfName(ci.prog, attr.Type)
	}
	return out
}

func (ci *clauseInference) constraint(bc *ast.BinaryConstraint) error {
	if bc.Op == "contains" || bc.Op == "match" {
		sym := datalog.TypeSymbol
		for _, arg := range []ast.Argument{bc.LHS, bc.RHS} {
			ty, ok, err := ci.infer(arg, &sym)
			if err != nil {
				return err
			}
			if ok && ty != datalog.TypeSymbol {
				return fmt.Errorf("%w: %s needs symbol operands", datalog.ErrTypeMismatch, bc.Op)
			}
		}
		ci.ta.constraints[bc] = sym
		return nil
	}

	first, second := bc.LHS, bc.RHS
	if flexible(first) && !flexible(second) {
		first, second = second, first
	}
	ft, fok, err := ci.infer(first, nil)
	if err != nil {
		return err
	}
	var hint *datalog.TypeAttribute
	if fok {
		hint = &ft
	}
	st, sok, err := ci.infer(second, hint)
	if err != nil {
		return err
	}
	switch {
	case fok && sok && ft != st:
		return fmt.Errorf("%w: %s compares %s with %s", datalog.ErrTypeMismatch, bc, ft, st)
	case fok:
		ci.ta.constraints[bc] = ft
	case sok:
		ci.ta.constraints[bc] = st
	default:
		ci.ta.constraints[bc] = datalog.TypeSigned
	}
	return nil
}

// flexible arguments take their type from context
func flexible(arg ast.Argument) bool {
	switch a := arg.(type) {
	case *ast.NumericConstant:
		return a.Type == ""
	case *ast.IntrinsicFunctor:
		if !isArithmetic(a.Op) {
			return false
		}
		for _, x := range a.Args {
			if !flexible(x) {
				return false
			}
		}
		return true
	case *ast.UnnamedVariable:
		return true
	}
	return false
}

func isArithmetic(op string) bool {
	switch op {
	case "+", "-", "*", "/", "%", "neg", "band", "bor", "bxor", "min", "max",
		"add", "sub", "mul", "div", "mod":
		return true
	}
	return false
}

// infer returns the type of arg, recording constants, functors and
// aggregators along the way. hint is the type the context expects.
func (ci *clauseInference) infer(arg ast.Argument, hint *datalog.TypeAttribute) (datalog.TypeAttribute, bool, error) {
	sym, signed := datalog.TypeSymbol, datalog.TypeSigned
	switch a := arg.(type) {
	case *ast.Variable:
		ty, ok := ci.env[a.Name]
		return ty, ok, nil

	case *ast.UnnamedVariable:
		return 0, false, nil

	case *ast.NumericConstant:
		ty := explicitNumericType(a)
		if a.Type == "" && hint != nil && hint.IsNumeric() {
			ty = *hint
		}
		ci.ta.numeric[a] = ty
		return ty, true, nil

	case *ast.StringConstant:
		return datalog.TypeSymbol, true, nil

	case *ast.Counter:
		return datalog.TypeSigned, true, nil

	case *ast.RecordInit:
		for _, x := range a.Args {
			if _, _, err := ci.infer(x, nil); err != nil {
				return 0, false, err
			}
		}
		return datalog.TypeRecord, true, nil

	case *ast.BranchInit:
		branch, ok := ci.adts.Branch(a.Constructor)
		if !ok {
			return 0, false, fmt.Errorf("%w: constructor $%s", datalog.ErrUnknownFunctor, a.Constructor)
		}
		if len(a.Args) != len(branch.Fields) {
			return 0, false, fmt.Errorf("%w: $%s takes %d arguments", datalog.ErrArityMismatch, a.Constructor, len(branch.Fields))
		}
		for i, x := range a.Args {
			if _, _, err := ci.infer(x, &branch.Fields[i]); err != nil {
				return 0, false, err
			}
		}
		return datalog.TypeADT, true, nil

	case *ast.UserDefinedFunctor:
		sig, ok := ci.functors[a.Name]
		if !ok {
			return 0, false, fmt.Errorf("%w: @%s", datalog.ErrUnknownFunctor, a.Name)
		}
		if len(a.Args) != len(sig.Params) {
			return 0, false, fmt.Errorf("%w: @%s takes %d arguments", datalog.ErrArityMismatch, a.Name, len(sig.Params))
		}
		for i, x := range a.Args {
			if _, _, err := ci.infer(x, &sig.Params[i]); err != nil {
				return 0, false, err
			}
		}
		return sig.Return, true, nil

	case *ast.Aggregator:
		if a.IsUserDefined() {
			sig, ok := ci.functors[a.Functor()]
			if !ok {
				return 0, false, fmt.Errorf("%w: aggregate %s", datalog.ErrUnknownFunctor, a.Op)
			}
			if len(sig.Params) != 2 {
				return 0, false, fmt.Errorf("%w: aggregate %s must take an accumulator and a value", datalog.ErrArityMismatch, a.Op)
			}
			if a.Init != nil {
				if _, _, err := ci.infer(a.Init, &sig.Return); err != nil {
					return 0, false, err
				}
			}
			if a.Target != nil {
				if _, _, err := ci.infer(a.Target, &sig.Params[1]); err != nil {
					return 0, false, err
				}
			}
			ci.ta.aggregators[a] = sig.Params[1]
			return sig.Return, true, nil
		}
		var target datalog.TypeAttribute = datalog.TypeSigned
		if a.Target != nil {
			ty, ok, err := ci.infer(a.Target, hint)
			if err != nil {
				return 0, false, err
			}
			if ok {
				target = ty
			}
		}
		ci.ta.aggregators[a] = target
		switch a.Op {
		case "count":
			return datalog.TypeSigned, true, nil
		case "mean":
			return datalog.TypeFloat, true, nil
		case "sum", "min", "max":
			return target, true, nil
		default:
			return 0, false, fmt.Errorf("%w: aggregate %s", datalog.ErrUnknownFunctor, a.Op)
		}

	case *ast.IntrinsicFunctor:
		switch a.Op {
		case "cat":
			for _, x := range a.Args {
				if _, _, err := ci.infer(x, &sym); err != nil {
					return 0, false, err
				}
			}
			ci.ta.functors[a] = sym
			return sym, true, nil
		case "strlen", "to_number":
			if err := ci.unary(a, &sym); err != nil {
				return 0, false, err
			}
			ci.ta.functors[a] = sym
			return signed, true, nil
		case "to_string", "to_float", "to_unsigned":
			if err := ci.unary(a, nil); err != nil {
				return 0, false, err
			}
			operand := signed
			if ty, ok, _ := ci.infer(a.Args[0], nil); ok {
				operand = ty
			}
			ci.ta.functors[a] = operand
			switch a.Op {
			case "to_string":
				return sym, true, nil
			case "to_float":
				return datalog.TypeFloat, true, nil
			default:
				return datalog.TypeUnsigned, true, nil
			}
		}
		if !isArithmetic(a.Op) {
			return 0, false, fmt.Errorf("%w: %s", datalog.ErrUnknownFunctor, a.Op)
		}
		operand, known := datalog.TypeAttribute(0), false
		for _, x := range a.Args {
			if flexible(x) {
				continue
			}
			if ty, ok, err := ci.infer(x, nil); err != nil {
				return 0, false, err
			} else if ok {
				operand, known = ty, true
				break
			}
		}
		if !known && hint != nil && hint.IsNumeric() {
			operand, known = *hint, true
		}
		if !known {
			operand = literalType(a)
		}
		for _, x := range a.Args {
			if _, _, err := ci.infer(x, &operand); err != nil {
				return 0, false, err
			}
		}
		if !operand.IsNumeric() {
			return 0, false, fmt.Errorf("%w: %s applied to %s", datalog.ErrTypeMismatch, a.Op, operand)
		}
		ci.ta.functors[a] = operand
		return operand, true, nil
	}
	return 0, false, fmt.Errorf("unsupported argument %T", arg)
}

func (ci *clauseInference) unary(f *ast.IntrinsicFunctor, hint *datalog.TypeAttribute) error {
	if len(f.Args) != 1 {
		return fmt.Errorf("%w: %s takes one argument", datalog.ErrArityMismatch, f.Op)
	}
	_, _, err := ci.infer(f.Args[0], hint)
	return err
}

// literalType types an all-constant arithmetic expression: float when any
// literal is written as a float, signed otherwise
func literalType(f *ast.IntrinsicFunctor) datalog.TypeAttribute {
	for _, x := range f.Args {
		switch a := x.(type) {
		case *ast.NumericConstant:
			if explicitNumericType(a) == datalog.TypeFloat {
				return datalog.TypeFloat
			}
		case *ast.IntrinsicFunctor:
			if literalType(a) == datalog.TypeFloat {
				return datalog.TypeFloat
			}
		}
	}
	return datalog.TypeSigned
}

// clauseAtoms lists the head, body and aggregate-body atoms of a clause,
// including negated ones
func clauseAtoms(c *ast.Clause) []*ast.Atom {
	atoms := []*ast.Atom{c.Head}
	if c.SubsumptiveHead != nil {
		atoms = append(atoms, c.SubsumptiveHead)
	}
	var fromLiterals func([]ast.Literal)
	var fromArgs func([]ast.Argument)
	fromArgs = func(args []ast.Argument) {
		for _, arg := range args {
			for _, agg := range ast.ArgumentAggregators(arg, nil) {
				fromLiterals(agg.Body)
			}
		}
	}
	fromLiterals = func(lits []ast.Literal) {
		for _, lit := range lits {
			switch l := lit.(type) {
			case *ast.Atom:
				atoms = append(atoms, l)
				fromArgs(l.Args)
			case *ast.Negation:
				atoms = append(atoms, l.Atom)
			case *ast.BinaryConstraint:
				fromArgs([]ast.Argument{l.LHS, l.RHS})
			}
		}
	}
	fromArgs(c.Head.Args)
	fromLiterals(c.Body)
	return atoms
}

// clauseConstraints lists binary constraints of the body and of aggregate
// bodies
func clauseConstraints(c *ast.Clause) []*ast.BinaryConstraint {
	var out []*ast.BinaryConstraint
	var fromLiterals func([]ast.Literal)
	fromArgs := func(args []ast.Argument) {
		for _, arg := range args {
			for _, agg := range ast.ArgumentAggregators(arg, nil) {
				fromLiterals(agg.Body)
			}
		}
	}
	fromLiterals = func(lits []ast.Literal) {
		for _, lit := range lits {
			switch l := lit.(type) {
			case *ast.BinaryConstraint:
				out = append(out, l)
				fromArgs([]ast.Argument{l.LHS, l.RHS})
			case *ast.Atom:
				fromArgs(l.Args)
			}
		}
	}
	fromArgs(c.Head.Args)
	fromLiterals(c.Body)
	return out
}
