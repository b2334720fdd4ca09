package analysis

import (
	"fmt"

	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/ast"
)

// Validate reports definition errors that would make translation
// meaningless: undeclared relations, arity mismatches, unknown functors,
// malformed subsumptive clauses and ungrounded variables.
func Validate(p *ast.Program) error {
	for _, rel := range p.Relations() {
		if rel.AuxiliaryArity < 0 || rel.AuxiliaryArity > rel.Arity() {
			return fmt.Errorf("relation %s: auxiliary arity %d out of range", rel.Name, rel.AuxiliaryArity)
		}
	}
	for _, d := range p.Directives() {
		if p.Relation(d.Relation) == nil {
			return fmt.Errorf("%w: %s directive names %s", datalog.ErrUnknownRelation, d.Kind, d.Relation)
		}
	}
	for _, c := range p.Clauses() {
		if err := validateClause(p, c); err != nil {
			if loc := c.Loc.String(); loc != "" {
				return fmt.Errorf("%s: clause %s: %w", loc, c, err)
			}
			return fmt.Errorf("clause %s: %w", c, err)
		}
	}
	return nil
}

func validateClause(p *ast.Program, c *ast.Clause) error {
	if c.IsSubsumptive() {
		if c.SubsumptiveHead == nil || c.SubsumptiveHead.Relation != c.Head.Relation {
			return fmt.Errorf("%w: %s <= %v", datalog.ErrSubsumptiveHeadMismatch, c.Head.Relation, subsumptiveName(c))
		}
	}
	for _, a := range clauseAtoms(c) {
		rel := p.Relation(a.Relation)
		if rel == nil {
			return fmt.Errorf("%w: %s", datalog.ErrUnknownRelation, a.Relation)
		}
		if len(a.Args) != rel.Arity() {
			return fmt.Errorf("%w: %s has arity %d, used with %d arguments",
				datalog.ErrArityMismatch, a.Relation, rel.Arity(), len(a.Args))
		}
	}
	if err := checkFunctors(p, c); err != nil {
		return err
	}
	if c.IsFact() {
		if vars := ast.ArgumentVariables(&ast.RecordInit{Args: c.Head.Args}, nil); len(vars) > 0 {
			return fmt.Errorf("%w: fact mentions %s", datalog.ErrUngroundedVariable, vars[0])
		}
		return nil
	}
	return checkGrounded(c)
}

func subsumptiveName(c *ast.Clause) any {
	if c.SubsumptiveHead == nil {
		return "<nil>"
	}
	return c.SubsumptiveHead.Relation
}

// walkArguments visits every argument of a clause, descending into
// functors, constructors and aggregates
func walkArguments(c *ast.Clause, fn func(ast.Argument) error) error {
	var visitArg func(ast.Argument) error
	var visitLits func([]ast.Literal) error
	visitArgs := func(args []ast.Argument) error {
		for _, a := range args {
			if err := visitArg(a); err != nil {
				return err
			}
		}
		return nil
	}
	visitArg = func(arg ast.Argument) error {
		if err := fn(arg); err != nil {
			return err
		}
		switch a := arg.(type) {
		case *ast.IntrinsicFunctor:
			return visitArgs(a.Args)
		case *ast.UserDefinedFunctor:
			return visitArgs(a.Args)
		case *ast.BranchInit:
			return visitArgs(a.Args)
		case *ast.RecordInit:
			return visitArgs(a.Args)
		case *ast.Aggregator:
			for _, x := range []ast.Argument{a.Init, a.Target} {
				if x == nil {
					continue
				}
				if err := visitArg(x); err != nil {
					return err
				}
			}
			return visitLits(a.Body)
		}
		return nil
	}
	visitLits = func(lits []ast.Literal) error {
		for _, lit := range lits {
			var err error
			switch l := lit.(type) {
			case *ast.Atom:
				err = visitArgs(l.Args)
			case *ast.Negation:
				err = visitArgs(l.Atom.Args)
			case *ast.BinaryConstraint:
				err = visitArgs([]ast.Argument{l.LHS, l.RHS})
			}
			if err != nil {
				return err
			}
		}
		return nil
	}
	if err := visitArgs(c.Head.Args); err != nil {
		return err
	}
	if c.SubsumptiveHead != nil {
		if err := visitArgs(c.SubsumptiveHead.Args); err != nil {
			return err
		}
	}
	return visitLits(c.Body)
}

func checkFunctors(p *ast.Program, c *ast.Clause) error {
	return walkArguments(c, func(arg ast.Argument) error {
		switch a := arg.(type) {
		case *ast.IntrinsicFunctor:
			switch a.Op {
			case "cat", "strlen", "to_string", "to_number", "to_float", "to_unsigned":
				return nil
			}
			if !isArithmetic(a.Op) {
				return fmt.Errorf("%w: %s", datalog.ErrUnknownFunctor, a.Op)
			}
		case *ast.UserDefinedFunctor:
			decl, ok := p.Functor(a.Name)
			if !ok {
				return fmt.Errorf("%w: @%s", datalog.ErrUnknownFunctor, a.Name)
			}
			if len(decl.Params) != len(a.Args) {
				return fmt.Errorf("%w: @%s takes %d arguments", datalog.ErrArityMismatch, a.Name, len(decl.Params))
			}
		case *ast.Aggregator:
			if a.IsUserDefined() {
				decl, ok := p.Functor(a.Functor())
				if !ok {
					return fmt.Errorf("%w: aggregate %s", datalog.ErrUnknownFunctor, a.Op)
				}
				if len(decl.Params) != 2 {
					return fmt.Errorf("%w: aggregate %s must take an accumulator and a value", datalog.ErrArityMismatch, a.Op)
				}
				if a.Init == nil || a.Target == nil {
					return fmt.Errorf("%w: aggregate %s needs init and target", datalog.ErrUngroundedVariable, a.Op)
				}
				return nil
			}
			switch a.Op {
			case "count", "sum", "min", "max", "mean":
			default:
				return fmt.Errorf("%w: aggregate %s", datalog.ErrUnknownFunctor, a.Op)
			}
			if a.Op != "count" && a.Target == nil {
				return fmt.Errorf("%w: %s needs a target expression", datalog.ErrUngroundedVariable, a.Op)
			}
		}
		return nil
	})
}

// bindingVariables are the variables a positive body atom argument binds:
// plain variables and variables inside record or constructor patterns
func bindingVariables(arg ast.Argument, out []string) []string {
	switch a := arg.(type) {
	case *ast.Variable:
		out = append(out, a.Name)
	case *ast.RecordInit:
		for _, x := range a.Args {
			out = bindingVariables(x, out)
		}
	case *ast.BranchInit:
		for _, x := range a.Args {
			out = bindingVariables(x, out)
		}
	}
	return out
}

func checkGrounded(c *ast.Clause) error {
	grounded := make(map[string]bool)
	binders := c.BodyAtoms()
	if c.IsSubsumptive() {
		// both heads range over the relation itself
		binders = append(binders, c.Head, c.SubsumptiveHead)
	}
	for _, a := range binders {
		for _, arg := range a.Args {
			for _, v := range bindingVariables(arg, nil) {
				grounded[v] = true
			}
		}
	}
	allGrounded := func(arg ast.Argument) bool {
		for _, v := range ast.ArgumentVariables(arg, nil) {
			if !grounded[v] {
				return false
			}
		}
		return true
	}
	for changed := true; changed; {
		changed = false
		for _, lit := range c.Body {
			bc, ok := lit.(*ast.BinaryConstraint)
			if !ok || bc.Op != "=" {
				continue
			}
			for _, pair := range [][2]ast.Argument{{bc.LHS, bc.RHS}, {bc.RHS, bc.LHS}} {
				if v, ok := pair[0].(*ast.Variable); ok && !grounded[v.Name] && allGrounded(pair[1]) {
					grounded[v.Name] = true
					changed = true
				}
			}
		}
	}

	check := func(args []ast.Argument, where string) error {
		for _, arg := range args {
			for _, v := range ast.ArgumentVariables(arg, nil) {
				if !grounded[v] {
					return fmt.Errorf("%w: %s in %s", datalog.ErrUngroundedVariable, v, where)
				}
			}
		}
		return nil
	}
	if err := check(c.Head.Args, "head"); err != nil {
		return err
	}
	if c.SubsumptiveHead != nil {
		if err := check(c.SubsumptiveHead.Args, "subsumptive head"); err != nil {
			return err
		}
	}
	for _, lit := range c.Body {
		switch l := lit.(type) {
		case *ast.Negation:
			if err := check(l.Atom.Args, "negation"); err != nil {
				return err
			}
		case *ast.BinaryConstraint:
			if err := check([]ast.Argument{l.LHS, l.RHS}, "constraint"); err != nil {
				return err
			}
		}
	}
	return nil
}
