package translator

import (
	"errors"
	"fmt"

	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/ast"
	"github.com/wbrown/janus-strata/datalog/ram"
)

// atomSource is a body atom together with the RAM relation it reads
type atomSource struct {
	atom     *ast.Atom
	relation string
	decl     *ast.Relation
}

type levelKind uint8

const (
	levelScan levelKind = iota
	levelUnpack
	levelAggregate
)

// loopLevel is one nesting level of the query being built
type loopLevel struct {
	kind      levelKind
	relation  string
	values    []ram.Expression
	source    ram.Expression
	arity     int
	aggregate *ram.Aggregate
}

type placedCondition struct {
	cond  ram.Condition
	level int
}

// clauseTranslator lowers one clause version into a single query
type clauseTranslator struct {
	ctx      *Context
	clause   *ast.Clause
	vi       *ValueIndex
	levels   []*loopLevel
	conds    []placedCondition
	consumed map[*ast.BinaryConstraint]bool
	outer    map[string]bool
}

func newClauseTranslator(ctx *Context, c *ast.Clause) *clauseTranslator {
	ct := &clauseTranslator{
		ctx:      ctx,
		clause:   c,
		vi:       newValueIndex(),
		consumed: make(map[*ast.BinaryConstraint]bool),
		outer:    make(map[string]bool),
	}
	// variables visible outside aggregate bodies; aggregate bodies that
	// mention them are correlated with the enclosing clause
	mark := func(args []ast.Argument) {
		for _, a := range args {
			for _, v := range ast.ArgumentVariables(a, nil) {
				ct.outer[v] = true
			}
		}
	}
	mark(c.Head.Args)
	if c.SubsumptiveHead != nil {
		mark(c.SubsumptiveHead.Args)
	}
	for _, lit := range c.Body {
		for _, v := range ast.LiteralVariables(lit, nil) {
			ct.outer[v] = true
		}
	}
	return ct
}

func (ct *clauseTranslator) addLevel(l *loopLevel) int {
	ct.levels = append(ct.levels, l)
	return len(ct.levels) - 1
}

func (ct *clauseTranslator) addCondition(c ram.Condition) {
	ct.conds = append(ct.conds, placedCondition{cond: c, level: levelOf(c)})
}

// bindAtom allocates a scan level for a body atom and binds its arguments
func (ct *clauseTranslator) bindAtom(src atomSource) (int, error) {
	width := len(src.decl.Attributes)
	if len(src.atom.Args) != width {
		return 0, fmt.Errorf("%w: %s", datalog.ErrArityMismatch, src.atom)
	}
	lvl := ct.addLevel(&loopLevel{
		kind:     levelScan,
		relation: src.relation,
		values:   ram.Undefs(width),
	})
	types := ct.ctx.AttributeTypes(src.decl)
	for i, arg := range src.atom.Args {
		if err := ct.bindArgument(lvl, i, arg, types[i]); err != nil {
			return 0, err
		}
	}
	return lvl, nil
}

// bindArgument binds element elem of level lvl against a pattern argument.
// Unbound variables are defined there, everything else becomes an equality
// condition that may later be folded into the scan pattern.
func (ct *clauseTranslator) bindArgument(lvl, elem int, arg ast.Argument, ty datalog.TypeAttribute) error {
	here := &ram.TupleElement{Level: lvl, Element: elem}
	switch a := arg.(type) {
	case *ast.UnnamedVariable:
		return nil

	case *ast.Variable:
		if expr, _, ok := ct.vi.Lookup(a.Name); ok {
			ct.addCondition(&ram.Constraint{Op: ram.OpEq, Type: ty, LHS: here, RHS: expr})
			return nil
		}
		ct.vi.Define(a.Name, here, lvl)
		return nil

	case *ast.RecordInit:
		if ct.ground(a) {
			break
		}
		inner := ct.addLevel(&loopLevel{kind: levelUnpack, source: here, arity: len(a.Args)})
		for i, x := range a.Args {
			if err := ct.bindArgument(inner, i, x, ct.patternType(x)); err != nil {
				return err
			}
		}
		return nil

	case *ast.BranchInit:
		if ct.ground(a) || ct.ctx.IsADTEnum(a) {
			break
		}
		branch := ct.ctx.ADTBranch(a)
		inner := ct.addLevel(&loopLevel{kind: levelUnpack, source: here, arity: 2})
		ct.addCondition(&ram.Constraint{
			Op:   ram.OpEq,
			Type: datalog.TypeSigned,
			LHS:  &ram.TupleElement{Level: inner, Element: 0},
			RHS:  &ram.SignedConstant{Value: int64(branch.ID)},
		})
		switch {
		case len(a.Args) == 1:
			return ct.bindArgument(inner, 1, a.Args[0], branch.Fields[0])
		case len(a.Args) > 1:
			return ct.bindArgument(inner, 1, &ast.RecordInit{Args: a.Args}, datalog.TypeRecord)
		}
		return nil
	}

	// a ground value: compare once everything it needs is bound
	expr, err := ct.translateValue(arg)
	if err != nil {
		return err
	}
	ct.addCondition(&ram.Constraint{Op: ram.OpEq, Type: ty, LHS: here, RHS: expr})
	return nil
}

// ground reports whether every variable of arg is already bound
func (ct *clauseTranslator) ground(arg ast.Argument) bool {
	for _, v := range ast.ArgumentVariables(arg, nil) {
		if !ct.vi.IsDefined(v) {
			return false
		}
	}
	return true
}

func (ct *clauseTranslator) patternType(arg ast.Argument) datalog.TypeAttribute {
	if v, ok := arg.(*ast.Variable); ok {
		if ty, ok := ct.ctx.Analyses().Types.VariableType(ct.clause.ID, v.Name); ok {
			return ty
		}
	}
	return datalog.TypeSigned
}

// dependencies lists the outer variables an argument needs, including the
// variables aggregate bodies share with the clause
func (ct *clauseTranslator) dependencies(arg ast.Argument) []string {
	deps := ast.ArgumentVariables(arg, nil)
	for _, agg := range ast.ArgumentAggregators(arg, nil) {
		if agg.Init != nil {
			deps = ast.ArgumentVariables(agg.Init, deps)
		}
		if agg.Target != nil {
			for _, v := range ast.ArgumentVariables(agg.Target, nil) {
				if ct.outer[v] {
					deps = append(deps, v)
				}
			}
		}
		for _, lit := range agg.Body {
			for _, v := range ast.LiteralVariables(lit, nil) {
				if ct.outer[v] {
					deps = append(deps, v)
				}
			}
		}
	}
	return deps
}

func (ct *clauseTranslator) ready(arg ast.Argument) bool {
	for _, v := range ct.dependencies(arg) {
		if !ct.vi.IsDefined(v) {
			return false
		}
	}
	return true
}

// bindGenerators defines variables introduced by "x = expr" until no more
// can be defined
func (ct *clauseTranslator) bindGenerators() error {
	for changed := true; changed; {
		changed = false
		for _, lit := range ct.clause.Body {
			bc, ok := lit.(*ast.BinaryConstraint)
			if !ok || bc.Op != "=" || ct.consumed[bc] {
				continue
			}
			for _, pair := range [][2]ast.Argument{{bc.LHS, bc.RHS}, {bc.RHS, bc.LHS}} {
				target, source := pair[0], pair[1]
				if !ct.ready(source) {
					continue
				}
				switch t := target.(type) {
				case *ast.Variable:
					if ct.vi.IsDefined(t.Name) {
						continue
					}
					expr, err := ct.translateValue(source)
					if err != nil {
						return err
					}
					ct.vi.Define(t.Name, expr, levelOf(expr))
				case *ast.RecordInit:
					if ct.ground(t) {
						continue
					}
					expr, err := ct.translateValue(source)
					if err != nil {
						return err
					}
					inner := ct.addLevel(&loopLevel{kind: levelUnpack, source: expr, arity: len(t.Args)})
					for i, x := range t.Args {
						if err := ct.bindArgument(inner, i, x, ct.patternType(x)); err != nil {
							return err
						}
					}
				default:
					continue
				}
				ct.consumed[bc] = true
				changed = true
				break
			}
		}
	}
	return nil
}

// bindBody translates every body literal that is not a scanned atom into
// conditions
func (ct *clauseTranslator) bindBody() error {
	for _, lit := range ct.clause.Body {
		switch l := lit.(type) {
		case *ast.Atom:
		case *ast.BinaryConstraint:
			if ct.consumed[l] {
				continue
			}
			cond, err := ct.translateConstraint(ct.vi, l)
			if err != nil {
				return err
			}
			ct.addCondition(cond)
		case *ast.Negation:
			cond, err := ct.translateNegation(ct.vi, l)
			if err != nil {
				return err
			}
			ct.addCondition(cond)
		case *ast.BooleanConstraint:
			if !l.Value {
				ct.addCondition(&ram.False{})
			}
		default:
			return fmt.Errorf("unsupported literal %T", lit)
		}
	}
	return nil
}

// foldPatterns moves equality conditions on a scanned element into the
// scan pattern when the compared value is known before the scan starts
func (ct *clauseTranslator) foldPatterns() {
	kept := ct.conds[:0]
	for _, pc := range ct.conds {
		if !ct.foldCondition(pc.cond) {
			kept = append(kept, pc)
		}
	}
	ct.conds = kept
}

func (ct *clauseTranslator) foldCondition(cond ram.Condition) bool {
	c, ok := cond.(*ram.Constraint)
	if !ok || c.Op != ram.OpEq || c.Type == datalog.TypeFloat {
		return false
	}
	for _, pair := range [][2]ram.Expression{{c.LHS, c.RHS}, {c.RHS, c.LHS}} {
		te, ok := pair[0].(*ram.TupleElement)
		if !ok || te.Level >= len(ct.levels) {
			continue
		}
		l := ct.levels[te.Level]
		if l.kind != levelScan || !ram.IsUndef(l.values[te.Element]) {
			continue
		}
		if levelOf(pair[1]) >= te.Level || ram.HasStatefulCall(pair[1]) {
			continue
		}
		l.values[te.Element] = pair[1]
		return true
	}
	return false
}

// assemble nests the levels around the innermost operation, placing each
// condition right after the level that binds its last variable
func (ct *clauseTranslator) assemble(innermost ram.Operation) ram.Operation {
	ct.foldPatterns()
	byLevel := make(map[int][]ram.Condition)
	for _, pc := range ct.conds {
		byLevel[pc.level] = append(byLevel[pc.level], pc.cond)
	}
	filter := func(lvl int, op ram.Operation) ram.Operation {
		if conds := byLevel[lvl]; len(conds) > 0 {
			return &ram.Filter{Condition: ram.And(conds...), Nested: op}
		}
		return op
	}

	op := innermost
	for lvl := len(ct.levels) - 1; lvl >= 0; lvl-- {
		op = filter(lvl, op)
		l := ct.levels[lvl]
		switch l.kind {
		case levelScan:
			if ram.PatternSignature(l.values) == 0 {
				op = &ram.Scan{Relation: l.relation, Level: lvl, Nested: op}
			} else {
				op = &ram.IndexScan{Relation: l.relation, Level: lvl, Values: l.values, Nested: op}
			}
		case levelUnpack:
			op = &ram.UnpackRecord{Expression: l.source, Arity: l.arity, Level: lvl, Nested: op}
		case levelAggregate:
			l.aggregate.Nested = op
			op = l.aggregate
		}
	}
	return filter(-1, op)
}

// translateHead builds the values of a head atom
func (ct *clauseTranslator) translateHead(head *ast.Atom) ([]ram.Expression, error) {
	values := make([]ram.Expression, len(head.Args))
	for i, arg := range head.Args {
		expr, err := ct.translateValue(arg)
		if err != nil {
			return nil, err
		}
		if ram.IsUndef(expr) {
			return nil, fmt.Errorf("%w: _ in head of %s", datalog.ErrUngroundedVariable, ct.clause)
		}
		values[i] = expr
	}
	return values, nil
}

// query wraps an operation into a query statement, annotated with the
// clause text when debug info is enabled
func (ct *clauseTranslator) query(op ram.Operation) ram.Statement {
	q := &ram.Query{Operation: op, Sequential: ram.HasStatefulCall(op)}
	if !ct.ctx.Options().DebugInfo {
		return q
	}
	msg := ct.clause.String()
	if loc := ct.clause.Loc.String(); loc != "" {
		msg += " in " + loc
	}
	return &ram.DebugInfo{Message: msg, Statement: q}
}

// primaryPattern turns head values into an existence pattern; auxiliary
// attributes never take part in identity
func primaryPattern(values []ram.Expression, aux int) []ram.Expression {
	out := make([]ram.Expression, len(values))
	copy(out, values)
	for i := len(values) - aux; i < len(values); i++ {
		out[i] = &ram.UndefValue{}
	}
	return out
}

// TranslateNonRecursive lowers a clause that is evaluated once. Facts and
// rules insert into their relation. A subsumptive clause becomes a full
// pass over the relation that collects dominated tuples in @delete_R.
func TranslateNonRecursive(ctx *Context, c *ast.Clause) (ram.Statement, error) {
	versions := 1
	if c.IsSubsumptive() {
		versions = 2
	}
	if err := checkPlan(c, versions); err != nil {
		return nil, err
	}
	rel := ctx.Relation(c.Head.Relation)
	name := string(rel.Name)
	if c.IsSubsumptive() {
		return translateSubsumptive(ctx, c, name, name, 0)
	}
	ct := newClauseTranslator(ctx, c)
	sources, err := ct.orderedSources(c.BodyAtoms(), 0, func(a *ast.Atom, _ int) string {
		return string(a.Relation)
	}, nil)
	if err != nil {
		return nil, err
	}
	return ct.translateRule(sources, rel, name, false)
}

// TranslateRecursive lowers one version of a recursive clause over the
// relations of scc. For ordinary rules the version-th body atom from scc
// reads @delta_R, the other scc atoms read R, and the head goes to
// @new_R unless R already holds it. Subsumptive clauses have two versions:
// version 0 takes the dominating tuple from @new_R, version 1 takes the
// dominated tuple from @new_R.
func TranslateRecursive(ctx *Context, c *ast.Clause, scc []*ast.Relation, version int) (ram.Statement, error) {
	versions := RecursiveVersions(ctx, c, scc)
	if version < 0 || version >= versions {
		return nil, fmt.Errorf("clause %s has %d recursive versions, asked for %d", c, versions, version)
	}
	if err := checkPlan(c, versions); err != nil {
		return nil, err
	}
	rel := ctx.Relation(c.Head.Relation)
	name := string(rel.Name)
	if c.IsSubsumptive() {
		if version == 0 {
			return translateSubsumptive(ctx, c, ram.NewName(name), name, version)
		}
		return translateSubsumptive(ctx, c, name, ram.NewName(name), version)
	}

	inSCC := sccMembers(scc)
	ct := newClauseTranslator(ctx, c)
	sources, err := ct.orderedSources(c.BodyAtoms(), version, func(a *ast.Atom, sccIndex int) string {
		if sccIndex == version {
			return ram.DeltaName(string(a.Relation))
		}
		return string(a.Relation)
	}, inSCC)
	if err != nil {
		return nil, err
	}
	return ct.translateRule(sources, rel, ram.NewName(name), true)
}

// RecursiveVersions returns how many versions a recursive clause has: one
// per body atom over scc, or two for subsumptive clauses
func RecursiveVersions(ctx *Context, c *ast.Clause, scc []*ast.Relation) int {
	if c.IsSubsumptive() {
		return 2
	}
	inSCC := sccMembers(scc)
	n := 0
	for _, a := range c.BodyAtoms() {
		if inSCC[a.Relation] {
			n++
		}
	}
	return n
}

func sccMembers(scc []*ast.Relation) map[ast.QualifiedName]bool {
	m := make(map[ast.QualifiedName]bool, len(scc))
	for _, r := range scc {
		m[r.Name] = true
	}
	return m
}

// orderedSources resolves body atoms to the relations they read and
// orders them by execution plan or SIPS metric. name receives each atom
// and its position among the scc atoms, -1 when it is not one.
func (ct *clauseTranslator) orderedSources(atoms []*ast.Atom, version int,
	name func(*ast.Atom, int) string, inSCC map[ast.QualifiedName]bool) ([]atomSource, error) {

	sources := make([]atomSource, len(atoms))
	sccIndex := 0
	for i, a := range atoms {
		idx := -1
		if inSCC[a.Relation] {
			idx = sccIndex
			sccIndex++
		}
		sources[i] = atomSource{atom: a, relation: name(a, idx), decl: ct.ctx.Relation(a.Relation)}
	}
	if order, ok := ct.clause.Plan.Order(version); ok {
		out := make([]atomSource, len(order))
		for i, pos := range order {
			out[i] = sources[pos-1]
		}
		return out, nil
	}
	bound := make(map[string]bool)
	if ct.clause.IsSubsumptive() {
		for _, h := range []*ast.Atom{ct.clause.Head, ct.clause.SubsumptiveHead} {
			for _, arg := range h.Args {
				for _, v := range ast.ArgumentVariables(arg, nil) {
					bound[v] = true
				}
			}
		}
	}
	return orderAtoms(ct.ctx.SIPS(), sources, bound), nil
}

// translateRule builds the query of an ordinary rule or fact
func (ct *clauseTranslator) translateRule(sources []atomSource, rel *ast.Relation, target string, guarded bool) (ram.Statement, error) {
	for _, src := range sources {
		if _, err := ct.bindAtom(src); err != nil {
			return nil, err
		}
	}
	if err := ct.bindGenerators(); err != nil {
		return nil, err
	}
	if err := ct.bindBody(); err != nil {
		return nil, err
	}
	values, err := ct.translateHead(ct.clause.Head)
	if err != nil {
		return nil, err
	}

	var op ram.Operation = &ram.Insert{Relation: target, Values: values}
	if guarded && !ram.HasStatefulCall(&ram.Insert{Values: values}) {
		op = &ram.Filter{
			Condition: ram.Not(&ram.ExistenceCheck{
				Relation: string(rel.Name),
				Values:   primaryPattern(values, rel.AuxiliaryArity),
			}),
			Nested: op,
		}
	}
	if ct.ctx.HasSizeLimit(rel) {
		op = &ram.Break{
			Condition: &ram.Constraint{
				Op:   ram.OpGe,
				Type: datalog.TypeSigned,
				LHS:  &ram.RelationSize{Relation: string(rel.Name)},
				RHS:  &ram.SignedConstant{Value: int64(ct.ctx.SizeLimit(rel))},
			},
			Nested: op,
		}
	}
	return ct.query(ct.assemble(op)), nil
}

// translateSubsumptive builds "R(h) <= R(s) :- body": the head and the
// subsumptive head become scans over headRel and subRel, and every
// distinct pair satisfying the body marks the subsumptive head tuple as
// dominated in @delete_R
func translateSubsumptive(ctx *Context, c *ast.Clause, headRel, subRel string, version int) (ram.Statement, error) {
	if c.SubsumptiveHead == nil || c.SubsumptiveHead.Relation != c.Head.Relation {
		return nil, fmt.Errorf("%w: %s", datalog.ErrSubsumptiveHeadMismatch, c)
	}
	rel := ctx.Relation(c.Head.Relation)
	ct := newClauseTranslator(ctx, c)

	dominating, err := ct.bindAtom(atomSource{atom: c.Head, relation: headRel, decl: rel})
	if err != nil {
		return nil, err
	}
	dominated, err := ct.bindAtom(atomSource{atom: c.SubsumptiveHead, relation: subRel, decl: rel})
	if err != nil {
		return nil, err
	}
	body, err := ct.orderedSources(c.BodyAtoms(), version, func(a *ast.Atom, _ int) string {
		return string(a.Relation)
	}, nil)
	if err != nil {
		return nil, err
	}
	for _, src := range body {
		if _, err := ct.bindAtom(src); err != nil {
			return nil, err
		}
	}
	if err := ct.bindGenerators(); err != nil {
		return nil, err
	}
	if err := ct.bindBody(); err != nil {
		return nil, err
	}

	types := ctx.AttributeTypes(rel)
	primary := len(types) - rel.AuxiliaryArity
	same := make([]ram.Condition, primary)
	for i := 0; i < primary; i++ {
		same[i] = &ram.Constraint{
			Op:   ram.OpEq,
			Type: types[i],
			LHS:  &ram.TupleElement{Level: dominating, Element: i},
			RHS:  &ram.TupleElement{Level: dominated, Element: i},
		}
	}
	if primary > 0 {
		ct.addCondition(ram.Not(ram.And(same...)))
	} else {
		// a nullary relation has one tuple, which cannot dominate itself
		ct.addCondition(&ram.False{})
	}

	values := make([]ram.Expression, len(types))
	for i := range values {
		values[i] = &ram.TupleElement{Level: dominated, Element: i}
	}
	insert := &ram.Insert{Relation: ram.DeleteName(string(rel.Name)), Values: values}
	return ct.query(ct.assemble(insert)), nil
}

// checkPlan validates the execution plan against the number of versions
// and body atoms
func checkPlan(c *ast.Clause, versions int) error {
	if c.Plan == nil {
		return nil
	}
	atoms := len(c.BodyAtoms())
	for v, order := range c.Plan.Orders {
		if v < 0 || v >= max(versions, 1) {
			return fmt.Errorf("%w: clause %s has no version %d", datalog.ErrMalformedPlan, c, v)
		}
		if len(order) != atoms {
			return fmt.Errorf("%w: version %d orders %d atoms, clause has %d",
				datalog.ErrMalformedPlan, v, len(order), atoms)
		}
		seen := make([]bool, atoms+1)
		for _, pos := range order {
			if pos < 1 || pos > atoms || seen[pos] {
				return fmt.Errorf("%w: version %d is not a permutation of 1..%d", datalog.ErrMalformedPlan, v, atoms)
			}
			seen[pos] = true
		}
	}
	return nil
}

var errNestedAggregate = errors.New("aggregates inside aggregate bodies are not supported")
