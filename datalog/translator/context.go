package translator

import (
	"fmt"

	"github.com/wbrown/janus-strata/datalog"
	"github.com/wbrown/janus-strata/datalog/analysis"
	"github.com/wbrown/janus-strata/datalog/ast"
	"github.com/wbrown/janus-strata/datalog/ram"
)

// Context is the read-only view of a program and its analyses that
// clause translation works from. Lookups that miss are internal errors
// and panic.
type Context struct {
	program    *ast.Program
	analyses   *analysis.Analyses
	opts       Options
	clauseNums map[ast.ClauseID]int
}

// NewContext analyses p and returns a translation context
func NewContext(p *ast.Program, opts Options) (*Context, error) {
	a, err := analysis.Run(p)
	if err != nil {
		return nil, err
	}
	return NewContextFromAnalyses(a, opts), nil
}

// NewContextFromAnalyses wraps analyses that were already computed
func NewContextFromAnalyses(a *analysis.Analyses, opts Options) *Context {
	if opts.SIPS == "" {
		opts.SIPS = SIPSStrict
	}
	ctx := &Context{
		program:    a.Program,
		analyses:   a,
		opts:       opts,
		clauseNums: make(map[ast.ClauseID]int),
	}
	for _, rel := range a.Program.Relations() {
		for i, c := range a.Program.ClausesOf(rel.Name) {
			ctx.clauseNums[c.ID] = i
		}
	}
	return ctx
}

// Program returns the translated program
func (ctx *Context) Program() *ast.Program { return ctx.program }

// Analyses returns the analysis results
func (ctx *Context) Analyses() *analysis.Analyses { return ctx.analyses }

// Options returns the translation options
func (ctx *Context) Options() Options { return ctx.opts }

// SIPS returns the atom ordering metric
func (ctx *Context) SIPS() SIPSMetric { return ctx.opts.SIPS }

// Relation methods

// Relation resolves a relation by name
func (ctx *Context) Relation(name ast.QualifiedName) *ast.Relation {
	rel := ctx.program.Relation(name)
	if rel == nil {
		panic(fmt.Sprintf("translator: relation %s not declared", name))
	}
	return rel
}

// RelationByID resolves a relation id
func (ctx *Context) RelationByID(id ast.RelationID) *ast.Relation {
	return ctx.program.RelationByID(id)
}

// AttributeTypes returns the attribute types of a relation
func (ctx *Context) AttributeTypes(rel *ast.Relation) []datalog.TypeAttribute {
	return ctx.analyses.AttributeTypes(rel)
}

// LoadDirectives returns the input directives of a relation
func (ctx *Context) LoadDirectives(rel *ast.Relation) []ast.Directive {
	return ctx.analyses.IO.Loads(rel.ID)
}

// StoreDirectives returns the output directives of a relation
func (ctx *Context) StoreDirectives(rel *ast.Relation) []ast.Directive {
	return ctx.analyses.IO.Stores(rel.ID)
}

// HasSizeLimit reports whether a relation declares limitsize
func (ctx *Context) HasSizeLimit(rel *ast.Relation) bool { return rel.SizeLimit > 0 }

// SizeLimit returns the limitsize of a relation
func (ctx *Context) SizeLimit(rel *ast.Relation) int { return rel.SizeLimit }

// Clause methods

// HasSubsumptiveClause reports whether any clause of rel is subsumptive
func (ctx *Context) HasSubsumptiveClause(rel *ast.Relation) bool {
	for _, c := range ctx.program.ClausesOf(rel.Name) {
		if c.IsSubsumptive() {
			return true
		}
	}
	return false
}

// IsRecursiveClause reports whether c is evaluated inside a fixpoint
func (ctx *Context) IsRecursiveClause(c *ast.Clause) bool {
	return ctx.analyses.RecursiveClauses.IsRecursive(c)
}

// ClauseNum returns the position of c among the clauses of its relation
func (ctx *Context) ClauseNum(c *ast.Clause) int {
	n, ok := ctx.clauseNums[c.ID]
	if !ok {
		panic(fmt.Sprintf("translator: clause %s not numbered", c))
	}
	return n
}

// SCC methods

// NumberOfStrata returns the number of strata
func (ctx *Context) NumberOfStrata() int { return len(ctx.analyses.Strata) }

// Stratum returns stratum i in evaluation order
func (ctx *Context) Stratum(i int) analysis.Stratum { return ctx.analyses.Strata[i] }

// IsRecursiveStratum reports whether stratum i needs a fixpoint loop
func (ctx *Context) IsRecursiveStratum(i int) bool { return ctx.analyses.Strata[i].Recursive }

// RelationsInStratum resolves the relations of stratum i
func (ctx *Context) RelationsInStratum(i int) []*ast.Relation {
	return ctx.resolve(ctx.analyses.Strata[i].Relations)
}

// InputRelations resolves the inputs of stratum i
func (ctx *Context) InputRelations(i int) []*ast.Relation {
	return ctx.resolve(ctx.analyses.Strata[i].Inputs)
}

// OutputRelations resolves the outputs of stratum i
func (ctx *Context) OutputRelations(i int) []*ast.Relation {
	return ctx.resolve(ctx.analyses.Strata[i].Outputs)
}

// ExpiredRelations resolves the relations released after stratum i
func (ctx *Context) ExpiredRelations(i int) []*ast.Relation {
	return ctx.resolve(ctx.analyses.Strata[i].Expired)
}

func (ctx *Context) resolve(ids []ast.RelationID) []*ast.Relation {
	out := make([]*ast.Relation, len(ids))
	for i, id := range ids {
		out[i] = ctx.program.RelationByID(id)
	}
	return out
}

// Functor methods

// FunctorSignature returns the signature of a user-defined functor
func (ctx *Context) FunctorSignature(name string) analysis.FunctorSignature {
	sig, ok := ctx.analyses.Functors[name]
	if !ok {
		panic(fmt.Sprintf("translator: functor @%s not declared", name))
	}
	return sig
}

// IsStatefulFunctor reports whether a functor needs the symbol and record
// tables
func (ctx *Context) IsStatefulFunctor(name string) bool {
	return ctx.FunctorSignature(name).Stateful
}

// ADT methods

// ADTBranch returns the numbered branch of a constructor
func (ctx *Context) ADTBranch(b *ast.BranchInit) analysis.ADTBranch {
	branch, ok := ctx.analyses.ADTs.Branch(b.Constructor)
	if !ok {
		panic(fmt.Sprintf("translator: constructor $%s not declared", b.Constructor))
	}
	return branch
}

// IsADTEnum reports whether the type of a constructor has no fields at all
func (ctx *Context) IsADTEnum(b *ast.BranchInit) bool {
	return ctx.analyses.ADTs.IsEnum(ctx.ADTBranch(b).ADT)
}

// IsADTBranchSimple reports whether a branch is stored without an inner
// record
func (ctx *Context) IsADTBranchSimple(b *ast.BranchInit) bool {
	return len(ctx.ADTBranch(b).Fields) <= 1
}

// Polymorphic objects

// InferredNumericType returns the type a numeric constant resolved to
func (ctx *Context) InferredNumericType(n *ast.NumericConstant) datalog.TypeAttribute {
	return ctx.analyses.Types.NumericConstantType(n)
}

// OverloadedFunctorOp resolves an intrinsic functor to its operator and
// operand type
func (ctx *Context) OverloadedFunctorOp(f *ast.IntrinsicFunctor) (ram.FunctorOp, datalog.TypeAttribute) {
	op, ok := ram.LookupFunctorOp(f.Op)
	if !ok {
		panic(fmt.Sprintf("translator: intrinsic %s unknown", f.Op))
	}
	return op, ctx.analyses.Types.FunctorType(f)
}

// OverloadedConstraintOp resolves a binary constraint to its operator
// and operand type
func (ctx *Context) OverloadedConstraintOp(bc *ast.BinaryConstraint) (ram.ConstraintOp, datalog.TypeAttribute) {
	op, ok := ram.LookupConstraintOp(bc.Op)
	if !ok {
		panic(fmt.Sprintf("translator: constraint %s unknown", bc.Op))
	}
	return op, ctx.analyses.Types.ConstraintType(bc)
}

// OverloadedAggregateOp resolves an aggregator to its operator and the type
// of its target expression
func (ctx *Context) OverloadedAggregateOp(a *ast.Aggregator) (ram.AggregateOp, datalog.TypeAttribute) {
	if a.IsUserDefined() {
		return ram.AggUser, ctx.analyses.Types.AggregatorType(a)
	}
	op, ok := ram.LookupAggregateOp(a.Op)
	if !ok {
		panic(fmt.Sprintf("translator: aggregate %s unknown", a.Op))
	}
	return op, ctx.analyses.Types.AggregatorType(a)
}

// Translation entry points

// TranslateNonRecursiveClause lowers a clause evaluated once
func (ctx *Context) TranslateNonRecursiveClause(c *ast.Clause) (ram.Statement, error) {
	return TranslateNonRecursive(ctx, c)
}

// TranslateRecursiveClause lowers one version of a recursive clause
func (ctx *Context) TranslateRecursiveClause(c *ast.Clause, scc []*ast.Relation, version int) (ram.Statement, error) {
	return TranslateRecursive(ctx, c, scc, version)
}
