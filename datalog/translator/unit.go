// Package translator lowers an analysed Datalog program into RAM. Every
// stratum becomes a block that loads its inputs, evaluates its clauses
// once or in a semi-naive fixpoint loop, stores its outputs and releases
// relations nothing reads any more.
package translator

import (
	"fmt"
	"maps"

	"github.com/wbrown/janus-strata/datalog/ast"
	"github.com/wbrown/janus-strata/datalog/ram"
)

// TranslateUnit translates the whole program behind ctx
func TranslateUnit(ctx *Context) (*ram.Program, error) {
	prog := ram.NewProgram()
	declareRelations(ctx, prog)

	var strata []ram.Statement
	for i := 0; i < ctx.NumberOfStrata(); i++ {
		stmt, err := translateStratum(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("stratum %d: %w", i, err)
		}
		strata = append(strata, stmt)
	}
	prog.Main = ram.Seq(strata...)
	return prog, nil
}

// Translate analyses p and translates it with the given options
func Translate(p *ast.Program, opts Options) (*ram.Program, error) {
	ctx, err := NewContext(p, opts)
	if err != nil {
		return nil, err
	}
	return TranslateUnit(ctx)
}

func declareRelations(ctx *Context, prog *ram.Program) {
	recursive := make(map[ast.RelationID]bool)
	for i := 0; i < ctx.NumberOfStrata(); i++ {
		if ctx.IsRecursiveStratum(i) {
			for _, rel := range ctx.RelationsInStratum(i) {
				recursive[rel.ID] = true
			}
		}
	}
	for _, rel := range ctx.Program().Relations() {
		subsumptive := ctx.HasSubsumptiveClause(rel)
		decl := func(name string, temporary bool) *ram.Relation {
			r := &ram.Relation{
				Name:           name,
				Arity:          rel.Arity() - rel.AuxiliaryArity,
				AuxiliaryArity: rel.AuxiliaryArity,
				AttributeTypes: ctx.AttributeTypes(rel),
				Representation: ram.RepresentationBTree,
				Temporary:      temporary,
			}
			for _, a := range rel.Attributes {
				r.AttributeNames = append(r.AttributeNames, a.Name)
			}
			if subsumptive || rel.Representation == ast.RepresentationBTreeDelete {
				r.Representation = ram.RepresentationBTreeDelete
			}
			return r
		}
		name := string(rel.Name)
		prog.AddRelation(decl(name, false))
		if recursive[rel.ID] {
			prog.AddRelation(decl(ram.DeltaName(name), true))
			prog.AddRelation(decl(ram.NewName(name), true))
		}
		if subsumptive {
			prog.AddRelation(decl(ram.DeleteName(name), true))
		}
	}
}

func translateStratum(ctx *Context, i int) (ram.Statement, error) {
	rels := ctx.RelationsInStratum(i)
	var stmts []ram.Statement

	for _, rel := range rels {
		for _, d := range ctx.LoadDirectives(rel) {
			stmts = append(stmts, ioStatement(rel, d))
		}
	}

	if ctx.IsRecursiveStratum(i) {
		body, err := translateRecursiveStratum(ctx, rels)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, body)
	} else {
		for _, rel := range rels {
			for _, c := range ctx.Program().ClausesOf(rel.Name) {
				stmt, err := ctx.TranslateNonRecursiveClause(c)
				if err != nil {
					return nil, err
				}
				stmts = append(stmts, stmt)
			}
		}
	}

	for _, rel := range rels {
		for _, d := range ctx.StoreDirectives(rel) {
			stmts = append(stmts, ioStatement(rel, d))
		}
	}
	if ctx.Options().ReleaseExpired {
		for _, rel := range ctx.ExpiredRelations(i) {
			stmts = append(stmts, &ram.Clear{Relation: string(rel.Name)})
		}
	}

	return &ram.Stratum{
		Index:     i,
		Relations: relationNames(rels),
		Inputs:    relationNames(ctx.InputRelations(i)),
		Outputs:   relationNames(ctx.OutputRelations(i)),
		Recursive: ctx.IsRecursiveStratum(i),
		Body:      ram.Seq(stmts...),
	}, nil
}

func relationNames(rels []*ast.Relation) []string {
	names := make([]string, len(rels))
	for j, rel := range rels {
		names[j] = string(rel.Name)
	}
	return names
}

func ioStatement(rel *ast.Relation, d ast.Directive) *ram.IO {
	params := make(map[string]string, len(d.Params)+1)
	maps.Copy(params, d.Params)
	params["operation"] = d.Kind.String()
	return &ram.IO{Relation: string(rel.Name), Directives: params}
}

// translateRecursiveStratum emits the semi-naive evaluation of one SCC:
//
//	R      := non-recursive clauses, minus dominated tuples
//	delta  := R
//	loop:
//	  new    := recursive versions over delta, not already in R
//	  exit when every new is empty
//	  R      := R ∪ new, minus tuples dominated by or dominating new ones
//	  delta  := new minus dominated tuples; new := ∅
func translateRecursiveStratum(ctx *Context, rels []*ast.Relation) (ram.Statement, error) {
	var preamble, versions, publish, postamble []ram.Statement

	for _, rel := range rels {
		name := string(rel.Name)
		for _, c := range ctx.Program().ClausesOf(rel.Name) {
			if ctx.IsRecursiveClause(c) {
				continue
			}
			stmt, err := ctx.TranslateNonRecursiveClause(c)
			if err != nil {
				return nil, err
			}
			preamble = append(preamble, stmt)
		}
		if ctx.HasSubsumptiveClause(rel) {
			var passes []ram.Statement
			for _, c := range ctx.Program().ClausesOf(rel.Name) {
				if !c.IsSubsumptive() {
					continue
				}
				stmt, err := ctx.TranslateNonRecursiveClause(c)
				if err != nil {
					return nil, err
				}
				passes = append(passes, stmt)
			}
			preamble = append(preamble, passes...)
			preamble = append(preamble,
				&ram.EraseAll{Target: name, Source: ram.DeleteName(name)},
				&ram.Clear{Relation: ram.DeleteName(name)},
			)
		}
	}
	for _, rel := range rels {
		name := string(rel.Name)
		preamble = append(preamble, &ram.Merge{Target: ram.DeltaName(name), Source: name})
	}

	var empty []ram.Condition
	for _, rel := range rels {
		name := string(rel.Name)
		empty = append(empty, &ram.EmptinessCheck{Relation: ram.NewName(name)})
		for _, c := range ctx.Program().ClausesOf(rel.Name) {
			if !ctx.IsRecursiveClause(c) || c.IsSubsumptive() {
				continue
			}
			for v := 0; v < RecursiveVersions(ctx, c, rels); v++ {
				stmt, err := ctx.TranslateRecursiveClause(c, rels, v)
				if err != nil {
					return nil, err
				}
				versions = append(versions, stmt)
			}
		}
	}

	for _, rel := range rels {
		name := string(rel.Name)
		publish = append(publish, &ram.Merge{Target: name, Source: ram.NewName(name)})
	}
	for _, rel := range rels {
		if !ctx.HasSubsumptiveClause(rel) {
			continue
		}
		name := string(rel.Name)
		for _, c := range ctx.Program().ClausesOf(rel.Name) {
			if !c.IsSubsumptive() {
				continue
			}
			for v := 0; v < RecursiveVersions(ctx, c, rels); v++ {
				stmt, err := ctx.TranslateRecursiveClause(c, rels, v)
				if err != nil {
					return nil, err
				}
				publish = append(publish, stmt)
			}
		}
		publish = append(publish,
			&ram.EraseAll{Target: name, Source: ram.DeleteName(name)},
			&ram.EraseAll{Target: ram.NewName(name), Source: ram.DeleteName(name)},
			&ram.Clear{Relation: ram.DeleteName(name)},
		)
	}
	for _, rel := range rels {
		name := string(rel.Name)
		publish = append(publish,
			&ram.Swap{First: ram.DeltaName(name), Second: ram.NewName(name)},
			&ram.Clear{Relation: ram.NewName(name)},
		)
		postamble = append(postamble,
			&ram.Clear{Relation: ram.DeltaName(name)},
			&ram.Clear{Relation: ram.NewName(name)},
		)
	}

	var iterate ram.Statement
	switch len(versions) {
	case 0:
	case 1:
		iterate = versions[0]
	default:
		iterate = &ram.Parallel{Statements: versions}
	}
	loop := &ram.Loop{Body: ram.Seq(
		iterate,
		&ram.Exit{Condition: ram.And(empty...)},
		ram.Seq(publish...),
	)}
	return ram.Seq(ram.Seq(preamble...), loop, ram.Seq(postamble...)), nil
}
